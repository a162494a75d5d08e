package app

import (
	"fmt"
	"sync"
	"time"

	"jsquiz-service/internal/domain"
)

const (
	// DefaultQuestionCount is how many questions a quiz draws from a theme.
	DefaultQuestionCount = 10
	// DefaultQuestionTimeLimit is the time a player gets per question.
	DefaultQuestionTimeLimit = 20 * time.Second

	tickInterval = time.Second
)

// State is the lifecycle position of a Session.
type State int

const (
	StateNotStarted State = iota
	StateInProgress
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateInProgress:
		return "in_progress"
	case StateFinished:
		return "finished"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// SessionOption customizes a Session at construction.
type SessionOption func(*Session)

// WithScheduler replaces the ticker-backed scheduler (tests drive ticks by hand).
func WithScheduler(scheduler Scheduler) SessionOption {
	return func(s *Session) { s.scheduler = scheduler }
}

// WithClock is used for deterministic total times.
func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) { s.now = now }
}

// WithQuestionTimeLimit sets the per-question limit, rounded down to whole seconds (minimum one).
func WithQuestionTimeLimit(limit time.Duration) SessionOption {
	return func(s *Session) {
		s.timeLimit = max(int(limit/time.Second), 1)
	}
}

// Session is one quiz attempt. All mutation goes through its methods and is serialized by mu.
// Presenter events are queued while mu is held and delivered in order after it is released.
type Session struct {
	id        string
	now       func() time.Time
	scheduler Scheduler
	presenter Presenter
	timeLimit int

	mu        sync.Mutex
	state     State
	abandoned bool
	theme     string
	questions []domain.Question
	answers   [][]int
	current   int
	remaining int
	elapsed   int
	startedAt time.Time
	result    *domain.Result

	// Epochs are bumped whenever a timer is armed or stopped; callbacks from older epochs are ignored.
	questionEpoch uint64
	globalEpoch   uint64
	questionTimer Timer
	globalTimer   Timer

	emitMu sync.Mutex
	outbox []func(Presenter)
}

// NewSession builds an idle session. A nil presenter discards events.
func NewSession(id string, presenter Presenter, opts ...SessionOption) *Session {
	if presenter == nil {
		presenter = NopPresenter{}
	}
	s := &Session{
		id:        id,
		now:       time.Now,
		scheduler: TickerScheduler{},
		presenter: presenter,
		timeLimit: int(DefaultQuestionTimeLimit / time.Second),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start moves the session into progress on the given questions and displays the first one.
func (s *Session) Start(theme string, questions []domain.Question) error {
	s.mu.Lock()
	err := s.startLocked(theme, questions)
	s.mu.Unlock()
	s.flush()
	return err
}

func (s *Session) startLocked(theme string, questions []domain.Question) error {
	if s.state != StateNotStarted {
		return domain.ErrSessionAlreadyStarted
	}
	if len(questions) == 0 {
		return domain.ErrNoQuestions
	}

	s.theme = theme
	s.questions = append([]domain.Question(nil), questions...)
	s.answers = make([][]int, len(questions))
	s.current = 0
	s.elapsed = 0
	s.startedAt = s.now()
	s.state = StateInProgress

	s.displayCurrentLocked()
	s.startQuestionTimerLocked()
	s.startGlobalTimerLocked()
	return nil
}

// RecordAnswer overwrites the current question's selection. An empty selection means skipped.
func (s *Session) RecordAnswer(indices []int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateInProgress {
		return domain.ErrSessionNotInProgress
	}
	return s.recordLocked(indices)
}

func (s *Session) recordLocked(indices []int) error {
	options := len(s.questions[s.current].Answers)
	for _, idx := range indices {
		if idx < 0 || idx >= options {
			return fmt.Errorf("%w: index %d", domain.ErrOptionNotFound, idx)
		}
	}
	s.answers[s.current] = domain.AnswerSet(indices)
	return nil
}

// RecordAnswerAt is RecordAnswer for the question the player was looking at. It fails with
// ErrStaleQuestion when index is no longer the open question.
func (s *Session) RecordAnswerAt(index int, indices []int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpenLocked(index); err != nil {
		return err
	}
	return s.recordLocked(indices)
}

// Commit records indices for question index and advances, as one step. A nil selection keeps
// whatever was recorded before. Input for a question that already timed out or was answered
// fails with ErrStaleQuestion and changes nothing.
func (s *Session) Commit(index int, indices []int) error {
	s.mu.Lock()
	if err := s.checkOpenLocked(index); err != nil {
		s.mu.Unlock()
		return err
	}
	if indices != nil {
		if err := s.recordLocked(indices); err != nil {
			s.mu.Unlock()
			return err
		}
	}
	s.advanceLocked()
	s.mu.Unlock()
	s.flush()
	return nil
}

// SkipAt skips question index, provided it is still open.
func (s *Session) SkipAt(index int) error {
	s.mu.Lock()
	if err := s.checkOpenLocked(index); err != nil {
		s.mu.Unlock()
		return err
	}
	s.answers[s.current] = []int{}
	s.advanceLocked()
	s.mu.Unlock()
	s.flush()
	return nil
}

func (s *Session) checkOpenLocked(index int) error {
	if s.state != StateInProgress {
		return domain.ErrSessionNotInProgress
	}
	if index != s.current {
		return fmt.Errorf("%w: question %d, open question is %d", domain.ErrStaleQuestion, index, s.current)
	}
	return nil
}

// Advance closes the current question and opens the next one, or finishes the session after the last.
func (s *Session) Advance() error {
	s.mu.Lock()
	if s.state != StateInProgress {
		s.mu.Unlock()
		return domain.ErrSessionNotInProgress
	}
	s.advanceLocked()
	s.mu.Unlock()
	s.flush()
	return nil
}

// Skip records an empty selection for the current question and advances.
func (s *Session) Skip() error {
	s.mu.Lock()
	if s.state != StateInProgress {
		s.mu.Unlock()
		return domain.ErrSessionNotInProgress
	}
	s.answers[s.current] = []int{}
	s.advanceLocked()
	s.mu.Unlock()
	s.flush()
	return nil
}

// TickQuestion runs one second of the question clock. When the clock reaches zero the
// current answer is replaced by an empty selection and the session advances.
// Outside InProgress it does nothing.
func (s *Session) TickQuestion() {
	s.mu.Lock()
	if s.state == StateInProgress {
		s.tickQuestionLocked()
	}
	s.mu.Unlock()
	s.flush()
}

// TickGlobal runs one second of the elapsed clock. Outside InProgress it does nothing.
func (s *Session) TickGlobal() {
	s.mu.Lock()
	if s.state == StateInProgress {
		s.tickGlobalLocked()
	}
	s.mu.Unlock()
	s.flush()
}

// Abandon stops both clocks without producing a result. Safe to call in any state, any number of times.
func (s *Session) Abandon() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopQuestionTimerLocked()
	s.stopGlobalTimerLocked()
	if s.state != StateFinished {
		s.state = StateFinished
		s.abandoned = true
	}
}

func (s *Session) onQuestionTick(epoch uint64) {
	s.mu.Lock()
	if s.state == StateInProgress && epoch == s.questionEpoch {
		s.tickQuestionLocked()
	}
	s.mu.Unlock()
	s.flush()
}

func (s *Session) onGlobalTick(epoch uint64) {
	s.mu.Lock()
	if s.state == StateInProgress && epoch == s.globalEpoch {
		s.tickGlobalLocked()
	}
	s.mu.Unlock()
	s.flush()
}

func (s *Session) tickQuestionLocked() {
	s.remaining--
	left := s.remaining
	s.emit(func(p Presenter) { p.QuestionTimerTick(left) })

	if left <= 0 {
		// Time-out always clears the slot, even if an answer was recorded moments before.
		s.answers[s.current] = []int{}
		s.advanceLocked()
	}
}

func (s *Session) tickGlobalLocked() {
	s.elapsed++
	elapsed := s.elapsed
	s.emit(func(p Presenter) { p.GlobalTimerTick(elapsed) })
}

func (s *Session) advanceLocked() {
	s.stopQuestionTimerLocked()
	s.current++

	if s.current < len(s.questions) {
		s.displayCurrentLocked()
		s.startQuestionTimerLocked()
		return
	}
	s.finishLocked()
}

func (s *Session) finishLocked() {
	s.stopGlobalTimerLocked()
	s.state = StateFinished

	totalTime := int(s.now().Sub(s.startedAt) / time.Second)
	grades := Grade(s.questions, s.answers)
	breakdown := make([]domain.QuestionOutcome, len(s.questions))
	correct := 0
	for i, q := range s.questions {
		if grades[i] {
			correct++
		}
		breakdown[i] = domain.QuestionOutcome{
			Prompt:   q.Prompt,
			Selected: domain.AnswerSet(s.answers[i]),
			Correct:  domain.AnswerSet(q.Correct),
			IsRight:  grades[i],
		}
	}

	result := domain.Result{
		SessionID:        s.id,
		Theme:            s.theme,
		CorrectCount:     correct,
		Total:            len(s.questions),
		TotalTimeSeconds: totalTime,
		Questions:        s.questionsCopyLocked(),
		Answers:          s.answersCopyLocked(),
		Breakdown:        breakdown,
		FinishedAt:       s.now(),
	}
	s.result = &result
	s.emit(func(p Presenter) { p.SessionComplete(result) })
}

func (s *Session) displayCurrentLocked() {
	index := s.current
	total := len(s.questions)
	question := s.questions[index]
	s.emit(func(p Presenter) {
		p.QuestionDisplayed(question, index)
		p.Progress(index+1, total)
	})
}

func (s *Session) startQuestionTimerLocked() {
	s.stopQuestionTimerLocked()
	s.remaining = s.timeLimit
	left := s.remaining
	s.emit(func(p Presenter) { p.QuestionTimerTick(left) })

	epoch := s.questionEpoch
	s.questionTimer = s.scheduler.Every(tickInterval, func() { s.onQuestionTick(epoch) })
}

func (s *Session) startGlobalTimerLocked() {
	s.stopGlobalTimerLocked()
	s.emit(func(p Presenter) { p.GlobalTimerTick(0) })

	epoch := s.globalEpoch
	s.globalTimer = s.scheduler.Every(tickInterval, func() { s.onGlobalTick(epoch) })
}

func (s *Session) stopQuestionTimerLocked() {
	s.questionEpoch++
	if s.questionTimer != nil {
		s.questionTimer.Stop()
		s.questionTimer = nil
	}
}

func (s *Session) stopGlobalTimerLocked() {
	s.globalEpoch++
	if s.globalTimer != nil {
		s.globalTimer.Stop()
		s.globalTimer = nil
	}
}

func (s *Session) emit(fn func(Presenter)) {
	s.outbox = append(s.outbox, fn)
}

// flush delivers queued events. Only one goroutine delivers at a time; a caller that
// finds delivery in progress leaves its events to the active deliverer.
func (s *Session) flush() {
	for {
		if !s.emitMu.TryLock() {
			return
		}
		for {
			s.mu.Lock()
			if len(s.outbox) == 0 {
				s.mu.Unlock()
				break
			}
			fn := s.outbox[0]
			s.outbox = s.outbox[1:]
			s.mu.Unlock()
			fn(s.presenter)
		}
		s.emitMu.Unlock()

		s.mu.Lock()
		pending := len(s.outbox)
		s.mu.Unlock()
		if pending == 0 {
			return
		}
	}
}

func (s *Session) questionsCopyLocked() []domain.Question {
	return append([]domain.Question(nil), s.questions...)
}

func (s *Session) answersCopyLocked() [][]int {
	out := make([][]int, len(s.answers))
	for i, a := range s.answers {
		out[i] = append([]int{}, a...)
	}
	return out
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Abandoned reports whether the session was torn down before finishing.
func (s *Session) Abandoned() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.abandoned
}

func (s *Session) Theme() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.theme
}

// CurrentIndex is the open question, or the question count once finished.
func (s *Session) CurrentIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func (s *Session) Questions() []domain.Question {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.questionsCopyLocked()
}

// Answers returns the recorded selections, index-aligned with Questions. Unanswered entries are empty.
func (s *Session) Answers() [][]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.answersCopyLocked()
}

// Remaining is the number of seconds left on the question clock.
func (s *Session) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remaining
}

// Elapsed is the number of global clock ticks seen so far.
func (s *Session) Elapsed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.elapsed
}

// Result is available once the session has finished normally.
func (s *Session) Result() (domain.Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result == nil {
		return domain.Result{}, false
	}
	return *s.result, true
}
