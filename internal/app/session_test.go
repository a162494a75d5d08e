package app_test

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"jsquiz-service/internal/app"
	"jsquiz-service/internal/domain"
)

func newSession(t *testing.T, opts ...app.SessionOption) (*app.Session, *manualScheduler, *recordingPresenter) {
	t.Helper()
	scheduler := &manualScheduler{}
	presenter := &recordingPresenter{}
	opts = append([]app.SessionOption{app.WithScheduler(scheduler)}, opts...)
	return app.NewSession("s-1", presenter, opts...), scheduler, presenter
}

func TestStartDisplaysFirstQuestion(t *testing.T) {
	session, scheduler, presenter := newSession(t)

	if err := session.Start("arrays", threeQuestions()); err != nil {
		t.Fatalf("start: %v", err)
	}

	want := []string{"question 0 Q1", "progress 1/3", "question timer 20", "global timer 0"}
	if got := presenter.Events(); !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected events:\n got %v\nwant %v", got, want)
	}
	if session.State() != app.StateInProgress || session.CurrentIndex() != 0 {
		t.Fatalf("expected in progress at 0, got %s at %d", session.State(), session.CurrentIndex())
	}
	if got := session.Answers(); len(got) != 3 || len(got[0]) != 0 {
		t.Fatalf("expected three empty answers, got %v", got)
	}
	if scheduler.running() != 2 {
		t.Fatalf("expected question and global timers, got %d running", scheduler.running())
	}
}

func TestStartRequiresQuestions(t *testing.T) {
	session, scheduler, presenter := newSession(t)

	if err := session.Start("arrays", nil); !errors.Is(err, domain.ErrNoQuestions) {
		t.Fatalf("expected ErrNoQuestions, got %v", err)
	}
	if session.State() != app.StateNotStarted {
		t.Fatalf("expected not started, got %s", session.State())
	}
	if scheduler.count() != 0 || len(presenter.Events()) != 0 {
		t.Fatalf("failed start must not arm timers or emit events")
	}
}

func TestStartTwiceIsRejected(t *testing.T) {
	session, _, _ := newSession(t)
	if err := session.Start("arrays", threeQuestions()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := session.Start("arrays", threeQuestions()); !errors.Is(err, domain.ErrSessionAlreadyStarted) {
		t.Fatalf("expected ErrSessionAlreadyStarted, got %v", err)
	}
}

func TestOperationsBeforeStart(t *testing.T) {
	session, _, presenter := newSession(t)

	if err := session.RecordAnswer([]int{0}); !errors.Is(err, domain.ErrSessionNotInProgress) {
		t.Fatalf("record: expected ErrSessionNotInProgress, got %v", err)
	}
	if err := session.Advance(); !errors.Is(err, domain.ErrSessionNotInProgress) {
		t.Fatalf("advance: expected ErrSessionNotInProgress, got %v", err)
	}
	if err := session.Skip(); !errors.Is(err, domain.ErrSessionNotInProgress) {
		t.Fatalf("skip: expected ErrSessionNotInProgress, got %v", err)
	}
	session.TickQuestion()
	session.TickGlobal()
	if len(presenter.Events()) != 0 {
		t.Fatalf("ticks before start must be silent, got %v", presenter.Events())
	}
}

func TestAdvanceThroughEveryQuestionFinishes(t *testing.T) {
	session, scheduler, presenter := newSession(t)
	questions := threeQuestions()
	if err := session.Start("arrays", questions); err != nil {
		t.Fatalf("start: %v", err)
	}

	for i := range questions {
		if err := session.Advance(); err != nil {
			t.Fatalf("advance %d: %v", i, err)
		}
	}

	if session.State() != app.StateFinished {
		t.Fatalf("expected finished, got %s", session.State())
	}
	if session.CurrentIndex() != len(questions) {
		t.Fatalf("expected index %d, got %d", len(questions), session.CurrentIndex())
	}
	if err := session.Advance(); !errors.Is(err, domain.ErrSessionNotInProgress) {
		t.Fatalf("expected ErrSessionNotInProgress after finish, got %v", err)
	}
	if len(presenter.Results()) != 1 {
		t.Fatalf("expected exactly one completion, got %d", len(presenter.Results()))
	}
	if scheduler.running() != 0 {
		t.Fatalf("expected all timers stopped, %d still running", scheduler.running())
	}
	if session.Abandoned() {
		t.Fatalf("a finished session is not abandoned")
	}
}

func TestRecordAnswerLastWriteWins(t *testing.T) {
	session, _, _ := newSession(t)
	if err := session.Start("arrays", threeQuestions()); err != nil {
		t.Fatalf("start: %v", err)
	}

	for _, selection := range [][]int{{0}, {2, 1}, {3}} {
		if err := session.RecordAnswer(selection); err != nil {
			t.Fatalf("record %v: %v", selection, err)
		}
	}

	if got := session.Answers()[0]; !reflect.DeepEqual(got, []int{3}) {
		t.Fatalf("expected last selection [3], got %v", got)
	}
	if session.CurrentIndex() != 0 {
		t.Fatalf("recording must not advance, index %d", session.CurrentIndex())
	}
}

func TestRecordAnswerRejectsUnknownOption(t *testing.T) {
	session, _, _ := newSession(t)
	if err := session.Start("arrays", threeQuestions()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := session.RecordAnswer([]int{1}); err != nil {
		t.Fatalf("record: %v", err)
	}

	for _, selection := range [][]int{{4}, {-1}, {0, 9}} {
		if err := session.RecordAnswer(selection); !errors.Is(err, domain.ErrOptionNotFound) {
			t.Fatalf("selection %v: expected ErrOptionNotFound, got %v", selection, err)
		}
	}
	if got := session.Answers()[0]; !reflect.DeepEqual(got, []int{1}) {
		t.Fatalf("rejected selections must not change the answer, got %v", got)
	}
}

func TestTimeoutSkipsQuestion(t *testing.T) {
	session, _, presenter := newSession(t, app.WithQuestionTimeLimit(3*time.Second))
	if err := session.Start("arrays", threeQuestions()); err != nil {
		t.Fatalf("start: %v", err)
	}

	session.TickQuestion()
	session.TickQuestion()
	if session.CurrentIndex() != 0 || session.Remaining() != 1 {
		t.Fatalf("expected question 0 with 1s left, got %d with %ds", session.CurrentIndex(), session.Remaining())
	}
	session.TickQuestion()

	if session.CurrentIndex() != 1 {
		t.Fatalf("expected auto-skip to question 1, got %d", session.CurrentIndex())
	}
	if session.Remaining() != 3 {
		t.Fatalf("expected the clock to reset to 3, got %d", session.Remaining())
	}
	if got := session.Answers()[0]; len(got) != 0 {
		t.Fatalf("expected empty answer after timeout, got %v", got)
	}

	events := presenter.Events()
	want := []string{"question timer 2", "question timer 1", "question timer 0", "question 1 Q2", "progress 2/3", "question timer 3"}
	if got := events[len(events)-len(want):]; !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected tail:\n got %v\nwant %v", got, want)
	}
}

func TestTimeoutOverwritesRecordedAnswer(t *testing.T) {
	session, _, presenter := newSession(t, app.WithQuestionTimeLimit(time.Second))
	if err := session.Start("arrays", []domain.Question{question("Q1", 1)}); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := session.RecordAnswer([]int{1}); err != nil {
		t.Fatalf("record: %v", err)
	}

	session.TickQuestion()

	results := presenter.Results()
	if len(results) != 1 {
		t.Fatalf("expected completion after timeout, got %d results", len(results))
	}
	if results[0].CorrectCount != 0 {
		t.Fatalf("timeout must clear the recorded answer, got %d correct", results[0].CorrectCount)
	}
	if got := results[0].Answers[0]; len(got) != 0 {
		t.Fatalf("expected empty answer, got %v", got)
	}
}

func TestGlobalTickDoesNotAdvance(t *testing.T) {
	session, _, _ := newSession(t)
	if err := session.Start("arrays", threeQuestions()); err != nil {
		t.Fatalf("start: %v", err)
	}

	for i := 0; i < 90; i++ {
		session.TickGlobal()
	}

	if session.Elapsed() != 90 {
		t.Fatalf("expected 90s elapsed, got %d", session.Elapsed())
	}
	if session.CurrentIndex() != 0 || session.Remaining() != 20 {
		t.Fatalf("global ticks moved the quiz: index %d, remaining %d", session.CurrentIndex(), session.Remaining())
	}
}

func TestEndToEndScore(t *testing.T) {
	clock := &steppingClock{now: time.Unix(1_700_000_000, 0), step: 7 * time.Second}
	session, _, presenter := newSession(t, app.WithClock(clock.Now))
	if err := session.Start("arrays", threeQuestions()); err != nil {
		t.Fatalf("start: %v", err)
	}

	if err := session.RecordAnswer([]int{1}); err != nil {
		t.Fatalf("record q1: %v", err)
	}
	if err := session.Advance(); err != nil {
		t.Fatalf("advance q1: %v", err)
	}
	if err := session.RecordAnswer([]int{1}); err != nil {
		t.Fatalf("record q2: %v", err)
	}
	if err := session.Advance(); err != nil {
		t.Fatalf("advance q2: %v", err)
	}
	if err := session.Skip(); err != nil {
		t.Fatalf("skip q3: %v", err)
	}

	result, ok := session.Result()
	if !ok {
		t.Fatalf("expected a result")
	}
	if result.CorrectCount != 1 || result.Total != 3 {
		t.Fatalf("expected 1/3, got %d/%d", result.CorrectCount, result.Total)
	}
	if result.TotalTimeSeconds != 7 {
		t.Fatalf("expected 7s total, got %d", result.TotalTimeSeconds)
	}
	if result.Theme != "arrays" || result.SessionID != "s-1" {
		t.Fatalf("unexpected result identity %+v", result)
	}
	wantBreakdown := []bool{true, false, false}
	for i, outcome := range result.Breakdown {
		if outcome.IsRight != wantBreakdown[i] {
			t.Fatalf("breakdown %d: expected %v, got %+v", i, wantBreakdown[i], outcome)
		}
	}
	if got := presenter.Results(); len(got) != 1 || got[0].CorrectCount != 1 {
		t.Fatalf("presenter did not receive the result: %+v", got)
	}
}

func TestMultiSelectScoredAsSet(t *testing.T) {
	session, _, presenter := newSession(t)
	if err := session.Start("arrays", []domain.Question{question("Q", 1, 3)}); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := session.RecordAnswer([]int{3, 1}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := session.Advance(); err != nil {
		t.Fatalf("advance: %v", err)
	}

	if got := presenter.Results(); len(got) != 1 || got[0].CorrectCount != 1 {
		t.Fatalf("expected [3,1] to match [1,3], got %+v", got)
	}
}

func TestStaleQuestionTimerIsIgnored(t *testing.T) {
	session, scheduler, _ := newSession(t)
	if err := session.Start("arrays", threeQuestions()); err != nil {
		t.Fatalf("start: %v", err)
	}
	first := scheduler.timer(0)
	if err := session.Advance(); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if first.stops() != 1 {
		t.Fatalf("expected the first question timer stopped once, got %d", first.stops())
	}

	first.fire()

	if session.Remaining() != 20 {
		t.Fatalf("stale tick changed the new clock: %d", session.Remaining())
	}
	scheduler.timer(2).fire()
	if session.Remaining() != 19 {
		t.Fatalf("live tick not applied: %d", session.Remaining())
	}
}

func TestTimersFireThroughScheduler(t *testing.T) {
	session, scheduler, _ := newSession(t, app.WithQuestionTimeLimit(2*time.Second))
	if err := session.Start("arrays", threeQuestions()); err != nil {
		t.Fatalf("start: %v", err)
	}

	scheduler.timer(1).fire()
	scheduler.timer(1).fire()
	scheduler.timer(0).fire()
	scheduler.timer(0).fire()

	if session.Elapsed() != 2 {
		t.Fatalf("expected 2s elapsed, got %d", session.Elapsed())
	}
	if session.CurrentIndex() != 1 {
		t.Fatalf("expected the question timer to skip to 1, got %d", session.CurrentIndex())
	}
}

func TestAbandonStopsEverything(t *testing.T) {
	session, scheduler, presenter := newSession(t)
	if err := session.Start("arrays", threeQuestions()); err != nil {
		t.Fatalf("start: %v", err)
	}
	before := len(presenter.Events())

	session.Abandon()
	session.Abandon()

	if session.State() != app.StateFinished || !session.Abandoned() {
		t.Fatalf("expected abandoned finished session, got %s", session.State())
	}
	if scheduler.running() != 0 {
		t.Fatalf("expected timers stopped, %d running", scheduler.running())
	}
	scheduler.timer(0).fire()
	scheduler.timer(1).fire()
	session.TickQuestion()
	if len(presenter.Events()) != before {
		t.Fatalf("abandoned session emitted events: %v", presenter.Events()[before:])
	}
	if _, ok := session.Result(); ok {
		t.Fatalf("abandoned session must not produce a result")
	}
	if err := session.RecordAnswer([]int{0}); !errors.Is(err, domain.ErrSessionNotInProgress) {
		t.Fatalf("expected ErrSessionNotInProgress, got %v", err)
	}
}

func TestTickerTimerStopIsIdempotent(t *testing.T) {
	fired := make(chan struct{}, 16)
	timer := app.TickerScheduler{}.Every(time.Millisecond, func() {
		select {
		case fired <- struct{}{}:
		default:
		}
	})

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatalf("ticker never fired")
	}
	timer.Stop()
	timer.Stop()
}

// skipOnDisplay drives the session from inside a presenter callback.
type skipOnDisplay struct {
	app.NopPresenter
	session *app.Session
	done    chan domain.Result
}

func (p *skipOnDisplay) QuestionDisplayed(domain.Question, int) {
	_ = p.session.Skip()
}

func (p *skipOnDisplay) SessionComplete(result domain.Result) {
	p.done <- result
}

func TestPresenterMayDriveSession(t *testing.T) {
	presenter := &skipOnDisplay{done: make(chan domain.Result, 1)}
	session := app.NewSession("s-2", presenter, app.WithScheduler(&manualScheduler{}))
	presenter.session = session

	if err := session.Start("arrays", threeQuestions()); err != nil {
		t.Fatalf("start: %v", err)
	}

	select {
	case result := <-presenter.done:
		if result.CorrectCount != 0 || result.Total != 3 {
			t.Fatalf("expected 0/3, got %d/%d", result.CorrectCount, result.Total)
		}
	case <-time.After(time.Second):
		t.Fatalf("session did not complete")
	}
}

func TestCommitRecordsAndAdvances(t *testing.T) {
	session, _, presenter := newSession(t)
	if err := session.Start("arrays", threeQuestions()); err != nil {
		t.Fatalf("start: %v", err)
	}

	if err := session.Commit(0, []int{1}); err != nil {
		t.Fatalf("commit q1: %v", err)
	}
	if err := session.RecordAnswerAt(1, []int{3, 1}); err != nil {
		t.Fatalf("record q2: %v", err)
	}
	// nil keeps the selection recorded above
	if err := session.Commit(1, nil); err != nil {
		t.Fatalf("commit q2: %v", err)
	}
	if err := session.SkipAt(2); err != nil {
		t.Fatalf("skip q3: %v", err)
	}

	results := presenter.Results()
	if len(results) != 1 || results[0].CorrectCount != 2 {
		t.Fatalf("expected 2/3, got %+v", results)
	}
}

func TestCommitAfterTimeoutIsRejected(t *testing.T) {
	session, scheduler, _ := newSession(t)
	if err := session.Start("arrays", threeQuestions()); err != nil {
		t.Fatalf("start: %v", err)
	}
	for i := 0; i < 20; i++ {
		scheduler.timer(0).fire()
	}
	if session.CurrentIndex() != 1 {
		t.Fatalf("expected timeout to open question 1, got %d", session.CurrentIndex())
	}

	// Input the player sent for question 0 arrives after its clock ran out.
	if err := session.Commit(0, []int{1}); !errors.Is(err, domain.ErrStaleQuestion) {
		t.Fatalf("commit: expected ErrStaleQuestion, got %v", err)
	}
	if err := session.RecordAnswerAt(0, []int{1}); !errors.Is(err, domain.ErrStaleQuestion) {
		t.Fatalf("record: expected ErrStaleQuestion, got %v", err)
	}
	if err := session.SkipAt(0); !errors.Is(err, domain.ErrStaleQuestion) {
		t.Fatalf("skip: expected ErrStaleQuestion, got %v", err)
	}

	if session.CurrentIndex() != 1 || session.Remaining() != 20 {
		t.Fatalf("late input moved the quiz: index %d, remaining %d", session.CurrentIndex(), session.Remaining())
	}
	want := [][]int{{}, {}, {}}
	if got := session.Answers(); !reflect.DeepEqual(got, want) {
		t.Fatalf("late input changed answers: %v", got)
	}
}

func TestCommitRejectsUnknownOptionWithoutAdvancing(t *testing.T) {
	session, _, _ := newSession(t)
	if err := session.Start("arrays", threeQuestions()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := session.Commit(0, []int{7}); !errors.Is(err, domain.ErrOptionNotFound) {
		t.Fatalf("expected ErrOptionNotFound, got %v", err)
	}
	if session.CurrentIndex() != 0 {
		t.Fatalf("rejected commit advanced to %d", session.CurrentIndex())
	}
}
