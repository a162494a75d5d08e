package app

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"jsquiz-service/internal/domain"
)

// LoadErrorMessage is what players see when a theme cannot be loaded.
const LoadErrorMessage = "Failed to load quiz. Please try again."

// LoadFailure reports that a quiz could not start because its theme failed to load.
// The presenter has already been told through LoadError.
type LoadFailure struct {
	Theme string
	Err   error
}

func (e *LoadFailure) Error() string {
	return fmt.Sprintf("start quiz %q: %v", e.Theme, e.Err)
}

func (e *LoadFailure) Unwrap() error {
	return e.Err
}

// SessionRepository tracks the active session of each player (in-memory, Redis, etc).
type SessionRepository interface {
	// Replace installs session for playerID and returns the session it displaced, if any.
	Replace(playerID string, session *Session) *Session
	Get(playerID string) (*Session, bool)
	// Delete removes the player's session only if it is still sessionID.
	Delete(playerID, sessionID string)
}

// ThemeRepository loads question banks (from cache/backing store).
type ThemeRepository interface {
	GetTheme(ctx context.Context, name string) (domain.QuestionSet, error)
	ListThemes(ctx context.Context) ([]string, error)
}

// ProfileRepository persists user profiles. LoadProfile creates missing profiles;
// FindProfile never writes and returns ErrProfileNotFound instead.
type ProfileRepository interface {
	LoadProfile(ctx context.Context, username string) (domain.Profile, error)
	FindProfile(ctx context.Context, username string) (domain.Profile, error)
	SaveProfile(ctx context.Context, profile domain.Profile) error
}

// ResultPublisher announces finished quizzes to other systems.
type ResultPublisher interface {
	PublishResult(ctx context.Context, username string, result domain.Result) error
}

// Option configures a QuizService.
type Option func(*QuizService)

// WithQuestionCount sets how many questions each quiz draws.
func WithQuestionCount(n int) Option {
	return func(s *QuizService) { s.questionCount = n }
}

// WithTimeLimit sets the per-question time limit for new sessions.
func WithTimeLimit(limit time.Duration) Option {
	return func(s *QuizService) { s.timeLimit = limit }
}

// WithSessionScheduler replaces the timer scheduler for new sessions.
func WithSessionScheduler(scheduler Scheduler) Option {
	return func(s *QuizService) { s.scheduler = scheduler }
}

// WithSelector replaces the random question selector.
func WithSelector(selector *Selector) Option {
	return func(s *QuizService) { s.selector = selector }
}

// WithResultPublisher publishes every finished quiz.
func WithResultPublisher(publisher ResultPublisher) Option {
	return func(s *QuizService) { s.publisher = publisher }
}

// WithServiceClock is test-only for deterministic timestamps.
func WithServiceClock(now func() time.Time) Option {
	return func(s *QuizService) { s.now = now }
}

// QuizService contains the quiz use cases.
type QuizService struct {
	sessions  SessionRepository
	themes    ThemeRepository
	profiles  ProfileRepository
	publisher ResultPublisher
	selector  *Selector
	scheduler Scheduler
	now       func() time.Time

	questionCount int
	timeLimit     time.Duration
}

func NewQuizService(sessions SessionRepository, themes ThemeRepository, profiles ProfileRepository, opts ...Option) *QuizService {
	s := &QuizService{
		sessions:      sessions,
		themes:        themes,
		profiles:      profiles,
		selector:      NewSelector(),
		scheduler:     TickerScheduler{},
		now:           time.Now,
		questionCount: DefaultQuestionCount,
		timeLimit:     DefaultQuestionTimeLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Login validates the username and loads (or creates) its profile.
func (s *QuizService) Login(ctx context.Context, username string) (domain.Profile, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return domain.Profile{}, domain.ErrInvalidUsername
	}
	return s.profiles.LoadProfile(ctx, username)
}

// Profile looks up an existing profile without creating one.
func (s *QuizService) Profile(ctx context.Context, username string) (domain.Profile, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return domain.Profile{}, domain.ErrInvalidUsername
	}
	return s.profiles.FindProfile(ctx, username)
}

// Themes lists the themes a player can pick from.
func (s *QuizService) Themes(ctx context.Context) ([]string, error) {
	return s.themes.ListThemes(ctx)
}

// StartQuiz loads the theme, draws the questions and starts a fresh session for the player.
// Any session the player already had is abandoned. When loading fails the player's current
// session is left untouched and the presenter is told through LoadError.
func (s *QuizService) StartQuiz(ctx context.Context, username, theme string, presenter Presenter) (*Session, error) {
	if presenter == nil {
		presenter = NopPresenter{}
	}

	set, err := s.themes.GetTheme(ctx, theme)
	if err == nil {
		err = set.Validate()
	}
	if err != nil {
		presenter.LoadError(LoadErrorMessage)
		return nil, &LoadFailure{Theme: theme, Err: err}
	}

	questions := s.selector.Select(set, s.questionCount)
	if len(questions) == 0 {
		return nil, domain.ErrNoQuestions
	}

	hooked := completionHook{
		Presenter:  presenter,
		onComplete: func(result domain.Result) { s.recordResult(username, result) },
	}
	session := NewSession(uuid.NewString(), hooked,
		WithScheduler(s.scheduler),
		WithClock(s.now),
		WithQuestionTimeLimit(s.timeLimit),
	)

	if previous := s.sessions.Replace(username, session); previous != nil {
		previous.Abandon()
	}
	if err := session.Start(theme, questions); err != nil {
		s.sessions.Delete(username, session.ID())
		return nil, err
	}
	return session, nil
}

// SubmitAnswer records a selection for whichever question is open, without advancing.
// Transports that know which question the player saw use SelectAnswer and CommitAnswer.
func (s *QuizService) SubmitAnswer(_ context.Context, username string, indices []int) error {
	session, err := s.Session(username)
	if err != nil {
		return err
	}
	return session.RecordAnswer(indices)
}

// SkipCurrent records an empty answer and moves on.
func (s *QuizService) SkipCurrent(_ context.Context, username string) error {
	session, err := s.Session(username)
	if err != nil {
		return err
	}
	return session.Skip()
}

// RequestAdvance commits the current selection and moves on.
func (s *QuizService) RequestAdvance(_ context.Context, username string) error {
	session, err := s.Session(username)
	if err != nil {
		return err
	}
	return session.Advance()
}

// SelectAnswer records a selection for question index without advancing.
// Input for a question that is no longer open fails with ErrStaleQuestion.
func (s *QuizService) SelectAnswer(_ context.Context, username string, index int, indices []int) error {
	session, err := s.Session(username)
	if err != nil {
		return err
	}
	return session.RecordAnswerAt(index, indices)
}

// CommitAnswer records indices for question index (nil keeps the current selection) and moves on.
func (s *QuizService) CommitAnswer(_ context.Context, username string, index int, indices []int) error {
	session, err := s.Session(username)
	if err != nil {
		return err
	}
	return session.Commit(index, indices)
}

// SkipQuestion skips question index if it is still open.
func (s *QuizService) SkipQuestion(_ context.Context, username string, index int) error {
	session, err := s.Session(username)
	if err != nil {
		return err
	}
	return session.SkipAt(index)
}

// Session returns the player's active session.
func (s *QuizService) Session(username string) (*Session, error) {
	session, ok := s.sessions.Get(username)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

// Leave abandons and forgets the player's session, provided it is still sessionID.
// A newer session started elsewhere (another tab, a retake) is left running.
func (s *QuizService) Leave(_ context.Context, username, sessionID string) {
	session, ok := s.sessions.Get(username)
	if !ok || session.ID() != sessionID {
		return
	}
	session.Abandon()
	s.sessions.Delete(username, sessionID)
}

// recordResult appends the finished quiz to the profile history and publishes it. Both are best-effort.
func (s *QuizService) recordResult(username string, result domain.Result) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	profile, err := s.profiles.LoadProfile(ctx, username)
	if err != nil {
		log.Printf("load profile %q: %v", username, err)
	} else {
		profile.History = append(profile.History, domain.HistoryEntry{
			Theme:            result.Theme,
			Score:            result.CorrectCount,
			Total:            result.Total,
			TotalTimeSeconds: result.TotalTimeSeconds,
			PlayedAt:         result.FinishedAt,
		})
		if err := s.profiles.SaveProfile(ctx, profile); err != nil {
			log.Printf("save profile %q: %v", username, err)
		}
	}

	if s.publisher != nil {
		if err := s.publisher.PublishResult(ctx, username, result); err != nil {
			log.Printf("publish result %s: %v", result.SessionID, err)
		}
	}
}
