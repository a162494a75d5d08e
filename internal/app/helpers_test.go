package app_test

import (
	"fmt"
	"sync"
	"time"

	"jsquiz-service/internal/app"
	"jsquiz-service/internal/domain"
)

// manualScheduler hands out timers that only fire when a test says so.
// Stopped timers can still be fired to simulate a callback racing its cancellation.
type manualScheduler struct {
	mu     sync.Mutex
	timers []*manualTimer
}

func (s *manualScheduler) Every(_ time.Duration, fn func()) app.Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &manualTimer{fn: fn}
	s.timers = append(s.timers, t)
	return t
}

func (s *manualScheduler) timer(i int) *manualTimer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timers[i]
}

func (s *manualScheduler) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

func (s *manualScheduler) running() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.timers {
		if t.stops() == 0 {
			n++
		}
	}
	return n
}

type manualTimer struct {
	fn      func()
	mu      sync.Mutex
	stopped int
}

func (t *manualTimer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped++
}

func (t *manualTimer) stops() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

func (t *manualTimer) fire() {
	t.fn()
}

type recordingPresenter struct {
	mu         sync.Mutex
	events     []string
	results    []domain.Result
	loadErrors []string
}

func (p *recordingPresenter) record(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, fmt.Sprintf(format, args...))
}

func (p *recordingPresenter) QuestionDisplayed(q domain.Question, index int) {
	p.record("question %d %s", index, q.Prompt)
}

func (p *recordingPresenter) Progress(current, total int) {
	p.record("progress %d/%d", current, total)
}

func (p *recordingPresenter) QuestionTimerTick(secondsLeft int) {
	p.record("question timer %d", secondsLeft)
}

func (p *recordingPresenter) GlobalTimerTick(secondsElapsed int) {
	p.record("global timer %d", secondsElapsed)
}

func (p *recordingPresenter) SessionComplete(result domain.Result) {
	p.record("complete %d/%d", result.CorrectCount, result.Total)
	p.mu.Lock()
	p.results = append(p.results, result)
	p.mu.Unlock()
}

func (p *recordingPresenter) LoadError(message string) {
	p.record("load error %s", message)
	p.mu.Lock()
	p.loadErrors = append(p.loadErrors, message)
	p.mu.Unlock()
}

func (p *recordingPresenter) Events() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.events...)
}

func (p *recordingPresenter) Results() []domain.Result {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.Result(nil), p.results...)
}

func (p *recordingPresenter) LoadErrors() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.loadErrors...)
}

// steppingClock advances by step on every read.
type steppingClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func (c *steppingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now
	c.now = c.now.Add(c.step)
	return now
}

func question(prompt string, correct ...int) domain.Question {
	return domain.Question{
		Prompt:  prompt,
		Answers: []string{"a", "b", "c", "d"},
		Correct: correct,
	}
}

func threeQuestions() []domain.Question {
	return []domain.Question{
		question("Q1", 1),
		question("Q2", 1, 3),
		question("Q3", 0),
	}
}
