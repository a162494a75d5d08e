package app

import "jsquiz-service/internal/domain"

// Presenter receives the session's outward events. Implementations render them
// (websocket, terminal) and must not block for long: calls are made in event order
// from whichever goroutine drove the transition.
type Presenter interface {
	QuestionDisplayed(question domain.Question, index int)
	Progress(current, total int)
	QuestionTimerTick(secondsLeft int)
	GlobalTimerTick(secondsElapsed int)
	SessionComplete(result domain.Result)
	LoadError(message string)
}

// NopPresenter discards every event.
type NopPresenter struct{}

func (NopPresenter) QuestionDisplayed(domain.Question, int) {}
func (NopPresenter) Progress(int, int)                      {}
func (NopPresenter) QuestionTimerTick(int)                  {}
func (NopPresenter) GlobalTimerTick(int)                    {}
func (NopPresenter) SessionComplete(domain.Result)          {}
func (NopPresenter) LoadError(string)                       {}

// completionHook forwards every event and runs onComplete once the inner presenter has seen SessionComplete.
type completionHook struct {
	Presenter
	onComplete func(domain.Result)
}

func (h completionHook) SessionComplete(result domain.Result) {
	h.Presenter.SessionComplete(result)
	h.onComplete(result)
}
