package http

import "jsquiz-service/internal/domain"

// wsPresenter turns session events into outbound websocket messages.
type wsPresenter struct {
	send   chan<- outboundMessage[any]
	closed <-chan struct{}
}

type progressPayload struct {
	Current int `json:"current"`
	Total   int `json:"total"`
}

type questionTimerPayload struct {
	SecondsLeft int `json:"secondsLeft"`
}

type globalTimerPayload struct {
	SecondsElapsed int `json:"secondsElapsed"`
}

func (p *wsPresenter) QuestionDisplayed(question domain.Question, index int) {
	p.push("question", question.View(index))
}

func (p *wsPresenter) Progress(current, total int) {
	p.push("progress", progressPayload{Current: current, Total: total})
}

func (p *wsPresenter) QuestionTimerTick(secondsLeft int) {
	p.push("questionTimer", questionTimerPayload{SecondsLeft: secondsLeft})
}

func (p *wsPresenter) GlobalTimerTick(secondsElapsed int) {
	p.push("globalTimer", globalTimerPayload{SecondsElapsed: secondsElapsed})
}

func (p *wsPresenter) SessionComplete(result domain.Result) {
	p.push("complete", result)
}

func (p *wsPresenter) LoadError(message string) {
	p.push("loadError", errorPayload{Message: message})
}

func (p *wsPresenter) error(message string) {
	p.push("error", errorPayload{Message: message})
}

// push drops the message once the connection is closing.
func (p *wsPresenter) push(typ string, payload any) {
	select {
	case p.send <- outboundMessage[any]{Type: typ, Payload: payload}:
	case <-p.closed:
	}
}
