package console

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"jsquiz-service/internal/domain"
)

// Presenter renders session events as plain text.
type Presenter struct {
	mu      sync.Mutex
	out     io.Writer
	current int
	elapsed int
	done    chan domain.Result
}

func NewPresenter(out io.Writer) *Presenter {
	return &Presenter{out: out, done: make(chan domain.Result, 1)}
}

// Done yields the result once the session completes.
func (p *Presenter) Done() <-chan domain.Result {
	return p.done
}

// Current is the index of the question last shown.
func (p *Presenter) Current() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

func (p *Presenter) QuestionDisplayed(question domain.Question, index int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = index
	fmt.Fprintf(p.out, "\nQuestion %d: %s\n", index+1, question.Prompt)
	for i, answer := range question.Answers {
		fmt.Fprintf(p.out, "  [%d] %s\n", i, answer)
	}
	if len(question.Correct) > 1 {
		fmt.Fprintln(p.out, "  (several answers are correct, e.g. `0 2`)")
	}
}

func (p *Presenter) Progress(current, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, "  progress %d/%d, %s elapsed\n", current, total, clock(p.elapsed))
}

// QuestionTimerTick only prints on five-second marks and during the final three seconds.
func (p *Presenter) QuestionTimerTick(secondsLeft int) {
	if secondsLeft <= 0 || (secondsLeft%5 != 0 && secondsLeft > 3) {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, "  %ds left\n", secondsLeft)
}

func (p *Presenter) GlobalTimerTick(secondsElapsed int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.elapsed = secondsElapsed
}

func (p *Presenter) SessionComplete(result domain.Result) {
	p.mu.Lock()
	fmt.Fprintf(p.out, "\nQuiz complete: %d/%d correct on %q in %s\n",
		result.CorrectCount, result.Total, result.Theme, clock(result.TotalTimeSeconds))
	for i, outcome := range result.Breakdown {
		mark := "x"
		if outcome.IsRight {
			mark = "v"
		}
		fmt.Fprintf(p.out, "  %s %d. %s\n     yours: %s  correct: %s\n",
			mark, i+1, outcome.Prompt, indices(outcome.Selected), indices(outcome.Correct))
	}
	p.mu.Unlock()

	select {
	case p.done <- result:
	default:
	}
}

func (p *Presenter) LoadError(message string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.out, message)
}

func clock(seconds int) string {
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

func indices(set []int) string {
	if len(set) == 0 {
		return "-"
	}
	parts := make([]string, len(set))
	for i, idx := range set {
		parts[i] = fmt.Sprint(idx)
	}
	return strings.Join(parts, ",")
}
