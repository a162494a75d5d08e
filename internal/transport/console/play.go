package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"jsquiz-service/internal/app"
	"jsquiz-service/internal/domain"
)

// ErrQuit is returned when the player leaves before the last question.
var ErrQuit = errors.New("quiz abandoned")

// Play runs one quiz on a terminal. Each input line answers the open question:
// option numbers (`1` or `0 2`) submit and move on, `s` skips, `q` quits.
func Play(ctx context.Context, service *app.QuizService, username, theme string, in io.Reader, out io.Writer) (domain.Result, error) {
	presenter := NewPresenter(out)
	session, err := service.StartQuiz(ctx, username, theme, presenter)
	if err != nil {
		return domain.Result{}, err
	}
	defer service.Leave(context.Background(), username, session.ID())

	// Each line is bound to the question on screen when it was entered. The reader waits for
	// a line to be handled before scanning the next one.
	lines := make(chan inputLine)
	handled := make(chan struct{}, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- inputLine{text: scanner.Text(), index: presenter.Current()}:
			case <-ctx.Done():
				return
			}
			select {
			case <-handled:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		// A finished session wins over any input still queued.
		select {
		case result := <-presenter.Done():
			return result, nil
		default:
		}

		select {
		case result := <-presenter.Done():
			return result, nil
		case <-ctx.Done():
			return domain.Result{}, ctx.Err()
		case line, ok := <-lines:
			if !ok {
				return domain.Result{}, io.ErrUnexpectedEOF
			}
			if err := handleLine(ctx, service, username, line.index, line.text); err != nil {
				if errors.Is(err, ErrQuit) {
					return domain.Result{}, err
				}
				fmt.Fprintln(out, err)
			}
			handled <- struct{}{}
		}
	}
}

type inputLine struct {
	text  string
	index int
}

func handleLine(ctx context.Context, service *app.QuizService, username string, index int, line string) error {
	line = strings.TrimSpace(strings.ToLower(line))
	switch line {
	case "q", "quit":
		return ErrQuit
	case "s", "skip":
		return ignoreFinished(service.SkipQuestion(ctx, username, index))
	case "":
		return ignoreFinished(service.CommitAnswer(ctx, username, index, nil))
	}

	selection, err := parseSelection(line)
	if err != nil {
		return err
	}
	return ignoreFinished(service.CommitAnswer(ctx, username, index, selection))
}

func parseSelection(line string) ([]int, error) {
	fields := strings.FieldsFunc(line, func(r rune) bool { return r == ' ' || r == ',' })
	selection := make([]int, 0, len(fields))
	for _, field := range fields {
		idx, err := strconv.Atoi(field)
		if err != nil {
			return nil, fmt.Errorf("enter option numbers like `0 2`, `s` to skip or `q` to quit")
		}
		selection = append(selection, idx)
	}
	return selection, nil
}

// Input racing a time-out is dropped; the timed-out question already counts as skipped.
func ignoreFinished(err error) error {
	switch {
	case errors.Is(err, domain.ErrSessionNotInProgress):
		return nil
	case errors.Is(err, domain.ErrStaleQuestion):
		return errTooLate
	}
	return err
}

var errTooLate = errors.New("too late, that question timed out")
