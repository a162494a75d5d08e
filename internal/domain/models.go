package domain

import (
	"fmt"
	"sort"
	"time"
)

// Question is a single prompt with its options and the set of correct option indices.
type Question struct {
	Prompt  string   `json:"question"`
	Answers []string `json:"answers"`
	Correct []int    `json:"correct"`
}

// QuestionSet is the full question bank of a theme.
type QuestionSet struct {
	Theme     string     `json:"theme,omitempty"`
	Questions []Question `json:"questions"`
}

// Validate checks that every question has options and a unique, in-range, non-empty correct set.
func (s QuestionSet) Validate() error {
	if len(s.Questions) == 0 {
		return fmt.Errorf("%w: %q has no questions", ErrMalformedTheme, s.Theme)
	}
	for i, q := range s.Questions {
		if len(q.Answers) == 0 {
			return fmt.Errorf("%w: question %d has no answers", ErrMalformedTheme, i)
		}
		if len(q.Correct) == 0 {
			return fmt.Errorf("%w: question %d has no correct answer", ErrMalformedTheme, i)
		}
		seen := make(map[int]struct{}, len(q.Correct))
		for _, idx := range q.Correct {
			if idx < 0 || idx >= len(q.Answers) {
				return fmt.Errorf("%w: question %d correct index %d out of range", ErrMalformedTheme, i, idx)
			}
			if _, dup := seen[idx]; dup {
				return fmt.Errorf("%w: question %d repeats correct index %d", ErrMalformedTheme, i, idx)
			}
			seen[idx] = struct{}{}
		}
	}
	return nil
}

// QuestionView is what clients get to see while a question is open (no correct set).
type QuestionView struct {
	Index   int      `json:"index"`
	Prompt  string   `json:"question"`
	Answers []string `json:"answers"`
	Multi   bool     `json:"multi"`
}

// View hides the answer key.
func (q Question) View(index int) QuestionView {
	return QuestionView{
		Index:   index,
		Prompt:  q.Prompt,
		Answers: q.Answers,
		Multi:   len(q.Correct) > 1,
	}
}

// AnswerSet normalizes a selection into a sorted, duplicate-free slice.
func AnswerSet(indices []int) []int {
	out := make([]int, 0, len(indices))
	seen := make(map[int]struct{}, len(indices))
	for _, idx := range indices {
		if _, ok := seen[idx]; ok {
			continue
		}
		seen[idx] = struct{}{}
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}

// QuestionOutcome is one line of the results breakdown.
type QuestionOutcome struct {
	Prompt   string `json:"question"`
	Selected []int  `json:"selected"`
	Correct  []int  `json:"correct"`
	IsRight  bool   `json:"isCorrect"`
}

// Result summarizes a finished session.
type Result struct {
	SessionID        string            `json:"sessionId"`
	Theme            string            `json:"theme"`
	CorrectCount     int               `json:"correctCount"`
	Total            int               `json:"total"`
	TotalTimeSeconds int               `json:"totalTimeSeconds"`
	Questions        []Question        `json:"-"`
	Answers          [][]int           `json:"-"`
	Breakdown        []QuestionOutcome `json:"breakdown"`
	FinishedAt       time.Time         `json:"finishedAt"`
}

// HistoryEntry is a finished quiz as remembered on a profile.
type HistoryEntry struct {
	Theme            string    `json:"theme"`
	Score            int       `json:"score"`
	Total            int       `json:"total"`
	TotalTimeSeconds int       `json:"totalTimeSeconds"`
	PlayedAt         time.Time `json:"playedAt"`
}

// Profile is the informational record kept per username.
type Profile struct {
	Username string         `json:"username"`
	History  []HistoryEntry `json:"history"`
}

// NewProfile returns an empty profile for username.
func NewProfile(username string) Profile {
	return Profile{Username: username, History: []HistoryEntry{}}
}
