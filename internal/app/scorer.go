package app

import "jsquiz-service/internal/domain"

// Score counts the questions whose recorded answer set equals the correct set.
// Missing answers count as empty selections.
func Score(questions []domain.Question, answers [][]int) int {
	correct := 0
	for _, ok := range Grade(questions, answers) {
		if ok {
			correct++
		}
	}
	return correct
}

// Grade reports per-question correctness, index-aligned with questions.
func Grade(questions []domain.Question, answers [][]int) []bool {
	out := make([]bool, len(questions))
	for i, q := range questions {
		var answer []int
		if i < len(answers) {
			answer = answers[i]
		}
		out[i] = sameSet(q.Correct, answer)
	}
	return out
}

func sameSet(a, b []int) bool {
	as := domain.AnswerSet(a)
	bs := domain.AnswerSet(b)
	if len(as) != len(bs) {
		return false
	}
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}
