package app

import (
	"math/rand"
	"sync"
	"time"

	"jsquiz-service/internal/domain"
)

// Selector draws random, duplicate-free subsets of a question bank.
type Selector struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func NewSelector() *Selector {
	return NewSelectorWithSource(rand.NewSource(time.Now().UnixNano()))
}

// NewSelectorWithSource is used by tests that need a reproducible order.
func NewSelectorWithSource(src rand.Source) *Selector {
	return &Selector{rnd: rand.New(src)}
}

// Select shuffles a copy of the set (Fisher-Yates) and returns the first min(count, len) questions.
func (s *Selector) Select(set domain.QuestionSet, count int) []domain.Question {
	if count <= 0 {
		return []domain.Question{}
	}

	shuffled := make([]domain.Question, len(set.Questions))
	copy(shuffled, set.Questions)

	s.mu.Lock()
	for i := len(shuffled) - 1; i > 0; i-- {
		j := s.rnd.Intn(i + 1)
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}
	s.mu.Unlock()

	return shuffled[:min(count, len(shuffled))]
}
