package memory

import (
	"context"
	"sync"

	"jsquiz-service/internal/domain"
)

// ProfileStore keeps profiles in process memory; contents are lost on restart.
type ProfileStore struct {
	mu       sync.RWMutex
	profiles map[string]domain.Profile
}

func NewProfileStore() *ProfileStore {
	return &ProfileStore{profiles: make(map[string]domain.Profile)}
}

// LoadProfile returns the stored profile, creating an empty one on first use.
func (s *ProfileStore) LoadProfile(_ context.Context, username string) (domain.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	profile, ok := s.profiles[username]
	if !ok {
		profile = domain.NewProfile(username)
		s.profiles[username] = profile
	}
	return cloneProfile(profile), nil
}

// FindProfile returns the stored profile or ErrProfileNotFound.
func (s *ProfileStore) FindProfile(_ context.Context, username string) (domain.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	profile, ok := s.profiles[username]
	if !ok {
		return domain.Profile{}, domain.ErrProfileNotFound
	}
	return cloneProfile(profile), nil
}

func (s *ProfileStore) SaveProfile(_ context.Context, profile domain.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[profile.Username] = cloneProfile(profile)
	return nil
}

func cloneProfile(p domain.Profile) domain.Profile {
	p.History = append([]domain.HistoryEntry{}, p.History...)
	return p
}
