package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"jsquiz-service/internal/app"
)

// SessionStore is a Redis-aware implementation of SessionRepository.
// Notes:
//   - Sessions own live timers, so they stay in a local map.
//   - Redis holds a liveness marker per player (value = session id) so other
//     instances and operators can see who is mid-quiz.
type SessionStore struct {
	client   *redis.Client
	ttl      time.Duration
	mu       sync.RWMutex
	sessions map[string]*app.Session
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		sessions: make(map[string]*app.Session),
	}
}

func (s *SessionStore) Replace(playerID string, session *app.Session) *app.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	previous := s.sessions[playerID]
	s.sessions[playerID] = session
	// best-effort liveness marker
	_ = s.client.Set(context.Background(), s.key(playerID), session.ID(), s.ttl).Err()
	return previous
}

func (s *SessionStore) Get(playerID string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[playerID]
	return session, ok
}

func (s *SessionStore) Delete(playerID, sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[playerID]
	if !ok || session.ID() != sessionID {
		return
	}
	delete(s.sessions, playerID)
	_ = s.client.Del(context.Background(), s.key(playerID)).Err()
}

func (s *SessionStore) key(playerID string) string {
	return "quiz:session:" + playerID
}
