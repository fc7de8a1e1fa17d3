package redis

import (
	"context"
	"sync"
	"time"

	"vibe-check-service/internal/app"
	"vibe-check-service/internal/domain"

	"github.com/redis/go-redis/v9"
)

// SessionStore is a Redis-aware implementation of app.SessionRepository.
// Sessions live in process memory next to the socket that owns them; Redis
// carries a liveness marker per session so other instances can see who is
// playing.
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

// Create reserves the ID with SETNX so two instances cannot hold the same
// session. A Redis error does not block play; the marker is best effort.
func (s *SessionStore) Create(sessionID string) (*app.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sessionID]; ok {
		return nil, domain.ErrSessionInUse
	}
	reserved, err := s.client.SetNX(context.Background(), s.key(sessionID), "1", s.ttl).Result()
	if err == nil && !reserved {
		return nil, domain.ErrSessionInUse
	}
	session := app.NewSession(sessionID)
	s.sessions[sessionID] = session
	return session, nil
}

func (s *SessionStore) Get(sessionID string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	return session, ok
}

func (s *SessionStore) Delete(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sessionID]; !ok {
		return
	}
	delete(s.sessions, sessionID)
	_ = s.client.Del(context.Background(), s.key(sessionID)).Err()
}

// Live counts liveness markers across all instances sharing the Redis.
func (s *SessionStore) Live(ctx context.Context) (int, error) {
	var (
		cursor uint64
		total  int
	)
	for {
		keys, next, err := s.client.Scan(ctx, cursor, "quiz:session:*", 100).Result()
		if err != nil {
			return 0, err
		}
		total += len(keys)
		if next == 0 {
			return total, nil
		}
		cursor = next
	}
}

func (s *SessionStore) key(sessionID string) string {
	return "quiz:session:" + sessionID
}
