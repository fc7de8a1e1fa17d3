package memory

import (
	"context"
	"sync"
	"time"

	"vibe-check-service/internal/app"
	"vibe-check-service/internal/domain"
)

// SessionStore is an in-memory implementation of app.SessionRepository.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*app.Session
	now      func() time.Time
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*app.Session),
		now:      time.Now,
	}
}

func (s *SessionStore) Create(sessionID string) (*app.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sessionID]; ok {
		return nil, domain.ErrSessionInUse
	}
	session := app.NewSessionWithClock(sessionID, s.now)
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
	delete(s.sessions, sessionID)
}

// Live reports how many sessions are open in this process.
func (s *SessionStore) Live(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions), nil
}
