package memory

import (
	"context"
	"sync"
)

// VisitStore is a process-local visit counter.
type VisitStore struct {
	mu    sync.Mutex
	count int64
}

func NewVisitStore(initial int64) *VisitStore {
	return &VisitStore{count: initial}
}

func (s *VisitStore) Count(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count, nil
}

func (s *VisitStore) Increment(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.count++
	return s.count, nil
}
