package memory

import (
	"context"
	"sort"
	"sync"

	"vibe-check-service/internal/domain"
)

// SubmissionStore keeps published results in process memory.
type SubmissionStore struct {
	mu    sync.RWMutex
	items []domain.Submission
}

func NewSubmissionStore() *SubmissionStore {
	return &SubmissionStore{}
}

func (s *SubmissionStore) Create(_ context.Context, submission domain.Submission) (domain.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, submission)
	return submission, nil
}

// Recent returns up to limit public submissions, newest first.
func (s *SubmissionStore) Recent(_ context.Context, limit int) ([]domain.Submission, error) {
	s.mu.RLock()
	public := make([]domain.Submission, 0, len(s.items))
	for i := len(s.items) - 1; i >= 0; i-- {
		if s.items[i].ShowPublicly {
			public = append(public, s.items[i])
		}
	}
	s.mu.RUnlock()

	// Walked backwards, so equal timestamps keep the later insert first.
	sort.SliceStable(public, func(i, j int) bool {
		return public[i].CreatedAt.After(public[j].CreatedAt)
	})
	if limit > 0 && len(public) > limit {
		public = public[:limit]
	}
	return public, nil
}
