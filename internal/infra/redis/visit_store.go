package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const visitsKey = "site:visits"

// VisitStore keeps the public visit counter in Redis.
type VisitStore struct {
	client *redis.Client
}

func NewVisitStore(client *redis.Client) *VisitStore {
	return &VisitStore{client: client}
}

func (s *VisitStore) Count(ctx context.Context) (int64, error) {
	n, err := s.client.Get(ctx, visitsKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read visits: %w", err)
	}
	return n, nil
}

// Increment reads then writes. Concurrent bumps may lose updates, which is
// acceptable for a display counter.
func (s *VisitStore) Increment(ctx context.Context) (int64, error) {
	n, err := s.Count(ctx)
	if err != nil {
		return 0, err
	}
	n++
	if err := s.client.Set(ctx, visitsKey, n, 0).Err(); err != nil {
		return 0, fmt.Errorf("write visits: %w", err)
	}
	return n, nil
}
