package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

const visitsStat = "visits"

// VisitStore keeps the visit counter in the site_stats table.
type VisitStore struct {
	pool *pgxpool.Pool
}

func NewVisitStore(pool *pgxpool.Pool) *VisitStore {
	return &VisitStore{pool: pool}
}

func (s *VisitStore) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, `SELECT value FROM site_stats WHERE name=$1`, visitsStat).Scan(&n)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read visits: %w", err)
	}
	return n, nil
}

// Increment reads then writes; concurrent bumps may lose updates.
func (s *VisitStore) Increment(ctx context.Context) (int64, error) {
	n, err := s.Count(ctx)
	if err != nil {
		return 0, err
	}
	n++
	_, err = s.pool.Exec(ctx, `
INSERT INTO site_stats (name, value) VALUES ($1, $2)
ON CONFLICT (name) DO UPDATE SET value = EXCLUDED.value`, visitsStat, n)
	if err != nil {
		return 0, fmt.Errorf("write visits: %w", err)
	}
	return n, nil
}
