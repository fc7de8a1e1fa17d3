package postgres

import (
	"context"
	"fmt"
	"time"

	"vibe-check-service/internal/domain"

	"github.com/jackc/pgx/v4/pgxpool"
)

// SubmissionRepository stores published results in quiz_submissions.
// An insert trigger announces public rows on the quiz_submissions channel.
type SubmissionRepository struct {
	pool *pgxpool.Pool
}

func NewSubmissionRepository(pool *pgxpool.Pool) *SubmissionRepository {
	return &SubmissionRepository{pool: pool}
}

const submissionColumns = `id, display_name, age, gender, vibe_id, rating, instagram, twitter, facebook, show_publicly, created_at`

func (r *SubmissionRepository) Create(ctx context.Context, s domain.Submission) (domain.Submission, error) {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	_, err := r.pool.Exec(ctx, `INSERT INTO quiz_submissions (`+submissionColumns+`)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		s.ID, s.DisplayName, s.Age, string(s.Gender), s.VibeID, s.Rating,
		s.Instagram, s.Twitter, s.Facebook, s.ShowPublicly, s.CreatedAt)
	if err != nil {
		return domain.Submission{}, fmt.Errorf("insert submission: %w", err)
	}
	return s, nil
}

func (r *SubmissionRepository) Recent(ctx context.Context, limit int) ([]domain.Submission, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+submissionColumns+` FROM quiz_submissions
WHERE show_publicly
ORDER BY created_at DESC
LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query submissions: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Submission, 0, limit)
	for rows.Next() {
		var (
			s      domain.Submission
			gender string
		)
		if err := rows.Scan(&s.ID, &s.DisplayName, &s.Age, &gender, &s.VibeID, &s.Rating,
			&s.Instagram, &s.Twitter, &s.Facebook, &s.ShowPublicly, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		s.Gender = domain.Gender(gender)
		s.CreatedAt = s.CreatedAt.UTC()
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate submissions: %w", err)
	}
	return out, nil
}
