// Package sqlite is a single-file backend for submissions and the visit
// counter, for deployments without Postgres.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"vibe-check-service/internal/domain"

	"github.com/jmoiron/sqlx"

	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// Store persists submissions and site stats in SQLite.
type Store struct {
	db *sqlx.DB
}

// Open connects to the database at path (":memory:" works) and applies the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sqlx.ConnectContext(ctx, "sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer; also keeps an in-memory database on a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

func dsn(path string) string {
	if path == ":memory:" {
		return path
	}
	return "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
}

func (s *Store) Close() error {
	return s.db.Close()
}

type submissionRow struct {
	ID           string `db:"id"`
	DisplayName  string `db:"display_name"`
	Age          int    `db:"age"`
	Gender       string `db:"gender"`
	VibeID       string `db:"vibe_id"`
	Rating       int    `db:"rating"`
	Instagram    string `db:"instagram"`
	Twitter      string `db:"twitter"`
	Facebook     string `db:"facebook"`
	ShowPublicly bool   `db:"show_publicly"`
	CreatedAt    int64  `db:"created_at"`
}

func toRow(s domain.Submission) submissionRow {
	return submissionRow{
		ID:           s.ID,
		DisplayName:  s.DisplayName,
		Age:          s.Age,
		Gender:       string(s.Gender),
		VibeID:       s.VibeID,
		Rating:       s.Rating,
		Instagram:    s.Instagram,
		Twitter:      s.Twitter,
		Facebook:     s.Facebook,
		ShowPublicly: s.ShowPublicly,
		CreatedAt:    s.CreatedAt.UnixNano(),
	}
}

func (r submissionRow) submission() domain.Submission {
	return domain.Submission{
		ID:           r.ID,
		DisplayName:  r.DisplayName,
		Age:          r.Age,
		Gender:       domain.Gender(r.Gender),
		VibeID:       r.VibeID,
		Rating:       r.Rating,
		Instagram:    r.Instagram,
		Twitter:      r.Twitter,
		Facebook:     r.Facebook,
		ShowPublicly: r.ShowPublicly,
		CreatedAt:    time.Unix(0, r.CreatedAt).UTC(),
	}
}

func (s *Store) Create(ctx context.Context, submission domain.Submission) (domain.Submission, error) {
	if submission.CreatedAt.IsZero() {
		submission.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.NamedExecContext(ctx, `
INSERT INTO quiz_submissions
    (id, display_name, age, gender, vibe_id, rating, instagram, twitter, facebook, show_publicly, created_at)
VALUES
    (:id, :display_name, :age, :gender, :vibe_id, :rating, :instagram, :twitter, :facebook, :show_publicly, :created_at)`,
		toRow(submission))
	if err != nil {
		return domain.Submission{}, fmt.Errorf("insert submission: %w", err)
	}
	return submission, nil
}

// Recent returns up to limit public submissions, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]domain.Submission, error) {
	var rows []submissionRow
	err := s.db.SelectContext(ctx, &rows, `
SELECT id, display_name, age, gender, vibe_id, rating, instagram, twitter, facebook, show_publicly, created_at
FROM quiz_submissions
WHERE show_publicly = 1
ORDER BY created_at DESC, rowid DESC
LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query submissions: %w", err)
	}
	out := make([]domain.Submission, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.submission())
	}
	return out, nil
}

// Visits returns the site_stats-backed visit counter.
func (s *Store) Visits() *VisitStore {
	return &VisitStore{db: s.db}
}

// VisitStore is an app.VisitStore over the site_stats table.
type VisitStore struct {
	db *sqlx.DB
}

func (v *VisitStore) Count(ctx context.Context) (int64, error) {
	var n int64
	err := v.db.GetContext(ctx, &n, `SELECT value FROM site_stats WHERE name = 'visits'`)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read visits: %w", err)
	}
	return n, nil
}

// Increment reads then writes; concurrent bumps may lose updates.
func (v *VisitStore) Increment(ctx context.Context) (int64, error) {
	n, err := v.Count(ctx)
	if err != nil {
		return 0, err
	}
	n++
	_, err = v.db.ExecContext(ctx, `
INSERT INTO site_stats (name, value) VALUES ('visits', ?)
ON CONFLICT (name) DO UPDATE SET value = excluded.value`, n)
	if err != nil {
		return 0, fmt.Errorf("write visits: %w", err)
	}
	return n, nil
}
