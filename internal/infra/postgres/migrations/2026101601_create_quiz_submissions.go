package migrations

import (
	"context"
	_ "embed"

	"github.com/uptrace/bun"
)

//go:embed 0002_create_quiz_submissions.sql
var createSubmissionsSQL string

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, createSubmissionsSQL)
			return err
		},
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, `
DROP TRIGGER IF EXISTS quiz_submissions_notify ON quiz_submissions;
DROP FUNCTION IF EXISTS notify_quiz_submission();
DROP TABLE IF EXISTS quiz_submissions;`)
			return err
		},
	)
}
