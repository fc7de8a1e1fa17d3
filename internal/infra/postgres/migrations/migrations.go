// Package migrations holds the Postgres schema, applied with bun's migrator.
// Each file registers one migration; the version comes from its file name.
package migrations

import "github.com/uptrace/bun/migrate"

var Migrations = migrate.NewMigrations()
