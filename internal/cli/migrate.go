package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"vibe-check-service/internal/config"
	"vibe-check-service/internal/domain"
	pgstore "vibe-check-service/internal/infra/postgres"
	pgmigrations "vibe-check-service/internal/infra/postgres/migrations"
	redisstore "vibe-check-service/internal/infra/redis"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
	"go.uber.org/zap"
)

// NewMigrateCmd applies database migrations and seeds the built-in quiz.
func NewMigrateCmd(configPath, logLevel *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(*configPath, *logLevel)
			if err != nil {
				return err
			}
			defer logger.Sync()
			if err := runMigrationsWithConfig(cmd.Context(), cfg, logger); err != nil {
				return err
			}
			pool, err := pgxpool.Connect(cmd.Context(), cfg.Postgres.URL)
			if err != nil {
				return err
			}
			defer pool.Close()
			if err := seedDefaultQuiz(cmd.Context(), pool, logger); err != nil {
				return err
			}
			return invalidateQuizCache(cmd.Context(), cfg, pool, logger)
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "rollback",
		Short: "Roll back the last migration group",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(*configPath, *logLevel)
			if err != nil {
				return err
			}
			defer logger.Sync()
			return rollbackWithConfig(cmd.Context(), cfg, logger)
		},
	})
	return cmd
}

func newMigrator(cfg config.Config) (*migrate.Migrator, *bun.DB, error) {
	if cfg.Postgres.URL == "" {
		return nil, nil, fmt.Errorf("postgres url not configured")
	}
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.URL)))
	db := bun.NewDB(sqldb, pgdialect.New())
	return migrate.NewMigrator(db, pgmigrations.Migrations), db, nil
}

func runMigrationsWithConfig(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	migrator, db, err := newMigrator(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := migrator.Init(ctx); err != nil {
		return err
	}
	group, err := migrator.Migrate(ctx)
	if err != nil {
		return err
	}
	if group.IsZero() {
		logger.Info("no new migrations")
		return nil
	}
	logger.Info("migrations applied", zap.String("group", group.String()))
	return nil
}

func rollbackWithConfig(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	migrator, db, err := newMigrator(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := migrator.Init(ctx); err != nil {
		return err
	}
	group, err := migrator.Rollback(ctx)
	if err != nil {
		return err
	}
	if group.IsZero() {
		logger.Info("nothing to roll back")
		return nil
	}
	logger.Info("migrations rolled back", zap.String("group", group.String()))
	return nil
}

// invalidateQuizCache drops the shared Redis copy of the configured quiz so
// servers pick up migrated content on their next read.
func invalidateQuizCache(ctx context.Context, cfg config.Config, pool *pgxpool.Pool, logger *zap.Logger) error {
	if cfg.Redis.Addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer client.Close()

	repo := redisstore.NewQuizRepository(client, pgstore.NewQuizLoader(pool), config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute))
	if err := repo.Invalidate(ctx, cfg.Quiz.ID); err != nil {
		return fmt.Errorf("invalidate cached quiz: %w", err)
	}
	logger.Info("cached quiz invalidated", zap.String("quiz", cfg.Quiz.ID))
	return nil
}

// seedDefaultQuiz stores the built-in quiz unless one with its ID exists.
func seedDefaultQuiz(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger) error {
	loader := pgstore.NewQuizLoader(pool)
	_, err := loader.LoadQuiz(ctx, domain.DefaultQuizID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, domain.ErrQuizNotFound) {
		return err
	}
	if err := loader.SaveQuiz(ctx, domain.DefaultQuiz()); err != nil {
		return err
	}
	logger.Info("seeded built-in quiz", zap.String("quiz", domain.DefaultQuizID))
	return nil
}
