package cli

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"vibe-check-service/internal/app"
	"vibe-check-service/internal/config"
	"vibe-check-service/internal/infra/memory"
	pgstore "vibe-check-service/internal/infra/postgres"
	redisstore "vibe-check-service/internal/infra/redis"
	sqlitestore "vibe-check-service/internal/infra/sqlite"
	"vibe-check-service/internal/logging"
	transport "vibe-check-service/internal/transport/http"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port, logLevel *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(*configPath, *logLevel)
			if err != nil {
				return err
			}
			defer logger.Sync()
			if *port != "" {
				cfg.Server.Port = *port
			}
			return runServer(cmd.Context(), cfg, logger)
		},
	}
}

// loadConfig reads configuration and builds the logger it asks for.
func loadConfig(path, levelFlag string) (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, nil, err
	}
	if levelFlag != "" {
		cfg.Log.Level = levelFlag
	}
	logger, err := logging.New(cfg.Log.Level)
	if err != nil {
		return cfg, nil, err
	}
	return cfg, logger, nil
}

// backends are the collaborator implementations chosen from config.
type backends struct {
	quizzes     app.QuizRepository
	sessions    app.SessionRepository
	live        transport.LiveSessions
	submissions app.SubmissionRepository
	visits      app.VisitStore
	hub         *memory.FeedHub
	upstream    app.SubmissionFeed // shared cross-instance feed, relayed into hub
	closers     []func()
}

func (b *backends) close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

// openBackends prefers Postgres, then SQLite, then memory for storage. Live
// updates come from Postgres LISTEN or Redis pub/sub when available, relayed
// into an in-process hub.
func openBackends(ctx context.Context, cfg config.Config, logger *zap.Logger) (*backends, error) {
	b := &backends{}
	ok := false
	defer func() {
		if !ok {
			b.close()
		}
	}()

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		b.closers = append(b.closers, func() { _ = redisClient.Close() })
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return nil, err
		}
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, logger); err != nil {
			return nil, err
		}
		var err error
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, pool.Close)
		if err := seedDefaultQuiz(ctx, pool, logger); err != nil {
			return nil, err
		}
	}

	var loader memory.QuizLoader = memory.NewDefaultQuizLoader()
	if pool != nil {
		loader = pgstore.NewQuizLoader(pool)
	}
	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	if redisClient != nil {
		sessions := redisstore.NewSessionStore(redisClient, config.TTLDuration(cfg.Redis.TTL, 30*time.Minute))
		b.quizzes = redisstore.NewQuizRepository(redisClient, loader, quizTTL)
		b.sessions, b.live = sessions, sessions
	} else {
		sessions := memory.NewSessionStore()
		b.quizzes = memory.NewQuizRepository(loader, quizTTL)
		b.sessions, b.live = sessions, sessions
	}

	switch {
	case pool != nil:
		b.submissions = pgstore.NewSubmissionRepository(pool)
		b.visits = pgstore.NewVisitStore(pool)
	case cfg.SQLite.Path != "":
		store, err := sqlitestore.Open(ctx, cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, func() { _ = store.Close() })
		b.submissions = store
		b.visits = store.Visits()
	default:
		b.submissions = memory.NewSubmissionStore()
		b.visits = memory.NewVisitStore(0)
	}
	if redisClient != nil && pool == nil {
		b.visits = redisstore.NewVisitStore(redisClient)
	}

	// Viewers subscribe to the local hub. The Postgres trigger announces
	// inserts itself; otherwise the repository publishes after each create.
	b.hub = memory.NewFeedHub()
	switch {
	case pool != nil:
		b.upstream = pgstore.NewListener(pool, logger)
	case redisClient != nil:
		relay := redisstore.NewFeedRelay(redisClient, logger)
		b.upstream = relay
		b.submissions = app.NotifyOnCreate(b.submissions, relay, logger)
	default:
		b.submissions = app.NotifyOnCreate(b.submissions, b.hub, logger)
	}

	logger.Info("backends ready",
		zap.Bool("postgres", pool != nil),
		zap.Bool("redis", redisClient != nil),
		zap.Bool("sqlite", pool == nil && cfg.SQLite.Path != ""))
	ok = true
	return b, nil
}

func runServer(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	b, err := openBackends(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer b.close()

	counter := app.NewCounter(b.visits, logger, config.TTLDuration(cfg.Counter.Timeout, 5*time.Second))
	if err := counter.Load(ctx); err != nil {
		logger.Warn("visit counter unavailable, starting from zero", zap.Error(err))
	}
	defer counter.Wait()

	service := app.NewQuizService(b.sessions, b.quizzes, b.submissions, counter,
		app.WithLogger(logger),
		app.WithQuizID(cfg.Quiz.ID))
	gallery := app.NewGalleryService(b.submissions, b.hub, cfg.Gallery.Size,
		config.TTLDuration(cfg.Gallery.Rotate, 1300*time.Millisecond), logger)

	// Fail fast on a quiz that cannot be loaded or validated.
	if _, err := service.Quiz(ctx); err != nil {
		return err
	}

	router := transport.NewRouter(
		transport.NewAPIHandler(service, gallery, counter, b.live, cfg.Server.Origin, logger),
		transport.NewWSHandler(service, cfg.Server.Origin, logger),
		transport.NewGalleryHandler(gallery, logger),
		logger,
	)
	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 15 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)
	if b.upstream != nil {
		g.Go(func() error {
			err := app.RelayFeed(gctx, b.upstream, b.hub, time.Second, logger)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}
	g.Go(func() error {
		err := counter.Sync(gctx, config.TTLDuration(cfg.Counter.Refresh, 15*time.Second))
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		logger.Info("starting vibe check service", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
