package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"vibe-check-service/internal/domain"

	"github.com/jackc/pgx/v4/pgxpool"
	"go.uber.org/zap"
)

// NotifyChannel is the channel the quiz_submissions trigger notifies on.
const NotifyChannel = "quiz_submissions"

const listenBuffer = 8

// Listener turns Postgres LISTEN/NOTIFY into an app.SubmissionFeed. Each
// subscription holds one pooled connection until it is cancelled.
type Listener struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewListener(pool *pgxpool.Pool, logger *zap.Logger) *Listener {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Listener{pool: pool, logger: logger}
}

func (l *Listener) Subscribe(ctx context.Context) (<-chan domain.Submission, func(), error) {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("acquire listen conn: %w", err)
	}
	if _, err := conn.Exec(ctx, "LISTEN "+NotifyChannel); err != nil {
		conn.Release()
		return nil, nil, fmt.Errorf("listen %s: %w", NotifyChannel, err)
	}

	subCtx, stop := context.WithCancel(ctx)
	out := make(chan domain.Submission, listenBuffer)
	done := make(chan struct{})

	go func() {
		defer close(done)
		defer close(out)
		defer l.release(conn)
		for {
			n, err := conn.Conn().WaitForNotification(subCtx)
			if err != nil {
				if subCtx.Err() == nil {
					l.logger.Warn("gallery listener stopped", zap.Error(err))
				}
				return
			}
			var s domain.Submission
			if err := json.Unmarshal([]byte(n.Payload), &s); err != nil {
				l.logger.Warn("dropping malformed notification", zap.Error(err))
				continue
			}
			select {
			case out <- s:
			case <-subCtx.Done():
				return
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			stop()
			<-done
		})
	}
	return out, cancel, nil
}

// release returns the connection to the pool without its LISTEN state. A
// connection that cannot be reset is closed instead.
func (l *Listener) release(conn *pgxpool.Conn) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := conn.Exec(ctx, "UNLISTEN *"); err != nil {
		_ = conn.Conn().Close(ctx)
	}
	conn.Release()
}
