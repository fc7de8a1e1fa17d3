package app

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// VisitStore is the external "vibe checked" counter. Increment is a plain
// read-then-write; concurrent increments may lose updates.
type VisitStore interface {
	Count(ctx context.Context) (int64, error)
	Increment(ctx context.Context) (int64, error)
}

// Task is the handle of a fire-and-forget background operation.
type Task struct {
	done chan struct{}
	err  error
}

// Done is closed once the task has finished.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the task finishes and returns its error.
func (t *Task) Wait() error {
	<-t.done
	return t.err
}

// Counter is the displayed visit count. Bumps are applied locally first and
// rolled back by one when the store write fails. Sync keeps the value in step
// with bumps made by other instances sharing the store.
type Counter struct {
	store   VisitStore
	logger  *zap.Logger
	timeout time.Duration

	value atomic.Int64
	wg    sync.WaitGroup

	// mu orders the optimistic adjustments against a reload.
	mu      sync.Mutex
	pending int64
}

// NewCounter builds a counter over store. timeout bounds each background write.
func NewCounter(store VisitStore, logger *zap.Logger, timeout time.Duration) *Counter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Counter{store: store, logger: logger, timeout: timeout}
}

// Load sets the displayed value from the store, keeping local bumps whose
// write has not landed yet.
func (c *Counter) Load(ctx context.Context) error {
	n, err := c.store.Count(ctx)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.value.Store(n + c.pending)
	c.mu.Unlock()
	return nil
}

// Sync reloads the value every interval until ctx is done. A failed reload
// keeps the last value.
func (c *Counter) Sync(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			loadCtx, cancel := context.WithTimeout(ctx, c.timeout)
			err := c.Load(loadCtx)
			cancel()
			if err != nil && ctx.Err() == nil {
				c.logger.Debug("visit counter refresh failed", zap.Error(err))
			}
		}
	}
}

// Value returns the displayed count.
func (c *Counter) Value() int64 {
	return c.value.Load()
}

// Bump optimistically adds one and persists it in the background. The
// returned task never needs to be awaited; a failed write is compensated by
// subtracting the optimistic increment.
func (c *Counter) Bump(ctx context.Context) *Task {
	c.mu.Lock()
	c.pending++
	c.value.Add(1)
	c.mu.Unlock()
	task := &Task{done: make(chan struct{})}
	c.wg.Add(1)

	ctx = context.WithoutCancel(ctx)
	go func() {
		defer c.wg.Done()
		defer close(task.done)

		writeCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()
		_, err := c.store.Increment(writeCtx)
		c.mu.Lock()
		c.pending--
		if err != nil {
			c.value.Add(-1)
		}
		c.mu.Unlock()
		if err != nil {
			task.err = err
			c.logger.Warn("visit counter increment failed, rolled back", zap.Error(err))
		}
	}()
	return task
}

// Wait blocks until every in-flight bump has finished.
func (c *Counter) Wait() {
	c.wg.Wait()
}
