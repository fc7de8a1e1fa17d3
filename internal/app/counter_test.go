package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"vibe-check-service/internal/app"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestCounterBumpIsOptimistic(t *testing.T) {
	store := &countingVisits{count: 41}
	counter := app.NewCounter(store, zaptest.NewLogger(t), time.Second)
	require.NoError(t, counter.Load(context.Background()))
	require.Equal(t, int64(41), counter.Value())

	task := counter.Bump(context.Background())
	require.GreaterOrEqual(t, counter.Value(), int64(42))
	require.NoError(t, task.Wait())
	require.Equal(t, int64(42), counter.Value())
	require.Equal(t, 1, store.Calls())
}

func TestCounterRollsBackOnFailure(t *testing.T) {
	store := &countingVisits{count: 10, err: errors.New("service unavailable")}
	counter := app.NewCounter(store, zaptest.NewLogger(t), time.Second)
	require.NoError(t, counter.Load(context.Background()))

	task := counter.Bump(context.Background())
	err := task.Wait()
	require.Error(t, err)
	require.Equal(t, int64(10), counter.Value())

	select {
	case <-task.Done():
	default:
		t.Fatal("expected task to be done")
	}
}

func TestCounterSurvivesCanceledCaller(t *testing.T) {
	store := &countingVisits{}
	counter := app.NewCounter(store, nil, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, counter.Bump(ctx).Wait())
	counter.Wait()
	require.Equal(t, int64(1), counter.Value())
}

// gatedVisits holds Increment until release is closed.
type gatedVisits struct {
	countingVisits
	release chan struct{}
}

func (g *gatedVisits) Increment(ctx context.Context) (int64, error) {
	<-g.release
	return g.countingVisits.Increment(ctx)
}

func TestCounterLoadPicksUpOtherInstancesAndKeepsPendingBumps(t *testing.T) {
	store := &gatedVisits{countingVisits: countingVisits{count: 5}, release: make(chan struct{})}
	counter := app.NewCounter(store, zaptest.NewLogger(t), time.Second)
	require.NoError(t, counter.Load(context.Background()))

	task := counter.Bump(context.Background())
	require.Equal(t, int64(6), counter.Value())

	// Two visits land elsewhere while our write is still in flight.
	store.setCount(7)
	require.NoError(t, counter.Load(context.Background()))
	require.Equal(t, int64(8), counter.Value())

	close(store.release)
	require.NoError(t, task.Wait())
	require.NoError(t, counter.Load(context.Background()))
	require.Equal(t, int64(8), counter.Value())
}

func TestCounterSyncRefreshesUntilCanceled(t *testing.T) {
	store := &countingVisits{count: 1}
	counter := app.NewCounter(store, zaptest.NewLogger(t), time.Second)
	require.NoError(t, counter.Load(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- counter.Sync(ctx, 10*time.Millisecond) }()

	store.setCount(30)
	require.Eventually(t, func() bool { return counter.Value() == 30 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("sync did not stop")
	}
}
