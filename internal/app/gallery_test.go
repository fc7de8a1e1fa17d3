package app_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"vibe-check-service/internal/app"
	"vibe-check-service/internal/domain"
	"vibe-check-service/internal/infra/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func publicSubmission(id string) domain.Submission {
	return domain.Submission{ID: id, DisplayName: id, VibeID: "softBoi", ShowPublicly: true}
}

func TestFeedBoundedPrepend(t *testing.T) {
	seed := make([]domain.Submission, 0, 20)
	for i := 0; i < 20; i++ {
		seed = append(seed, publicSubmission(fmt.Sprintf("old-%02d", i)))
	}
	feed := app.NewFeed(20, seed)

	for i := 0; i < 5; i++ {
		require.True(t, feed.Prepend(publicSubmission(fmt.Sprintf("new-%d", i))))
	}

	items := feed.Items()
	require.Len(t, items, 20)
	for i := 0; i < 5; i++ {
		assert.Equal(t, fmt.Sprintf("new-%d", 4-i), items[i].ID)
	}
	assert.Equal(t, "old-00", items[5].ID)
	assert.Equal(t, "old-14", items[19].ID)
}

func TestFeedIgnoresPrivateAndToleratesDuplicates(t *testing.T) {
	feed := app.NewFeed(3, nil)
	private := publicSubmission("hidden")
	private.ShowPublicly = false
	require.False(t, feed.Prepend(private))
	require.Equal(t, 0, feed.Len())

	for i := 0; i < 10; i++ {
		feed.Prepend(publicSubmission("dup"))
		require.LessOrEqual(t, feed.Len(), 3)
	}
	require.Equal(t, 3, feed.Len())
}

func TestNewFeedTruncatesSeed(t *testing.T) {
	seed := []domain.Submission{publicSubmission("a"), publicSubmission("b"), publicSubmission("c")}
	feed := app.NewFeed(2, seed)
	require.Equal(t, []domain.Submission{seed[0], seed[1]}, feed.Items())
}

func TestRotatorPausesUnderFocus(t *testing.T) {
	var r app.Rotator
	idx, moved := r.Advance(3)
	require.True(t, moved)
	require.Equal(t, 1, idx)

	r.Focus("s1")
	require.True(t, r.Paused())
	idx, moved = r.Advance(3)
	require.False(t, moved)
	require.Equal(t, 1, idx)

	r.Blur()
	r.Advance(3)
	idx, _ = r.Advance(3)
	require.Equal(t, 0, idx)

	_, moved = r.Advance(0)
	require.False(t, moved)
}

func TestGalleryViewStreamsLiveUpdates(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx := context.Background()
	hub := memory.NewFeedHub()
	store := memory.NewSubmissionStore()
	repo := app.NotifyOnCreate(store, hub, nil)
	for i := 0; i < 3; i++ {
		_, err := store.Create(ctx, publicSubmission(fmt.Sprintf("seed-%d", i)))
		require.NoError(t, err)
	}

	gallery := app.NewGalleryService(repo, hub, 3, time.Hour, nil)
	view, err := gallery.Open(ctx)
	require.NoError(t, err)
	require.Len(t, view.Items(), 3)
	require.Equal(t, 1, hub.Subscribers())

	runCtx, cancel := context.WithCancel(ctx)
	events := make(chan app.GalleryEvent, 8)
	done := make(chan error, 1)
	go func() {
		done <- view.Run(runCtx, func(ev app.GalleryEvent) error {
			events <- ev
			return nil
		})
	}()

	first := <-events
	require.Equal(t, app.GalleryEventSnapshot, first.Type)
	require.Len(t, first.Items, 3)

	private := publicSubmission("private")
	private.ShowPublicly = false
	_, err = repo.Create(ctx, private)
	require.NoError(t, err)
	_, err = repo.Create(ctx, publicSubmission("live"))
	require.NoError(t, err)

	select {
	case ev := <-events:
		require.Equal(t, app.GalleryEventSnapshot, ev.Type)
		require.Len(t, ev.Items, 3)
		require.Equal(t, "live", ev.Items[0].ID)
	case <-time.After(2 * time.Second):
		t.Fatal("expected live snapshot")
	}

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
	require.Equal(t, 0, hub.Subscribers())
	view.Close()
}

func TestGalleryViewRotatesUntilFocused(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := memory.NewFeedHub()
	store := memory.NewSubmissionStore()
	_, _ = store.Create(ctx, publicSubmission("a"))
	_, _ = store.Create(ctx, publicSubmission("b"))

	gallery := app.NewGalleryService(store, hub, 20, 5*time.Millisecond, nil)
	view, err := gallery.Open(ctx)
	require.NoError(t, err)

	rotations := make(chan int, 64)
	done := make(chan error, 1)
	go func() {
		done <- view.Run(ctx, func(ev app.GalleryEvent) error {
			if ev.Type == app.GalleryEventRotate {
				select {
				case rotations <- ev.Index:
				default:
				}
			}
			return nil
		})
	}()

	select {
	case <-rotations:
	case <-time.After(2 * time.Second):
		t.Fatal("expected rotation")
	}

	view.Focus("a")
	time.Sleep(20 * time.Millisecond)
	for len(rotations) > 0 {
		<-rotations
	}
	time.Sleep(30 * time.Millisecond)
	require.Empty(t, rotations)

	view.Blur()
	select {
	case <-rotations:
	case <-time.After(2 * time.Second):
		t.Fatal("expected rotation to resume")
	}

	cancel()
	<-done
}

type brokenRecent struct {
	memory.SubmissionStore
}

func (b *brokenRecent) Recent(context.Context, int) ([]domain.Submission, error) {
	return nil, errors.New("timeout")
}

func TestGalleryViewReportsSeedFailure(t *testing.T) {
	defer goleak.VerifyNone(t)

	hub := memory.NewFeedHub()
	gallery := app.NewGalleryService(&brokenRecent{}, hub, 20, time.Hour, nil)
	view, err := gallery.Open(context.Background())
	require.NoError(t, err)

	var got []app.GalleryEvent
	stop := errors.New("stop")
	err = view.Run(context.Background(), func(ev app.GalleryEvent) error {
		got = append(got, ev)
		if ev.Type == app.GalleryEventSnapshot {
			return stop
		}
		return nil
	})
	require.ErrorIs(t, err, stop)
	require.Len(t, got, 2)
	require.Equal(t, app.GalleryEventError, got[0].Type)
	require.Empty(t, got[1].Items)
	require.Equal(t, 0, hub.Subscribers())
}

func TestRelayFeedForwardsUntilCancelled(t *testing.T) {
	defer goleak.VerifyNone(t)

	upstream := memory.NewFeedHub()
	local := memory.NewFeedHub()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- app.RelayFeed(ctx, upstream, local, 10*time.Millisecond, nil) }()

	ch, release, err := local.Subscribe(context.Background())
	require.NoError(t, err)
	defer release()
	require.Eventually(t, func() bool { return upstream.Subscribers() == 1 }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, upstream.Publish(context.Background(), publicSubmission("remote")))
	select {
	case got := <-ch:
		require.Equal(t, "remote", got.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("expected relayed submission")
	}

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
	require.Equal(t, 0, upstream.Subscribers())
}
