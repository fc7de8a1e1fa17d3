package app

import (
	"context"
	"sync"
	"time"

	"vibe-check-service/internal/domain"

	"go.uber.org/zap"
)

// SubmissionFeed is the live-update channel for newly published submissions.
// The returned cancel function releases the subscription and closes the channel;
// it is safe to call more than once.
type SubmissionFeed interface {
	Subscribe(ctx context.Context) (<-chan domain.Submission, func(), error)
}

// SubmissionPublisher pushes a stored submission onto a live feed.
type SubmissionPublisher interface {
	Publish(ctx context.Context, submission domain.Submission) error
}

// NotifyOnCreate wraps repo so every stored submission is also published.
// A publish failure is logged; the submission is already persisted.
func NotifyOnCreate(repo SubmissionRepository, publisher SubmissionPublisher, logger *zap.Logger) SubmissionRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &notifyingRepository{SubmissionRepository: repo, publisher: publisher, logger: logger}
}

type notifyingRepository struct {
	SubmissionRepository
	publisher SubmissionPublisher
	logger    *zap.Logger
}

func (r *notifyingRepository) Create(ctx context.Context, submission domain.Submission) (domain.Submission, error) {
	saved, err := r.SubmissionRepository.Create(ctx, submission)
	if err != nil {
		return saved, err
	}
	if err := r.publisher.Publish(ctx, saved); err != nil {
		r.logger.Warn("live feed publish failed", zap.String("submission", saved.ID), zap.Error(err))
	}
	return saved, nil
}

// RelayFeed forwards everything from src into dst until ctx is done, so many
// local viewers share one upstream subscription. A dropped upstream is
// resubscribed after retry.
func RelayFeed(ctx context.Context, src SubmissionFeed, dst SubmissionPublisher, retry time.Duration, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	if retry <= 0 {
		retry = time.Second
	}
	for {
		updates, cancel, err := src.Subscribe(ctx)
		if err != nil {
			logger.Warn("live feed subscribe failed", zap.Error(err))
		} else {
			for s := range updates {
				if err := dst.Publish(ctx, s); err != nil {
					logger.Warn("live feed relay failed", zap.String("submission", s.ID), zap.Error(err))
				}
			}
			cancel()
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retry):
		}
	}
}

// Feed is the bounded, newest-first list of public submissions on display.
type Feed struct {
	limit int
	items []domain.Submission
}

// NewFeed seeds a feed with at most limit items of seed.
func NewFeed(limit int, seed []domain.Submission) *Feed {
	if limit <= 0 {
		limit = 1
	}
	f := &Feed{limit: limit}
	for _, s := range seed {
		if len(f.items) == limit {
			break
		}
		f.items = append(f.items, s)
	}
	return f
}

// Prepend puts a public submission at the front and drops the oldest items
// beyond the limit. Non-public submissions are ignored.
func (f *Feed) Prepend(s domain.Submission) bool {
	if !s.ShowPublicly {
		return false
	}
	items := make([]domain.Submission, 0, min(len(f.items)+1, f.limit))
	items = append(items, s)
	for _, existing := range f.items {
		if len(items) == f.limit {
			break
		}
		items = append(items, existing)
	}
	f.items = items
	return true
}

// Items returns a copy of the displayed submissions.
func (f *Feed) Items() []domain.Submission {
	out := make([]domain.Submission, len(f.items))
	copy(out, f.items)
	return out
}

// Len is the number of displayed submissions.
func (f *Feed) Len() int {
	return len(f.items)
}

// Rotator tracks the highlighted gallery card. Rotation pauses while a card
// has pointer focus.
type Rotator struct {
	mu      sync.Mutex
	cursor  int
	focused string
}

// Focus pauses rotation on the card with the given submission ID.
func (r *Rotator) Focus(id string) {
	r.mu.Lock()
	r.focused = id
	r.mu.Unlock()
}

// Blur resumes rotation.
func (r *Rotator) Blur() {
	r.mu.Lock()
	r.focused = ""
	r.mu.Unlock()
}

// Paused reports whether a card currently holds focus.
func (r *Rotator) Paused() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.focused != ""
}

// Advance moves to the next of n cards, wrapping around. It returns false
// without moving when paused or when there is nothing to rotate.
func (r *Rotator) Advance(n int) (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.focused != "" || n == 0 {
		return r.cursor, false
	}
	r.cursor = (r.cursor + 1) % n
	return r.cursor, true
}

// GalleryEvent is pushed to a gallery viewer.
type GalleryEvent struct {
	Type    string              `json:"type"`
	Items   []domain.Submission `json:"items,omitempty"`
	Index   int                 `json:"index"`
	Message string              `json:"message,omitempty"`
}

const (
	GalleryEventSnapshot = "snapshot"
	GalleryEventRotate   = "rotate"
	GalleryEventError    = "error"
)

// GalleryService serves the public gallery.
type GalleryService struct {
	submissions SubmissionRepository
	feed        SubmissionFeed
	limit       int
	interval    time.Duration
	logger      *zap.Logger
}

func NewGalleryService(submissions SubmissionRepository, feed SubmissionFeed, limit int, interval time.Duration, logger *zap.Logger) *GalleryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if limit <= 0 {
		limit = 20
	}
	if interval <= 0 {
		interval = 1300 * time.Millisecond
	}
	return &GalleryService{
		submissions: submissions,
		feed:        feed,
		limit:       limit,
		interval:    interval,
		logger:      logger,
	}
}

// Limit is the maximum number of displayed submissions.
func (g *GalleryService) Limit() int {
	return g.limit
}

// Recent returns the newest public submissions.
func (g *GalleryService) Recent(ctx context.Context) ([]domain.Submission, error) {
	return g.submissions.Recent(ctx, g.limit)
}

// Open seeds a view from Recent and subscribes it to live updates. The
// caller owns the view and must Close it.
func (g *GalleryService) Open(ctx context.Context) (*GalleryView, error) {
	updates, cancel, err := g.feed.Subscribe(ctx)
	if err != nil {
		return nil, err
	}
	seed, seedErr := g.Recent(ctx)
	if seedErr != nil {
		g.logger.Warn("gallery seed failed", zap.Error(seedErr))
	}
	return &GalleryView{
		feed:     NewFeed(g.limit, seed),
		updates:  updates,
		cancel:   cancel,
		interval: g.interval,
		seedErr:  seedErr,
	}, nil
}

// GalleryView is one viewer's gallery: a feed, its live subscription and the
// rotation state.
type GalleryView struct {
	Rotator

	feed     *Feed
	updates  <-chan domain.Submission
	cancel   func()
	once     sync.Once
	interval time.Duration
	seedErr  error
}

// Items returns the current feed contents. Only safe before Run or from emit.
func (v *GalleryView) Items() []domain.Submission {
	return v.feed.Items()
}

// Run emits the initial snapshot, then a snapshot per accepted live update
// and a rotate event per tick. It returns when ctx is done, the feed closes
// or emit fails, and releases the subscription either way.
func (v *GalleryView) Run(ctx context.Context, emit func(GalleryEvent) error) error {
	defer v.Close()

	if v.seedErr != nil {
		if err := emit(GalleryEvent{Type: GalleryEventError, Message: "couldn't load the gallery, showing live updates only"}); err != nil {
			return err
		}
	}
	if err := emit(GalleryEvent{Type: GalleryEventSnapshot, Items: v.feed.Items()}); err != nil {
		return err
	}

	ticker := time.NewTicker(v.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case s, ok := <-v.updates:
			if !ok {
				return nil
			}
			if !v.feed.Prepend(s) {
				continue
			}
			if err := emit(GalleryEvent{Type: GalleryEventSnapshot, Items: v.feed.Items()}); err != nil {
				return err
			}
		case <-ticker.C:
			idx, moved := v.Advance(v.feed.Len())
			if !moved {
				continue
			}
			if err := emit(GalleryEvent{Type: GalleryEventRotate, Index: idx}); err != nil {
				return err
			}
		}
	}
}

// Close releases the live subscription.
func (v *GalleryView) Close() {
	v.once.Do(v.cancel)
}
