package memory

import (
	"context"
	"sync"

	"vibe-check-service/internal/domain"
)

const subscriberBuffer = 8

// FeedHub fans newly published submissions out to in-process subscribers.
// It implements both app.SubmissionFeed and app.SubmissionPublisher.
type FeedHub struct {
	mu          sync.Mutex
	subscribers map[chan domain.Submission]struct{}
}

func NewFeedHub() *FeedHub {
	return &FeedHub{subscribers: make(map[chan domain.Submission]struct{})}
}

// Subscribe registers a subscriber. The subscription also ends when ctx is done.
func (h *FeedHub) Subscribe(ctx context.Context) (<-chan domain.Submission, func(), error) {
	ch := make(chan domain.Submission, subscriberBuffer)

	h.mu.Lock()
	h.subscribers[ch] = struct{}{}
	h.mu.Unlock()

	stop := make(chan struct{})
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(stop)
			h.mu.Lock()
			if _, ok := h.subscribers[ch]; ok {
				delete(h.subscribers, ch)
				close(ch)
			}
			h.mu.Unlock()
		})
	}
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-stop:
		}
	}()
	return ch, cancel, nil
}

// Publish delivers submission to every subscriber. A full subscriber loses
// its oldest pending update instead of blocking the publisher.
func (h *FeedHub) Publish(_ context.Context, submission domain.Submission) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subscribers {
		select {
		case ch <- submission:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- submission
		}
	}
	return nil
}

// Subscribers reports the number of live subscriptions.
func (h *FeedHub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}
