package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"vibe-check-service/internal/domain"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// FeedChannel is the pub/sub channel carrying newly published submissions.
const FeedChannel = "gallery:submissions"

const relayBuffer = 8

// FeedRelay shares the live gallery feed between instances over Redis pub/sub.
// It implements both app.SubmissionFeed and app.SubmissionPublisher.
type FeedRelay struct {
	client *redis.Client
	logger *zap.Logger
}

func NewFeedRelay(client *redis.Client, logger *zap.Logger) *FeedRelay {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeedRelay{client: client, logger: logger}
}

func (f *FeedRelay) Publish(ctx context.Context, submission domain.Submission) error {
	raw, err := json.Marshal(submission)
	if err != nil {
		return err
	}
	if err := f.client.Publish(ctx, FeedChannel, raw).Err(); err != nil {
		return fmt.Errorf("publish submission: %w", err)
	}
	return nil
}

// Subscribe opens a dedicated pub/sub connection. The returned channel closes
// after cancel is called or ctx is done.
func (f *FeedRelay) Subscribe(ctx context.Context) (<-chan domain.Submission, func(), error) {
	pubsub := f.client.Subscribe(ctx, FeedChannel)
	// Wait for the subscription confirmation so no publish is missed after return.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, fmt.Errorf("subscribe %s: %w", FeedChannel, err)
	}

	out := make(chan domain.Submission, relayBuffer)
	stop := make(chan struct{})
	done := make(chan struct{})
	messages := pubsub.Channel()

	go func() {
		defer close(done)
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case <-stop:
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				var submission domain.Submission
				if err := json.Unmarshal([]byte(msg.Payload), &submission); err != nil {
					f.logger.Warn("dropping malformed feed message", zap.Error(err))
					continue
				}
				select {
				case out <- submission:
				case <-ctx.Done():
					return
				case <-stop:
					return
				}
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(stop)
			_ = pubsub.Close()
			<-done
		})
	}
	return out, cancel, nil
}
