package stream

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/lalith-99/disputedesk/internal/models"
)

// topicFor names the pub/sub channel for one ticket's comments.
func topicFor(ticketID uuid.UUID) string {
	return "comments:" + ticketID.String()
}

// RedisBus implements Bus over Redis pub/sub, one channel per ticket.
// Redis pub/sub is fire-and-forget: a subscriber that is not connected at
// publish time misses the event. That is fine here; the store is the
// source of truth and the replay protocol closes any gap.
type RedisBus struct {
	client *redis.Client
	logger *zap.Logger
}

func NewRedisBus(client *redis.Client, logger *zap.Logger) *RedisBus {
	return &RedisBus{client: client, logger: logger}
}

func (b *RedisBus) Publish(ctx context.Context, comment models.Comment) error {
	data, err := json.Marshal(comment)
	if err != nil {
		return fmt.Errorf("marshal comment event: %w", err)
	}

	if err := b.client.Publish(ctx, topicFor(comment.TicketID), data).Err(); err != nil {
		return fmt.Errorf("publish comment event: %w", err)
	}
	return nil
}

func (b *RedisBus) Subscribe(ctx context.Context, ticketID uuid.UUID) (Subscription, error) {
	pubsub := b.client.Subscribe(ctx, topicFor(ticketID))

	// Receive the subscription confirmation before returning, so "after
	// Subscribe returns" really means "the server will deliver from now".
	// The reconcile replay depends on this ordering.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe to %s: %w", topicFor(ticketID), err)
	}

	sub := &redisSub{
		pubsub: pubsub,
		ch:     make(chan models.Comment, subscriberBuffer),
	}

	go sub.pump(ctx, b.logger, ticketID)

	return sub, nil
}

type redisSub struct {
	pubsub *redis.PubSub
	ch     chan models.Comment
}

func (s *redisSub) Comments() <-chan models.Comment { return s.ch }

// Close is idempotent: redis.PubSub.Close tolerates repeated calls, and
// the pump goroutine closes s.ch exactly once when the message channel
// drains.
func (s *redisSub) Close() {
	_ = s.pubsub.Close()
}

func (s *redisSub) pump(ctx context.Context, logger *zap.Logger, ticketID uuid.UUID) {
	defer close(s.ch)

	msgs := s.pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			_ = s.pubsub.Close()
			// Drain until the pubsub channel closes so the goroutine
			// always exits.
			for range msgs {
			}
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			var cm models.Comment
			if err := json.Unmarshal([]byte(msg.Payload), &cm); err != nil {
				logger.Warn("dropping malformed comment event",
					zap.String("ticket_id", ticketID.String()),
					zap.Error(err),
				)
				continue
			}
			select {
			case s.ch <- cm:
			case <-ctx.Done():
			}
		}
	}
}
