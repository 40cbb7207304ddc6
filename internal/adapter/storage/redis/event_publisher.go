package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"krwx-ledger/internal/core/domain"

	goredis "github.com/redis/go-redis/v9"
)

// EventPublisher is an event bus subscriber that publishes each ledger
// event as JSON on a Redis pub/sub channel.
type EventPublisher struct {
	client  *goredis.Client
	channel string
}

// NewEventPublisher creates a publisher for channel.
func NewEventPublisher(client *goredis.Client, channel string) *EventPublisher {
	return &EventPublisher{client: client, channel: channel}
}

func (p *EventPublisher) Name() string { return "redis-pubsub" }

// Handle publishes e.
func (p *EventPublisher) Handle(ctx context.Context, e domain.Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode event %d: %w", e.Seq, err)
	}
	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

// Subscribe streams events published on the channel until ctx is done.
// Messages that fail to decode are skipped.
func Subscribe(ctx context.Context, client *goredis.Client, channel string) (<-chan domain.Event, error) {
	sub := client.Subscribe(ctx, channel)
	// Wait for the subscription to be confirmed before returning.
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, fmt.Errorf("redis subscribe: %w", err)
	}

	out := make(chan domain.Event)
	go func() {
		defer close(out)
		defer sub.Close()
		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var e domain.Event
				if err := json.Unmarshal([]byte(msg.Payload), &e); err != nil {
					continue
				}
				select {
				case out <- e:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
