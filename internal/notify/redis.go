package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/akarpov/userhub/internal/models"
)

const defaultChannel = "userhub:events"

// RedisBroker delivers events over a Redis pub/sub channel, so every
// service instance sees events published by any other one.
type RedisBroker struct {
	client  *redis.Client
	channel string
}

func NewRedisBroker(client *redis.Client, channel string) *RedisBroker {
	if channel == "" {
		channel = defaultChannel
	}

	return &RedisBroker{
		client:  client,
		channel: channel,
	}
}

func (b *RedisBroker) Publish(ctx context.Context, event models.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("error while encoding event. Err: %w", err)
	}

	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		return fmt.Errorf("error while publishing event. Err: %w", err)
	}

	return nil
}

// Subscribe registers a sink. The redis subscription is released by the
// cancel func or, whichever happens first, by ctx cancellation.
func (b *RedisBroker) Subscribe(ctx context.Context) (<-chan models.Event, func()) {
	pubsub := b.client.Subscribe(ctx, b.channel)
	ch := make(chan models.Event, subscriberBuffer)

	done := make(chan struct{})
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			// Closing the pubsub closes its Channel(), the pump drains and exits
			_ = pubsub.Close()
		})
	}

	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-done:
		}
	}()

	go func() {
		defer close(ch)

		for msg := range pubsub.Channel() {
			var event models.Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				// Foreign payload on our channel, skip it
				continue
			}

			select {
			case ch <- event:
			case <-done:
				return
			}
		}
	}()

	return ch, cancel
}
