package notify

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/akarpov/userhub/internal/models"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err, "miniredis should start")
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return client
}

func Test_RedisBroker(t *testing.T) {
	t.Parallel()

	event := models.Event{
		Type:   models.EventUserDeleted,
		UserID: 7,
		At:     time.Now().Truncate(time.Second),
	}

	t.Run("publish and subscribe round trip", func(t *testing.T) {
		client := newTestRedis(t)
		broker := NewRedisBroker(client, "")

		events, cancel := broker.Subscribe(t.Context())
		defer cancel()

		// Give the subscription goroutine a moment to attach
		require.Eventually(t, func() bool {
			channels, err := client.PubSubChannels(t.Context(), defaultChannel).Result()
			return err == nil && len(channels) == 1
		}, time.Second, 10*time.Millisecond, "subscription should be registered")

		require.NoError(t, broker.Publish(t.Context(), event))

		select {
		case got := <-events:
			require.Equal(t, event.Type, got.Type)
			require.Equal(t, event.UserID, got.UserID)
		case <-time.After(time.Second):
			t.Fatal("subscriber should receive the published event")
		}
	})

	t.Run("cancel closes the stream", func(t *testing.T) {
		client := newTestRedis(t)
		broker := NewRedisBroker(client, "test-channel")

		events, cancel := broker.Subscribe(t.Context())
		cancel()

		select {
		case _, open := <-events:
			require.False(t, open, "channel should be closed after cancel")
		case <-time.After(time.Second):
			t.Fatal("channel should be closed after cancel")
		}
	})

	t.Run("context cancellation closes the stream", func(t *testing.T) {
		client := newTestRedis(t)
		broker := NewRedisBroker(client, "")

		ctx, cancelCtx := context.WithCancel(t.Context())
		events, _ := broker.Subscribe(ctx)

		// Sink that never calls cancel must still be released
		cancelCtx()

		select {
		case _, open := <-events:
			require.False(t, open, "channel should be closed when ctx dies")
		case <-time.After(time.Second):
			t.Fatal("channel should be closed when ctx dies")
		}
	})

	t.Run("skips foreign payloads", func(t *testing.T) {
		client := newTestRedis(t)
		broker := NewRedisBroker(client, "")

		events, cancel := broker.Subscribe(t.Context())
		defer cancel()

		require.Eventually(t, func() bool {
			channels, err := client.PubSubChannels(t.Context(), defaultChannel).Result()
			return err == nil && len(channels) == 1
		}, time.Second, 10*time.Millisecond)

		// Junk first, then a real event: only the event arrives
		require.NoError(t, client.Publish(t.Context(), defaultChannel, "not-json").Err())
		require.NoError(t, broker.Publish(t.Context(), event))

		select {
		case got := <-events:
			require.Equal(t, event.UserID, got.UserID)
		case <-time.After(time.Second):
			t.Fatal("valid event should still be delivered")
		}
	})
}
