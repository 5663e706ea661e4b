package events

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/datebuch/internal/domain/entities"
	"github.com/zatekoja/datebuch/internal/domain/providers"
	redisclient "github.com/zatekoja/datebuch/internal/infrastructure/clients/redis"
)

func setupBus(t *testing.T) providers.EventBus {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redisclient.Wrap(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	bus := NewRedisEventBus(client)
	t.Cleanup(func() { _ = bus.Close() })
	return bus
}

func TestRedisEventBus_PublishSubscribe(t *testing.T) {
	bus := setupBus(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := bus.Subscribe(ctx, providers.EventChannelVenueUpdates)
	require.NoError(t, err)

	sent := entities.NewVenueEvent("v1", entities.VenueEventStatusChanged, map[string]interface{}{"status": "closed"})
	require.NoError(t, bus.Publish(ctx, providers.EventChannelVenueUpdates, sent))

	select {
	case got := <-events:
		require.NotNil(t, got)
		assert.Equal(t, sent.ID, got.ID)
		assert.Equal(t, "v1", got.VenueID)
		assert.Equal(t, entities.VenueEventStatusChanged, got.EventType)
		assert.Equal(t, "closed", got.ChangedFields["status"])
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}
}

func TestRedisEventBus_FanOut(t *testing.T) {
	bus := setupBus(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first, err := bus.Subscribe(ctx, providers.EventChannelVenueUpdates)
	require.NoError(t, err)
	second, err := bus.Subscribe(ctx, providers.EventChannelVenueUpdates)
	require.NoError(t, err)

	require.NoError(t, bus.Publish(ctx, providers.EventChannelVenueUpdates,
		entities.NewVenueEvent("v2", entities.VenueEventTagChanged, nil)))

	for _, ch := range []<-chan *entities.VenueEvent{first, second} {
		select {
		case got := <-ch:
			assert.Equal(t, "v2", got.VenueID)
		case <-time.After(2 * time.Second):
			t.Fatal("event not delivered to every subscriber")
		}
	}
}

func TestRedisEventBus_UnsubscribeClosesChannel(t *testing.T) {
	bus := setupBus(t)
	ctx := context.Background()

	events, err := bus.Subscribe(ctx, providers.EventChannelVenueUpdates)
	require.NoError(t, err)
	require.NoError(t, bus.Unsubscribe(ctx, providers.EventChannelVenueUpdates))

	select {
	case _, ok := <-events:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed")
	}
}

func TestRedisEventBus_PublishRequiresVenueAndType(t *testing.T) {
	bus := setupBus(t)
	ctx := context.Background()

	assert.Error(t, bus.Publish(ctx, providers.EventChannelVenueUpdates, nil))
	assert.Error(t, bus.Publish(ctx, providers.EventChannelVenueUpdates, &entities.VenueEvent{VenueID: "v1"}))
	assert.Error(t, bus.Publish(ctx, providers.EventChannelVenueUpdates, &entities.VenueEvent{EventType: entities.VenueEventCreated}))

	bare := &entities.VenueEvent{VenueID: "v1", EventType: entities.VenueEventCreated}
	require.NoError(t, bus.Publish(ctx, providers.EventChannelVenueUpdates, bare))
	assert.NotEmpty(t, bare.ID)
	assert.False(t, bare.Timestamp.IsZero())
}

func TestRedisEventBus_SubscribersGetTheirOwnCopy(t *testing.T) {
	bus := setupBus(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first, err := bus.Subscribe(ctx, providers.EventChannelVenueUpdates)
	require.NoError(t, err)
	second, err := bus.Subscribe(ctx, providers.EventChannelVenueUpdates)
	require.NoError(t, err)

	require.NoError(t, bus.Publish(ctx, providers.EventChannelVenueUpdates,
		entities.NewVenueEvent("v3", entities.VenueEventStatusChanged, nil)))

	var a, b *entities.VenueEvent
	select {
	case a = <-first:
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}
	select {
	case b = <-second:
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}
	a.VenueID = "changed"
	assert.Equal(t, "v3", b.VenueID)
}

func TestRedisEventBus_CloseEndsSubscriptions(t *testing.T) {
	bus := setupBus(t)
	ctx := context.Background()

	events, err := bus.Subscribe(ctx, providers.EventChannelVenueUpdates)
	require.NoError(t, err)
	require.NoError(t, bus.Close())

	select {
	case _, ok := <-events:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed")
	}

	_, err = bus.Subscribe(ctx, providers.EventChannelVenueUpdates)
	assert.Error(t, err)
	assert.NoError(t, bus.Close())
}

func TestRedisEventBus_CancelledSubscriberLeaves(t *testing.T) {
	bus := setupBus(t)
	ctx, cancel := context.WithCancel(context.Background())

	events, err := bus.Subscribe(ctx, providers.EventChannelVenueUpdates)
	require.NoError(t, err)
	cancel()

	select {
	case _, ok := <-events:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed after cancel")
	}

	again, err := bus.Subscribe(context.Background(), providers.EventChannelVenueUpdates)
	require.NoError(t, err)
	require.NoError(t, bus.Publish(context.Background(), providers.EventChannelVenueUpdates,
		entities.NewVenueEvent("v4", entities.VenueEventCreated, nil)))
	select {
	case got := <-again:
		assert.Equal(t, "v4", got.VenueID)
	case <-time.After(2 * time.Second):
		t.Fatal("resubscribed channel got nothing")
	}
}
