package cache

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/datebuch/internal/domain/entities"
	redisclient "github.com/zatekoja/datebuch/internal/infrastructure/clients/redis"
	apperrors "github.com/zatekoja/datebuch/pkg/errors"
)

func newTestRedis(t *testing.T) (*redisclient.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return redisclient.Wrap(rdb), mr
}

func TestRedisUsageAdapter_EnsureGetIncrement(t *testing.T) {
	ctx := context.Background()
	client, _ := newTestRedis(t)
	adapter := NewRedisUsageAdapter(client)

	_, err := adapter.Get(ctx, "openweathermap", "2026-03-07")
	assert.True(t, apperrors.IsNotFound(err))

	record := &entities.ApiUsageRecord{APIName: "openweathermap", Day: "2026-03-07", DailyLimit: 2, MonthlyLimit: 10}
	require.NoError(t, adapter.Ensure(ctx, record))
	require.NoError(t, adapter.Ensure(ctx, &entities.ApiUsageRecord{APIName: "openweathermap", Day: "2026-03-07", DailyLimit: 99, MonthlyLimit: 99}))

	require.NoError(t, adapter.Increment(ctx, "openweathermap", "2026-03-07"))

	got, err := adapter.Get(ctx, "openweathermap", "2026-03-07")
	require.NoError(t, err)
	assert.Equal(t, 1, got.CallCount)
	assert.Equal(t, 2, got.DailyLimit)
	assert.Equal(t, 1, got.MonthlyCount)
	assert.Equal(t, 10, got.MonthlyLimit)
	assert.NotNil(t, got.LastCallAt)
}

func TestRedisUsageAdapter_MonthlyCarriesAcrossDays(t *testing.T) {
	ctx := context.Background()
	client, _ := newTestRedis(t)
	adapter := NewRedisUsageAdapter(client)

	for _, day := range []string{"2026-03-06", "2026-03-07"} {
		require.NoError(t, adapter.Ensure(ctx, &entities.ApiUsageRecord{APIName: "ticketmaster", Day: day, DailyLimit: 5, MonthlyLimit: 150}))
		require.NoError(t, adapter.Increment(ctx, "ticketmaster", day))
	}

	got, err := adapter.Get(ctx, "ticketmaster", "2026-03-07")
	require.NoError(t, err)
	assert.Equal(t, 1, got.CallCount)
	assert.Equal(t, 2, got.MonthlyCount)

	records, err := adapter.ListByDay(ctx, "2026-03-07")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "ticketmaster", records[0].APIName)
}

func TestRedisUsageAdapter_IncrementMissingDay(t *testing.T) {
	client, _ := newTestRedis(t)
	adapter := NewRedisUsageAdapter(client)

	err := adapter.Increment(context.Background(), "openweathermap", "2026-03-07")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestRedisUsageAdapter_ConcurrentIncrements(t *testing.T) {
	ctx := context.Background()
	client, _ := newTestRedis(t)
	adapter := NewRedisUsageAdapter(client)

	require.NoError(t, adapter.Ensure(ctx, &entities.ApiUsageRecord{APIName: "openweathermap", Day: "2026-03-07", DailyLimit: 100, MonthlyLimit: 100}))

	const workers = 20
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, adapter.Increment(ctx, "openweathermap", "2026-03-07"))
		}()
	}
	wg.Wait()

	got, err := adapter.Get(ctx, "openweathermap", "2026-03-07")
	require.NoError(t, err)
	assert.Equal(t, workers, got.CallCount)
	assert.Equal(t, workers, got.MonthlyCount)
}

func TestRedisResponseCacheAdapter_PutGetDelete(t *testing.T) {
	ctx := context.Background()
	client, mr := newTestRedis(t)
	adapter := NewRedisResponseCacheAdapter(client)

	now := time.Now()
	entry := &entities.CacheEntry{
		APIName:   "openweathermap",
		CacheKey:  "current:53.5511,9.9937",
		Response:  json.RawMessage(`{"temp":3}`),
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	}
	require.NoError(t, adapter.Put(ctx, entry))

	got, err := adapter.Get(ctx, entry.APIName, entry.CacheKey)
	require.NoError(t, err)
	assert.JSONEq(t, `{"temp":3}`, string(got.Response))

	mr.FastForward(2 * time.Hour)
	_, err = adapter.Get(ctx, entry.APIName, entry.CacheKey)
	assert.True(t, apperrors.IsNotFound(err))

	require.NoError(t, adapter.Put(ctx, entry))
	require.NoError(t, adapter.Delete(ctx, entry.APIName, entry.CacheKey))
	_, err = adapter.Get(ctx, entry.APIName, entry.CacheKey)
	assert.True(t, apperrors.IsNotFound(err))
}
