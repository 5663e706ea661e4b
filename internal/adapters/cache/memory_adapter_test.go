package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/datebuch/internal/domain/providers"
)

func TestMemoryAdapter_SetGet(t *testing.T) {
	ctx := context.Background()
	adapter := NewMemoryAdapter(4, time.Minute)

	require.NoError(t, adapter.Set(ctx, "weather:hamburg", []byte(`{"temp":3}`), 60))

	got, err := adapter.Get(ctx, "weather:hamburg")
	require.NoError(t, err)
	assert.JSONEq(t, `{"temp":3}`, string(got))

	exists, err := adapter.Exists(ctx, "weather:hamburg")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestMemoryAdapter_MissAndExpiry(t *testing.T) {
	ctx := context.Background()
	adapter := NewMemoryAdapter(4, time.Hour)
	now := time.Date(2026, 3, 7, 18, 0, 0, 0, time.UTC)
	adapter.now = func() time.Time { return now }

	_, err := adapter.Get(ctx, "absent")
	assert.ErrorIs(t, err, providers.ErrCacheMiss)

	require.NoError(t, adapter.Set(ctx, "k", []byte("v"), 10))
	now = now.Add(10 * time.Second)

	_, err = adapter.Get(ctx, "k")
	assert.ErrorIs(t, err, providers.ErrCacheMiss)
}

func TestMemoryAdapter_Delete(t *testing.T) {
	ctx := context.Background()
	adapter := NewMemoryAdapter(4, time.Minute)

	require.NoError(t, adapter.Set(ctx, "k", []byte("v"), 0))
	require.NoError(t, adapter.Delete(ctx, "k"))

	exists, err := adapter.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, exists)
}
