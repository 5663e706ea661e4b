package repositories

import (
	"context"

	"github.com/zatekoja/datebuch/internal/domain/entities"
)

// ApiUsageRepository stores per-day external API call budgets.
type ApiUsageRepository interface {
	// Get returns the record for (apiName, day) or a NOT_FOUND error.
	Get(ctx context.Context, apiName, day string) (*entities.ApiUsageRecord, error)
	// Ensure creates the record when absent and leaves an existing one
	// untouched. Monthly counts carry forward from the latest earlier day.
	Ensure(ctx context.Context, record *entities.ApiUsageRecord) error
	// Increment atomically adds one call to the daily and monthly counters.
	Increment(ctx context.Context, apiName, day string) error
	ListByDay(ctx context.Context, day string) ([]*entities.ApiUsageRecord, error)
}

// ApiCacheRepository stores cached external API responses.
type ApiCacheRepository interface {
	// Get returns the entry or a NOT_FOUND error. Expired entries are returned
	// as stored; eviction is the caller's decision.
	Get(ctx context.Context, apiName, cacheKey string) (*entities.CacheEntry, error)
	// Put inserts or overwrites the entry.
	Put(ctx context.Context, entry *entities.CacheEntry) error
	Delete(ctx context.Context, apiName, cacheKey string) error
}
