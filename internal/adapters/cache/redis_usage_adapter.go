package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/zatekoja/datebuch/internal/domain/entities"
	"github.com/zatekoja/datebuch/internal/domain/repositories"
	redisclient "github.com/zatekoja/datebuch/internal/infrastructure/clients/redis"
	apperrors "github.com/zatekoja/datebuch/pkg/errors"
)

const (
	usageKeyPrefix = "gateway:usage"
	usageAPIsKey   = "gateway:usage:apis"
	cacheKeyPrefix = "gateway:cache"
	usageDayTTL    = 40 * 24 * time.Hour
)

func dailyUsageKey(apiName, day string) string {
	return fmt.Sprintf("%s:%s:%s", usageKeyPrefix, apiName, day)
}

// The monthly counter is one key per API; it carries across days until an
// operator deletes it.
func monthlyUsageKey(apiName string) string {
	return fmt.Sprintf("%s:%s:monthly", usageKeyPrefix, apiName)
}

// RedisUsageAdapter implements ApiUsageRepository on Redis hashes
type RedisUsageAdapter struct {
	client *redisclient.Client
	now    func() time.Time
}

// NewRedisUsageAdapter creates a new Redis usage adapter
func NewRedisUsageAdapter(client *redisclient.Client) repositories.ApiUsageRepository {
	return &RedisUsageAdapter{client: client, now: time.Now}
}

// Get retrieves the usage record of apiName on day
func (a *RedisUsageAdapter) Get(ctx context.Context, apiName, day string) (*entities.ApiUsageRecord, error) {
	rdb := a.client.Client()

	fields, err := rdb.HGetAll(ctx, dailyUsageKey(apiName, day)).Result()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get api usage", err)
	}
	if len(fields) == 0 {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("no usage for %s on %s", apiName, day))
	}

	monthly, err := rdb.Get(ctx, monthlyUsageKey(apiName)).Int()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, apperrors.NewInternalError("failed to get monthly api usage", err)
	}

	record := &entities.ApiUsageRecord{
		APIName:      apiName,
		Day:          day,
		CallCount:    atoi(fields["call_count"]),
		DailyLimit:   atoi(fields["daily_limit"]),
		MonthlyCount: monthly,
		MonthlyLimit: atoi(fields["monthly_limit"]),
	}
	if raw := fields["last_call_at"]; raw != "" {
		if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			record.LastCallAt = &ts
		}
	}

	return record, nil
}

// Ensure creates the day's hash when absent
func (a *RedisUsageAdapter) Ensure(ctx context.Context, record *entities.ApiUsageRecord) error {
	key := dailyUsageKey(record.APIName, record.Day)

	_, err := a.client.Client().TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSetNX(ctx, key, "call_count", 0)
		pipe.HSetNX(ctx, key, "daily_limit", record.DailyLimit)
		pipe.HSetNX(ctx, key, "monthly_limit", record.MonthlyLimit)
		pipe.Expire(ctx, key, usageDayTTL)
		pipe.SAdd(ctx, usageAPIsKey, record.APIName)
		return nil
	})
	if err != nil {
		return apperrors.NewInternalError("failed to create api usage", err)
	}

	return nil
}

// Increment adds one call to the daily and monthly counters in a MULTI block
func (a *RedisUsageAdapter) Increment(ctx context.Context, apiName, day string) error {
	rdb := a.client.Client()
	key := dailyUsageKey(apiName, day)

	exists, err := rdb.Exists(ctx, key).Result()
	if err != nil {
		return apperrors.NewInternalError("failed to increment api usage", err)
	}
	if exists == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("no usage for %s on %s", apiName, day))
	}

	_, err = rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HIncrBy(ctx, key, "call_count", 1)
		pipe.HSet(ctx, key, "last_call_at", a.now().UTC().Format(time.RFC3339Nano))
		pipe.Incr(ctx, monthlyUsageKey(apiName))
		return nil
	})
	if err != nil {
		return apperrors.NewInternalError("failed to increment api usage", err)
	}

	return nil
}

// ListByDay retrieves the usage of every known API on day
func (a *RedisUsageAdapter) ListByDay(ctx context.Context, day string) ([]*entities.ApiUsageRecord, error) {
	names, err := a.client.Client().SMembers(ctx, usageAPIsKey).Result()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list api usage", err)
	}
	sort.Strings(names)

	records := make([]*entities.ApiUsageRecord, 0, len(names))
	for _, name := range names {
		record, err := a.Get(ctx, name, day)
		if apperrors.IsNotFound(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	return records, nil
}

// RedisResponseCacheAdapter implements ApiCacheRepository with Redis keys
// that expire together with the entry.
type RedisResponseCacheAdapter struct {
	client *redisclient.Client
	now    func() time.Time
}

// NewRedisResponseCacheAdapter creates a new Redis response cache adapter
func NewRedisResponseCacheAdapter(client *redisclient.Client) repositories.ApiCacheRepository {
	return &RedisResponseCacheAdapter{client: client, now: time.Now}
}

func responseCacheKey(apiName, cacheKey string) string {
	return fmt.Sprintf("%s:%s:%s", cacheKeyPrefix, apiName, cacheKey)
}

// Get retrieves a cached response
func (a *RedisResponseCacheAdapter) Get(ctx context.Context, apiName, cacheKey string) (*entities.CacheEntry, error) {
	raw, err := a.client.Client().Get(ctx, responseCacheKey(apiName, cacheKey)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("no cache entry %s/%s", apiName, cacheKey))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get cache entry", err)
	}

	entry := &entities.CacheEntry{}
	if err := json.Unmarshal(raw, entry); err != nil {
		return nil, apperrors.NewInternalError("failed to decode cache entry", err)
	}

	return entry, nil
}

// Put stores a response until its expiry
func (a *RedisResponseCacheAdapter) Put(ctx context.Context, entry *entities.CacheEntry) error {
	ttl := entry.ExpiresAt.Sub(a.now())
	if ttl <= 0 {
		return nil
	}

	raw, err := json.Marshal(entry)
	if err != nil {
		return apperrors.NewInternalError("failed to encode cache entry", err)
	}

	if err := a.client.Client().Set(ctx, responseCacheKey(entry.APIName, entry.CacheKey), raw, ttl).Err(); err != nil {
		return apperrors.NewInternalError("failed to store cache entry", err)
	}

	return nil
}

// Delete removes a cached response
func (a *RedisResponseCacheAdapter) Delete(ctx context.Context, apiName, cacheKey string) error {
	if err := a.client.Client().Del(ctx, responseCacheKey(apiName, cacheKey)).Err(); err != nil {
		return apperrors.NewInternalError("failed to delete cache entry", err)
	}
	return nil
}

func atoi(raw string) int {
	n, _ := strconv.Atoi(raw)
	return n
}
