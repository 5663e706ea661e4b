package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/zatekoja/datebuch/internal/domain/entities"
	"github.com/zatekoja/datebuch/internal/domain/providers"
	"github.com/zatekoja/datebuch/internal/domain/repositories"
	"github.com/zatekoja/datebuch/internal/infrastructure/observability"
	"github.com/zatekoja/datebuch/pkg/config"
	apperrors "github.com/zatekoja/datebuch/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
)

// Producer performs the outbound call of an external API and returns the
// raw JSON payload.
type Producer func(ctx context.Context) ([]byte, error)

// GatewayService puts every external API call behind a response cache and a
// daily/monthly call budget.
type GatewayService struct {
	usage    repositories.ApiUsageRepository
	store    repositories.ApiCacheRepository
	local    providers.CacheProvider
	localTTL time.Duration
	cfg      config.GatewayConfig
	loc      *time.Location
	now      func() time.Time
	metrics  *observability.GatewayMetrics
}

// GatewayOption customises a GatewayService
type GatewayOption func(*GatewayService)

// WithLocalCache puts an in-process cache in front of the cache store.
// Entries live at most maxTTL there.
func WithLocalCache(cache providers.CacheProvider, maxTTL time.Duration) GatewayOption {
	return func(g *GatewayService) {
		g.local = cache
		g.localTTL = maxTTL
	}
}

// WithGatewayMetrics records cache and budget events on the given counters
func WithGatewayMetrics(metrics *observability.GatewayMetrics) GatewayOption {
	return func(g *GatewayService) {
		g.metrics = metrics
	}
}

// WithGatewayClock replaces the wall clock
func WithGatewayClock(now func() time.Time) GatewayOption {
	return func(g *GatewayService) {
		g.now = now
	}
}

// NewGatewayService creates a new gateway service
func NewGatewayService(
	usage repositories.ApiUsageRepository,
	store repositories.ApiCacheRepository,
	cfg config.GatewayConfig,
	opts ...GatewayOption,
) *GatewayService {
	g := &GatewayService{
		usage:   usage,
		store:   store,
		cfg:     cfg,
		loc:     cfg.Location(),
		now:     time.Now,
		metrics: &observability.GatewayMetrics{},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Today returns the usage day key for the current wall-clock time
func (g *GatewayService) Today() string {
	return g.now().In(g.loc).Format(entities.DayLayout)
}

// Fetch returns the cached payload for (apiName, cacheKey) or, budget
// permitting, calls producer and caches its payload for ttlMinutes.
func (g *GatewayService) Fetch(ctx context.Context, apiName, cacheKey string, ttlMinutes int, producer Producer) ([]byte, error) {
	if apiName == "" || cacheKey == "" {
		return nil, apperrors.NewValidationError("api name and cache key are required")
	}
	if ttlMinutes <= 0 {
		return nil, apperrors.NewValidationError("ttl must be positive")
	}
	if producer == nil {
		return nil, apperrors.NewValidationError("producer is required")
	}

	ctx, span := observability.StartSpan(ctx, "gateway.fetch")
	defer span.End()
	observability.SetSpanAttributes(span,
		attribute.String("gateway.api", apiName),
		attribute.String("gateway.cache_key", cacheKey),
	)
	logger := observability.LoggerFromContext(ctx)

	if payload, ok := g.lookup(ctx, apiName, cacheKey); ok {
		observability.RecordGatewayEvent(ctx, g.metrics.CacheHitCount, apiName)
		observability.SetSpanAttributes(span, attribute.Bool("gateway.cache_hit", true))
		return payload, nil
	}
	observability.RecordGatewayEvent(ctx, g.metrics.CacheMissCount, apiName)

	day := g.Today()
	if err := g.checkBudget(ctx, apiName, day); err != nil {
		if apperrors.IsRateLimited(err) {
			observability.RecordGatewayEvent(ctx, g.metrics.RateLimitedCount, apiName)
			logger.Warn().Str("api", apiName).Str("day", day).Msg("External API budget exhausted")
		}
		observability.RecordError(span, err)
		return nil, err
	}

	payload, err := producer(ctx)
	if err != nil {
		observability.RecordGatewayEvent(ctx, g.metrics.ProviderFailCount, apiName)
		observability.RecordError(span, err)
		logger.Warn().Err(err).Str("api", apiName).Msg("External API call failed")

		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, apperrors.NewExternalError(fmt.Sprintf("%s request failed", apiName), err)
	}
	observability.RecordGatewayEvent(ctx, g.metrics.ProviderCallCount, apiName)

	if err := g.usage.Increment(ctx, apiName, day); err != nil {
		logger.Error().Err(err).Str("api", apiName).Msg("Failed to record external API call")
	}

	now := g.now()
	entry := &entities.CacheEntry{
		APIName:   apiName,
		CacheKey:  cacheKey,
		Response:  json.RawMessage(payload),
		CreatedAt: now,
		ExpiresAt: now.Add(time.Duration(ttlMinutes) * time.Minute),
	}
	if err := g.store.Put(ctx, entry); err != nil {
		logger.Warn().Err(err).Str("api", apiName).Msg("Failed to cache external API response")
	}
	g.remember(ctx, entry)

	return payload, nil
}

// lookup consults the local cache, then the cache store. Expired store
// entries are deleted.
func (g *GatewayService) lookup(ctx context.Context, apiName, cacheKey string) ([]byte, bool) {
	logger := observability.LoggerFromContext(ctx)

	if g.local != nil {
		if payload, err := g.local.Get(ctx, localCacheKey(apiName, cacheKey)); err == nil {
			return payload, true
		}
	}

	entry, err := g.store.Get(ctx, apiName, cacheKey)
	if err != nil {
		if !apperrors.IsNotFound(err) {
			logger.Warn().Err(err).Str("api", apiName).Msg("Cache store lookup failed")
		}
		return nil, false
	}

	if entry.Expired(g.now()) {
		if err := g.store.Delete(ctx, apiName, cacheKey); err != nil {
			logger.Warn().Err(err).Str("api", apiName).Msg("Failed to evict expired cache entry")
		}
		return nil, false
	}

	g.remember(ctx, entry)
	return entry.Response, true
}

func (g *GatewayService) remember(ctx context.Context, entry *entities.CacheEntry) {
	if g.local == nil {
		return
	}
	ttl := entry.ExpiresAt.Sub(g.now())
	if g.localTTL > 0 && g.localTTL < ttl {
		ttl = g.localTTL
	}
	seconds := int(ttl / time.Second)
	if seconds <= 0 {
		return
	}
	_ = g.local.Set(ctx, localCacheKey(entry.APIName, entry.CacheKey), entry.Response, seconds)
}

// checkBudget loads or lazily creates the day's usage record and rejects the
// call when either budget is used up.
func (g *GatewayService) checkBudget(ctx context.Context, apiName, day string) error {
	record, err := g.usage.Get(ctx, apiName, day)
	if apperrors.IsNotFound(err) {
		limit := g.cfg.LimitFor(apiName)
		err = g.usage.Ensure(ctx, &entities.ApiUsageRecord{
			APIName:      apiName,
			Day:          day,
			DailyLimit:   limit.Daily,
			MonthlyLimit: limit.Monthly,
		})
		if err != nil {
			return err
		}
		// a new day inherits the monthly count of the previous one
		record, err = g.usage.Get(ctx, apiName, day)
	}
	if err != nil {
		return err
	}

	if record.Exhausted() {
		return apperrors.NewRateLimitedError(apiName, fmt.Sprintf(
			"%s budget exhausted (daily %d/%d, monthly %d/%d)",
			apiName, record.CallCount, record.DailyLimit, record.MonthlyCount, record.MonthlyLimit,
		))
	}

	return nil
}

// Status reports today's usage of every configured or used API
func (g *GatewayService) Status(ctx context.Context) ([]entities.ApiUsageStatus, error) {
	records, err := g.usage.ListByDay(ctx, g.Today())
	if err != nil {
		return nil, err
	}

	byName := make(map[string]*entities.ApiUsageRecord, len(records))
	for _, r := range records {
		byName[r.APIName] = r
	}
	for name, limit := range g.cfg.Limits {
		if _, ok := byName[name]; !ok {
			byName[name] = &entities.ApiUsageRecord{APIName: name, DailyLimit: limit.Daily, MonthlyLimit: limit.Monthly}
		}
	}

	statuses := make([]entities.ApiUsageStatus, 0, len(byName))
	for _, r := range byName {
		statuses = append(statuses, entities.ApiUsageStatus{
			APIName:      r.APIName,
			Calls:        r.CallCount,
			Limit:        r.DailyLimit,
			Percentage:   percentage(r.CallCount, r.DailyLimit),
			MonthlyCalls: r.MonthlyCount,
			MonthlyLimit: r.MonthlyLimit,
		})
	}
	sort.Slice(statuses, func(i, j int) bool {
		return statuses[i].APIName < statuses[j].APIName
	})

	return statuses, nil
}

// FetchJSON is Fetch for typed payloads: produce's result is encoded into the
// cache and the cached or fresh payload is decoded into T.
func FetchJSON[T any](ctx context.Context, g *GatewayService, apiName, cacheKey string, ttlMinutes int, produce func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	payload, err := g.Fetch(ctx, apiName, cacheKey, ttlMinutes, func(ctx context.Context) ([]byte, error) {
		value, err := produce(ctx)
		if err != nil {
			return nil, err
		}
		return json.Marshal(value)
	})
	if err != nil {
		return zero, err
	}

	var value T
	if err := json.Unmarshal(payload, &value); err != nil {
		return zero, apperrors.NewInternalError("failed to decode cached payload", err)
	}
	return value, nil
}

func localCacheKey(apiName, cacheKey string) string {
	return "gateway:" + apiName + ":" + cacheKey
}

func percentage(calls, limit int) int {
	if limit <= 0 {
		return 100
	}
	return calls * 100 / limit
}
