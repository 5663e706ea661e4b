package database

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/zatekoja/datebuch/internal/domain/entities"
	"github.com/zatekoja/datebuch/internal/domain/providers"
	"github.com/zatekoja/datebuch/internal/domain/repositories"
)

// Cache TTLs (in seconds)
const (
	venueByIDTTL    = 300
	venuesListTTL   = 120
	districtListTTL = 600

	venueGenerationKey = "venues:generation"
)

// CachedVenueAdapter wraps a VenueRepository with read-through caching.
// Every key carries a generation counter, so one bump invalidates all of
// them and a read that raced an invalidation writes back under a key no
// later read will look up.
type CachedVenueAdapter struct {
	adapter repositories.VenueRepository
	cache   providers.CacheProvider
}

// NewCachedVenueAdapter creates a new cached venue adapter
func NewCachedVenueAdapter(adapter repositories.VenueRepository, cache providers.CacheProvider) *CachedVenueAdapter {
	return &CachedVenueAdapter{
		adapter: adapter,
		cache:   cache,
	}
}

func venueCacheKey(generation, id string) string {
	return fmt.Sprintf("venue:%s:%s", generation, id)
}

func districtsCacheKey(generation string) string {
	return fmt.Sprintf("venues:districts:%s", generation)
}

func venuesListCacheKey(generation string, filter repositories.VenueFilter) string {
	parts := func(values []string) string { return strings.Join(values, ",") }

	types := make([]string, 0, len(filter.Types))
	for _, t := range filter.Types {
		types = append(types, string(t))
	}
	statuses := make([]string, 0, len(filter.Statuses))
	for _, s := range filter.Statuses {
		statuses = append(statuses, string(s))
	}

	return fmt.Sprintf("venues:list:%s:%s:%s:%s:%d:%d",
		generation, parts(types), parts(filter.Districts), parts(statuses), filter.Limit, filter.Offset)
}

// generation returns the current cache generation. A missing generation,
// never set or evicted, is replaced by a fresh one so entries written under
// an earlier generation stay unreachable.
func (a *CachedVenueAdapter) generation(ctx context.Context) string {
	if raw, err := a.cache.Get(ctx, venueGenerationKey); err == nil && len(raw) > 0 {
		return string(raw)
	}
	return a.bumpGeneration(ctx)
}

func (a *CachedVenueAdapter) bumpGeneration(ctx context.Context) string {
	next := uuid.NewString()
	if err := a.cache.Set(ctx, venueGenerationKey, []byte(next), 0); err != nil {
		log.Warn().Err(err).Msg("Failed to bump venue cache generation")
	}
	return next
}

// Invalidate drops every cached venue, list and district lookup
func (a *CachedVenueAdapter) Invalidate(ctx context.Context, venueID string) {
	generation := a.bumpGeneration(ctx)
	log.Debug().Str("venue_id", venueID).Str("generation", generation).Msg("Venue cache invalidated")
}

// CacheStats reports whether the generation and the current district list
// are cached. It never creates a generation.
func (a *CachedVenueAdapter) CacheStats(ctx context.Context) map[string]bool {
	stats := map[string]bool{venueGenerationKey: false, "venues:districts": false}
	raw, err := a.cache.Get(ctx, venueGenerationKey)
	if err != nil || len(raw) == 0 {
		return stats
	}
	stats[venueGenerationKey] = true
	if ok, err := a.cache.Exists(ctx, districtsCacheKey(string(raw))); err == nil {
		stats["venues:districts"] = ok
	}
	return stats
}

func (a *CachedVenueAdapter) store(key string, value interface{}, ttl int) {
	go func() {
		bgCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		data, err := json.Marshal(value)
		if err != nil {
			return
		}
		if err := a.cache.Set(bgCtx, key, data, ttl); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("Failed to populate venue cache")
		}
	}()
}

// Create creates a venue and invalidates list caches
func (a *CachedVenueAdapter) Create(ctx context.Context, venue *entities.Venue) error {
	if err := a.adapter.Create(ctx, venue); err != nil {
		return err
	}
	a.Invalidate(ctx, "")
	return nil
}

// GetByID retrieves a venue with caching
func (a *CachedVenueAdapter) GetByID(ctx context.Context, id string) (*entities.Venue, error) {
	cacheKey := venueCacheKey(a.generation(ctx), id)

	if cached, err := a.cache.Get(ctx, cacheKey); err == nil {
		var venue entities.Venue
		if err := json.Unmarshal(cached, &venue); err == nil {
			return &venue, nil
		}
		log.Debug().Str("venue_id", id).Msg("Discarding undecodable cached venue")
	}

	venue, err := a.adapter.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	a.store(cacheKey, venue, venueByIDTTL)
	return venue, nil
}

// GetBySlug is not cached; slugs are only used by the importer
func (a *CachedVenueAdapter) GetBySlug(ctx context.Context, slug string) (*entities.Venue, error) {
	return a.adapter.GetBySlug(ctx, slug)
}

// List retrieves venues with caching
func (a *CachedVenueAdapter) List(ctx context.Context, filter repositories.VenueFilter) ([]*entities.Venue, error) {
	cacheKey := venuesListCacheKey(a.generation(ctx), filter)

	if cached, err := a.cache.Get(ctx, cacheKey); err == nil {
		var venues []*entities.Venue
		if err := json.Unmarshal(cached, &venues); err == nil {
			return venues, nil
		}
	}

	venues, err := a.adapter.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	a.store(cacheKey, venues, venuesListTTL)
	return venues, nil
}

// UpdateStatus updates a venue and invalidates its caches
func (a *CachedVenueAdapter) UpdateStatus(ctx context.Context, id string, status entities.VenueStatus) error {
	if err := a.adapter.UpdateStatus(ctx, id, status); err != nil {
		return err
	}
	a.Invalidate(ctx, id)
	return nil
}

// ListDistricts retrieves districts with caching
func (a *CachedVenueAdapter) ListDistricts(ctx context.Context) ([]string, error) {
	cacheKey := districtsCacheKey(a.generation(ctx))

	if cached, err := a.cache.Get(ctx, cacheKey); err == nil {
		var districts []string
		if err := json.Unmarshal(cached, &districts); err == nil {
			return districts, nil
		}
	}

	districts, err := a.adapter.ListDistricts(ctx)
	if err != nil {
		return nil, err
	}

	a.store(cacheKey, districts, districtListTTL)
	return districts, nil
}
