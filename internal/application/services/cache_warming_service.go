package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/datebuch/internal/domain/entities"
	"github.com/zatekoja/datebuch/internal/domain/repositories"
)

// warmVenueLimit caps how many venues are fetched individually per run
const warmVenueLimit = 50

// CatalogueCacheInspector reports which catalogue lookups are cached
type CatalogueCacheInspector interface {
	CacheStats(ctx context.Context) map[string]bool
}

// CacheWarmingService primes the read-through catalogue cache with the
// lookups every suggestion and search performs
type CacheWarmingService struct {
	venues repositories.VenueRepository
}

// NewCacheWarmingService creates a new cache warming service. venues should
// be the cached venue repository so reads populate the cache.
func NewCacheWarmingService(venues repositories.VenueRepository) *CacheWarmingService {
	return &CacheWarmingService{venues: venues}
}

// WarmCache loads the active catalogue, its districts and the first venues
func (s *CacheWarmingService) WarmCache(ctx context.Context) error {
	start := time.Now()

	active, err := s.venues.List(ctx, repositories.VenueFilter{
		Statuses: []entities.VenueStatus{entities.VenueStatusActive},
	})
	if err != nil {
		return fmt.Errorf("failed to warm active venues: %w", err)
	}

	if _, err := s.venues.ListDistricts(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to warm districts")
	}

	warmed := 0
	for _, venue := range active {
		if warmed >= warmVenueLimit {
			break
		}
		if _, err := s.venues.GetByID(ctx, venue.ID); err != nil {
			log.Warn().Err(err).Str("venue_id", venue.ID).Msg("Failed to warm venue")
			continue
		}
		warmed++
	}

	log.Info().
		Int("active", len(active)).
		Int("venues", warmed).
		Dur("took", time.Since(start)).
		Msg("Catalogue cache warmed")
	return nil
}

// StartPeriodicWarming warms once and then every interval until ctx is done
func (s *CacheWarmingService) StartPeriodicWarming(ctx context.Context, interval time.Duration) {
	if err := s.WarmCache(ctx); err != nil {
		log.Warn().Err(err).Msg("Initial cache warming failed")
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("Stopping cache warming service")
				return
			case <-ticker.C:
				if err := s.WarmCache(ctx); err != nil {
					log.Warn().Err(err).Msg("Periodic cache warming failed")
				}
			}
		}
	}()
	log.Info().Dur("interval", interval).Msg("Started periodic cache warming")
}

// GetCacheStats reports which well-known catalogue lookups are cached. It is
// empty when venues is not a caching repository.
func (s *CacheWarmingService) GetCacheStats(ctx context.Context) map[string]bool {
	inspector, ok := s.venues.(CatalogueCacheInspector)
	if !ok {
		return map[string]bool{}
	}
	return inspector.CacheStats(ctx)
}
