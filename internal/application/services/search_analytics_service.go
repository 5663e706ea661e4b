package services

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/datebuch/internal/domain/entities"
	"github.com/zatekoja/datebuch/internal/domain/repositories"
)

const maxZeroResultQueries = 100

// SearchTracker records catalogue searches
type SearchTracker interface {
	TrackSearch(ctx context.Context, event *entities.SearchEvent)
}

type SearchAnalyticsService struct {
	repo repositories.SearchAnalyticsRepository
}

func NewSearchAnalyticsService(repo repositories.SearchAnalyticsRepository) *SearchAnalyticsService {
	return &SearchAnalyticsService{repo: repo}
}

// TrackSearch stores the event in the background so searches never wait on it
func (s *SearchAnalyticsService) TrackSearch(ctx context.Context, event *entities.SearchEvent) {
	go func() {
		// the request context is usually cancelled by the time this runs
		bgCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := s.repo.LogEvent(bgCtx, event); err != nil {
			log.Warn().Err(err).Str("query", event.NormalizedQuery).Msg("Failed to log search event")
		}
	}()
}

// GetZeroResultQueries lists the most frequent searches that found nothing
func (s *SearchAnalyticsService) GetZeroResultQueries(ctx context.Context, limit int) ([]entities.QueryCount, error) {
	if limit <= 0 || limit > maxZeroResultQueries {
		limit = maxZeroResultQueries
	}
	return s.repo.GetZeroResultQueries(ctx, limit)
}
