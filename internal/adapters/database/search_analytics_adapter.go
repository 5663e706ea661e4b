package database

import (
	"context"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
	"github.com/zatekoja/datebuch/internal/domain/entities"
	"github.com/zatekoja/datebuch/internal/domain/repositories"
	"github.com/zatekoja/datebuch/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/datebuch/pkg/errors"
)

// SearchAnalyticsAdapter implements the SearchAnalyticsRepository interface
type SearchAnalyticsAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewSearchAnalyticsAdapter creates a new search analytics adapter
func NewSearchAnalyticsAdapter(client *postgres.Client) repositories.SearchAnalyticsRepository {
	return &SearchAnalyticsAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// LogEvent stores a search event
func (a *SearchAnalyticsAdapter) LogEvent(ctx context.Context, event *entities.SearchEvent) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO search_analytics
		(id, query, normalized_query, detected_types, result_count, top_venue_id, latency_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := a.client.DB().ExecContext(ctx, query,
		event.ID,
		event.Query,
		event.NormalizedQuery,
		event.DetectedTypes,
		event.ResultCount,
		event.TopVenueID,
		event.LatencyMs,
		event.CreatedAt,
	)
	if err != nil {
		return apperrors.NewInternalError("failed to log search event", err)
	}
	return nil
}

// GetZeroResultQueries groups unmatched searches by normalized query
func (a *SearchAnalyticsAdapter) GetZeroResultQueries(ctx context.Context, limit int) ([]entities.QueryCount, error) {
	if limit <= 0 {
		limit = 100
	}

	ds := a.db.From("search_analytics").
		Select(
			goqu.C("normalized_query"),
			goqu.COUNT("*").As("count"),
		).
		Where(goqu.C("result_count").Eq(0)).
		GroupBy(goqu.C("normalized_query")).
		Order(goqu.I("count").Desc(), goqu.C("normalized_query").Asc()).
		Limit(uint(limit))

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build zero result query", err)
	}

	counts := []entities.QueryCount{}
	if err := a.client.DBX().SelectContext(ctx, &counts, query, args...); err != nil {
		return nil, apperrors.NewInternalError("failed to get zero result queries", err)
	}
	return counts, nil
}
