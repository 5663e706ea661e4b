package repositories

import (
	"context"

	"github.com/zatekoja/datebuch/internal/domain/entities"
)

// SearchAnalyticsRepository stores catalogue search events.
type SearchAnalyticsRepository interface {
	LogEvent(ctx context.Context, event *entities.SearchEvent) error
	// GetZeroResultQueries returns the most frequent queries that matched nothing.
	GetZeroResultQueries(ctx context.Context, limit int) ([]entities.QueryCount, error)
}
