package repositories

import (
	"context"

	"github.com/zatekoja/datebuch/internal/domain/entities"
)

// VenueFilter narrows catalogue listings.
type VenueFilter struct {
	Types     []entities.VenueType
	Districts []string
	Statuses  []entities.VenueStatus
	Limit     int
	Offset    int
}

// VenueRepository defines the catalogue persistence operations.
type VenueRepository interface {
	Create(ctx context.Context, venue *entities.Venue) error
	GetByID(ctx context.Context, id string) (*entities.Venue, error)
	GetBySlug(ctx context.Context, slug string) (*entities.Venue, error)
	// List returns venues with their tags in insertion order.
	List(ctx context.Context, filter VenueFilter) ([]*entities.Venue, error)
	UpdateStatus(ctx context.Context, id string, status entities.VenueStatus) error
	ListDistricts(ctx context.Context) ([]string, error)
}

// TagRepository defines tag persistence operations.
type TagRepository interface {
	// Upsert inserts the tag or updates the existing (venue, category, label) row.
	Upsert(ctx context.Context, tag *entities.Tag) error
	ListByVenueIDs(ctx context.Context, venueIDs []string) ([]entities.Tag, error)
	// Vote atomically adjusts the vote counters and quality score.
	Vote(ctx context.Context, tagID string, up bool) (*entities.Tag, error)
	ListPopular(ctx context.Context, category entities.TagCategory, limit int) ([]entities.Tag, error)
}
