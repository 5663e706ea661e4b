package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/google/uuid"
	"github.com/zatekoja/datebuch/internal/domain/entities"
	"github.com/zatekoja/datebuch/internal/domain/repositories"
	"github.com/zatekoja/datebuch/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/datebuch/pkg/errors"
)

var tagColumns = []interface{}{
	"id", "venue_id", "category", "label", "is_specialty",
	"quality_score", "upvotes", "downvotes", "created_at",
}

// TagAdapter implements the TagRepository interface
type TagAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewTagAdapter creates a new tag adapter
func NewTagAdapter(client *postgres.Client) repositories.TagRepository {
	return newTagAdapter(client)
}

func newTagAdapter(client *postgres.Client) *TagAdapter {
	return &TagAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Upsert inserts a tag or refreshes the existing (venue, category, label) row
func (a *TagAdapter) Upsert(ctx context.Context, tag *entities.Tag) error {
	if tag.ID == "" {
		tag.ID = uuid.New().String()
	}
	if tag.CreatedAt.IsZero() {
		tag.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO tags (id, venue_id, category, label, is_specialty, quality_score, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (venue_id, category, label)
		DO UPDATE SET
			is_specialty = EXCLUDED.is_specialty,
			quality_score = EXCLUDED.quality_score
		RETURNING id, upvotes, downvotes, created_at
	`

	err := a.client.DB().QueryRowContext(ctx, query,
		tag.ID,
		tag.VenueID,
		tag.Category,
		tag.Label,
		tag.IsSpecialty,
		tag.QualityScore,
		tag.CreatedAt,
	).Scan(&tag.ID, &tag.Upvotes, &tag.Downvotes, &tag.CreatedAt)
	if err != nil {
		return apperrors.NewInternalError("failed to upsert tag", err)
	}

	return nil
}

// ListByVenueIDs retrieves the tags of the given venues
func (a *TagAdapter) ListByVenueIDs(ctx context.Context, venueIDs []string) ([]entities.Tag, error) {
	if len(venueIDs) == 0 {
		return []entities.Tag{}, nil
	}

	query, args, err := a.db.Select(tagColumns...).
		From("tags").
		Where(goqu.C("venue_id").In(venueIDs)).
		Order(goqu.I("created_at").Asc(), goqu.I("label").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	tags := []entities.Tag{}
	if err := a.client.DBX().SelectContext(ctx, &tags, query, args...); err != nil {
		return nil, apperrors.NewInternalError("failed to list tags", err)
	}

	return tags, nil
}

// Vote adds an up- or downvote and moves the quality score by one point
func (a *TagAdapter) Vote(ctx context.Context, tagID string, up bool) (*entities.Tag, error) {
	upDelta, downDelta, scoreDelta := 0, 1, -1.0
	if up {
		upDelta, downDelta, scoreDelta = 1, 0, 1.0
	}

	query := `
		UPDATE tags
		SET upvotes = upvotes + $2,
			downvotes = downvotes + $3,
			quality_score = quality_score + $4
		WHERE id = $1
		RETURNING id, venue_id, category, label, is_specialty, quality_score, upvotes, downvotes, created_at
	`

	tag := &entities.Tag{}
	err := a.client.DBX().GetContext(ctx, tag, query, tagID, upDelta, downDelta, scoreDelta)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("tag with id %s not found", tagID))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to vote on tag", err)
	}

	return tag, nil
}

// ListPopular returns the best rated tags of active venues
func (a *TagAdapter) ListPopular(ctx context.Context, category entities.TagCategory, limit int) ([]entities.Tag, error) {
	if limit <= 0 {
		limit = 20
	}

	ds := a.db.Select(
		goqu.I("t.id"), goqu.I("t.venue_id"), goqu.I("t.category"), goqu.I("t.label"),
		goqu.I("t.is_specialty"), goqu.I("t.quality_score"), goqu.I("t.upvotes"),
		goqu.I("t.downvotes"), goqu.I("t.created_at"),
	).
		From(goqu.T("tags").As("t")).
		Join(goqu.T("venues").As("v"), goqu.On(goqu.I("v.id").Eq(goqu.I("t.venue_id")))).
		Where(goqu.I("v.status").Eq(entities.VenueStatusActive))

	if category != "" {
		ds = ds.Where(goqu.I("t.category").Eq(category))
	}

	query, args, err := ds.
		Order(
			goqu.L("(t.upvotes - t.downvotes)").Desc(),
			goqu.I("t.quality_score").Desc(),
			goqu.I("t.label").Asc(),
		).
		Limit(uint(limit)).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	tags := []entities.Tag{}
	if err := a.client.DBX().SelectContext(ctx, &tags, query, args...); err != nil {
		return nil, apperrors.NewInternalError("failed to list popular tags", err)
	}

	return tags, nil
}
