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
	"github.com/lib/pq"
	"github.com/zatekoja/datebuch/internal/domain/entities"
	"github.com/zatekoja/datebuch/internal/domain/repositories"
	"github.com/zatekoja/datebuch/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/datebuch/pkg/errors"
)

// venueRow mirrors the venues table; coordinates are nullable.
type venueRow struct {
	entities.Venue
	Latitude  sql.NullFloat64 `db:"latitude"`
	Longitude sql.NullFloat64 `db:"longitude"`
}

func (r *venueRow) toEntity() *entities.Venue {
	venue := r.Venue
	if r.Latitude.Valid && r.Longitude.Valid {
		venue.Location = &entities.Location{
			Latitude:  r.Latitude.Float64,
			Longitude: r.Longitude.Float64,
		}
	}
	return &venue
}

var venueColumns = []interface{}{
	"id", "name", "slug", "type", "address", "district", "city", "website",
	"latitude", "longitude", "status", "created_at", "updated_at",
}

// VenueAdapter implements the VenueRepository interface
type VenueAdapter struct {
	client *postgres.Client
	db     *goqu.Database
	tags   *TagAdapter
}

// NewVenueAdapter creates a new venue adapter
func NewVenueAdapter(client *postgres.Client) repositories.VenueRepository {
	return newVenueAdapter(client)
}

func newVenueAdapter(client *postgres.Client) *VenueAdapter {
	return &VenueAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
		tags:   newTagAdapter(client),
	}
}

// Create creates a new venue
func (a *VenueAdapter) Create(ctx context.Context, venue *entities.Venue) error {
	if venue.ID == "" {
		venue.ID = uuid.New().String()
	}
	now := time.Now()
	if venue.CreatedAt.IsZero() {
		venue.CreatedAt = now
	}
	venue.UpdatedAt = now
	if venue.Status == "" {
		venue.Status = entities.VenueStatusActive
	}

	record := goqu.Record{
		"id":         venue.ID,
		"name":       venue.Name,
		"slug":       venue.Slug,
		"type":       venue.Type,
		"address":    venue.Address,
		"district":   venue.District,
		"city":       venue.City,
		"website":    venue.Website,
		"status":     venue.Status,
		"created_at": venue.CreatedAt,
		"updated_at": venue.UpdatedAt,
	}
	if venue.Location != nil {
		record["latitude"] = venue.Location.Latitude
		record["longitude"] = venue.Location.Longitude
	}

	query, args, err := a.db.Insert("venues").Rows(record).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return apperrors.NewConflictError(fmt.Sprintf("venue with slug %q already exists", venue.Slug))
		}
		return apperrors.NewInternalError("failed to create venue", err)
	}

	return nil
}

// GetByID retrieves a venue with its tags
func (a *VenueAdapter) GetByID(ctx context.Context, id string) (*entities.Venue, error) {
	return a.getOne(ctx, goqu.Ex{"id": id}, fmt.Sprintf("venue with id %s not found", id))
}

// GetBySlug retrieves a venue with its tags
func (a *VenueAdapter) GetBySlug(ctx context.Context, slug string) (*entities.Venue, error) {
	return a.getOne(ctx, goqu.Ex{"slug": slug}, fmt.Sprintf("venue with slug %s not found", slug))
}

func (a *VenueAdapter) getOne(ctx context.Context, where goqu.Ex, notFound string) (*entities.Venue, error) {
	query, args, err := a.db.Select(venueColumns...).From("venues").Where(where).ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	row := venueRow{}
	err = a.client.DBX().GetContext(ctx, &row, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(notFound)
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get venue", err)
	}

	venue := row.toEntity()
	if err := a.attachTags(ctx, []*entities.Venue{venue}); err != nil {
		return nil, err
	}

	return venue, nil
}

// List retrieves venues in insertion order with their tags
func (a *VenueAdapter) List(ctx context.Context, filter repositories.VenueFilter) ([]*entities.Venue, error) {
	ds := a.db.Select(venueColumns...).From("venues")

	if len(filter.Types) > 0 {
		ds = ds.Where(goqu.C("type").In(filter.Types))
	}
	if len(filter.Districts) > 0 {
		ds = ds.Where(goqu.C("district").In(filter.Districts))
	}
	if len(filter.Statuses) > 0 {
		ds = ds.Where(goqu.C("status").In(filter.Statuses))
	}

	ds = ds.Order(goqu.I("seq").Asc())

	if filter.Limit > 0 {
		ds = ds.Limit(uint(filter.Limit))
	}
	if filter.Offset > 0 {
		ds = ds.Offset(uint(filter.Offset))
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows := []venueRow{}
	if err := a.client.DBX().SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, apperrors.NewInternalError("failed to list venues", err)
	}

	venues := make([]*entities.Venue, 0, len(rows))
	for i := range rows {
		venues = append(venues, rows[i].toEntity())
	}

	if err := a.attachTags(ctx, venues); err != nil {
		return nil, err
	}

	return venues, nil
}

// UpdateStatus changes the moderation status of a venue
func (a *VenueAdapter) UpdateStatus(ctx context.Context, id string, status entities.VenueStatus) error {
	query, args, err := a.db.Update("venues").
		Set(goqu.Record{
			"status":     status,
			"updated_at": time.Now(),
		}).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to update venue status", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}

	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("venue with id %s not found", id))
	}

	return nil
}

// ListDistricts returns the distinct districts of active venues
func (a *VenueAdapter) ListDistricts(ctx context.Context) ([]string, error) {
	query, args, err := a.db.Select("district").Distinct().
		From("venues").
		Where(
			goqu.C("status").Eq(entities.VenueStatusActive),
			goqu.C("district").Neq(""),
		).
		Order(goqu.I("district").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	districts := []string{}
	if err := a.client.DBX().SelectContext(ctx, &districts, query, args...); err != nil {
		return nil, apperrors.NewInternalError("failed to list districts", err)
	}

	return districts, nil
}

func (a *VenueAdapter) attachTags(ctx context.Context, venues []*entities.Venue) error {
	if len(venues) == 0 {
		return nil
	}

	ids := make([]string, 0, len(venues))
	for _, v := range venues {
		ids = append(ids, v.ID)
	}

	tags, err := a.tags.ListByVenueIDs(ctx, ids)
	if err != nil {
		return err
	}

	byVenue := make(map[string][]entities.Tag, len(venues))
	for _, tag := range tags {
		byVenue[tag.VenueID] = append(byVenue[tag.VenueID], tag)
	}
	for _, v := range venues {
		v.Tags = byVenue[v.ID]
	}

	return nil
}

// listByIDs retrieves the given venues with their tags, keyed by ID
func (a *VenueAdapter) listByIDs(ctx context.Context, ids []string) (map[string]*entities.Venue, error) {
	venues := make(map[string]*entities.Venue, len(ids))
	if len(ids) == 0 {
		return venues, nil
	}

	query, args, err := a.db.Select(venueColumns...).
		From("venues").
		Where(goqu.C("id").In(ids)).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows := []venueRow{}
	if err := a.client.DBX().SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, apperrors.NewInternalError("failed to list venues", err)
	}

	list := make([]*entities.Venue, 0, len(rows))
	for i := range rows {
		venue := rows[i].toEntity()
		venues[venue.ID] = venue
		list = append(list, venue)
	}

	if err := a.attachTags(ctx, list); err != nil {
		return nil, err
	}

	return venues, nil
}

// isUniqueViolation reports whether err is a Postgres unique_violation
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
