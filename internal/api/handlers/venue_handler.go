package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/zatekoja/datebuch/internal/application/services"
	"github.com/zatekoja/datebuch/internal/domain/entities"
	apperrors "github.com/zatekoja/datebuch/pkg/errors"
)

const defaultVenuePageSize = 50

// VenueCatalogue defines the catalogue operations used by the handler.
type VenueCatalogue interface {
	List(ctx context.Context, q services.VenueQuery) ([]*entities.Venue, error)
	Search(ctx context.Context, text string) (*services.VenueSearchResult, error)
	Get(ctx context.Context, id string) (*entities.Venue, error)
	Nearby(ctx context.Context, id string, venueType entities.VenueType, radiusKm float64) ([]entities.NearbyVenue, error)
	Create(ctx context.Context, venue *entities.Venue) error
	UpdateStatus(ctx context.Context, id string, status entities.VenueStatus) error
	UpsertTag(ctx context.Context, venueID string, tag *entities.Tag) error
	VoteTag(ctx context.Context, tagID string, up bool) (*entities.Tag, error)
	PopularTags(ctx context.Context, category string, limit int) ([]entities.Tag, error)
	Districts(ctx context.Context) ([]string, error)
	Favorites(ctx context.Context, scope entities.Scope) ([]*entities.Venue, error)
}

// VenueHandler handles venue and tag HTTP requests
type VenueHandler struct {
	catalogue VenueCatalogue
}

// NewVenueHandler creates a new venue handler
func NewVenueHandler(catalogue VenueCatalogue) *VenueHandler {
	return &VenueHandler{catalogue: catalogue}
}

type createVenueRequest struct {
	Name      string             `json:"name" validate:"required,max=200"`
	Type      string             `json:"type" validate:"required"`
	Address   string             `json:"address" validate:"max=300"`
	District  string             `json:"district" validate:"max=100"`
	City      string             `json:"city" validate:"max=100"`
	Website   string             `json:"website" validate:"omitempty,url"`
	Latitude  *float64           `json:"latitude" validate:"omitempty,latitude"`
	Longitude *float64           `json:"longitude" validate:"omitempty,longitude"`
	Tags      []upsertTagRequest `json:"tags" validate:"dive"`
}

type updateVenueStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type upsertTagRequest struct {
	Category     string  `json:"category" validate:"required"`
	Tag          string  `json:"tag" validate:"required,max=100"`
	IsSpecialty  bool    `json:"is_specialty"`
	QualityScore float64 `json:"quality_score"`
}

type voteTagRequest struct {
	Direction string `json:"direction" validate:"required,oneof=up down"`
}

// ListVenues handles GET /api/venues
func (h *VenueHandler) ListVenues(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", defaultVenuePageSize)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	q := services.VenueQuery{
		Districts: queryList(r, "district"),
		Tags:      queryList(r, "tag"),
		Dietary:   queryList(r, "dietary"),
		Q:         r.URL.Query().Get("q"),
		Limit:     limit,
		Offset:    offset,
	}
	for _, raw := range queryList(r, "type") {
		t, err := entities.ParseVenueType(raw)
		if err != nil {
			respondWithAppError(w, r, apperrors.NewValidationError(err.Error()))
			return
		}
		q.Types = append(q.Types, t)
	}

	venues, err := h.catalogue.List(r.Context(), q)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"venues": venues,
		"count":  len(venues),
	})
}

// SearchVenues handles GET /api/venues/search
func (h *VenueHandler) SearchVenues(w http.ResponseWriter, r *http.Request) {
	result, err := h.catalogue.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"intent":  result.Intent,
		"results": result.Results,
		"count":   len(result.Results),
	})
}

// GetVenue handles GET /api/venues/{id}
func (h *VenueHandler) GetVenue(w http.ResponseWriter, r *http.Request) {
	venue, err := h.catalogue.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, venue)
}

// NearbyVenues handles GET /api/venues/{id}/nearby
func (h *VenueHandler) NearbyVenues(w http.ResponseWriter, r *http.Request) {
	radius := 0.0
	if raw := strings.TrimSpace(r.URL.Query().Get("radius_km")); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			respondWithAppError(w, r, apperrors.NewValidationError("radius_km must be a number"))
			return
		}
		radius = parsed
	}

	venueType := entities.VenueType(strings.TrimSpace(r.URL.Query().Get("type")))
	nearby, err := h.catalogue.Nearby(r.Context(), r.PathValue("id"), venueType, radius)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"venues": nearby,
		"count":  len(nearby),
	})
}

// CreateVenue handles POST /api/venues
func (h *VenueHandler) CreateVenue(w http.ResponseWriter, r *http.Request) {
	var req createVenueRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	if err := validateRequest(&req); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	if (req.Latitude == nil) != (req.Longitude == nil) {
		respondWithAppError(w, r, apperrors.NewValidationError("latitude and longitude must be given together"))
		return
	}

	venue := &entities.Venue{
		Name:     req.Name,
		Type:     entities.VenueType(strings.ToLower(strings.TrimSpace(req.Type))),
		Address:  req.Address,
		District: req.District,
		City:     req.City,
		Website:  req.Website,
	}
	if req.Latitude != nil {
		venue.Location = &entities.Location{Latitude: *req.Latitude, Longitude: *req.Longitude}
	}
	for _, t := range req.Tags {
		venue.Tags = append(venue.Tags, t.toTag())
	}

	if err := h.catalogue.Create(r.Context(), venue); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, venue)
}

// UpdateVenueStatus handles PATCH /api/venues/{id}/status
func (h *VenueHandler) UpdateVenueStatus(w http.ResponseWriter, r *http.Request) {
	var req updateVenueStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	if err := validateRequest(&req); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	status := entities.VenueStatus(strings.ToLower(strings.TrimSpace(req.Status)))
	id := r.PathValue("id")
	if err := h.catalogue.UpdateStatus(r.Context(), id, status); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{
		"id":     id,
		"status": string(status),
	})
}

// UpsertTag handles POST /api/venues/{id}/tags
func (h *VenueHandler) UpsertTag(w http.ResponseWriter, r *http.Request) {
	var req upsertTagRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	if err := validateRequest(&req); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	tag := req.toTag()
	if err := h.catalogue.UpsertTag(r.Context(), r.PathValue("id"), &tag); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, tag)
}

// VoteTag handles POST /api/tags/{id}/vote
func (h *VenueHandler) VoteTag(w http.ResponseWriter, r *http.Request) {
	var req voteTagRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	if err := validateRequest(&req); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	tag, err := h.catalogue.VoteTag(r.Context(), r.PathValue("id"), req.Direction == "up")
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, tag)
}

// PopularTags handles GET /api/tags/popular
func (h *VenueHandler) PopularTags(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	tags, err := h.catalogue.PopularTags(r.Context(), r.URL.Query().Get("category"), limit)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"tags":  tags,
		"count": len(tags),
	})
}

// ListDistricts handles GET /api/districts
func (h *VenueHandler) ListDistricts(w http.ResponseWriter, r *http.Request) {
	districts, err := h.catalogue.Districts(r.Context())
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"districts": districts,
	})
}

// ListFavorites handles GET /api/favorites
func (h *VenueHandler) ListFavorites(w http.ResponseWriter, r *http.Request) {
	venues, err := h.catalogue.Favorites(r.Context(), scopeFromQuery(r))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"venues": venues,
		"count":  len(venues),
	})
}

func (req upsertTagRequest) toTag() entities.Tag {
	return entities.Tag{
		Category:     entities.TagCategory(strings.ToLower(strings.TrimSpace(req.Category))),
		Label:        req.Tag,
		IsSpecialty:  req.IsSpecialty,
		QualityScore: req.QualityScore,
	}
}
