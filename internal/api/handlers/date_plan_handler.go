package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/zatekoja/datebuch/internal/application/services"
	"github.com/zatekoja/datebuch/internal/domain/entities"
	apperrors "github.com/zatekoja/datebuch/pkg/errors"
)

// DatePlanner defines the date plan operations used by the handler.
type DatePlanner interface {
	Create(ctx context.Context, input services.CreateDatePlanInput) (*entities.DatePlan, error)
	CreateFromSuggestion(ctx context.Context, scope entities.Scope, suggestion *entities.Suggestion, title string, plannedDate *time.Time) (*entities.DatePlan, error)
	Get(ctx context.Context, id string) (*entities.DatePlan, error)
	List(ctx context.Context, scope entities.Scope) ([]*entities.DatePlan, error)
	UpdateStatus(ctx context.Context, id string, status entities.DatePlanStatus, rating *int) (*entities.DatePlan, error)
	Visited(ctx context.Context, scope entities.Scope) ([]*entities.Venue, error)
}

// DatePlanHandler handles date plan HTTP requests
type DatePlanHandler struct {
	planner DatePlanner
}

// NewDatePlanHandler creates a new date plan handler
func NewDatePlanHandler(planner DatePlanner) *DatePlanHandler {
	return &DatePlanHandler{planner: planner}
}

type planItemRequest struct {
	VenueID string `json:"venue_id" validate:"required"`
	Slot    string `json:"slot" validate:"required,oneof=food activity drinks"`
}

type createDatePlanRequest struct {
	UserID      string            `json:"user_id"`
	CoupleID    string            `json:"couple_id"`
	Title       string            `json:"title" validate:"max=200"`
	PlannedDate string            `json:"planned_date"`
	Occasion    string            `json:"occasion" validate:"max=100"`
	Items       []planItemRequest `json:"items" validate:"required,min=1,max=3,dive"`
}

type planFromSuggestionRequest struct {
	UserID      string               `json:"user_id"`
	CoupleID    string               `json:"couple_id"`
	Title       string               `json:"title" validate:"max=200"`
	PlannedDate string               `json:"planned_date"`
	Suggestion  *entities.Suggestion `json:"suggestion" validate:"required"`
}

type updatePlanStatusRequest struct {
	Status string `json:"status" validate:"required"`
	Rating *int   `json:"rating" validate:"omitempty,min=1,max=5"`
}

// CreatePlan handles POST /api/date-plans
func (h *DatePlanHandler) CreatePlan(w http.ResponseWriter, r *http.Request) {
	var req createDatePlanRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	if err := validateRequest(&req); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	plannedDate, err := parsePlannedDate(req.PlannedDate)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	input := services.CreateDatePlanInput{
		Scope:       entities.Scope{UserID: strings.TrimSpace(req.UserID), CoupleID: strings.TrimSpace(req.CoupleID)},
		Title:       req.Title,
		PlannedDate: plannedDate,
		Occasion:    req.Occasion,
	}
	for _, item := range req.Items {
		input.Items = append(input.Items, services.PlanItemInput{
			VenueID: item.VenueID,
			Slot:    entities.PlanSlot(item.Slot),
		})
	}

	plan, err := h.planner.Create(r.Context(), input)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, plan)
}

// CreatePlanFromSuggestion handles POST /api/date-plans/from-suggestion
func (h *DatePlanHandler) CreatePlanFromSuggestion(w http.ResponseWriter, r *http.Request) {
	var req planFromSuggestionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	if err := validateRequest(&req); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	plannedDate, err := parsePlannedDate(req.PlannedDate)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	scope := entities.Scope{UserID: strings.TrimSpace(req.UserID), CoupleID: strings.TrimSpace(req.CoupleID)}
	plan, err := h.planner.CreateFromSuggestion(r.Context(), scope, req.Suggestion, req.Title, plannedDate)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, plan)
}

// GetPlan handles GET /api/date-plans/{id}
func (h *DatePlanHandler) GetPlan(w http.ResponseWriter, r *http.Request) {
	plan, err := h.planner.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, plan)
}

// ListPlans handles GET /api/date-plans
func (h *DatePlanHandler) ListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := h.planner.List(r.Context(), scopeFromQuery(r))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"date_plans": plans,
		"count":      len(plans),
	})
}

// UpdatePlanStatus handles PATCH /api/date-plans/{id}/status
func (h *DatePlanHandler) UpdatePlanStatus(w http.ResponseWriter, r *http.Request) {
	var req updatePlanStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	if err := validateRequest(&req); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	status, err := entities.ParseDatePlanStatus(req.Status)
	if err != nil {
		respondWithAppError(w, r, apperrors.NewValidationError(err.Error()))
		return
	}

	plan, err := h.planner.UpdateStatus(r.Context(), r.PathValue("id"), status, req.Rating)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, plan)
}

// ListVisited handles GET /api/visited
func (h *DatePlanHandler) ListVisited(w http.ResponseWriter, r *http.Request) {
	venues, err := h.planner.Visited(r.Context(), scopeFromQuery(r))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"venues": venues,
		"count":  len(venues),
	})
}

// parsePlannedDate accepts a calendar day or an RFC 3339 timestamp
func parsePlannedDate(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(entities.DayLayout, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, apperrors.NewValidationError("planned_date must be YYYY-MM-DD or RFC 3339")
	}
	return &t, nil
}
