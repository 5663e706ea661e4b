package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/zatekoja/datebuch/internal/domain/entities"
	apperrors "github.com/zatekoja/datebuch/pkg/errors"
)

// unknownTemp stands in for the temperature when only rain is reported
const unknownTemp = 10.0

// Suggester defines the suggestion operation used by the handler.
type Suggester interface {
	Suggest(ctx context.Context, dc entities.DateContext) (*entities.Suggestion, error)
}

// SuggestionHandler handles date suggestion HTTP requests
type SuggestionHandler struct {
	suggester Suggester
	location  *time.Location
	now       func() time.Time
}

// NewSuggestionHandler creates a new suggestion handler. Missing day and
// hour parameters default to the current time in location.
func NewSuggestionHandler(suggester Suggester, location *time.Location) *SuggestionHandler {
	if location == nil {
		location = time.UTC
	}
	return &SuggestionHandler{suggester: suggester, location: location, now: time.Now}
}

// GetSuggestion handles GET /api/suggestions
func (h *SuggestionHandler) GetSuggestion(w http.ResponseWriter, r *http.Request) {
	dc, err := h.dateContext(r)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	if err := validateRequest(&dc); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	suggestion, err := h.suggester.Suggest(r.Context(), dc)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"suggestion": suggestion,
		"empty":      suggestion.IsEmpty(),
	})
}

func (h *SuggestionHandler) dateContext(r *http.Request) (entities.DateContext, error) {
	now := h.now().In(h.location)
	dc := entities.DateContext{Scope: scopeFromQuery(r)}

	var err error
	if dc.DayOfWeek, err = queryInt(r, "day", int(now.Weekday())); err != nil {
		return dc, err
	}
	if dc.Hour, err = queryInt(r, "hour", now.Hour()); err != nil {
		return dc, err
	}

	rawTemp := strings.TrimSpace(r.URL.Query().Get("temp"))
	rawRainy := strings.TrimSpace(r.URL.Query().Get("rainy"))
	if rawTemp == "" && rawRainy == "" {
		return dc, nil
	}

	weather := &entities.WeatherContext{Temp: unknownTemp}
	if rawTemp != "" {
		if weather.Temp, err = strconv.ParseFloat(rawTemp, 64); err != nil {
			return dc, apperrors.NewValidationError("temp must be a number")
		}
	}
	if rawRainy != "" {
		if weather.IsRainy, err = strconv.ParseBool(rawRainy); err != nil {
			return dc, apperrors.NewValidationError("rainy must be a boolean")
		}
	}
	dc.Weather = weather
	return dc, nil
}
