package handlers

import (
	"context"
	"net/http"

	"github.com/zatekoja/datebuch/internal/domain/entities"
	"github.com/zatekoja/datebuch/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/datebuch/pkg/errors"
)

// WeatherReader defines the weather operations used by the handler.
type WeatherReader interface {
	Current(ctx context.Context) (*entities.Weather, error)
	Forecast(ctx context.Context) ([]entities.ForecastDay, error)
}

// EventReader defines the ticketing operations used by the handler.
type EventReader interface {
	Upcoming(ctx context.Context, category string) ([]entities.TicketEvent, error)
}

// UsageReporter defines the gateway usage operation used by the handler.
type UsageReporter interface {
	Status(ctx context.Context) ([]entities.ApiUsageStatus, error)
}

// GatewayHandler serves the data fetched through the external API gateway
type GatewayHandler struct {
	weather WeatherReader
	events  EventReader
	usage   UsageReporter
}

// NewGatewayHandler creates a new gateway handler
func NewGatewayHandler(weather WeatherReader, events EventReader, usage UsageReporter) *GatewayHandler {
	return &GatewayHandler{weather: weather, events: events, usage: usage}
}

// degraded reports whether err means "no fresh data" rather than a failure
func degraded(err error) bool {
	return apperrors.IsRateLimited(err) || apperrors.IsExternal(err)
}

// GetWeather handles GET /api/weather. Without fresh or cached data the
// response is 204 so clients can hide the weather widget.
func (h *GatewayHandler) GetWeather(w http.ResponseWriter, r *http.Request) {
	current, err := h.weather.Current(r.Context())
	if err != nil {
		if degraded(err) {
			observability.LoggerFromContext(r.Context()).Debug().Err(err).Msg("Weather unavailable")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		respondWithAppError(w, r, err)
		return
	}

	forecast, err := h.weather.Forecast(r.Context())
	if err != nil {
		if !degraded(err) {
			respondWithAppError(w, r, err)
			return
		}
		forecast = []entities.ForecastDay{}
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"current":  current,
		"forecast": forecast,
	})
}

// UpcomingEvents handles GET /api/events/upcoming
func (h *GatewayHandler) UpcomingEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.events.Upcoming(r.Context(), r.URL.Query().Get("category"))
	available := true
	if err != nil {
		if !degraded(err) {
			respondWithAppError(w, r, err)
			return
		}
		observability.LoggerFromContext(r.Context()).Debug().Err(err).Msg("Events unavailable")
		events = []entities.TicketEvent{}
		available = false
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"events":    events,
		"count":     len(events),
		"available": available,
	})
}

// GetUsage handles GET /api/usage
func (h *GatewayHandler) GetUsage(w http.ResponseWriter, r *http.Request) {
	usage, err := h.usage.Status(r.Context())
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"usage": usage,
	})
}
