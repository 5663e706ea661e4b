package handlers

import (
	"net/http"
	"strings"

	"github.com/zatekoja/datebuch/internal/domain/providers"
	"github.com/zatekoja/datebuch/internal/infrastructure/observability"
)

// GeolocationHandler resolves venue addresses for catalogue editing
type GeolocationHandler struct {
	geocoder providers.Geocoder
}

// NewGeolocationHandler creates a new geolocation handler. A nil geocoder
// answers every request with 503.
func NewGeolocationHandler(geocoder providers.Geocoder) *GeolocationHandler {
	return &GeolocationHandler{geocoder: geocoder}
}

// Geocode handles GET /api/geocode?address=...
func (h *GeolocationHandler) Geocode(w http.ResponseWriter, r *http.Request) {
	if h.geocoder == nil {
		respondWithError(w, http.StatusServiceUnavailable, "geocoding is not configured")
		return
	}

	address := strings.TrimSpace(r.URL.Query().Get("address"))
	if address == "" {
		respondWithError(w, http.StatusBadRequest, "address parameter is required")
		return
	}

	result, err := h.geocoder.Geocode(r.Context(), address)
	if err != nil {
		observability.LoggerFromContext(r.Context()).Warn().Err(err).Msg("Geocode failed")
		respondWithError(w, http.StatusBadGateway, "failed to geocode address")
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}
