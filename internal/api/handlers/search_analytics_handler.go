package handlers

import (
	"context"
	"net/http"

	"github.com/zatekoja/datebuch/internal/domain/entities"
)

// ZeroResultReporter defines the analytics query used by the handler.
type ZeroResultReporter interface {
	GetZeroResultQueries(ctx context.Context, limit int) ([]entities.QueryCount, error)
}

// SearchAnalyticsHandler reports what people searched for and did not find
type SearchAnalyticsHandler struct {
	reporter ZeroResultReporter
}

func NewSearchAnalyticsHandler(reporter ZeroResultReporter) *SearchAnalyticsHandler {
	return &SearchAnalyticsHandler{reporter: reporter}
}

// ZeroResultQueries handles GET /api/search/zero-results?limit=
func (h *SearchAnalyticsHandler) ZeroResultQueries(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 20)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	queries, err := h.reporter.GetZeroResultQueries(r.Context(), limit)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"queries": queries,
		"count":   len(queries),
	})
}
