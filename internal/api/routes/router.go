package routes

import (
	"net/http"

	"github.com/zatekoja/datebuch/internal/api/handlers"
	"github.com/zatekoja/datebuch/internal/api/middleware"
	"github.com/zatekoja/datebuch/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	venueHandler      *handlers.VenueHandler
	suggestionHandler *handlers.SuggestionHandler
	preferenceHandler *handlers.PreferenceHandler
	datePlanHandler   *handlers.DatePlanHandler
	gatewayHandler    *handlers.GatewayHandler
	geoHandler        *handlers.GeolocationHandler
	analyticsHandler  *handlers.SearchAnalyticsHandler

	cacheMiddleware *middleware.CacheMiddleware
	metrics         *observability.Metrics
}

// NewRouter creates a new router. cacheMiddleware and metrics may be nil.
func NewRouter(
	venueHandler *handlers.VenueHandler,
	suggestionHandler *handlers.SuggestionHandler,
	preferenceHandler *handlers.PreferenceHandler,
	datePlanHandler *handlers.DatePlanHandler,
	gatewayHandler *handlers.GatewayHandler,
	geoHandler *handlers.GeolocationHandler,
	analyticsHandler *handlers.SearchAnalyticsHandler,
	cacheMiddleware *middleware.CacheMiddleware,
	metrics *observability.Metrics,
) *Router {
	return &Router{
		mux:               http.NewServeMux(),
		venueHandler:      venueHandler,
		suggestionHandler: suggestionHandler,
		preferenceHandler: preferenceHandler,
		datePlanHandler:   datePlanHandler,
		gatewayHandler:    gatewayHandler,
		geoHandler:        geoHandler,
		analyticsHandler:  analyticsHandler,
		cacheMiddleware:   cacheMiddleware,
		metrics:           metrics,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	r.mux.HandleFunc("GET /health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	// Catalogue
	r.mux.HandleFunc("GET /api/venues", r.venueHandler.ListVenues)
	r.mux.HandleFunc("POST /api/venues", r.venueHandler.CreateVenue)
	r.mux.HandleFunc("GET /api/venues/search", r.venueHandler.SearchVenues)
	r.mux.HandleFunc("GET /api/venues/{id}", r.venueHandler.GetVenue)
	r.mux.HandleFunc("GET /api/venues/{id}/nearby", r.venueHandler.NearbyVenues)
	r.mux.HandleFunc("PATCH /api/venues/{id}/status", r.venueHandler.UpdateVenueStatus)
	r.mux.HandleFunc("POST /api/venues/{id}/tags", r.venueHandler.UpsertTag)
	r.mux.HandleFunc("POST /api/tags/{id}/vote", r.venueHandler.VoteTag)
	r.mux.HandleFunc("GET /api/tags/popular", r.venueHandler.PopularTags)
	r.mux.HandleFunc("GET /api/districts", r.venueHandler.ListDistricts)
	r.mux.HandleFunc("GET /api/favorites", r.venueHandler.ListFavorites)
	r.mux.HandleFunc("GET /api/search/zero-results", r.analyticsHandler.ZeroResultQueries)

	// Suggestions
	r.mux.HandleFunc("GET /api/suggestions", r.suggestionHandler.GetSuggestion)

	// Preferences
	r.mux.HandleFunc("POST /api/preferences", r.preferenceHandler.RecordPreference)
	r.mux.HandleFunc("GET /api/preferences", r.preferenceHandler.ListPreferences)
	r.mux.HandleFunc("POST /api/preferences/reset", r.preferenceHandler.ResetPreferences)
	r.mux.HandleFunc("GET /api/preferences/resets", r.preferenceHandler.ListResets)

	// Date plans
	r.mux.HandleFunc("POST /api/date-plans", r.datePlanHandler.CreatePlan)
	r.mux.HandleFunc("POST /api/date-plans/from-suggestion", r.datePlanHandler.CreatePlanFromSuggestion)
	r.mux.HandleFunc("GET /api/date-plans", r.datePlanHandler.ListPlans)
	r.mux.HandleFunc("GET /api/date-plans/{id}", r.datePlanHandler.GetPlan)
	r.mux.HandleFunc("PATCH /api/date-plans/{id}/status", r.datePlanHandler.UpdatePlanStatus)
	r.mux.HandleFunc("GET /api/visited", r.datePlanHandler.ListVisited)

	// External data through the gateway
	r.mux.HandleFunc("GET /api/weather", r.gatewayHandler.GetWeather)
	r.mux.HandleFunc("GET /api/events/upcoming", r.gatewayHandler.UpcomingEvents)
	r.mux.HandleFunc("GET /api/usage", r.gatewayHandler.GetUsage)
	r.mux.HandleFunc("GET /api/geocode", r.geoHandler.Geocode)

	var handler http.Handler = r.mux
	if r.cacheMiddleware != nil {
		handler = r.cacheMiddleware.Middleware(handler)
	}
	handler = middleware.ResponseOptimization(handler)
	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.CORSMiddleware(handler)

	return handler
}
