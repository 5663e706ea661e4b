package main

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/datebuch/internal/adapters/cache"
	"github.com/zatekoja/datebuch/internal/adapters/database"
	"github.com/zatekoja/datebuch/internal/adapters/events"
	"github.com/zatekoja/datebuch/internal/adapters/providers/geolocation"
	"github.com/zatekoja/datebuch/internal/adapters/providers/ticketing"
	"github.com/zatekoja/datebuch/internal/adapters/providers/weather"
	"github.com/zatekoja/datebuch/internal/api/handlers"
	"github.com/zatekoja/datebuch/internal/api/middleware"
	"github.com/zatekoja/datebuch/internal/api/routes"
	"github.com/zatekoja/datebuch/internal/application/services"
	"github.com/zatekoja/datebuch/internal/domain/providers"
	"github.com/zatekoja/datebuch/internal/domain/repositories"
	"github.com/zatekoja/datebuch/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/datebuch/internal/infrastructure/clients/redis"
	"github.com/zatekoja/datebuch/internal/infrastructure/migrations"
	"github.com/zatekoja/datebuch/internal/infrastructure/observability"
	"github.com/zatekoja/datebuch/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Env)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to set up OpenTelemetry")
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					log.Error().Err(err).Msg("Error shutting down OpenTelemetry")
				}
			}()
			log.Info().Msg("OpenTelemetry initialized")
		}
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize metrics")
	}
	gatewayMetrics, err := observability.InitGatewayMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize gateway metrics")
	}

	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize PostgreSQL client")
	}
	defer pgClient.Close()

	if cfg.Database.RunMigrations {
		if err := migrations.Run(pgClient.DB()); err != nil {
			log.Fatal().Err(err).Msg("Failed to run migrations")
		}
	}

	// Redis is optional: without it caches are process-local and catalogue
	// changes are not broadcast to other instances
	redisClient, err := redis.NewClient(&cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("Redis unavailable, continuing with in-process caches")
		redisClient = nil
	} else {
		defer redisClient.Close()
	}

	localCache := cache.NewMemoryAdapter(cfg.Gateway.LocalCacheSize, cfg.Gateway.LocalCacheTTL)

	var sharedCache providers.CacheProvider = localCache
	if redisClient != nil {
		sharedCache = cache.NewRedisAdapter(redisClient, "datebuch:")
	}

	// Gateway usage and response cache
	var usageRepo repositories.ApiUsageRepository
	var responseRepo repositories.ApiCacheRepository
	switch {
	case cfg.Gateway.Store == "redis" && redisClient != nil:
		usageRepo = cache.NewRedisUsageAdapter(redisClient)
		responseRepo = cache.NewRedisResponseCacheAdapter(redisClient)
	default:
		if cfg.Gateway.Store == "redis" {
			log.Warn().Msg("GATEWAY_STORE=redis without Redis, falling back to postgres")
		}
		usageRepo = database.NewApiUsageAdapter(pgClient)
		responseRepo = database.NewApiCacheAdapter(pgClient)
	}
	gateway := services.NewGatewayService(usageRepo, responseRepo, cfg.Gateway,
		services.WithLocalCache(localCache, cfg.Gateway.LocalCacheTTL),
		services.WithGatewayMetrics(gatewayMetrics),
	)

	// Catalogue
	venueRepo := database.NewCachedVenueAdapter(database.NewVenueAdapter(pgClient), sharedCache)
	tagRepo := database.NewTagAdapter(pgClient)
	preferenceRepo := database.NewPreferenceAdapter(pgClient)
	datePlanRepo := database.NewDatePlanAdapter(pgClient)

	services.NewCacheWarmingService(venueRepo).StartPeriodicWarming(ctx, 5*time.Minute)

	var eventBus providers.EventBus
	var invalidation *services.CatalogueInvalidationService
	if redisClient != nil {
		eventBus = events.NewRedisEventBus(redisClient)
		invalidation = services.NewCatalogueInvalidationService(venueRepo, eventBus)
		if err := invalidation.Start(); err != nil {
			log.Warn().Err(err).Msg("Failed to start catalogue invalidation")
		}
	}

	// External providers are optional; without a key the gateway answers
	// with EXTERNAL and the API degrades
	var weatherProvider providers.WeatherProvider
	if cfg.Weather.APIKey != "" {
		weatherProvider = weather.NewOpenWeatherProvider(cfg.Weather)
	} else {
		log.Warn().Msg("OPENWEATHER_API_KEY not set, weather disabled")
	}
	var eventProvider providers.EventProvider
	if cfg.Ticketing.APIKey != "" {
		eventProvider = ticketing.NewTicketmasterProvider(cfg.Ticketing)
	} else {
		log.Warn().Msg("TICKETMASTER_API_KEY not set, events disabled")
	}
	var geocoder providers.Geocoder
	if cfg.Geocoding.APIKey != "" {
		geocoder = geolocation.NewGoogleGeocoderWithOptions(cfg.Geocoding.APIKey, sharedCache, cfg.Geocoding.BaseURL, nil)
	}

	// Services
	preferenceService := services.NewPreferenceService(preferenceRepo)
	searchAnalytics := services.NewSearchAnalyticsService(database.NewSearchAnalyticsAdapter(pgClient))
	venueOpts := []services.VenueOption{
		services.WithVenueCache(venueRepo),
		services.WithPreferenceSource(preferenceService),
		services.WithSearchTracker(searchAnalytics),
	}
	if eventBus != nil {
		venueOpts = append(venueOpts, services.WithVenueEvents(eventBus))
	}
	venueService := services.NewVenueService(
		venueRepo,
		tagRepo,
		services.NewQueryParserService(),
		services.NewSearchRankingService(),
		venueOpts...,
	)
	weatherService := services.NewWeatherService(gateway, weatherProvider, cfg.Weather.City)
	eventService := services.NewEventService(gateway, eventProvider)
	datePlanService := services.NewDatePlanService(datePlanRepo, venueRepo)

	seed := cfg.Suggestion.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	suggestionService := services.NewSuggestionService(venueRepo, rand.New(rand.NewSource(seed)),
		services.WithWeatherSource(weatherService),
		services.WithDislikeSource(preferenceService),
	)

	// HTTP
	router := routes.NewRouter(
		handlers.NewVenueHandler(venueService),
		handlers.NewSuggestionHandler(suggestionService, cfg.Gateway.Location()),
		handlers.NewPreferenceHandler(preferenceService),
		handlers.NewDatePlanHandler(datePlanService),
		handlers.NewGatewayHandler(weatherService, eventService, gateway),
		handlers.NewGeolocationHandler(geocoder),
		handlers.NewSearchAnalyticsHandler(searchAnalytics),
		middleware.NewCacheMiddleware(sharedCache, middleware.DefaultCacheRoutes),
		metrics,
	)

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:              serverAddr,
		Handler:           router.SetupRoutes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", serverAddr).Msg("Server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Server shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during server shutdown")
	}

	if invalidation != nil {
		invalidation.Stop()
	}
	if eventBus != nil {
		if err := eventBus.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing event bus")
		}
	}
	log.Info().Msg("Server stopped")
}
