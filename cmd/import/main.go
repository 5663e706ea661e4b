package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/datebuch/internal/adapters/cache"
	"github.com/zatekoja/datebuch/internal/adapters/database"
	"github.com/zatekoja/datebuch/internal/adapters/events"
	"github.com/zatekoja/datebuch/internal/adapters/providers/geolocation"
	"github.com/zatekoja/datebuch/internal/application/services"
	"github.com/zatekoja/datebuch/internal/domain/providers"
	"github.com/zatekoja/datebuch/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/datebuch/internal/infrastructure/clients/redis"
	"github.com/zatekoja/datebuch/internal/infrastructure/migrations"
	"github.com/zatekoja/datebuch/internal/infrastructure/observability"
	"github.com/zatekoja/datebuch/pkg/config"
)

func main() {
	var file, city string
	var geocode, dryRun bool
	flag.StringVar(&file, "file", "", "path to the JSON catalogue export")
	flag.StringVar(&city, "city", "", "city for records without one (defaults to WEATHER_CITY)")
	flag.BoolVar(&geocode, "geocode", true, "geocode records without coordinates or district when GOOGLE_GEOCODING_API_KEY is set")
	flag.BoolVar(&dryRun, "dry-run", false, "convert and print the venues without writing them")
	flag.Parse()

	if file == "" {
		fmt.Fprintln(os.Stderr, "usage: import -file catalogue.json [-city Hamburg] [-geocode=false] [-dry-run]")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	observability.InitLogger("datebuch-import", cfg.Env)
	if city == "" {
		city = cfg.Weather.City
	}

	f, err := os.Open(file)
	if err != nil {
		log.Fatal().Err(err).Str("file", file).Msg("Failed to open catalogue file")
	}
	records, err := services.DecodeImportFile(f)
	f.Close()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read catalogue file")
	}
	log.Info().Int("records", len(records)).Str("file", file).Msg("Catalogue file loaded")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if dryRun {
		importer := services.NewCatalogueImportService(nil, nil, city)
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		for _, record := range records {
			venue, skipped := importer.ToVenue(record)
			if skipped > 0 {
				log.Warn().Str("venue", venue.Name).Int("skipped_tags", skipped).Msg("Unknown tag categories dropped")
			}
			if err := enc.Encode(venue); err != nil {
				log.Fatal().Err(err).Msg("Failed to write venue")
			}
		}
		return
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

	var venueOpts []services.VenueOption
	var geoCache providers.CacheProvider = cache.NewMemoryAdapter(cfg.Gateway.LocalCacheSize, cfg.Gateway.LocalCacheTTL)
	if redisClient, err := redis.NewClient(&cfg.Redis); err != nil {
		log.Warn().Err(err).Msg("Redis unavailable, running API instances will not see import events")
	} else {
		defer redisClient.Close()
		geoCache = cache.NewRedisAdapter(redisClient, "datebuch:")
		bus := events.NewRedisEventBus(redisClient)
		defer bus.Close()
		venueOpts = append(venueOpts, services.WithVenueEvents(bus))
	}

	venueService := services.NewVenueService(
		database.NewVenueAdapter(pgClient),
		database.NewTagAdapter(pgClient),
		services.NewQueryParserService(),
		services.NewSearchRankingService(),
		venueOpts...,
	)

	var geocoder providers.Geocoder
	if geocode && cfg.Geocoding.APIKey != "" {
		geocoder = geolocation.NewGoogleGeocoderWithOptions(cfg.Geocoding.APIKey, geoCache, cfg.Geocoding.BaseURL, nil)
	}

	importer := services.NewCatalogueImportService(venueService, geocoder, city)
	report, err := importer.Import(ctx, records)
	if err != nil {
		log.Error().Err(err).Msg("Import interrupted")
	}

	log.Info().
		Int("imported", report.Imported).
		Int("duplicates", report.Duplicates).
		Int("failed", report.Failed).
		Int("tags", report.Tags).
		Int("skipped_tags", report.SkippedTags).
		Int("geocoded", report.Geocoded).
		Msg("Import complete")
	for _, failure := range report.FailedRecords {
		log.Warn().Msg(failure)
	}
	if report.Failed > 0 {
		os.Exit(1)
	}
}
