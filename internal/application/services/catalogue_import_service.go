package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/datebuch/internal/domain/entities"
	"github.com/zatekoja/datebuch/internal/domain/providers"
	apperrors "github.com/zatekoja/datebuch/pkg/errors"
)

const maxSpecialtyLength = 100

// ImportRecord is one venue of a catalogue export file
type ImportRecord struct {
	Name         string              `json:"name"`
	Address      string              `json:"address"`
	District     string              `json:"district"`
	City         string              `json:"city"`
	Type         string              `json:"type"`
	PriceRange   string              `json:"price_range"`
	Website      string              `json:"website"`
	Specialty    string              `json:"specialty"`
	Latitude     *float64            `json:"latitude"`
	Longitude    *float64            `json:"longitude"`
	Tags         map[string][]string `json:"tags"`
	OpeningHours map[string]string   `json:"opening_hours"`
}

// ImportReport summarises an import run
type ImportReport struct {
	Imported      int      `json:"imported"`
	Duplicates    int      `json:"duplicates"`
	Failed        int      `json:"failed"`
	Tags          int      `json:"tags"`
	SkippedTags   int      `json:"skipped_tags"`
	Geocoded      int      `json:"geocoded"`
	FailedRecords []string `json:"failed_records,omitempty"`
}

// VenueCreator persists imported venues
type VenueCreator interface {
	Create(ctx context.Context, venue *entities.Venue) error
}

// CatalogueImportService loads catalogue exports into the venue catalogue
type CatalogueImportService struct {
	venues      VenueCreator
	geocoder    providers.Geocoder
	defaultCity string
}

// NewCatalogueImportService creates an importer. geocoder may be nil, in
// which case records without coordinates are imported without a location.
func NewCatalogueImportService(venues VenueCreator, geocoder providers.Geocoder, defaultCity string) *CatalogueImportService {
	if strings.TrimSpace(defaultCity) == "" {
		defaultCity = "Hamburg"
	}
	return &CatalogueImportService{venues: venues, geocoder: geocoder, defaultCity: defaultCity}
}

// DecodeImportFile reads a JSON array of import records
func DecodeImportFile(r io.Reader) ([]ImportRecord, error) {
	var records []ImportRecord
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to decode catalogue file: %w", err)
	}
	return records, nil
}

// ToVenue converts a record into a venue with its tags. Unknown venue types
// fall back to the generic venue kind; tags of unknown categories are
// dropped and counted in skipped.
func (s *CatalogueImportService) ToVenue(record ImportRecord) (venue *entities.Venue, skipped int) {
	venueType, err := entities.ImportVenueType(record.Type)
	if err != nil {
		venueType = entities.VenueTypeVenue
	}

	city := strings.TrimSpace(record.City)
	if city == "" {
		city = s.defaultCity
	}

	venue = &entities.Venue{
		Name:     strings.TrimSpace(record.Name),
		Type:     venueType,
		Address:  strings.TrimSpace(record.Address),
		District: strings.TrimSpace(record.District),
		City:     city,
		Website:  strings.TrimSpace(record.Website),
		Status:   entities.VenueStatusActive,
	}
	if record.Latitude != nil && record.Longitude != nil {
		venue.Location = &entities.Location{Latitude: *record.Latitude, Longitude: *record.Longitude}
	}

	// map iteration order is random; keep tag order stable between runs
	categories := make([]string, 0, len(record.Tags))
	for category := range record.Tags {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	seen := make(map[string]bool)
	add := func(tag entities.Tag) {
		tag.Label = strings.TrimSpace(tag.Label)
		if tag.Label == "" {
			return
		}
		key := string(tag.Category) + "|" + strings.ToLower(tag.Label)
		if seen[key] {
			return
		}
		seen[key] = true
		venue.Tags = append(venue.Tags, tag)
	}

	for _, raw := range categories {
		labels := record.Tags[raw]
		category, err := entities.ImportTagCategory(raw)
		if err != nil {
			skipped += len(labels)
			continue
		}
		for _, label := range labels {
			add(entities.Tag{Category: category, Label: label})
		}
	}

	if specialty := strings.TrimSpace(record.Specialty); specialty != "" {
		if runes := []rune(specialty); len(runes) > maxSpecialtyLength {
			specialty = string(runes[:maxSpecialtyLength])
		}
		add(entities.Tag{Category: entities.TagCategoryFeature, Label: specialty, IsSpecialty: true})
	}
	if price := strings.TrimSpace(record.PriceRange); price != "" {
		add(entities.Tag{Category: entities.TagCategoryPrice, Label: price})
	}

	return venue, skipped
}

// Import creates a venue for each record. Records that fail do not stop the
// run; duplicates (CONFLICT) are counted separately.
func (s *CatalogueImportService) Import(ctx context.Context, records []ImportRecord) (*ImportReport, error) {
	report := &ImportReport{}

	for i, record := range records {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		venue, skipped := s.ToVenue(record)
		report.SkippedTags += skipped
		if venue.Name == "" {
			report.Failed++
			report.FailedRecords = append(report.FailedRecords, fmt.Sprintf("#%d: missing name", i))
			continue
		}

		if s.needsGeocoding(venue) {
			s.geocode(ctx, venue, report)
		}

		if err := s.venues.Create(ctx, venue); err != nil {
			if apperrors.IsType(err, apperrors.ErrorTypeConflict) {
				report.Duplicates++
				log.Debug().Str("venue", venue.Name).Msg("Venue already imported")
				continue
			}
			report.Failed++
			report.FailedRecords = append(report.FailedRecords, fmt.Sprintf("%s: %v", venue.Name, err))
			log.Warn().Err(err).Str("venue", venue.Name).Msg("Failed to import venue")
			continue
		}

		report.Imported++
		report.Tags += len(venue.Tags)
		log.Info().Str("venue", venue.Name).Str("type", string(venue.Type)).Int("tags", len(venue.Tags)).Msg("Imported venue")
	}

	return report, nil
}

func (s *CatalogueImportService) needsGeocoding(venue *entities.Venue) bool {
	return s.geocoder != nil && venue.Address != "" && (venue.Location == nil || venue.District == "")
}

func (s *CatalogueImportService) geocode(ctx context.Context, venue *entities.Venue, report *ImportReport) {
	query := venue.Address
	if !strings.Contains(strings.ToLower(query), strings.ToLower(venue.City)) {
		query = query + ", " + venue.City
	}

	geocoded, err := s.geocoder.Geocode(ctx, query)
	if err != nil {
		log.Warn().Err(err).Str("venue", venue.Name).Msg("Geocoding failed, importing without location")
		return
	}

	if venue.Location == nil {
		location := geocoded.Location
		venue.Location = &location
	}
	if venue.District == "" {
		venue.District = geocoded.District
	}
	report.Geocoded++
}
