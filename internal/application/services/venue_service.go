package services

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/zatekoja/datebuch/internal/domain/entities"
	"github.com/zatekoja/datebuch/internal/domain/providers"
	"github.com/zatekoja/datebuch/internal/domain/repositories"
	"github.com/zatekoja/datebuch/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/datebuch/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
)

const (
	defaultNearbyRadiusKm = 1.0
	defaultPopularTags    = 20
	maxPopularTags        = 100
)

// VenueQuery narrows a catalogue listing. Tag, dietary and text filters are
// applied after loading since they span the tag table.
type VenueQuery struct {
	Types     []entities.VenueType
	Districts []string
	Tags      []string
	Dietary   []string
	Q         string
	Limit     int
	Offset    int
}

func (q VenueQuery) postFiltered() bool {
	return len(q.Tags) > 0 || len(q.Dietary) > 0 || strings.TrimSpace(q.Q) != ""
}

// VenueSearchResult is the outcome of a free-text catalogue search
type VenueSearchResult struct {
	Intent  entities.SearchIntent  `json:"intent"`
	Results []entities.ScoredVenue `json:"results"`
}

// VenueService handles business logic for the venue catalogue
type VenueService struct {
	venues      repositories.VenueRepository
	tags        repositories.TagRepository
	parser      *QueryParserService
	ranker      *SearchRankingService
	preferences DislikeSource
	cache       VenueCacheInvalidator
	eventBus    providers.EventBus
	tracker     SearchTracker
}

// VenueOption customises a VenueService
type VenueOption func(*VenueService)

// WithVenueCache invalidates cached reads on every catalogue change
func WithVenueCache(cache VenueCacheInvalidator) VenueOption {
	return func(s *VenueService) { s.cache = cache }
}

// WithVenueEvents announces catalogue changes to other instances
func WithVenueEvents(bus providers.EventBus) VenueOption {
	return func(s *VenueService) { s.eventBus = bus }
}

// WithPreferenceSource enables favorites
func WithPreferenceSource(source DislikeSource) VenueOption {
	return func(s *VenueService) { s.preferences = source }
}

// WithSearchTracker records every non-empty search
func WithSearchTracker(tracker SearchTracker) VenueOption {
	return func(s *VenueService) { s.tracker = tracker }
}

// NewVenueService creates a new venue service
func NewVenueService(
	venues repositories.VenueRepository,
	tags repositories.TagRepository,
	parser *QueryParserService,
	ranker *SearchRankingService,
	opts ...VenueOption,
) *VenueService {
	s := &VenueService{
		venues: venues,
		tags:   tags,
		parser: parser,
		ranker: ranker,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns active venues matching q
func (s *VenueService) List(ctx context.Context, q VenueQuery) ([]*entities.Venue, error) {
	filter := repositories.VenueFilter{
		Types:     q.Types,
		Districts: q.Districts,
		Statuses:  []entities.VenueStatus{entities.VenueStatusActive},
	}
	if !q.postFiltered() {
		filter.Limit = q.Limit
		filter.Offset = q.Offset
	}

	venues, err := s.venues.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if !q.postFiltered() {
		return venues, nil
	}

	matched := make([]*entities.Venue, 0, len(venues))
	for _, v := range venues {
		if len(q.Tags) > 0 && !v.HasTagMatching(q.Tags) {
			continue
		}
		if len(q.Dietary) > 0 && !hasDietaryTag(v, q.Dietary) {
			continue
		}
		if !v.MatchesText(q.Q) {
			continue
		}
		matched = append(matched, v)
	}
	return paginate(matched, q.Limit, q.Offset), nil
}

// Search parses text into tag candidates and ranks the active catalogue
func (s *VenueService) Search(ctx context.Context, text string) (*VenueSearchResult, error) {
	ctx, span := observability.StartSpan(ctx, "venue.search")
	defer span.End()
	start := time.Now()

	intent := s.parser.Parse(text)
	observability.SetSpanAttributes(span,
		attribute.String("search.query", intent.Query),
		attribute.StringSlice("search.tags", intent.Tags),
	)

	if intent.Query == "" {
		return &VenueSearchResult{Intent: intent, Results: []entities.ScoredVenue{}}, nil
	}

	venues, err := s.venues.List(ctx, repositories.VenueFilter{
		Statuses: []entities.VenueStatus{entities.VenueStatusActive},
	})
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	results := s.ranker.Rank(intent, venues)
	observability.SetSpanAttributes(span, attribute.Int("search.results", len(results)))

	if s.tracker != nil {
		s.tracker.TrackSearch(ctx, searchEvent(text, intent, results, time.Since(start)))
	}

	return &VenueSearchResult{Intent: intent, Results: results}, nil
}

// Get retrieves a venue with its tags
func (s *VenueService) Get(ctx context.Context, id string) (*entities.Venue, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperrors.NewValidationError("venue id is required")
	}
	return s.venues.GetByID(ctx, id)
}

// Nearby returns active venues within radiusKm of the venue id, closest
// first. A venue without coordinates has no neighbours.
func (s *VenueService) Nearby(ctx context.Context, id string, venueType entities.VenueType, radiusKm float64) ([]entities.NearbyVenue, error) {
	if venueType != "" {
		if _, err := entities.ParseVenueType(string(venueType)); err != nil {
			return nil, apperrors.NewValidationError(err.Error())
		}
	}
	if math.IsNaN(radiusKm) || math.IsInf(radiusKm, 0) || radiusKm < 0 {
		return nil, apperrors.NewValidationError("radius_km must be a non-negative number")
	}
	if radiusKm == 0 {
		radiusKm = defaultNearbyRadiusKm
	}

	base, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	nearby := []entities.NearbyVenue{}
	if base.Location == nil {
		return nearby, nil
	}

	filter := repositories.VenueFilter{Statuses: []entities.VenueStatus{entities.VenueStatusActive}}
	if venueType != "" {
		filter.Types = []entities.VenueType{venueType}
	}
	candidates, err := s.venues.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	for _, v := range candidates {
		if v.ID == base.ID || v.Location == nil {
			continue
		}
		d := distance(base.Location.Latitude, base.Location.Longitude, v.Location.Latitude, v.Location.Longitude)
		if d <= radiusKm {
			nearby = append(nearby, entities.NearbyVenue{Venue: v, DistanceKm: d})
		}
	}
	sort.SliceStable(nearby, func(i, j int) bool {
		return nearby[i].DistanceKm < nearby[j].DistanceKm
	})
	return nearby, nil
}

// Create adds a venue to the catalogue. The slug is derived from the name
// when empty.
func (s *VenueService) Create(ctx context.Context, venue *entities.Venue) error {
	venue.Name = strings.TrimSpace(venue.Name)
	if venue.Name == "" {
		return apperrors.NewValidationError("venue name is required")
	}
	if _, err := entities.ParseVenueType(string(venue.Type)); err != nil {
		return apperrors.NewValidationError(err.Error())
	}
	if venue.Status == "" {
		venue.Status = entities.VenueStatusActive
	} else if _, err := entities.ParseVenueStatus(string(venue.Status)); err != nil {
		return apperrors.NewValidationError(err.Error())
	}
	if venue.Slug == "" {
		venue.Slug = Slugify(venue.Name)
	}
	for i := range venue.Tags {
		if _, err := entities.ParseTagCategory(string(venue.Tags[i].Category)); err != nil {
			return apperrors.NewValidationError(err.Error())
		}
	}

	if err := s.venues.Create(ctx, venue); err != nil {
		return err
	}
	for i := range venue.Tags {
		venue.Tags[i].VenueID = venue.ID
		if err := s.tags.Upsert(ctx, &venue.Tags[i]); err != nil {
			return err
		}
	}

	s.announce(ctx, entities.NewVenueEvent(venue.ID, entities.VenueEventCreated, nil))
	return nil
}

// UpdateStatus moderates a venue
func (s *VenueService) UpdateStatus(ctx context.Context, id string, status entities.VenueStatus) error {
	if _, err := entities.ParseVenueStatus(string(status)); err != nil {
		return apperrors.NewValidationError(err.Error())
	}
	if err := s.venues.UpdateStatus(ctx, id, status); err != nil {
		return err
	}

	s.announce(ctx, entities.NewVenueEvent(id, entities.VenueEventStatusChanged, map[string]interface{}{
		"status": string(status),
	}))
	return nil
}

// UpsertTag attaches a tag to a venue or refreshes the existing one
func (s *VenueService) UpsertTag(ctx context.Context, venueID string, tag *entities.Tag) error {
	category, err := entities.ParseTagCategory(string(tag.Category))
	if err != nil {
		return apperrors.NewValidationError(err.Error())
	}
	tag.Category = category
	tag.Label = strings.TrimSpace(tag.Label)
	if tag.Label == "" {
		return apperrors.NewValidationError("tag label is required")
	}
	if math.IsNaN(tag.QualityScore) || math.IsInf(tag.QualityScore, 0) {
		return apperrors.NewValidationError("quality_score must be a number")
	}

	if _, err := s.Get(ctx, venueID); err != nil {
		return err
	}
	tag.VenueID = venueID
	if err := s.tags.Upsert(ctx, tag); err != nil {
		return err
	}

	s.announce(ctx, entities.NewVenueEvent(venueID, entities.VenueEventTagChanged, map[string]interface{}{
		"tag": tag.Label,
	}))
	return nil
}

// VoteTag moves a tag's quality score by one point
func (s *VenueService) VoteTag(ctx context.Context, tagID string, up bool) (*entities.Tag, error) {
	if strings.TrimSpace(tagID) == "" {
		return nil, apperrors.NewValidationError("tag id is required")
	}
	tag, err := s.tags.Vote(ctx, tagID, up)
	if err != nil {
		return nil, err
	}

	s.announce(ctx, entities.NewVenueEvent(tag.VenueID, entities.VenueEventTagChanged, map[string]interface{}{
		"tag":           tag.Label,
		"quality_score": tag.QualityScore,
	}))
	return tag, nil
}

// PopularTags returns the most upvoted tags, optionally of one category
func (s *VenueService) PopularTags(ctx context.Context, category string, limit int) ([]entities.Tag, error) {
	var c entities.TagCategory
	if category != "" {
		var err error
		if c, err = entities.ParseTagCategory(category); err != nil {
			return nil, apperrors.NewValidationError(err.Error())
		}
	}
	switch {
	case limit <= 0:
		limit = defaultPopularTags
	case limit > maxPopularTags:
		limit = maxPopularTags
	}
	return s.tags.ListPopular(ctx, c, limit)
}

// Districts returns the distinct districts of active venues
func (s *VenueService) Districts(ctx context.Context) ([]string, error) {
	return s.venues.ListDistricts(ctx)
}

// Favorites returns the active venues carrying any tag the scope likes
func (s *VenueService) Favorites(ctx context.Context, scope entities.Scope) ([]*entities.Venue, error) {
	if err := scope.Validate(); err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}
	if s.preferences == nil {
		return []*entities.Venue{}, nil
	}
	liked, err := s.preferences.Values(ctx, scope, entities.PreferenceLikedTag)
	if err != nil {
		return nil, err
	}
	if len(liked) == 0 {
		return []*entities.Venue{}, nil
	}
	return s.List(ctx, VenueQuery{Tags: liked})
}

// announce drops local cached reads and tells other instances to do the same
func (s *VenueService) announce(ctx context.Context, event *entities.VenueEvent) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, event.VenueID)
	}
	if s.eventBus == nil {
		return
	}
	if err := s.eventBus.Publish(ctx, providers.EventChannelVenueUpdates, event); err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).
			Str("venue_id", event.VenueID).
			Msg("Failed to publish venue event")
	}
}

func hasDietaryTag(v *entities.Venue, dietary []string) bool {
	for _, t := range v.Tags {
		if t.Category != entities.TagCategoryDietary {
			continue
		}
		label := strings.ToLower(t.Label)
		for _, d := range dietary {
			if d != "" && strings.Contains(label, strings.ToLower(d)) {
				return true
			}
		}
	}
	return false
}

func paginate(venues []*entities.Venue, limit, offset int) []*entities.Venue {
	if offset > 0 {
		if offset >= len(venues) {
			return []*entities.Venue{}
		}
		venues = venues[offset:]
	}
	if limit > 0 && limit < len(venues) {
		venues = venues[:limit]
	}
	return venues
}

var slugReplacer = strings.NewReplacer("ä", "ae", "ö", "oe", "ü", "ue", "ß", "ss", "é", "e", "è", "e", "&", "und")

// Slugify derives a URL slug from a venue name
func Slugify(name string) string {
	lowered := slugReplacer.Replace(strings.ToLower(strings.TrimSpace(name)))
	var b strings.Builder
	dash := false
	for _, r := range lowered {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case b.Len() > 0 && !dash:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

func searchEvent(text string, intent entities.SearchIntent, results []entities.ScoredVenue, took time.Duration) *entities.SearchEvent {
	types := make([]string, 0, len(intent.Types))
	for _, t := range intent.Types {
		types = append(types, string(t))
	}
	event := &entities.SearchEvent{
		Query:           strings.TrimSpace(text),
		NormalizedQuery: intent.Query,
		DetectedTypes:   strings.Join(types, ","),
		ResultCount:     len(results),
		LatencyMs:       int(took.Milliseconds()),
	}
	if len(results) > 0 && results[0].Venue != nil {
		event.TopVenueID = results[0].Venue.ID
	}
	return event
}
