package services

import (
	"context"
	"sync"

	"github.com/zatekoja/datebuch/internal/domain/entities"
	"github.com/zatekoja/datebuch/internal/domain/repositories"
	"github.com/zatekoja/datebuch/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/datebuch/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
)

const (
	eveningHour     = 17
	coldThreshold   = 10.0
	unknownTemp     = 10.0
	reasonColdClose = " - Schön warm drinnen!"
)

var (
	eveningVibes = []string{"Romantisch", "Gemütlich"}
	daytimeVibes = []string{"Entspannt", "Casual"}
	coldVibe     = "Gemütlich"
)

// Picker draws a uniform index in [0, n). *rand.Rand satisfies it.
type Picker interface {
	Intn(n int) int
}

// CurrentWeatherSource supplies weather when the caller has none
type CurrentWeatherSource interface {
	Current(ctx context.Context) (*entities.Weather, error)
}

// DislikeSource supplies the disliked tags of a scope
type DislikeSource interface {
	Values(ctx context.Context, scope entities.Scope, kind entities.PreferenceKind) ([]string, error)
}

// SuggestionService composes a restaurant, bar and activity for a date from
// the time of day, the weekday and the weather
type SuggestionService struct {
	venues   repositories.VenueRepository
	weather  CurrentWeatherSource
	dislikes DislikeSource

	mu     sync.Mutex
	picker Picker
}

// SuggestionOption customises a SuggestionService
type SuggestionOption func(*SuggestionService)

// WithWeatherSource fetches weather for contexts that carry none
func WithWeatherSource(source CurrentWeatherSource) SuggestionOption {
	return func(s *SuggestionService) { s.weather = source }
}

// WithDislikeSource drops venues the scope dislikes where possible
func WithDislikeSource(source DislikeSource) SuggestionOption {
	return func(s *SuggestionService) { s.dislikes = source }
}

// NewSuggestionService creates a new suggestion service
func NewSuggestionService(venues repositories.VenueRepository, picker Picker, opts ...SuggestionOption) *SuggestionService {
	s := &SuggestionService{venues: venues, picker: picker}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Suggest fills each slot with a random matching venue. Slots without a
// candidate stay nil; an all-empty suggestion still carries a reason.
func (s *SuggestionService) Suggest(ctx context.Context, dc entities.DateContext) (*entities.Suggestion, error) {
	if dc.DayOfWeek < 0 || dc.DayOfWeek > 6 {
		return nil, apperrors.NewValidationError("day_of_week must be between 0 and 6")
	}
	if dc.Hour < 0 || dc.Hour > 23 {
		return nil, apperrors.NewValidationError("hour must be between 0 and 23")
	}

	ctx, span := observability.StartSpan(ctx, "suggestion.suggest")
	defer span.End()

	weather := s.resolveWeather(ctx, dc.Weather)

	isEvening := dc.Hour >= eveningHour
	isWeekend := dc.DayOfWeek == 0 || dc.DayOfWeek == 6
	temp := unknownTemp
	isRainy := false
	if weather != nil {
		temp = weather.Temp
		isRainy = weather.IsRainy
	}
	isCold := temp < coldThreshold

	vibes := vibeFilter(isEvening, isCold || isRainy)
	observability.SetSpanAttributes(span,
		attribute.Bool("suggestion.evening", isEvening),
		attribute.Bool("suggestion.weekend", isWeekend),
		attribute.Bool("suggestion.cold", isCold),
		attribute.StringSlice("suggestion.vibes", vibes),
	)

	candidates, err := s.venues.List(ctx, repositories.VenueFilter{
		Statuses: []entities.VenueStatus{entities.VenueStatusActive},
	})
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	var restaurants, bars, activities []*entities.Venue
	for _, v := range candidates {
		if !v.IsActive() || !v.HasCategoryTagMatching(entities.TagCategoryVibe, vibes) {
			continue
		}
		switch v.Type {
		case entities.VenueTypeRestaurant:
			restaurants = append(restaurants, v)
		case entities.VenueTypeBar:
			bars = append(bars, v)
		case entities.VenueTypeActivity, entities.VenueTypeVenue:
			activities = append(activities, v)
		}
	}

	if disliked := s.dislikedTags(ctx, dc.Scope); len(disliked) > 0 {
		restaurants = withoutDisliked(restaurants, disliked)
		bars = withoutDisliked(bars, disliked)
		activities = withoutDisliked(activities, disliked)
	}

	suggestion := &entities.Suggestion{
		Restaurant: s.pick(restaurants),
		Bar:        s.pick(bars),
		Activity:   s.pick(activities),
		Reason:     suggestionReason(isEvening, isWeekend, isCold),
	}

	observability.LoggerFromContext(ctx).Debug().
		Int("restaurants", len(restaurants)).
		Int("bars", len(bars)).
		Int("activities", len(activities)).
		Bool("empty", suggestion.IsEmpty()).
		Msg("Suggestion composed")

	return suggestion, nil
}

func (s *SuggestionService) resolveWeather(ctx context.Context, given *entities.WeatherContext) *entities.WeatherContext {
	if given != nil || s.weather == nil {
		return given
	}
	current, err := s.weather.Current(ctx)
	if err != nil || current == nil {
		observability.LoggerFromContext(ctx).Debug().Err(err).Msg("Suggesting without weather")
		return nil
	}
	return &entities.WeatherContext{Temp: current.Temp, IsRainy: current.IsRainy}
}

func (s *SuggestionService) dislikedTags(ctx context.Context, scope entities.Scope) []string {
	if s.dislikes == nil || scope.IsZero() || scope.Validate() != nil {
		return nil
	}
	values, err := s.dislikes.Values(ctx, scope, entities.PreferenceDislikedTag)
	if err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Str("scope", scope.Key()).Msg("Failed to load dislikes")
		return nil
	}
	return values
}

func (s *SuggestionService) pick(bucket []*entities.Venue) *entities.Venue {
	if len(bucket) == 0 {
		return nil
	}
	s.mu.Lock()
	i := s.picker.Intn(len(bucket))
	s.mu.Unlock()
	return bucket[i]
}

func vibeFilter(isEvening, wantsCozy bool) []string {
	base := daytimeVibes
	if isEvening {
		base = eveningVibes
	}
	vibes := append([]string{}, base...)
	if wantsCozy {
		vibes = appendUnique(vibes, coldVibe)
	}
	return vibes
}

// withoutDisliked drops venues carrying a disliked tag unless that would
// leave the bucket empty
func withoutDisliked(bucket []*entities.Venue, disliked []string) []*entities.Venue {
	kept := make([]*entities.Venue, 0, len(bucket))
	for _, v := range bucket {
		if !v.HasTagMatching(disliked) {
			kept = append(kept, v)
		}
	}
	if len(kept) == 0 {
		return bucket
	}
	return kept
}

func suggestionReason(isEvening, isWeekend, isCold bool) string {
	var reason string
	switch {
	case isWeekend && isEvening:
		reason = "Perfekt für einen entspannten Samstagabend"
	case isEvening:
		reason = "Gemütlicher Feierabend-Plan"
	case isWeekend:
		reason = "Schöner Weekend-Tipp"
	default:
		reason = "Für euch ausgewählt"
	}
	if isCold {
		reason += reasonColdClose
	}
	return reason
}
