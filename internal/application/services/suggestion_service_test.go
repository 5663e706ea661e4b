package services

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/datebuch/internal/domain/entities"
	"github.com/zatekoja/datebuch/internal/domain/repositories"
	apperrors "github.com/zatekoja/datebuch/pkg/errors"
)

type firstPicker struct{}

func (firstPicker) Intn(int) int { return 0 }

type stubWeatherSource struct {
	weather *entities.Weather
	err     error
	calls   int
}

func (s *stubWeatherSource) Current(context.Context) (*entities.Weather, error) {
	s.calls++
	return s.weather, s.err
}

func suggestionCatalogue() *memoryVenueRepo {
	return &memoryVenueRepo{venues: []*entities.Venue{
		venue("r1", "Trattoria Luna", entities.VenueTypeRestaurant, "Ottensen",
			tag(entities.TagCategoryVibe, "Romantisch", 4, false)),
		venue("r2", "Burger Bude", entities.VenueTypeRestaurant, "St. Pauli",
			tag(entities.TagCategoryVibe, "Casual", 3, false)),
		venue("b1", "Kaminbar", entities.VenueTypeBar, "Eimsbüttel",
			tag(entities.TagCategoryVibe, "Gemütlich", 4, false)),
		venue("a1", "Planetarium", entities.VenueTypeVenue, "Winterhude",
			tag(entities.TagCategoryVibe, "Romantisch", 5, false)),
		venue("c1", "Kaffeeklappe", entities.VenueTypeCafe, "Altona",
			tag(entities.TagCategoryVibe, "Gemütlich", 4, false)),
	}}
}

func TestSuggestionService_SaturdayEveningInTheCold(t *testing.T) {
	svc := NewSuggestionService(suggestionCatalogue(), firstPicker{})

	s, err := svc.Suggest(context.Background(), entities.DateContext{
		DayOfWeek: 6,
		Hour:      19,
		Weather:   &entities.WeatherContext{Temp: 3},
	})
	require.NoError(t, err)

	assert.Equal(t, "Perfekt für einen entspannten Samstagabend - Schön warm drinnen!", s.Reason)
	require.NotNil(t, s.Restaurant)
	assert.Equal(t, "r1", s.Restaurant.ID)
	require.NotNil(t, s.Bar)
	assert.Equal(t, "b1", s.Bar.ID)
	require.NotNil(t, s.Activity)
	assert.Equal(t, "a1", s.Activity.ID)
}

func TestSuggestionService_Reasons(t *testing.T) {
	warm := &entities.WeatherContext{Temp: 20}
	tests := []struct {
		name   string
		ctx    entities.DateContext
		reason string
	}{
		{"weekday evening", entities.DateContext{DayOfWeek: 3, Hour: 18, Weather: warm}, "Gemütlicher Feierabend-Plan"},
		{"sunday afternoon", entities.DateContext{DayOfWeek: 0, Hour: 14, Weather: warm}, "Schöner Weekend-Tipp"},
		{"weekday morning", entities.DateContext{DayOfWeek: 2, Hour: 10, Weather: warm}, "Für euch ausgewählt"},
		{"unknown weather counts as mild", entities.DateContext{DayOfWeek: 2, Hour: 10}, "Für euch ausgewählt"},
	}

	svc := NewSuggestionService(suggestionCatalogue(), firstPicker{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := svc.Suggest(context.Background(), tt.ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.reason, s.Reason)
		})
	}
}

func TestSuggestionService_DaytimeVibes(t *testing.T) {
	svc := NewSuggestionService(suggestionCatalogue(), firstPicker{})

	s, err := svc.Suggest(context.Background(), entities.DateContext{
		DayOfWeek: 2,
		Hour:      12,
		Weather:   &entities.WeatherContext{Temp: 22},
	})
	require.NoError(t, err)

	require.NotNil(t, s.Restaurant)
	assert.Equal(t, "r2", s.Restaurant.ID)
	assert.Nil(t, s.Bar)
	assert.Nil(t, s.Activity)
}

func TestSuggestionService_OnlyVibeTagsQualify(t *testing.T) {
	repo := &memoryVenueRepo{venues: []*entities.Venue{
		venue("r3", "Frühstückshaus", entities.VenueTypeRestaurant, "Eppendorf",
			tag(entities.TagCategoryFood, "Casual Brunch", 5, true)),
	}}
	svc := NewSuggestionService(repo, firstPicker{})

	s, err := svc.Suggest(context.Background(), entities.DateContext{
		DayOfWeek: 2,
		Hour:      11,
		Weather:   &entities.WeatherContext{Temp: 20},
	})
	require.NoError(t, err)

	assert.Nil(t, s.Restaurant)
	assert.True(t, s.IsEmpty())
}

func TestSuggestionService_RainAddsCozyVenues(t *testing.T) {
	svc := NewSuggestionService(suggestionCatalogue(), firstPicker{})

	s, err := svc.Suggest(context.Background(), entities.DateContext{
		DayOfWeek: 2,
		Hour:      12,
		Weather:   &entities.WeatherContext{Temp: 18, IsRainy: true},
	})
	require.NoError(t, err)

	require.NotNil(t, s.Bar)
	assert.Equal(t, "b1", s.Bar.ID)
	assert.Equal(t, "Für euch ausgewählt", s.Reason)
}

func TestSuggestionService_EmptyCatalogue(t *testing.T) {
	svc := NewSuggestionService(&memoryVenueRepo{}, firstPicker{})

	s, err := svc.Suggest(context.Background(), entities.DateContext{DayOfWeek: 6, Hour: 20})
	require.NoError(t, err)

	assert.True(t, s.IsEmpty())
	assert.Equal(t, "Perfekt für einen entspannten Samstagabend", s.Reason)
}

func TestSuggestionService_SkipsInactiveVenues(t *testing.T) {
	repo := suggestionCatalogue()
	require.NoError(t, repo.UpdateStatus(context.Background(), "r1", entities.VenueStatusTemporarilyClosed))
	svc := NewSuggestionService(repo, firstPicker{})

	s, err := svc.Suggest(context.Background(), entities.DateContext{DayOfWeek: 5, Hour: 20})
	require.NoError(t, err)

	assert.Nil(t, s.Restaurant)
	assert.NotNil(t, s.Bar)
}

func TestSuggestionService_SeededPickerIsDeterministic(t *testing.T) {
	repo := suggestionCatalogue()
	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Create(context.Background(), venue("", "Bar", entities.VenueTypeBar, "Altona",
			tag(entities.TagCategoryVibe, "Romantisch", 3, false))))
	}
	dc := entities.DateContext{DayOfWeek: 5, Hour: 21}

	first, err := NewSuggestionService(repo, rand.New(rand.NewSource(7))).Suggest(context.Background(), dc)
	require.NoError(t, err)
	second, err := NewSuggestionService(repo, rand.New(rand.NewSource(7))).Suggest(context.Background(), dc)
	require.NoError(t, err)

	assert.Equal(t, first.Bar.ID, second.Bar.ID)
	assert.Equal(t, first.Restaurant.ID, second.Restaurant.ID)
}

func TestSuggestionService_FetchesWeatherWhenMissing(t *testing.T) {
	source := &stubWeatherSource{weather: &entities.Weather{Temp: 2}}
	svc := NewSuggestionService(suggestionCatalogue(), firstPicker{}, WithWeatherSource(source))

	s, err := svc.Suggest(context.Background(), entities.DateContext{DayOfWeek: 2, Hour: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, source.calls)
	assert.Equal(t, "Für euch ausgewählt - Schön warm drinnen!", s.Reason)

	_, err = svc.Suggest(context.Background(), entities.DateContext{DayOfWeek: 2, Hour: 10, Weather: &entities.WeatherContext{Temp: 20}})
	require.NoError(t, err)
	assert.Equal(t, 1, source.calls)
}

func TestSuggestionService_WeatherFailureDegrades(t *testing.T) {
	source := &stubWeatherSource{err: apperrors.NewRateLimitedError(WeatherAPIName, "daily limit reached")}
	svc := NewSuggestionService(suggestionCatalogue(), firstPicker{}, WithWeatherSource(source))

	s, err := svc.Suggest(context.Background(), entities.DateContext{DayOfWeek: 2, Hour: 10})
	require.NoError(t, err)
	assert.Equal(t, "Für euch ausgewählt", s.Reason)
}

func TestSuggestionService_AvoidsDislikedTags(t *testing.T) {
	repo := suggestionCatalogue()
	require.NoError(t, repo.Create(context.Background(), venue("r3", "Candlelight Dinner", entities.VenueTypeRestaurant, "Altona",
		tag(entities.TagCategoryVibe, "Romantisch", 5, false),
		tag(entities.TagCategoryFood, "Austern", 4, true))))
	require.NoError(t, repo.Create(context.Background(), venue("r4", "Seafood Place", entities.VenueTypeRestaurant, "Altona",
		tag(entities.TagCategoryVibe, "Romantisch", 5, false),
		tag(entities.TagCategoryFood, "Austern", 4, false))))

	prefs := NewPreferenceService(&memoryPreferenceRepo{})
	scope := entities.CoupleScope("c1")
	_, err := prefs.Record(context.Background(), scope, entities.PreferenceDislikedTag, "Romantisch", 1)
	require.NoError(t, err)

	svc := NewSuggestionService(repo, firstPicker{}, WithDislikeSource(prefs))

	// every romantic restaurant is disliked, so the bucket is kept whole
	s, err := svc.Suggest(context.Background(), entities.DateContext{DayOfWeek: 5, Hour: 20, Scope: scope})
	require.NoError(t, err)
	require.NotNil(t, s.Restaurant)
	assert.Equal(t, "r1", s.Restaurant.ID)

	_, err = prefs.Reset(context.Background(), scope, entities.ResetModeFull, "")
	require.NoError(t, err)
	_, err = prefs.Record(context.Background(), scope, entities.PreferenceDislikedTag, "Austern", 1)
	require.NoError(t, err)

	s, err = svc.Suggest(context.Background(), entities.DateContext{DayOfWeek: 5, Hour: 20, Scope: scope})
	require.NoError(t, err)
	assert.Equal(t, "r1", s.Restaurant.ID)

	withoutScope, err := NewSuggestionService(repo, lastPicker{}, WithDislikeSource(prefs)).
		Suggest(context.Background(), entities.DateContext{DayOfWeek: 5, Hour: 20})
	require.NoError(t, err)
	assert.Equal(t, "r4", withoutScope.Restaurant.ID)

	scoped, err := NewSuggestionService(repo, lastPicker{}, WithDislikeSource(prefs)).
		Suggest(context.Background(), entities.DateContext{DayOfWeek: 5, Hour: 20, Scope: scope})
	require.NoError(t, err)
	assert.Equal(t, "r1", scoped.Restaurant.ID)
}

type lastPicker struct{}

func (lastPicker) Intn(n int) int { return n - 1 }

func TestSuggestionService_Validation(t *testing.T) {
	svc := NewSuggestionService(suggestionCatalogue(), firstPicker{})

	_, err := svc.Suggest(context.Background(), entities.DateContext{DayOfWeek: 7, Hour: 10})
	assert.True(t, apperrors.IsValidation(err))

	_, err = svc.Suggest(context.Background(), entities.DateContext{DayOfWeek: 1, Hour: 24})
	assert.True(t, apperrors.IsValidation(err))
}

type failingVenueRepo struct{ memoryVenueRepo }

func (*failingVenueRepo) List(context.Context, repositories.VenueFilter) ([]*entities.Venue, error) {
	return nil, errors.New("connection refused")
}

func TestSuggestionService_RepositoryError(t *testing.T) {
	svc := NewSuggestionService(&failingVenueRepo{}, firstPicker{})

	_, err := svc.Suggest(context.Background(), entities.DateContext{DayOfWeek: 1, Hour: 9})
	assert.Error(t, err)
}
