package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/zatekoja/datebuch/internal/domain/entities"
	"github.com/zatekoja/datebuch/internal/domain/providers"
	apperrors "github.com/zatekoja/datebuch/pkg/errors"
)

// Gateway API names and cache lifetimes of the external data providers
const (
	WeatherAPIName   = "openweathermap"
	TicketingAPIName = "ticketmaster"

	currentWeatherTTLMinutes = 60
	forecastTTLMinutes       = 360
	eventsTTLMinutes         = 1440

	upcomingEventsWindow = 90 * 24 * time.Hour
	upcomingEventsSize   = 50
)

// eventCategories maps request categories onto ticketing classifications
var eventCategories = map[string]string{
	"concerts": "Music",
	"music":    "Music",
	"shows":    "Arts & Theatre",
	"theatre":  "Arts & Theatre",
	"sports":   "Sports",
	"family":   "Family",
}

// WeatherService reads weather through the gateway
type WeatherService struct {
	gateway  *GatewayService
	provider providers.WeatherProvider
	city     string
}

// NewWeatherService creates a new weather service. A nil provider makes
// every call fail with an EXTERNAL error.
func NewWeatherService(gateway *GatewayService, provider providers.WeatherProvider, city string) *WeatherService {
	return &WeatherService{gateway: gateway, provider: provider, city: strings.ToLower(city)}
}

// Current returns the current weather, cached for an hour
func (s *WeatherService) Current(ctx context.Context) (*entities.Weather, error) {
	if s.provider == nil {
		return nil, apperrors.NewExternalError("weather provider not configured", nil)
	}
	return FetchJSON(ctx, s.gateway, WeatherAPIName, "weather_current_"+s.city, currentWeatherTTLMinutes, s.provider.CurrentWeather)
}

// Forecast returns the daily forecast, cached for six hours
func (s *WeatherService) Forecast(ctx context.Context) ([]entities.ForecastDay, error) {
	if s.provider == nil {
		return nil, apperrors.NewExternalError("weather provider not configured", nil)
	}
	return FetchJSON(ctx, s.gateway, WeatherAPIName, "weather_forecast_"+s.city, forecastTTLMinutes, s.provider.Forecast)
}

// EventService searches ticketing events through the gateway
type EventService struct {
	gateway  *GatewayService
	provider providers.EventProvider
	now      func() time.Time
}

// NewEventService creates a new event service. A nil provider makes every
// call fail with an EXTERNAL error.
func NewEventService(gateway *GatewayService, provider providers.EventProvider) *EventService {
	return &EventService{gateway: gateway, provider: provider, now: time.Now}
}

// Search returns events matching search, cached for a day
func (s *EventService) Search(ctx context.Context, search providers.EventSearch) ([]entities.TicketEvent, error) {
	if s.provider == nil {
		return nil, apperrors.NewExternalError("ticketing provider not configured", nil)
	}
	if search.Size <= 0 {
		search.Size = 20
	}

	cacheKey := fmt.Sprintf("events_%s_%s_%s_%s_%d",
		search.Keyword, search.StartDate, search.EndDate, search.Category, search.Size)

	return FetchJSON(ctx, s.gateway, TicketingAPIName, cacheKey, eventsTTLMinutes, func(ctx context.Context) ([]entities.TicketEvent, error) {
		return s.provider.SearchEvents(ctx, search)
	})
}

// Upcoming returns the events of the next 90 days, optionally of one category
// such as "concerts" or "shows"
func (s *EventService) Upcoming(ctx context.Context, category string) ([]entities.TicketEvent, error) {
	classification := ""
	if category != "" {
		var ok bool
		classification, ok = eventCategories[strings.ToLower(category)]
		if !ok {
			return nil, apperrors.NewValidationError(fmt.Sprintf("unknown event category %q", category))
		}
	}

	today := s.now().UTC()
	return s.Search(ctx, providers.EventSearch{
		StartDate: today.Format(entities.DayLayout),
		EndDate:   today.Add(upcomingEventsWindow).Format(entities.DayLayout),
		Category:  classification,
		Size:      upcomingEventsSize,
	})
}
