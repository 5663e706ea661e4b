package providers

import (
	"context"

	"github.com/zatekoja/datebuch/internal/domain/entities"
)

// WeatherProvider returns weather data for the configured city.
type WeatherProvider interface {
	CurrentWeather(ctx context.Context) (*entities.Weather, error)
	Forecast(ctx context.Context) ([]entities.ForecastDay, error)
}

// EventSearch narrows a ticketing query.
type EventSearch struct {
	Keyword   string
	StartDate string
	EndDate   string
	Category  string
	Size      int
}

// EventProvider searches upcoming events with a ticketing service.
type EventProvider interface {
	SearchEvents(ctx context.Context, search EventSearch) ([]entities.TicketEvent, error)
}
