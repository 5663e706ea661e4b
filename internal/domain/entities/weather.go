package entities

// Weather is the current weather at the configured city.
type Weather struct {
	Temp        float64 `json:"temp"`
	FeelsLike   float64 `json:"feels_like"`
	Description string  `json:"description"`
	Icon        string  `json:"icon"`
	Humidity    int     `json:"humidity"`
	WindSpeed   float64 `json:"wind_speed"`
	IsRainy     bool    `json:"is_rainy"`
	City        string  `json:"city"`
}

// ForecastDay is one day of the weather forecast.
type ForecastDay struct {
	Date        string  `json:"date"`
	TempMin     float64 `json:"temp_min"`
	TempMax     float64 `json:"temp_max"`
	Description string  `json:"description"`
	Icon        string  `json:"icon"`
}

// TicketEvent is an upcoming event from the ticketing provider.
type TicketEvent struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Date       string `json:"date"`
	Time       string `json:"time,omitempty"`
	Venue      string `json:"venue"`
	Address    string `json:"address,omitempty"`
	Image      string `json:"image,omitempty"`
	URL        string `json:"url"`
	PriceRange string `json:"price_range,omitempty"`
	Category   string `json:"category"`
}
