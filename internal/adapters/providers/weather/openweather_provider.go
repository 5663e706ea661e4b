package weather

import (
	"context"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/zatekoja/datebuch/internal/adapters/providers/httpclient"
	"github.com/zatekoja/datebuch/internal/domain/entities"
	"github.com/zatekoja/datebuch/internal/domain/providers"
	"github.com/zatekoja/datebuch/pkg/config"
)

const (
	defaultOneCallURL = "https://api.openweathermap.org/data/3.0/onecall"
	forecastDays      = 7
)

// rainyConditions are the OpenWeatherMap condition groups that count as rain
var rainyConditions = map[string]bool{
	"Rain":         true,
	"Drizzle":      true,
	"Thunderstorm": true,
}

type condition struct {
	Main        string `json:"main"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

type oneCallResponse struct {
	Current *struct {
		Temp      float64     `json:"temp"`
		FeelsLike float64     `json:"feels_like"`
		Humidity  int         `json:"humidity"`
		WindSpeed float64     `json:"wind_speed"`
		Weather   []condition `json:"weather"`
	} `json:"current"`
	Daily []struct {
		Dt   int64 `json:"dt"`
		Temp struct {
			Min float64 `json:"min"`
			Max float64 `json:"max"`
		} `json:"temp"`
		Weather []condition `json:"weather"`
	} `json:"daily"`
}

// OpenWeatherProvider implements WeatherProvider with the OpenWeatherMap
// One Call API
type OpenWeatherProvider struct {
	client  *httpclient.Client
	apiKey  string
	baseURL string
	city    string
	lat     float64
	lon     float64
}

// NewOpenWeatherProvider creates a new OpenWeatherMap provider
func NewOpenWeatherProvider(cfg config.WeatherConfig) providers.WeatherProvider {
	return NewOpenWeatherProviderWithClient(cfg, httpclient.New("openweathermap", httpclient.Options{}))
}

// NewOpenWeatherProviderWithClient allows overriding the HTTP client (used for tests)
func NewOpenWeatherProviderWithClient(cfg config.WeatherConfig, client *httpclient.Client) *OpenWeatherProvider {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultOneCallURL
	}
	return &OpenWeatherProvider{
		client:  client,
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
		city:    cfg.City,
		lat:     cfg.Latitude,
		lon:     cfg.Longitude,
	}
}

// CurrentWeather returns the current conditions. Temperatures are rounded to
// whole degrees and wind is converted from m/s to km/h.
func (p *OpenWeatherProvider) CurrentWeather(ctx context.Context) (*entities.Weather, error) {
	var resp oneCallResponse
	if err := p.client.GetJSON(ctx, p.url("minutely,hourly,daily,alerts"), &resp); err != nil {
		return nil, err
	}
	if resp.Current == nil {
		return nil, errMissing("current")
	}

	cur := resp.Current
	w := &entities.Weather{
		Temp:      math.Round(cur.Temp),
		FeelsLike: math.Round(cur.FeelsLike),
		Humidity:  cur.Humidity,
		WindSpeed: math.Round(cur.WindSpeed * 3.6),
		City:      p.city,
	}
	if len(cur.Weather) > 0 {
		w.Description = cur.Weather[0].Description
		w.Icon = cur.Weather[0].Icon
		w.IsRainy = rainyConditions[cur.Weather[0].Main]
	}
	return w, nil
}

// Forecast returns up to seven daily forecasts
func (p *OpenWeatherProvider) Forecast(ctx context.Context) ([]entities.ForecastDay, error) {
	var resp oneCallResponse
	if err := p.client.GetJSON(ctx, p.url("minutely,hourly,current,alerts"), &resp); err != nil {
		return nil, err
	}

	days := make([]entities.ForecastDay, 0, forecastDays)
	for i, d := range resp.Daily {
		if i == forecastDays {
			break
		}
		day := entities.ForecastDay{
			Date:    time.Unix(d.Dt, 0).UTC().Format(entities.DayLayout),
			TempMin: math.Round(d.Temp.Min),
			TempMax: math.Round(d.Temp.Max),
		}
		if len(d.Weather) > 0 {
			day.Description = d.Weather[0].Description
			day.Icon = d.Weather[0].Icon
		}
		days = append(days, day)
	}
	return days, nil
}

func (p *OpenWeatherProvider) url(exclude string) string {
	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(p.lat, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(p.lon, 'f', -1, 64))
	params.Set("exclude", exclude)
	params.Set("units", "metric")
	params.Set("lang", "de")
	params.Set("appid", p.apiKey)
	return p.baseURL + "?" + params.Encode()
}

type errMissing string

func (e errMissing) Error() string {
	return "openweathermap response has no " + string(e) + " block"
}
