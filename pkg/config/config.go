package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Env        string
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Gateway    GatewayConfig
	Weather    WeatherConfig
	Ticketing  TicketingConfig
	Geocoding  GeocodingConfig
	Suggestion SuggestionConfig
	OTEL       OTELConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host string
	Port int
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host          string
	Port          int
	User          string
	Password      string
	Database      string
	SSLMode       string
	RunMigrations bool
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// APILimit is the call budget for one external API.
type APILimit struct {
	Daily   int
	Monthly int
}

// GatewayConfig holds the external API gateway configuration
type GatewayConfig struct {
	// Store selects the usage/cache backend: "postgres" or "redis".
	Store          string
	DefaultLimit   APILimit
	Limits         map[string]APILimit
	LocalCacheSize int
	LocalCacheTTL  time.Duration
	TimeZone       string
}

// WeatherConfig holds OpenWeatherMap configuration
type WeatherConfig struct {
	APIKey    string
	BaseURL   string
	City      string
	Latitude  float64
	Longitude float64
}

// TicketingConfig holds Ticketmaster configuration
type TicketingConfig struct {
	APIKey      string
	BaseURL     string
	City        string
	CountryCode string
}

// GeocodingConfig holds Google Geocoding configuration
type GeocodingConfig struct {
	APIKey  string
	BaseURL string
}

// SuggestionConfig holds suggestion engine configuration
type SuggestionConfig struct {
	// Seed of the slot picker; 0 seeds from the clock.
	Seed int64
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Enabled        bool
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	limits, err := parseLimits(getEnv("GATEWAY_API_LIMITS", ""))
	if err != nil {
		return nil, err
	}

	return &Config{
		Env: getEnv("ENV", "development"),
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnvAsInt("SERVER_PORT", 8080),
		},
		Database: DatabaseConfig{
			Host:          getEnv("DB_HOST", "localhost"),
			Port:          getEnvAsInt("DB_PORT", 5432),
			User:          getEnv("DB_USER", "postgres"),
			Password:      getEnv("DB_PASSWORD", ""),
			Database:      getEnv("DB_NAME", "datebuch"),
			SSLMode:       getEnv("DB_SSLMODE", "disable"),
			RunMigrations: getEnvAsBool("DB_RUN_MIGRATIONS", true),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Gateway: GatewayConfig{
			Store: getEnv("GATEWAY_STORE", "postgres"),
			DefaultLimit: APILimit{
				Daily:   getEnvAsInt("GATEWAY_DAILY_LIMIT", 100),
				Monthly: getEnvAsInt("GATEWAY_MONTHLY_LIMIT", 3000),
			},
			Limits:         limits,
			LocalCacheSize: getEnvAsInt("GATEWAY_LOCAL_CACHE_SIZE", 256),
			LocalCacheTTL:  getEnvAsDuration("GATEWAY_LOCAL_CACHE_TTL", 30*time.Second),
			TimeZone:       getEnv("GATEWAY_TIMEZONE", "Europe/Berlin"),
		},
		Weather: WeatherConfig{
			APIKey:    getEnv("OPENWEATHER_API_KEY", ""),
			BaseURL:   getEnv("OPENWEATHER_BASE_URL", "https://api.openweathermap.org/data/3.0/onecall"),
			City:      getEnv("WEATHER_CITY", "Hamburg"),
			Latitude:  getEnvAsFloat("WEATHER_LAT", 53.5511),
			Longitude: getEnvAsFloat("WEATHER_LON", 9.9937),
		},
		Ticketing: TicketingConfig{
			APIKey:      getEnv("TICKETMASTER_API_KEY", ""),
			BaseURL:     getEnv("TICKETMASTER_BASE_URL", "https://app.ticketmaster.com/discovery/v2/events.json"),
			City:        getEnv("TICKETMASTER_CITY", "Hamburg"),
			CountryCode: getEnv("TICKETMASTER_COUNTRY", "DE"),
		},
		Geocoding: GeocodingConfig{
			APIKey:  getEnv("GOOGLE_MAPS_API_KEY", ""),
			BaseURL: getEnv("GOOGLE_GEOCODE_BASE_URL", "https://maps.googleapis.com/maps/api/geocode/json"),
		},
		Suggestion: SuggestionConfig{
			Seed: int64(getEnvAsInt("SUGGESTION_SEED", 0)),
		},
		OTEL: OTELConfig{
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "datebuch"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
			Endpoint:       getEnv("OTEL_ENDPOINT", ""),
			Enabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
	}, nil
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LimitFor returns the configured budget for apiName, falling back to the default.
func (c *GatewayConfig) LimitFor(apiName string) APILimit {
	if limit, ok := c.Limits[apiName]; ok {
		return limit
	}
	return c.DefaultLimit
}

// Location resolves the gateway time zone used for day keys.
func (c *GatewayConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// parseLimits reads "name=daily:monthly" pairs separated by commas.
func parseLimits(raw string) (map[string]APILimit, error) {
	limits := make(map[string]APILimit)
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return limits, nil
	}

	for _, pair := range strings.Split(raw, ",") {
		name, budget, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("invalid GATEWAY_API_LIMITS entry %q", pair)
		}
		dailyRaw, monthlyRaw, ok := strings.Cut(budget, ":")
		if !ok {
			return nil, fmt.Errorf("invalid GATEWAY_API_LIMITS budget %q", budget)
		}
		daily, err := strconv.Atoi(strings.TrimSpace(dailyRaw))
		if err != nil || daily < 0 {
			return nil, fmt.Errorf("invalid daily limit for %s: %q", name, dailyRaw)
		}
		monthly, err := strconv.Atoi(strings.TrimSpace(monthlyRaw))
		if err != nil || monthly < 0 {
			return nil, fmt.Errorf("invalid monthly limit for %s: %q", name, monthlyRaw)
		}
		limits[strings.TrimSpace(name)] = APILimit{Daily: daily, Monthly: monthly}
	}

	return limits, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
