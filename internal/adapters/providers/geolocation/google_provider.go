package geolocation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/zatekoja/datebuch/internal/adapters/providers/httpclient"
	"github.com/zatekoja/datebuch/internal/domain/providers"
)

const (
	googleGeocodeURL       = "https://maps.googleapis.com/maps/api/geocode/json"
	defaultGeocodeCacheTTL = 60 * 60 * 24 * 30
	defaultRegion          = "de"
)

// GoogleGeocoder implements the Geocoder using the Google Geocoding API.
type GoogleGeocoder struct {
	apiKey  string
	client  *httpclient.Client
	cache   providers.CacheProvider
	baseURL string
}

// NewGoogleGeocoder creates a new Google geocoder. cache may be nil.
func NewGoogleGeocoder(apiKey string, cache providers.CacheProvider) providers.Geocoder {
	return NewGoogleGeocoderWithOptions(apiKey, cache, googleGeocodeURL, nil)
}

// NewGoogleGeocoderWithOptions allows overriding base URL and HTTP client (used for tests).
func NewGoogleGeocoderWithOptions(apiKey string, cache providers.CacheProvider, baseURL string, client *httpclient.Client) *GoogleGeocoder {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = googleGeocodeURL
	}
	if client == nil {
		client = httpclient.New("google-geocoding", httpclient.Options{})
	}
	return &GoogleGeocoder{
		apiKey:  apiKey,
		client:  client,
		cache:   cache,
		baseURL: baseURL,
	}
}

// Geocode converts an address to coordinates plus its district and city.
func (g *GoogleGeocoder) Geocode(ctx context.Context, address string) (*providers.GeocodedAddress, error) {
	trimmed := strings.TrimSpace(address)
	if trimmed == "" {
		return nil, fmt.Errorf("address is required")
	}
	if g.apiKey == "" {
		return nil, fmt.Errorf("google maps api key is required")
	}

	cacheKey := "geo:v1:geocode:" + hashKey(strings.ToLower(trimmed))
	if g.cache != nil {
		if cached, err := g.cache.Get(ctx, cacheKey); err == nil && len(cached) > 0 {
			var addr providers.GeocodedAddress
			if err := json.Unmarshal(cached, &addr); err == nil {
				return &addr, nil
			}
		}
	}

	params := url.Values{}
	params.Set("address", trimmed)
	params.Set("region", defaultRegion)
	params.Set("key", g.apiKey)

	var resp googleGeocodeResponse
	if err := g.client.GetJSON(ctx, g.baseURL+"?"+params.Encode(), &resp); err != nil {
		return nil, err
	}
	if resp.Status != "OK" {
		if resp.ErrorMessage != "" {
			return nil, fmt.Errorf("geocode request failed: %s - %s", resp.Status, resp.ErrorMessage)
		}
		return nil, fmt.Errorf("geocode request failed: %s", resp.Status)
	}
	if len(resp.Results) == 0 {
		return nil, fmt.Errorf("no results for address")
	}

	result := resp.Results[0]
	addr := providers.GeocodedAddress{
		FormattedAddress: result.FormattedAddress,
		District:         component(result.AddressComponents, "sublocality_level_1", "sublocality", "neighborhood"),
		City:             component(result.AddressComponents, "locality", "administrative_area_level_2"),
	}
	addr.Location.Latitude = result.Geometry.Location.Lat
	addr.Location.Longitude = result.Geometry.Location.Lng

	if g.cache != nil {
		if payload, err := json.Marshal(addr); err == nil {
			_ = g.cache.Set(ctx, cacheKey, payload, defaultGeocodeCacheTTL)
		}
	}

	return &addr, nil
}

func hashKey(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}

func component(components []googleAddressComponent, primary string, fallback ...string) string {
	for _, target := range append([]string{primary}, fallback...) {
		for _, comp := range components {
			if containsType(comp.Types, target) {
				return comp.LongName
			}
		}
	}
	return ""
}

func containsType(types []string, target string) bool {
	for _, t := range types {
		if t == target {
			return true
		}
	}
	return false
}

type googleGeocodeResponse struct {
	Status       string                `json:"status"`
	ErrorMessage string                `json:"error_message,omitempty"`
	Results      []googleGeocodeResult `json:"results"`
}

type googleGeocodeResult struct {
	FormattedAddress  string                   `json:"formatted_address"`
	AddressComponents []googleAddressComponent `json:"address_components"`
	Geometry          struct {
		Location struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"location"`
	} `json:"geometry"`
}

type googleAddressComponent struct {
	LongName string   `json:"long_name"`
	Types    []string `json:"types"`
}
