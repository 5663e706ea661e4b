package providers

import (
	"context"

	"github.com/zatekoja/datebuch/internal/domain/entities"
)

// Geocoder resolves street addresses to coordinates
type Geocoder interface {
	Geocode(ctx context.Context, address string) (*GeocodedAddress, error)
}

// GeocodedAddress represents a geocoded address
type GeocodedAddress struct {
	FormattedAddress string            `json:"formatted_address"`
	District         string            `json:"district,omitempty"`
	City             string            `json:"city,omitempty"`
	Location         entities.Location `json:"location"`
}
