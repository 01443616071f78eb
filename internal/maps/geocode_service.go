package maps

import (
	"context"

	"googlemaps.github.io/maps"

	"mototaxi/internal/types"
)

// GeocodeService resolves coordinates to short place labels via the Google
// Geocoding API.
type GeocodeService struct {
	client *maps.Client
}

func NewGeocodeService(apiKey string, opts ...maps.ClientOption) (*GeocodeService, error) {
	client, err := newGoogleClient(apiKey, opts...)
	if err != nil {
		return nil, err
	}
	return &GeocodeService{client: client}, nil
}

func (s *GeocodeService) ReverseGeocode(ctx context.Context, p types.Point) (string, error) {
	results, err := s.client.ReverseGeocode(ctx, &maps.GeocodingRequest{
		LatLng:   &maps.LatLng{Lat: p.Lat, Lng: p.Lng},
		Language: "es",
	})
	if err != nil {
		return "", &AdapterError{Provider: providerGoogle, Op: "reverse geocode", Err: err}
	}
	for _, r := range results {
		if label := shortLabel(r.FormattedAddress); label != "" {
			return label, nil
		}
	}
	return "", ErrNoLabel
}
