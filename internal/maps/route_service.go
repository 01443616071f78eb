package maps

import (
	"context"
	"fmt"

	"googlemaps.github.io/maps"

	"mototaxi/internal/types"
)

const providerGoogle = "google"

// RouteService handles interactions with the Google Directions API.
type RouteService struct {
	client *maps.Client
}

// NewRouteService creates a new RouteService with the given API Key. Extra
// options (e.g. maps.WithBaseURL) are passed through to the client.
func NewRouteService(apiKey string, opts ...maps.ClientOption) (*RouteService, error) {
	client, err := newGoogleClient(apiKey, opts...)
	if err != nil {
		return nil, err
	}
	return &RouteService{client: client}, nil
}

func newGoogleClient(apiKey string, opts ...maps.ClientOption) (*maps.Client, error) {
	all := append([]maps.ClientOption{maps.WithAPIKey(apiKey)}, opts...)
	client, err := maps.NewClient(all...)
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return client, nil
}

// Route returns the first driving route between the two points. Motorcycles
// follow the driving profile.
func (s *RouteService) Route(ctx context.Context, origin, destination types.Point) (Route, error) {
	r := &maps.DirectionsRequest{
		Origin:      origin.LatLng(),
		Destination: destination.LatLng(),
		Mode:        maps.TravelModeDriving,
		Region:      "hn",
		Language:    "es",
	}

	routes, _, err := s.client.Directions(ctx, r)
	if err != nil {
		return Route{}, &AdapterError{Provider: providerGoogle, Op: "directions", Err: err}
	}
	if len(routes) == 0 || len(routes[0].Legs) == 0 {
		return Route{}, ErrNoRoute
	}

	var out Route
	for _, leg := range routes[0].Legs {
		out.DistanceMeters += float64(leg.Distance.Meters)
		out.DurationSeconds += leg.Duration.Seconds()
	}

	path, err := routes[0].OverviewPolyline.Decode()
	if err != nil {
		return Route{}, &AdapterError{Provider: providerGoogle, Op: "decode polyline", Err: err}
	}
	out.Geometry = make([]types.Point, 0, len(path))
	for _, ll := range path {
		out.Geometry = append(out.Geometry, types.Point{Lat: ll.Lat, Lng: ll.Lng})
	}
	return out, nil
}
