package maps

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"mototaxi/internal/types"
)

const providerOSRM = "osrm"

// OSRMClient performs route lookups against an OSRM HTTP server.
type OSRMClient struct {
	Endpoint string
	Client   *http.Client
}

func NewOSRMClient(endpoint string) *OSRMClient {
	return &OSRMClient{Endpoint: strings.TrimRight(endpoint, "/"), Client: &http.Client{Timeout: 10 * time.Second}}
}

type osrmResponse struct {
	Code   string `json:"code"`
	Routes []struct {
		Distance float64 `json:"distance"`
		Duration float64 `json:"duration"`
		Geometry struct {
			Coordinates [][2]float64 `json:"coordinates"`
		} `json:"geometry"`
	} `json:"routes"`
}

// Route queries /route/v1/driving with full GeoJSON geometry.
func (o *OSRMClient) Route(ctx context.Context, origin, destination types.Point) (Route, error) {
	url := fmt.Sprintf("%s/route/v1/driving/%.6f,%.6f;%.6f,%.6f?overview=full&geometries=geojson",
		o.Endpoint, origin.Lng, origin.Lat, destination.Lng, destination.Lat)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Route{}, &AdapterError{Provider: providerOSRM, Op: "route", Err: err}
	}
	resp, err := o.Client.Do(req)
	if err != nil {
		return Route{}, &AdapterError{Provider: providerOSRM, Op: "route", Err: err}
	}
	defer resp.Body.Close()

	var out osrmResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Route{}, &AdapterError{Provider: providerOSRM, Op: "decode route", Err: fmt.Errorf("status %d: %w", resp.StatusCode, err)}
	}
	switch {
	case out.Code == "NoRoute" || (out.Code == "Ok" && len(out.Routes) == 0):
		return Route{}, ErrNoRoute
	case out.Code != "Ok":
		return Route{}, &AdapterError{Provider: providerOSRM, Op: "route", Err: fmt.Errorf("code %q (status %d)", out.Code, resp.StatusCode)}
	}

	first := out.Routes[0]
	geometry := make([]types.Point, 0, len(first.Geometry.Coordinates))
	for _, c := range first.Geometry.Coordinates {
		geometry = append(geometry, types.Point{Lat: c[1], Lng: c[0]})
	}
	return Route{DistanceMeters: first.Distance, DurationSeconds: first.Duration, Geometry: geometry}, nil
}
