// README: Router and geocoder contracts shared by the Google and OSM adapters.
package maps

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"mototaxi/internal/types"
)

var (
	ErrNoRoute = errors.New("no route found")
	ErrNoLabel = errors.New("no label for location")
)

// Route is the provider-neutral routing result. Geometry is for drawing only.
type Route struct {
	DistanceMeters  float64
	DurationSeconds float64
	Geometry        []types.Point
}

type Router interface {
	Route(ctx context.Context, origin, destination types.Point) (Route, error)
}

type Geocoder interface {
	ReverseGeocode(ctx context.Context, p types.Point) (string, error)
}

// AdapterError is a network or protocol failure talking to a provider.
type AdapterError struct {
	Provider string
	Op       string
	Err      error
}

func (e *AdapterError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Err)
}

func (e *AdapterError) Unwrap() error {
	return e.Err
}

// shortLabel keeps the first comma-separated component of a full address.
func shortLabel(full string) string {
	head, _, _ := strings.Cut(full, ",")
	return strings.TrimSpace(head)
}
