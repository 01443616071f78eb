// README: Geographic coordinate value object.
package types

import "fmt"

type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// DefaultCenter is the map centre used before the device location is known
// (San Pedro Sula).
var DefaultCenter = Point{Lat: 15.5048, Lng: -88.0250}

// Valid reports whether the point lies within WGS84 bounds.
func (p Point) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// LatLng formats the point as "lat,lng", the form routing APIs accept.
func (p Point) LatLng() string {
	return fmt.Sprintf("%f,%f", p.Lat, p.Lng)
}

// Placeholder is the label shown while a reverse geocode is pending or has failed.
func (p Point) Placeholder() string {
	return fmt.Sprintf("%.4f, %.4f", p.Lat, p.Lng)
}

// RidePoint is a picked location with its display label. The label may be a
// coordinate placeholder until reverse geocoding finishes.
type RidePoint struct {
	Point
	Label string `json:"label"`
}

func NewRidePoint(p Point) RidePoint {
	return RidePoint{Point: p, Label: p.Placeholder()}
}
