// README: Trip quote produced by the route and fare pipeline.
package quote

import (
	"errors"
	"fmt"

	"mototaxi/internal/modules/pricing"
	"mototaxi/internal/types"
)

// BufferFactor pads the router's duration for traffic and pickup slack.
const BufferFactor = 1.3

var (
	ErrSuperseded     = errors.New("quote superseded by a newer request")
	ErrNothingToRetry = errors.New("no route to retry")
)

// TripQuote is ephemeral; Geometry is only drawn, never persisted.
type TripQuote struct {
	DistanceKm  float64       `json:"distance_km"`
	DurationMin int           `json:"duration_min"`
	FareDirect  types.Money   `json:"fare_direct"`
	FarePooled  types.Money   `json:"fare_pooled"`
	Geometry    []types.Point `json:"-"`
}

func (q TripQuote) FareFor(class pricing.RideClass) types.Money {
	if class == pricing.ClassPooled {
		return q.FarePooled
	}
	return q.FareDirect
}

// QuoteError means no quote could be produced; the UI offers a retry.
type QuoteError struct {
	Err error
}

func (e *QuoteError) Error() string {
	return fmt.Sprintf("quote unavailable: %v", e.Err)
}

func (e *QuoteError) Unwrap() error {
	return e.Err
}

// Status is what the view needs from the pipeline.
type Status struct {
	Quote    *TripQuote
	Class    pricing.RideClass
	Busy     bool
	Err      error
	CanRetry bool
}
