// README: View is everything the UI needs to draw the rider screen.
package service

import (
	"errors"
	"time"

	"mototaxi/internal/mapview"
	"mototaxi/internal/maps"
	"mototaxi/internal/modules/location"
	"mototaxi/internal/modules/pricing"
	"mototaxi/internal/modules/quote"
	"mototaxi/internal/modules/ride"
	"mototaxi/internal/modules/selection"
	"mototaxi/internal/types"
)

type QuoteView struct {
	DistanceKm  float64 `json:"distance_km"`
	DurationMin int     `json:"duration_min"`
	FareDirect  string  `json:"fare_direct"`
	FarePooled  string  `json:"fare_pooled"`
}

type View struct {
	ride.View

	PanelCollapsed bool              `json:"panel_collapsed"`
	PickMode       selection.Mode    `json:"pick_mode"`
	Origin         *types.RidePoint  `json:"origin,omitempty"`
	Destination    *types.RidePoint  `json:"destination,omitempty"`
	RideClass      pricing.RideClass `json:"ride_class"`
	Quote          *QuoteView        `json:"quote,omitempty"`
	QuoteBusy      bool              `json:"quote_busy"`
	QuoteError     string            `json:"quote_error,omitempty"`
	CanRetryQuote  bool              `json:"can_retry_quote"`
	CanSubmit      bool              `json:"can_submit"`
	TrackedDriver  types.ID          `json:"tracked_driver,omitempty"`
	DriverPosition *location.Update  `json:"driver_position,omitempty"`
	SyncedAt       time.Time         `json:"synced_at"`
	Map            mapview.State     `json:"map"`
}

func quoteView(q *quote.TripQuote) *QuoteView {
	if q == nil {
		return nil
	}
	return &QuoteView{
		DistanceKm:  q.DistanceKm,
		DurationMin: q.DurationMin,
		FareDirect:  types.FormatAmount(q.FareDirect),
		FarePooled:  types.FormatAmount(q.FarePooled),
	}
}

func quoteErrorText(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, maps.ErrNoRoute):
		return "No hay ruta entre estos puntos"
	default:
		return "No se pudo calcular la ruta"
	}
}
