// README: Base handler utilities (JSON helpers, error mapping).
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"mototaxi/internal/mapview"
	"mototaxi/internal/maps"
	"mototaxi/internal/modules/pricing"
	"mototaxi/internal/modules/quote"
	"mototaxi/internal/modules/ride"
	"mototaxi/internal/modules/selection"
	"mototaxi/internal/service"
	"mototaxi/internal/types"
)

// RiderSession is what the handlers drive; *service.RiderSession implements it.
type RiderSession interface {
	View() service.View
	MapState() mapview.State
	BeginPick(target string) error
	Tap(p types.Point) bool
	DeviceLocation(p types.Point)
	SetRideClass(ctx context.Context, class string) error
	RetryQuote(ctx context.Context) (quote.TripQuote, error)
	Submit(ctx context.Context) (*ride.Ride, error)
	Cancel(ctx context.Context) error
	Rate(ctx context.Context, score int, comment string) error
	DismissRating()
	Subscribe(fn func(service.View)) func()
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

func writeRideError(c *gin.Context, err error) {
	var (
		subErr   *ride.SubmissionError
		quoteErr *quote.QuoteError
		adptErr  *maps.AdapterError
	)
	switch {
	case errors.As(err, &subErr) && subErr.Local():
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.As(err, &subErr):
		writeError(c, http.StatusConflict, err.Error())
	case errors.Is(err, ride.ErrInvalidScore),
		errors.Is(err, selection.ErrUnknownTarget),
		errors.Is(err, pricing.ErrUnknownClass):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, ride.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, ride.ErrNoActiveRide),
		errors.Is(err, ride.ErrNotCancellable),
		errors.Is(err, ride.ErrNothingToRate),
		errors.Is(err, quote.ErrNothingToRetry),
		errors.Is(err, quote.ErrSuperseded):
		writeError(c, http.StatusConflict, err.Error())
	case errors.As(err, &quoteErr), errors.As(err, &adptErr), errors.Is(err, maps.ErrNoRoute):
		writeError(c, http.StatusBadGateway, err.Error())
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

type pointReq struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

func (r pointReq) point() (types.Point, bool) {
	if r.Lat == nil || r.Lng == nil {
		return types.Point{}, false
	}
	p := types.Point{Lat: *r.Lat, Lng: *r.Lng}
	return p, p.Valid()
}

func bindPoint(c *gin.Context) (types.Point, bool) {
	var req pointReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return types.Point{}, false
	}
	p, ok := req.point()
	if !ok {
		writeError(c, http.StatusBadRequest, "lat and lng are required and must be in range")
		return types.Point{}, false
	}
	return p, true
}
