package maps

import (
	"context"
	"errors"

	"mototaxi/internal/retry"
	"mototaxi/internal/types"
)

// Empty results are answers, not failures; only adapter errors are retried.
func retryable(err error) error {
	if errors.Is(err, ErrNoRoute) || errors.Is(err, ErrNoLabel) {
		return retry.Permanent(err)
	}
	return err
}

type retryingRouter struct {
	inner Router
	r     *retry.Retrier
}

// WithRouteRetry bounds every Route call by the retrier's attempts and timeout.
func WithRouteRetry(inner Router, r *retry.Retrier) Router {
	return &retryingRouter{inner: inner, r: r}
}

func (rr *retryingRouter) Route(ctx context.Context, origin, destination types.Point) (Route, error) {
	var out Route
	err := rr.r.Do(ctx, "route", func(ctx context.Context) error {
		route, err := rr.inner.Route(ctx, origin, destination)
		if err != nil {
			return retryable(err)
		}
		out = route
		return nil
	})
	return out, err
}

type retryingGeocoder struct {
	inner Geocoder
	r     *retry.Retrier
}

func WithGeocodeRetry(inner Geocoder, r *retry.Retrier) Geocoder {
	return &retryingGeocoder{inner: inner, r: r}
}

func (rg *retryingGeocoder) ReverseGeocode(ctx context.Context, p types.Point) (string, error) {
	var label string
	err := rg.r.Do(ctx, "reverse geocode", func(ctx context.Context) error {
		l, err := rg.inner.ReverseGeocode(ctx, p)
		if err != nil {
			return retryable(err)
		}
		label = l
		return nil
	})
	return label, err
}
