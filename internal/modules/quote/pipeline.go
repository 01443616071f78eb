// README: Route and fare pipeline: router call, duration buffer, fares, route overlay.
package quote

import (
	"context"
	"errors"
	"math"
	"sync"

	"github.com/sirupsen/logrus"

	"mototaxi/internal/maps"
	"mototaxi/internal/modules/pricing"
	"mototaxi/internal/observability"
	"mototaxi/internal/types"
)

type FareEstimator interface {
	Estimate(distanceKm float64, class pricing.RideClass) types.Money
}

type RouteLayer interface {
	DrawRoute(path []types.Point)
	ClearRoute()
	FitBounds(points ...types.Point)
}

type Pipeline struct {
	router maps.Router
	fares  FareEstimator
	layer  RouteLayer
	log    logrus.FieldLogger

	mu       sync.Mutex
	seq      uint64
	busy     bool
	quote    *TripQuote
	err      error
	class    pricing.RideClass
	origin   *types.Point
	dest     *types.Point
	onChange func()
}

func NewPipeline(router maps.Router, fares FareEstimator, layer RouteLayer, log logrus.FieldLogger) *Pipeline {
	return &Pipeline{router: router, fares: fares, layer: layer, log: log, class: pricing.ClassDirect}
}

// OnChange registers a callback fired after every status change.
func (p *Pipeline) OnChange(fn func()) {
	p.mu.Lock()
	p.onChange = fn
	p.mu.Unlock()
}

func (p *Pipeline) notify() {
	p.mu.Lock()
	fn := p.onChange
	p.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Job finishes a prepared quote computation.
type Job func(ctx context.Context) (TripQuote, error)

// Prepare claims the next sequence number for the trip and marks the
// pipeline busy without notifying. Results of jobs prepared earlier are
// discarded once this one is prepared.
func (p *Pipeline) Prepare(origin, destination types.Point) Job {
	p.mu.Lock()
	p.seq++
	seq := p.seq
	p.busy = true
	p.origin, p.dest = &origin, &destination
	p.mu.Unlock()

	return func(ctx context.Context) (TripQuote, error) {
		return p.run(ctx, seq, origin, destination)
	}
}

// Compute quotes the trip. A call overtaken by a newer one returns
// ErrSuperseded and leaves state untouched.
func (p *Pipeline) Compute(ctx context.Context, origin, destination types.Point) (TripQuote, error) {
	return p.Prepare(origin, destination)(ctx)
}

func (p *Pipeline) run(ctx context.Context, seq uint64, origin, destination types.Point) (TripQuote, error) {
	p.notify()

	route, err := p.router.Route(ctx, origin, destination)

	p.mu.Lock()
	if seq != p.seq {
		p.mu.Unlock()
		return TripQuote{}, ErrSuperseded
	}
	p.busy = false
	if err != nil {
		p.quote = nil
		p.err = &QuoteError{Err: err}
		p.mu.Unlock()

		observability.QuotesTotal.WithLabelValues("error").Inc()
		p.log.WithError(err).Warn("route quote failed")
		p.layer.ClearRoute()
		p.notify()
		return TripQuote{}, &QuoteError{Err: err}
	}

	distanceKm := route.DistanceMeters / 1000
	q := TripQuote{
		DistanceKm:  distanceKm,
		DurationMin: BufferedMinutes(route.DurationSeconds),
		FareDirect:  p.fares.Estimate(distanceKm, pricing.ClassDirect),
		FarePooled:  p.fares.Estimate(distanceKm, pricing.ClassPooled),
		Geometry:    route.Geometry,
	}
	p.quote = &q
	p.err = nil
	p.mu.Unlock()

	observability.QuotesTotal.WithLabelValues("ok").Inc()
	p.layer.DrawRoute(q.Geometry)
	p.layer.FitBounds(append([]types.Point{origin, destination}, q.Geometry...)...)
	p.notify()
	return q, nil
}

// BufferedMinutes is ceil(seconds/60 * BufferFactor). The epsilon keeps
// exact products such as 10*1.3 from rounding up a minute.
func BufferedMinutes(seconds float64) int {
	return int(math.Ceil(seconds/60*BufferFactor - 1e-9))
}

// Retry recomputes the last requested trip.
func (p *Pipeline) Retry(ctx context.Context) (TripQuote, error) {
	p.mu.Lock()
	origin, dest := p.origin, p.dest
	p.mu.Unlock()
	if origin == nil || dest == nil {
		return TripQuote{}, ErrNothingToRetry
	}
	return p.Compute(ctx, *origin, *dest)
}

// SetRideClass switches the selected class and silently recomputes when a
// trip is already set.
func (p *Pipeline) SetRideClass(ctx context.Context, class pricing.RideClass) error {
	p.mu.Lock()
	p.class = class
	hasTrip := p.origin != nil && p.dest != nil
	p.mu.Unlock()

	if !hasTrip {
		p.notify()
		return nil
	}
	_, err := p.Retry(ctx)
	if errors.Is(err, ErrSuperseded) {
		return nil
	}
	return err
}

// Reset drops the quote, the remembered trip, and the route overlay. Any
// in-flight computation is superseded.
func (p *Pipeline) Reset() {
	p.mu.Lock()
	p.seq++
	p.busy = false
	p.quote = nil
	p.err = nil
	p.origin, p.dest = nil, nil
	p.mu.Unlock()

	p.layer.ClearRoute()
	p.notify()
}

func (p *Pipeline) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	st := Status{Class: p.class, Busy: p.busy, Err: p.err}
	if p.quote != nil {
		q := *p.quote
		st.Quote = &q
	}
	st.CanRetry = p.err != nil && p.origin != nil && p.dest != nil
	return st
}

// Current returns the quote and selected class, or false if no valid quote
// exists or one is being computed.
func (p *Pipeline) Current() (TripQuote, pricing.RideClass, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.quote == nil || p.busy {
		return TripQuote{}, p.class, false
	}
	return *p.quote, p.class, true
}
