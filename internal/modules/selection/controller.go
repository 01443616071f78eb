// README: Selection controller; map pick mode, async labels, auto-pick of the origin.
package selection

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"mototaxi/internal/mapview"
	"mototaxi/internal/maps"
	"mototaxi/internal/modules/quote"
	"mototaxi/internal/types"
)

type Mode string

const (
	ModeNone        Mode = "none"
	ModeOrigin      Mode = "origin"
	ModeDestination Mode = "destination"
)

var ErrUnknownTarget = errors.New("unknown pick target")

func ParseTarget(s string) (Mode, error) {
	switch Mode(s) {
	case ModeOrigin, ModeDestination:
		return Mode(s), nil
	}
	return ModeNone, fmt.Errorf("%w: %q", ErrUnknownTarget, s)
}

type Surface interface {
	SetMarker(kind mapview.MarkerKind, p types.Point, label string)
	RemoveMarker(kind mapview.MarkerKind)
	SetCenter(p types.Point)
	OnTap(h mapview.TapHandler)
	ClearTap()
}

type Quoter interface {
	Prepare(origin, destination types.Point) quote.Job
}

type slot struct {
	point *types.RidePoint
	seq   uint64
}

// Controller owns the picked points. ctx bounds the background geocode and
// quote work it starts.
type Controller struct {
	ctx      context.Context
	geocoder maps.Geocoder
	surface  Surface
	quoter   Quoter
	log      logrus.FieldLogger

	mu       sync.Mutex
	mode     Mode
	origin   slot
	dest     slot
	onChange func()

	wg sync.WaitGroup
}

func NewController(ctx context.Context, geocoder maps.Geocoder, surface Surface, quoter Quoter, log logrus.FieldLogger) *Controller {
	return &Controller{ctx: ctx, geocoder: geocoder, surface: surface, quoter: quoter, log: log, mode: ModeNone}
}

func (c *Controller) OnChange(fn func()) {
	c.mu.Lock()
	c.onChange = fn
	c.mu.Unlock()
}

func (c *Controller) notify() {
	c.mu.Lock()
	fn := c.onChange
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// BeginPick arms the map so the next tap sets target.
func (c *Controller) BeginPick(target Mode) error {
	if target != ModeOrigin && target != ModeDestination {
		return fmt.Errorf("%w: %q", ErrUnknownTarget, target)
	}
	c.mu.Lock()
	c.mode = target
	c.mu.Unlock()
	c.surface.OnTap(c.OnMapPick)
	c.notify()
	return nil
}

// OnMapPick stores the tapped point for the armed target. Taps with no armed
// target are ignored.
func (c *Controller) OnMapPick(p types.Point) {
	c.mu.Lock()
	target := c.mode
	if target == ModeNone {
		c.mu.Unlock()
		return
	}
	c.mode = ModeNone
	c.mu.Unlock()

	c.surface.ClearTap()
	c.place(target, p)
}

// AutoPick sets the origin from the device location when none is set yet.
// The user marker is placed either way.
func (c *Controller) AutoPick(p types.Point) {
	c.surface.SetMarker(mapview.MarkerUser, p, "")
	c.surface.SetCenter(p)

	c.mu.Lock()
	hasOrigin := c.origin.point != nil
	c.mu.Unlock()
	if hasOrigin {
		c.notify()
		return
	}
	c.place(ModeOrigin, p)
}

func (c *Controller) place(target Mode, p types.Point) {
	rp := types.NewRidePoint(p)

	c.mu.Lock()
	s := c.slotFor(target)
	s.seq++
	seq := s.seq
	s.point = &rp
	// Prepared under the lock so quote jobs are sequenced in pick order.
	var job quote.Job
	if c.origin.point != nil && c.dest.point != nil {
		job = c.quoter.Prepare(c.origin.point.Point, c.dest.point.Point)
	}
	c.mu.Unlock()

	c.surface.SetMarker(markerFor(target), p, rp.Label)
	c.notify()

	c.spawn("geocode", func(ctx context.Context) { c.resolveLabel(ctx, target, seq, p) })
	if job != nil {
		c.spawn("quote", func(ctx context.Context) {
			// failures are recorded on the pipeline and rendered from there
			_, _ = job(ctx)
		})
	}
}

func (c *Controller) resolveLabel(ctx context.Context, target Mode, seq uint64, p types.Point) {
	label, err := c.geocoder.ReverseGeocode(ctx, p)
	if err != nil {
		c.log.WithError(err).WithField("target", target).Debug("reverse geocode failed, keeping coordinates")
		return
	}

	c.mu.Lock()
	s := c.slotFor(target)
	if s.seq != seq || s.point == nil {
		c.mu.Unlock()
		c.log.WithField("target", target).Debug("discarding stale label")
		return
	}
	updated := *s.point
	updated.Label = label
	s.point = &updated
	c.mu.Unlock()

	c.surface.SetMarker(markerFor(target), p, label)
	c.notify()
}

func (c *Controller) spawn(op string, fn func(ctx context.Context)) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				c.log.WithFields(logrus.Fields{"op": op, "panic": r}).Error("selection task panicked")
			}
		}()
		fn(c.ctx)
	}()
}

// Reset forgets both points and any armed pick. Labels still resolving for
// the old points are discarded.
func (c *Controller) Reset() {
	c.mu.Lock()
	armed := c.mode != ModeNone
	c.mode = ModeNone
	for _, s := range []*slot{&c.origin, &c.dest} {
		s.seq++
		s.point = nil
	}
	c.mu.Unlock()

	if armed {
		c.surface.ClearTap()
	}
	c.surface.RemoveMarker(mapview.MarkerOrigin)
	c.surface.RemoveMarker(mapview.MarkerDestination)
	c.notify()
}

// Wait blocks until background label and quote work has finished.
func (c *Controller) Wait() {
	c.wg.Wait()
}

func (c *Controller) slotFor(target Mode) *slot {
	if target == ModeOrigin {
		return &c.origin
	}
	return &c.dest
}

func markerFor(target Mode) mapview.MarkerKind {
	if target == ModeOrigin {
		return mapview.MarkerOrigin
	}
	return mapview.MarkerDestination
}

func (c *Controller) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// Points returns copies of the picked points; nil means not set.
func (c *Controller) Points() (origin, destination *types.RidePoint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.origin.point != nil {
		o := *c.origin.point
		origin = &o
	}
	if c.dest.point != nil {
		d := *c.dest.point
		destination = &d
	}
	return origin, destination
}
