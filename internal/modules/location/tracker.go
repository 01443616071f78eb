// README: Tracker polls the assigned driver's position and keeps the driver
// marker on the map current. At most one poll loop runs at a time.
package location

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"mototaxi/internal/mapview"
	"mototaxi/internal/observability"
	"mototaxi/internal/types"
)

const DefaultInterval = 4 * time.Second

// Surface is the part of the map the tracker draws on.
type Surface interface {
	SetMarker(kind mapview.MarkerKind, p types.Point, label string)
	RemoveMarker(kind mapview.MarkerKind)
}

type tickerFunc func(d time.Duration) (<-chan time.Time, func())

func systemTicker(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

type handle struct {
	driverID types.ID
	cancel   context.CancelFunc
	done     chan struct{}
}

type Tracker struct {
	source    PositionSource
	surface   Surface
	interval  time.Duration
	log       logrus.FieldLogger
	newTicker tickerFunc

	mu       sync.Mutex
	current  *handle
	pickup   types.Point
	last     *Update
	onUpdate func(Update)
}

func NewTracker(source PositionSource, surface Surface, interval time.Duration, log logrus.FieldLogger) *Tracker {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Tracker{
		source:    source,
		surface:   surface,
		interval:  interval,
		log:       log,
		newTicker: systemTicker,
	}
}

// OnUpdate registers fn to receive every successful poll.
func (t *Tracker) OnUpdate(fn func(Update)) {
	t.mu.Lock()
	t.onUpdate = fn
	t.mu.Unlock()
}

// Follow starts polling driverID, replacing any loop for another driver.
// An empty id stops polling and removes the driver marker. Following the
// same driver again only refreshes the pickup point.
func (t *Tracker) Follow(ctx context.Context, driverID types.ID, pickup types.Point) {
	if driverID == "" {
		t.Stop()
		return
	}

	t.mu.Lock()
	t.pickup = pickup
	if t.current != nil && t.current.driverID == driverID {
		t.mu.Unlock()
		return
	}
	prev := t.current
	t.current = nil
	t.last = nil
	t.mu.Unlock()
	if prev != nil {
		stopHandle(prev)
		// the old driver's position must not stand in for the new one
		t.surface.RemoveMarker(mapview.MarkerDriver)
	}

	loopCtx, cancel := context.WithCancel(ctx)
	h := &handle{driverID: driverID, cancel: cancel, done: make(chan struct{})}

	t.mu.Lock()
	if t.current != nil {
		// a concurrent Follow won
		t.mu.Unlock()
		cancel()
		return
	}
	t.current = h
	t.mu.Unlock()

	t.log.WithField("driver_id", driverID).Info("tracking driver")
	go t.run(loopCtx, h)
}

// Stop cancels the poll loop, waits for it to exit, and removes the driver
// marker.
func (t *Tracker) Stop() {
	t.mu.Lock()
	h := t.current
	t.current = nil
	t.last = nil
	t.mu.Unlock()

	if h != nil {
		stopHandle(h)
		t.log.WithField("driver_id", h.driverID).Info("tracking stopped")
	}
	t.surface.RemoveMarker(mapview.MarkerDriver)
}

func stopHandle(h *handle) {
	if h == nil {
		return
	}
	h.cancel()
	<-h.done
}

// Following returns the driver being tracked, or "".
func (t *Tracker) Following() types.ID {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current == nil {
		return ""
	}
	return t.current.driverID
}

// Last returns the most recent update for the current driver.
func (t *Tracker) Last() (Update, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.last == nil {
		return Update{}, false
	}
	return *t.last, true
}

func (t *Tracker) run(ctx context.Context, h *handle) {
	defer close(h.done)
	defer func() {
		if r := recover(); r != nil {
			t.log.WithField("panic", r).Error("tracker loop panicked")
		}
	}()

	ticks, stop := t.newTicker(t.interval)
	defer stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticks:
			t.tick(ctx, h)
		}
	}
}

func (t *Tracker) tick(ctx context.Context, h *handle) {
	log := t.log.WithField("driver_id", h.driverID)

	pos, err := t.source.DriverPosition(ctx, h.driverID)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		observability.TrackingTicksTotal.WithLabelValues("dropped").Inc()
		if errors.Is(err, ErrNoPosition) {
			log.Debug("driver has no position yet")
		} else {
			log.WithError(err).Debug("driver position poll failed")
		}
		return
	}

	t.mu.Lock()
	if t.current != h || ctx.Err() != nil {
		t.mu.Unlock()
		return
	}
	u := Update{Position: pos, PickupKm: DistanceKm(pos.Point, t.pickup)}
	t.last = &u
	fn := t.onUpdate
	t.mu.Unlock()

	// Stop waits for this goroutine before removing the marker.
	t.surface.SetMarker(mapview.MarkerDriver, pos.Point, "")

	observability.TrackingTicksTotal.WithLabelValues("ok").Inc()
	if fn != nil {
		fn(u)
	}
}
