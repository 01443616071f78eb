// README: RiderSession wires selection, quoting, the ride machine, tracking,
// and the change feed for one rider, and turns their state into a View.
package service

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"mototaxi/internal/mapview"
	"mototaxi/internal/maps"
	"mototaxi/internal/modules/location"
	"mototaxi/internal/modules/pricing"
	"mototaxi/internal/modules/quote"
	"mototaxi/internal/modules/realtime"
	"mototaxi/internal/modules/ride"
	"mototaxi/internal/modules/selection"
	"mototaxi/internal/types"
)

type Deps struct {
	RiderID          types.ID
	Router           maps.Router
	Geocoder         maps.Geocoder
	Fares            quote.FareEstimator
	Rides            ride.RideStore
	Positions        location.PositionSource
	Changes          realtime.Source
	TrackingInterval time.Duration
	MaxBackoff       time.Duration
	Center           types.Point
	Log              logrus.FieldLogger
}

type RiderSession struct {
	ctx        context.Context
	log        logrus.FieldLogger
	layers     *mapview.Layers
	pipeline   *quote.Pipeline
	selection  *selection.Controller
	machine    *ride.Machine
	tracker    *location.Tracker
	reconciler *realtime.Reconciler

	dirty chan struct{}

	mu            sync.Mutex
	lastConfirmed types.ID
	nextSub       int
	subs          map[int]func(View)

	wg sync.WaitGroup
}

// NewRiderSession builds the session. ctx bounds every background task the
// session starts; cancel it to shut down.
func NewRiderSession(ctx context.Context, d Deps) *RiderSession {
	log := d.Log.WithField("rider_id", d.RiderID)
	center := d.Center
	if center == (types.Point{}) || !center.Valid() {
		center = types.DefaultCenter
	}

	s := &RiderSession{
		ctx:   ctx,
		log:   log,
		dirty: make(chan struct{}, 1),
		subs:  make(map[int]func(View)),
	}
	s.layers = mapview.NewLayers(center)
	s.pipeline = quote.NewPipeline(d.Router, d.Fares, s.layers, log.WithField("component", "quote"))
	s.selection = selection.NewController(ctx, d.Geocoder, s.layers, s.pipeline, log.WithField("component", "selection"))
	s.machine = ride.NewMachine(d.Rides, d.RiderID, log.WithField("component", "ride"))
	s.tracker = location.NewTracker(d.Positions, s.layers, d.TrackingInterval, log.WithField("component", "tracker"))
	if d.Changes != nil {
		s.reconciler = realtime.NewReconciler(d.Changes, s.machine, s.tracker, d.RiderID, d.MaxBackoff, log.WithField("component", "realtime"))
	}

	s.layers.Subscribe(func(mapview.State) { s.markDirty() })
	s.pipeline.OnChange(s.markDirty)
	s.selection.OnChange(s.markDirty)
	s.tracker.OnUpdate(func(location.Update) { s.markDirty() })
	s.machine.Subscribe(s.onSnapshot)
	return s
}

// Run loads the active ride, starts the change feed, and pushes a View to
// subscribers after every change until ctx is cancelled.
func (s *RiderSession) Run(ctx context.Context) {
	if err := s.machine.Reload(ctx); err != nil {
		s.log.WithError(err).Warn("initial ride load failed")
	}
	if s.reconciler != nil {
		s.safeGo("realtime", func() { s.reconciler.Run(ctx) })
	}
	s.markDirty()

	for {
		select {
		case <-ctx.Done():
			s.tracker.Stop()
			s.selection.Wait()
			s.wg.Wait()
			return
		case <-s.dirty:
			s.broadcast(s.View())
		}
	}
}

func (s *RiderSession) safeGo(name string, fn func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				s.log.WithFields(logrus.Fields{"task": name, "panic": r}).Error("session task panicked")
			}
		}()
		fn()
	}()
}

func (s *RiderSession) markDirty() {
	select {
	case s.dirty <- struct{}{}:
	default:
	}
}

// onSnapshot keeps tracking and the request form in step with the ride.
func (s *RiderSession) onSnapshot(snap ride.Snapshot) {
	v := ride.Render(snap, ride.Prompt{})
	if v.Tracking {
		s.tracker.Follow(s.ctx, snap.DriverID(), snap.Ride.Origin.Point)
	} else {
		s.tracker.Follow(s.ctx, "", types.Point{})
	}

	if snap.Phase == ride.PhaseConfirmed {
		var id types.ID
		if snap.Ride != nil {
			id = snap.Ride.ID
		}
		s.mu.Lock()
		ended := id == "" && s.lastConfirmed != ""
		s.lastConfirmed = id
		s.mu.Unlock()
		if ended {
			s.selection.Reset()
			s.pipeline.Reset()
		}
	}
	s.markDirty()
}

// Subscribe registers fn to receive a View after every change.
func (s *RiderSession) Subscribe(fn func(View)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()
	s.markDirty()
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *RiderSession) broadcast(v View) {
	s.mu.Lock()
	subs := make([]func(View), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()
	for _, fn := range subs {
		fn(v)
	}
}

func (s *RiderSession) View() View {
	snap := s.machine.Snapshot()
	v := View{View: ride.Render(snap, s.machine.Prompt()), SyncedAt: snap.LastSyncedAt}

	v.PickMode = s.selection.Mode()
	v.PanelCollapsed = v.PickMode != selection.ModeNone
	v.Origin, v.Destination = s.selection.Points()

	st := s.pipeline.Status()
	v.RideClass = st.Class
	v.Quote = quoteView(st.Quote)
	v.QuoteBusy = st.Busy
	v.QuoteError = quoteErrorText(st.Err)
	v.CanRetryQuote = st.CanRetry
	v.CanSubmit = v.Panel == ride.PanelRequestForm && v.Origin != nil && v.Destination != nil && st.Quote != nil && !st.Busy

	if v.Tracking {
		v.TrackedDriver = s.tracker.Following()
		if u, ok := s.tracker.Last(); ok {
			v.DriverPosition = &u
		}
	}
	v.Map = s.layers.State()
	return v
}

func (s *RiderSession) MapState() mapview.State {
	return s.layers.State()
}

func (s *RiderSession) BeginPick(target string) error {
	mode, err := selection.ParseTarget(target)
	if err != nil {
		return err
	}
	return s.selection.BeginPick(mode)
}

// Tap forwards a map tap; it reports whether anything was armed to take it.
func (s *RiderSession) Tap(p types.Point) bool {
	return s.layers.Tap(p)
}

func (s *RiderSession) DeviceLocation(p types.Point) {
	s.selection.AutoPick(p)
}

func (s *RiderSession) SetRideClass(ctx context.Context, class string) error {
	rc, err := pricing.ParseRideClass(class)
	if err != nil {
		return err
	}
	return s.pipeline.SetRideClass(ctx, rc)
}

func (s *RiderSession) RetryQuote(ctx context.Context) (quote.TripQuote, error) {
	return s.pipeline.Retry(ctx)
}

// Submit requests a ride for the picked points at the quoted fare.
func (s *RiderSession) Submit(ctx context.Context) (*ride.Ride, error) {
	origin, dest := s.selection.Points()
	cmd := ride.SubmitCommand{Origin: origin, Destination: dest}
	q, class, ok := s.pipeline.Current()
	cmd.Class = class
	if ok {
		cmd.Quote = &q
	}
	return s.machine.Submit(ctx, cmd)
}

func (s *RiderSession) Cancel(ctx context.Context) error {
	return s.machine.Cancel(ctx)
}

func (s *RiderSession) Rate(ctx context.Context, score int, comment string) error {
	return s.machine.Rate(ctx, score, comment)
}

func (s *RiderSession) DismissRating() {
	s.machine.DismissPrompt()
}

func (s *RiderSession) Reload(ctx context.Context) error {
	return s.machine.Reload(ctx)
}
