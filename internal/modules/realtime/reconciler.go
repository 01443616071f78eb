// README: Reconciler turns ride change notifications into snapshot reloads.
// A notification is only a hint; the reload is the source of truth.
package realtime

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"mototaxi/internal/modules/ride"
	"mototaxi/internal/observability"
	"mototaxi/internal/retry"
	"mototaxi/internal/types"
)

const (
	defaultBaseBackoff = 500 * time.Millisecond

	// handledWindow bounds how many terminal rides are remembered for
	// duplicate suppression.
	handledWindow = 16
)

type Machine interface {
	Reload(ctx context.Context) error
	MarkCompleted(id types.ID)
	Clear(id types.ID) bool
	Snapshot() ride.Snapshot
}

type TrackingStopper interface {
	Stop()
}

type Reconciler struct {
	source      Source
	machine     Machine
	tracker     TrackingStopper
	riderID     types.ID
	log         logrus.FieldLogger
	baseBackoff time.Duration
	maxBackoff  time.Duration

	mu      sync.Mutex
	handled []types.ID
}

// NewReconciler wires a change feed to the machine. tracker may be nil.
func NewReconciler(source Source, machine Machine, tracker TrackingStopper, riderID types.ID, maxBackoff time.Duration, log logrus.FieldLogger) *Reconciler {
	if maxBackoff <= 0 {
		maxBackoff = 30 * time.Second
	}
	return &Reconciler{
		source:      source,
		machine:     machine,
		tracker:     tracker,
		riderID:     riderID,
		log:         log.WithField("rider_id", riderID),
		baseBackoff: defaultBaseBackoff,
		maxBackoff:  maxBackoff,
	}
}

// Run listens until ctx is cancelled, re-subscribing with backoff whenever
// the feed fails. Changes missed while the feed was down are picked up by a
// reload as soon as the new subscription is live.
func (r *Reconciler) Run(ctx context.Context) {
	failures := 0
	for attempt := 0; ; attempt++ {
		resubscribed := attempt > 0
		delivered := false
		err := r.listen(ctx, func() {
			if resubscribed {
				r.log.Info("ride change feed re-established, reloading")
				r.reload(ctx, nil)
			}
		}, func(c Change) {
			delivered = true
			r.Handle(ctx, c)
		})
		if ctx.Err() != nil {
			return
		}
		if delivered {
			failures = 0
		}
		wait := retry.Backoff(failures, r.baseBackoff, r.maxBackoff)
		failures++
		r.log.WithError(err).WithField("retry_in", wait).Warn("ride change feed lost, resubscribing")

		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

func (r *Reconciler) listen(ctx context.Context, ready func(), deliver func(Change)) (err error) {
	defer func() {
		if p := recover(); p != nil {
			r.log.WithField("panic", p).Error("ride change handler panicked")
			err = errPanicked
		}
	}()
	return r.source.Listen(ctx, r.riderID, ready, deliver)
}

// Handle applies one notification. Terminal transitions are acted on once per
// ride; every notification triggers a reload.
func (r *Reconciler) Handle(ctx context.Context, c Change) {
	if c.RiderID() != r.riderID {
		return
	}
	if c.New == nil {
		observability.NotificationsTotal.WithLabelValues("delete").Inc()
		r.reload(ctx, nil)
		return
	}

	hint := c.New
	observability.NotificationsTotal.WithLabelValues(string(hint.State)).Inc()
	log := r.log.WithFields(logrus.Fields{"ride_id": hint.ID, "state": hint.State})

	switch {
	case hint.State == ride.StateCompleted:
		if r.firstTerminal(hint) {
			r.machine.MarkCompleted(hint.ID)
			log.Info("ride completed, asking for rating")
		}
	case hint.State.IsCancelled():
		if r.firstTerminal(hint) {
			r.machine.Clear(hint.ID)
			if r.tracker != nil {
				r.tracker.Stop()
			}
			log.Info("ride cancelled")
		}
	default:
		log.Debug("ride changed")
	}

	r.reload(ctx, hint)
}

func (r *Reconciler) firstTerminal(hint *RowImage) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if slices.Contains(r.handled, hint.ID) {
		return false
	}
	r.handled = append(r.handled, hint.ID)
	if len(r.handled) > handledWindow {
		r.handled = slices.Delete(r.handled, 0, len(r.handled)-handledWindow)
	}
	return true
}

func (r *Reconciler) reload(ctx context.Context, hint *RowImage) {
	if err := r.machine.Reload(ctx); err != nil {
		if ctx.Err() == nil {
			r.log.WithError(err).Warn("reload after notification failed")
		}
		return
	}
	if hint != nil {
		r.checkDrift(hint)
	}
}

// checkDrift compares the hint with what the reload produced. Disagreement is
// logged and counted only.
func (r *Reconciler) checkDrift(hint *RowImage) {
	snap := r.machine.Snapshot()
	drift := false
	var got ride.State
	switch {
	case hint.State.IsTerminal():
		drift = snap.Ride != nil && snap.Ride.ID == hint.ID
		if drift {
			got = snap.Ride.State
		}
	case snap.Ride == nil:
		drift = true
	default:
		got = snap.Ride.State
		drift = snap.Ride.ID != hint.ID || got != hint.State
	}
	if !drift {
		return
	}
	observability.SyncDriftTotal.Inc()
	r.log.WithFields(logrus.Fields{
		"ride_id":  hint.ID,
		"hinted":   hint.State,
		"reloaded": got,
	}).Debug("sync drift between notification and reload")
}
