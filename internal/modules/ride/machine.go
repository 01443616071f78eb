// README: Ride lifecycle state machine; sole writer of the client snapshot.
package ride

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"mototaxi/internal/modules/pricing"
	"mototaxi/internal/modules/quote"
	"mototaxi/internal/observability"
	"mototaxi/internal/types"
)

type RideStore interface {
	Insert(ctx context.Context, r *Ride) error
	ListActive(ctx context.Context, riderID types.ID) ([]Ride, error)
	Cancel(ctx context.Context, id types.ID) error
	Rate(ctx context.Context, id types.ID, score int, comment string) error
}

type SubmitCommand struct {
	Origin      *types.RidePoint
	Destination *types.RidePoint
	Quote       *quote.TripQuote
	Class       pricing.RideClass
}

// Machine owns the snapshot. Store calls run outside the lock. Local writes
// and reload starts draw from one sequence: a reload commits only if it
// started after the last local write and after the last committed reload.
type Machine struct {
	store   RideStore
	riderID types.ID
	log     logrus.FieldLogger
	now     func() time.Time

	notifyMu      sync.Mutex
	mu            sync.Mutex
	snap          Snapshot
	seq           uint64
	localSeq      uint64
	reloadSeq     uint64
	lastCompleted types.ID
	promptPending bool
	nextSub       int
	subs          map[int]func(Snapshot)
}

func NewMachine(store RideStore, riderID types.ID, log logrus.FieldLogger) *Machine {
	return &Machine{
		store:   store,
		riderID: riderID,
		log:     log.WithField("rider_id", riderID),
		now:     time.Now,
		snap:    Snapshot{Phase: PhaseConfirmed},
		subs:    make(map[int]func(Snapshot)),
	}
}

// Subscribe registers fn for every snapshot or prompt change.
func (m *Machine) Subscribe(fn func(Snapshot)) func() {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

// writeLocked commits a local mutation, overtaking every reload in flight.
func (m *Machine) writeLocked(r *Ride, phase Phase) {
	m.seq++
	m.localSeq = m.seq
	m.commitLocked(r, phase)
}

// commitLocked replaces the snapshot. Callers publish after unlocking.
func (m *Machine) commitLocked(r *Ride, phase Phase) {
	m.snap = Snapshot{Ride: r.clone(), LastSyncedAt: m.snap.LastSyncedAt, Phase: phase}
	if phase == PhaseConfirmed {
		m.snap.LastSyncedAt = m.now()
	}
}

// publish delivers the latest snapshot to subscribers, one delivery at a
// time. Subscribers must not call back into the machine's mutating methods.
func (m *Machine) publish() {
	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()

	m.mu.Lock()
	snap := m.snapshotLocked()
	subs := make([]func(Snapshot), 0, len(m.subs))
	for _, s := range m.subs {
		subs = append(subs, s)
	}
	m.mu.Unlock()

	for _, s := range subs {
		s(snap)
	}
}

func (m *Machine) snapshotLocked() Snapshot {
	s := m.snap
	s.Ride = m.snap.Ride.clone()
	return s
}

func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// Prompt reports whether the rating prompt is showing and for which ride.
func (m *Machine) Prompt() Prompt {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Prompt{RideID: m.lastCompleted, Pending: m.promptPending}
}

// Submit creates a searching ride. Validation failures never reach the store.
func (m *Machine) Submit(ctx context.Context, cmd SubmitCommand) (*Ride, error) {
	if cmd.Origin == nil || cmd.Destination == nil {
		return nil, m.rejectSubmission(ErrMissingPoint)
	}
	if cmd.Quote == nil {
		return nil, m.rejectSubmission(ErrMissingQuote)
	}
	class := cmd.Class
	if class == "" {
		class = pricing.ClassDirect
	}

	r := &Ride{
		ID:          types.NewID(),
		RiderID:     m.riderID,
		RideClass:   class,
		Fare:        cmd.Quote.FareFor(class),
		DistanceKm:  cmd.Quote.DistanceKm,
		EtaMin:      cmd.Quote.DurationMin,
		Origin:      *cmd.Origin,
		Destination: *cmd.Destination,
		State:       StateSearching,
		RequestedAt: m.now().UTC(),
	}

	m.mu.Lock()
	if m.snap.Ride != nil {
		m.mu.Unlock()
		return nil, m.rejectSubmission(ErrActiveRide)
	}
	m.writeLocked(r, PhaseTentative)
	m.mu.Unlock()
	m.publish()

	log := m.log.WithField("ride_id", r.ID)
	if err := m.store.Insert(ctx, r); err != nil {
		m.mu.Lock()
		rolledBack := m.snap.Ride != nil && m.snap.Ride.ID == r.ID
		if rolledBack {
			// nothing was synced, so LastSyncedAt stays put
			m.writeLocked(nil, PhaseTentative)
		}
		m.mu.Unlock()
		if rolledBack {
			m.publish()
		}
		observability.SubmissionsTotal.WithLabelValues("rejected").Inc()
		log.WithError(err).Warn("ride insert rejected")
		return nil, &SubmissionError{Err: err}
	}
	observability.SubmissionsTotal.WithLabelValues("ok").Inc()
	log.WithFields(logrus.Fields{"class": class, "fare": r.Fare.Amount}).Info("ride requested")

	if err := m.Reload(ctx); err != nil {
		log.WithError(err).Warn("confirmatory reload failed, keeping tentative ride")
	}
	return r.clone(), nil
}

func (m *Machine) rejectSubmission(err error) error {
	observability.SubmissionsTotal.WithLabelValues("invalid").Inc()
	return &SubmissionError{Err: err}
}

// Reload replaces the snapshot with the rider's newest non-terminal ride, or
// none. Among overlapping reloads the last one started wins; any reload
// overtaken by a local write is dropped.
func (m *Machine) Reload(ctx context.Context) error {
	m.mu.Lock()
	m.seq++
	start := m.seq
	m.mu.Unlock()

	rides, err := m.store.ListActive(ctx, m.riderID)
	if err != nil {
		observability.ReloadsTotal.WithLabelValues("error").Inc()
		return err
	}

	var latest *Ride
	for i := range rides {
		if latest == nil || rides[i].RequestedAt.After(latest.RequestedAt) {
			latest = &rides[i]
		}
	}
	if len(rides) > 1 {
		ids := make([]types.ID, len(rides))
		for i := range rides {
			ids[i] = rides[i].ID
		}
		m.log.WithFields(logrus.Fields{"ride_ids": ids, "kept": latest.ID}).Warn("multiple active rides, keeping newest")
	}

	m.mu.Lock()
	if start < m.localSeq || start < m.reloadSeq {
		m.mu.Unlock()
		observability.ReloadsTotal.WithLabelValues("stale").Inc()
		m.log.WithField("start", start).Debug("discarding reload overtaken by a newer write or reload")
		return nil
	}
	m.reloadSeq = start
	m.commitLocked(latest, PhaseConfirmed)
	m.mu.Unlock()
	m.publish()

	observability.ReloadsTotal.WithLabelValues("ok").Inc()
	return nil
}

// Cancel clears the active ride optimistically and writes rider_cancelled.
// On failure the snapshot is reloaded and the error returned.
func (m *Machine) Cancel(ctx context.Context) error {
	m.mu.Lock()
	if m.snap.Ride == nil {
		m.mu.Unlock()
		return ErrNoActiveRide
	}
	if !m.snap.Ride.State.CanCancel() {
		m.mu.Unlock()
		return ErrNotCancellable
	}
	id := m.snap.Ride.ID
	m.writeLocked(nil, PhaseTentative)
	m.mu.Unlock()
	m.publish()

	if err := m.store.Cancel(ctx, id); err != nil {
		m.log.WithError(err).WithField("ride_id", id).Warn("cancel failed, reloading")
		if rerr := m.Reload(ctx); rerr != nil {
			m.log.WithError(rerr).Warn("reload after failed cancel")
		}
		return err
	}
	m.log.WithField("ride_id", id).Info("ride cancelled by rider")
	return nil
}

// Rate scores the last completed ride. Re-rating overwrites.
func (m *Machine) Rate(ctx context.Context, score int, comment string) error {
	m.mu.Lock()
	id := m.lastCompleted
	m.mu.Unlock()
	if id == "" {
		return ErrNothingToRate
	}
	if score < 1 || score > 5 {
		return ErrInvalidScore
	}
	if err := m.store.Rate(ctx, id, score, comment); err != nil {
		return err
	}

	m.mu.Lock()
	m.promptPending = false
	m.mu.Unlock()
	m.publish()
	m.log.WithFields(logrus.Fields{"ride_id": id, "score": score}).Info("driver rated")
	return nil
}

// DismissPrompt hides the rating prompt without rating.
func (m *Machine) DismissPrompt() {
	m.mu.Lock()
	if !m.promptPending {
		m.mu.Unlock()
		return
	}
	m.promptPending = false
	m.mu.Unlock()
	m.publish()
}

// MarkCompleted records id as the ride to rate, raises the prompt, and clears
// the snapshot if it still shows that ride.
func (m *Machine) MarkCompleted(id types.ID) {
	m.mu.Lock()
	m.lastCompleted = id
	m.promptPending = true
	if m.snap.Ride != nil && m.snap.Ride.ID == id {
		m.writeLocked(nil, PhaseTentative)
	}
	m.mu.Unlock()
	m.publish()
}

// Clear drops the snapshot if it still shows ride id.
func (m *Machine) Clear(id types.ID) bool {
	m.mu.Lock()
	if m.snap.Ride == nil || m.snap.Ride.ID != id {
		m.mu.Unlock()
		return false
	}
	m.writeLocked(nil, PhaseTentative)
	m.mu.Unlock()
	m.publish()
	return true
}
