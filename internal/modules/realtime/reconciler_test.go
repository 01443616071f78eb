package realtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mototaxi/internal/modules/ride"
	"mototaxi/internal/observability"
	"mototaxi/internal/types"
)

const rider = types.ID("rider-1")

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

type fakeMachine struct {
	mu        sync.Mutex
	snap      ride.Snapshot
	reloads   int
	completed []types.ID
	cleared   []types.ID
	reloadErr error
	onReload  func(*fakeMachine)
}

func (f *fakeMachine) Reload(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reloads++
	if f.onReload != nil {
		f.onReload(f)
	}
	return f.reloadErr
}

func (f *fakeMachine) MarkCompleted(id types.ID) {
	f.mu.Lock()
	f.completed = append(f.completed, id)
	f.mu.Unlock()
}

func (f *fakeMachine) Clear(id types.ID) bool {
	f.mu.Lock()
	f.cleared = append(f.cleared, id)
	f.mu.Unlock()
	return true
}

func (f *fakeMachine) Snapshot() ride.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap
}

type countingStopper struct{ n int }

func (c *countingStopper) Stop() { c.n++ }

func change(id types.ID, oldState, newState ride.State) Change {
	c := Change{New: &RowImage{ID: id, RiderID: rider, State: newState}}
	if oldState != "" {
		c.Old = &RowImage{ID: id, RiderID: rider, State: oldState}
	}
	return c
}

func TestHandle_CompletedPromptsOncePerRide(t *testing.T) {
	m := &fakeMachine{}
	r := NewReconciler(nil, m, nil, rider, 0, quietLogger())
	ctx := context.Background()

	r.Handle(ctx, change("r1", ride.StateInProgress, ride.StateCompleted))
	r.Handle(ctx, change("r1", ride.StateInProgress, ride.StateCompleted))

	assert.Equal(t, []types.ID{"r1"}, m.completed)
	assert.Equal(t, 2, m.reloads)
}

func TestHandle_CancelledClearsAndStopsTracking(t *testing.T) {
	m := &fakeMachine{}
	stopper := &countingStopper{}
	r := NewReconciler(nil, m, stopper, rider, 0, quietLogger())
	ctx := context.Background()

	r.Handle(ctx, change("r1", ride.StateAssigned, ride.StateDriverCancelled))
	r.Handle(ctx, change("r1", ride.StateAssigned, ride.StateDriverCancelled))

	assert.Equal(t, []types.ID{"r1"}, m.cleared)
	assert.Equal(t, 1, stopper.n)
	assert.Empty(t, m.completed)
	assert.Equal(t, 2, m.reloads)
}

func TestHandle_RemembersOnlyRecentTerminalRides(t *testing.T) {
	m := &fakeMachine{}
	r := NewReconciler(nil, m, nil, rider, 0, quietLogger())
	ctx := context.Background()

	for i := 0; i < handledWindow+4; i++ {
		r.Handle(ctx, change(types.ID(fmt.Sprintf("r%d", i)), ride.StateInProgress, ride.StateCompleted))
	}
	assert.Len(t, r.handled, handledWindow)
	assert.Len(t, m.completed, handledWindow+4)

	last := types.ID(fmt.Sprintf("r%d", handledWindow+3))
	r.Handle(ctx, change(last, ride.StateInProgress, ride.StateCompleted))
	assert.Len(t, m.completed, handledWindow+4, "a recent duplicate must not prompt again")
}

func TestHandle_OtherStatesOnlyReload(t *testing.T) {
	m := &fakeMachine{snap: ride.Snapshot{Ride: &ride.Ride{ID: "r1", State: ride.StateAssigned}}}
	r := NewReconciler(nil, m, nil, rider, 0, quietLogger())

	r.Handle(context.Background(), change("r1", ride.StateSearching, ride.StateAssigned))
	assert.Equal(t, 1, m.reloads)
	assert.Empty(t, m.cleared)
	assert.Empty(t, m.completed)
}

func TestHandle_IgnoresOtherRiders(t *testing.T) {
	m := &fakeMachine{}
	r := NewReconciler(nil, m, nil, rider, 0, quietLogger())

	c := change("r1", "", ride.StateSearching)
	c.New.RiderID = "someone-else"
	r.Handle(context.Background(), c)
	assert.Equal(t, 0, m.reloads)
}

func TestHandle_DriftIsCountedNotSurfaced(t *testing.T) {
	m := &fakeMachine{snap: ride.Snapshot{Ride: &ride.Ride{ID: "r1", State: ride.StateSearching}}}
	r := NewReconciler(nil, m, nil, rider, 0, quietLogger())
	before := testutil.ToFloat64(observability.SyncDriftTotal)

	r.Handle(context.Background(), change("r1", ride.StateSearching, ride.StateAssigned))
	assert.Equal(t, before+1, testutil.ToFloat64(observability.SyncDriftTotal))

	m.snap = ride.Snapshot{Ride: &ride.Ride{ID: "r1", State: ride.StateAccepted}}
	r.Handle(context.Background(), change("r1", ride.StateAssigned, ride.StateAccepted))
	assert.Equal(t, before+1, testutil.ToFloat64(observability.SyncDriftTotal))
}

func TestHandle_ReloadFailureIsLoggedOnly(t *testing.T) {
	m := &fakeMachine{reloadErr: errors.New("timeout")}
	r := NewReconciler(nil, m, nil, rider, 0, quietLogger())
	r.Handle(context.Background(), change("r1", ride.StateInProgress, ride.StateCompleted))
	assert.Equal(t, []types.ID{"r1"}, m.completed)
}

type scriptedSource struct {
	mu      sync.Mutex
	calls   int
	results []error
	changes []Change
}

func (s *scriptedSource) Listen(ctx context.Context, _ types.ID, ready func(), deliver func(Change)) error {
	s.mu.Lock()
	n := s.calls
	s.calls++
	s.mu.Unlock()

	if n < len(s.results) {
		return s.results[n]
	}
	ready()
	for _, c := range s.changes {
		deliver(c)
	}
	<-ctx.Done()
	return nil
}

func (s *scriptedSource) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func TestRun_ResubscribesAfterFailure(t *testing.T) {
	src := &scriptedSource{
		results: []error{errors.New("conn reset"), errors.New("conn reset")},
		changes: []Change{change("r1", ride.StateInProgress, ride.StateCompleted)},
	}
	m := &fakeMachine{}
	r := NewReconciler(src, m, nil, rider, 5*time.Millisecond, quietLogger())
	r.baseBackoff = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		m.mu.Lock()
		defer m.mu.Unlock()
		return len(m.completed) == 1
	}, time.Second, 2*time.Millisecond)
	assert.Equal(t, 3, src.callCount())

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func runReconciler(t *testing.T, r *Reconciler) func() {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()
	return func() {
		cancel()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("Run did not return after cancel")
		}
	}
}

func TestRun_ReloadsWhenFeedComesBack(t *testing.T) {
	src := &scriptedSource{results: []error{errors.New("conn reset")}}
	m := &fakeMachine{}
	r := NewReconciler(src, m, nil, rider, 5*time.Millisecond, quietLogger())
	r.baseBackoff = time.Millisecond
	stop := runReconciler(t, r)
	defer stop()

	require.Eventually(t, func() bool {
		m.mu.Lock()
		defer m.mu.Unlock()
		return m.reloads == 1
	}, time.Second, 2*time.Millisecond)
	assert.Equal(t, 2, src.callCount())
}

func TestRun_FirstSubscribeDoesNotReload(t *testing.T) {
	src := &scriptedSource{}
	m := &fakeMachine{}
	r := NewReconciler(src, m, nil, rider, 0, quietLogger())
	stop := runReconciler(t, r)

	require.Eventually(t, func() bool { return src.callCount() == 1 }, time.Second, 2*time.Millisecond)
	stop()
	assert.Equal(t, 0, m.reloads)
}

func TestParseChange(t *testing.T) {
	c, err := ParseChange([]byte(`{"old":null,"new":{"id":"r1","rider_id":"rider-1","state":"searching","driver_id":null}}`))
	require.NoError(t, err)
	assert.Nil(t, c.Old)
	assert.Equal(t, ride.StateSearching, c.New.State)
	assert.Nil(t, c.New.DriverID)
	assert.Equal(t, rider, c.RiderID())

	c, err = ParseChange([]byte(`{"old":{"id":"r1","rider_id":"rider-1","state":"searching"},"new":{"id":"r1","rider_id":"rider-1","state":"assigned","driver_id":"d7"}}`))
	require.NoError(t, err)
	require.NotNil(t, c.New.DriverID)
	assert.Equal(t, types.ID("d7"), *c.New.DriverID)

	_, err = ParseChange([]byte(`not json`))
	assert.ErrorIs(t, err, ErrMalformed)
	_, err = ParseChange([]byte(`{}`))
	assert.ErrorIs(t, err, ErrMalformed)
}
