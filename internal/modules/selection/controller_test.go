package selection

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mototaxi/internal/mapview"
	"mototaxi/internal/maps"
	"mototaxi/internal/modules/pricing"
	"mototaxi/internal/modules/quote"
	"mototaxi/internal/types"
)

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// gatedGeocoder answers each call with the label queued for it, optionally
// waiting on a gate first.
type gatedGeocoder struct {
	mu      sync.Mutex
	calls   int
	answers []geoAnswer
	started chan int
}

type geoAnswer struct {
	label string
	err   error
	gate  chan struct{}
}

func (g *gatedGeocoder) ReverseGeocode(ctx context.Context, _ types.Point) (string, error) {
	g.mu.Lock()
	i := g.calls
	g.calls++
	a := g.answers[i]
	g.mu.Unlock()
	if g.started != nil {
		g.started <- i
	}
	if a.gate != nil {
		<-a.gate
	}
	return a.label, a.err
}

type countingRouter struct {
	mu    sync.Mutex
	calls int
}

func (r *countingRouter) Route(context.Context, types.Point, types.Point) (maps.Route, error) {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
	return maps.Route{DistanceMeters: 4000, DurationSeconds: 480}, nil
}

type fares struct{}

func (fares) Estimate(km float64, class pricing.RideClass) types.Money {
	return pricing.Fare(km, class, pricing.DefaultConfig())
}

func newController(t *testing.T, geo maps.Geocoder) (*Controller, *mapview.Layers, *quote.Pipeline, *countingRouter) {
	t.Helper()
	layers := mapview.NewLayers(types.DefaultCenter)
	router := &countingRouter{}
	pipeline := quote.NewPipeline(router, fares{}, layers, quietLogger())
	c := NewController(context.Background(), geo, layers, pipeline, quietLogger())
	return c, layers, pipeline, router
}

var (
	here  = types.Point{Lat: 15.5048, Lng: -88.0250}
	there = types.Point{Lat: 15.5300, Lng: -88.0000}
)

func TestBeginPick_ArmsSingleTap(t *testing.T) {
	c, layers, _, _ := newController(t, &gatedGeocoder{answers: []geoAnswer{{label: "Centro"}}})

	assert.False(t, layers.Tap(here), "no handler before pick mode")
	require.NoError(t, c.BeginPick(ModeOrigin))
	assert.Equal(t, ModeOrigin, c.Mode())
	assert.True(t, layers.State().TapArmed)

	assert.True(t, layers.Tap(here))
	c.Wait()

	assert.Equal(t, ModeNone, c.Mode())
	assert.False(t, layers.State().TapArmed)
	origin, dest := c.Points()
	require.NotNil(t, origin)
	assert.Nil(t, dest)
	assert.Equal(t, "Centro", origin.Label)
	m, ok := layers.Marker(mapview.MarkerOrigin)
	require.True(t, ok)
	assert.Equal(t, "Centro", m.Label)
}

func TestBeginPick_UnknownTarget(t *testing.T) {
	c, _, _, _ := newController(t, &gatedGeocoder{})
	assert.ErrorIs(t, c.BeginPick(ModeNone), ErrUnknownTarget)
	_, err := ParseTarget("waypoint")
	assert.ErrorIs(t, err, ErrUnknownTarget)
}

func TestOnMapPick_IgnoredWithoutMode(t *testing.T) {
	geo := &gatedGeocoder{}
	c, layers, _, _ := newController(t, geo)
	c.OnMapPick(here)
	c.Wait()

	origin, dest := c.Points()
	assert.Nil(t, origin)
	assert.Nil(t, dest)
	assert.Empty(t, layers.State().Markers)
	assert.Equal(t, 0, geo.calls)
}

func TestOnMapPick_GeocodeFailureKeepsPlaceholder(t *testing.T) {
	c, _, _, _ := newController(t, &gatedGeocoder{answers: []geoAnswer{{err: errors.New("timeout")}}})
	require.NoError(t, c.BeginPick(ModeDestination))
	c.OnMapPick(there)
	c.Wait()

	_, dest := c.Points()
	require.NotNil(t, dest)
	assert.Equal(t, "15.5300, -88.0000", dest.Label)
}

func TestOnMapPick_StaleLabelDiscarded(t *testing.T) {
	firstGate := make(chan struct{})
	geo := &gatedGeocoder{
		answers: []geoAnswer{{label: "Old place", gate: firstGate}, {label: "New place"}},
		started: make(chan int, 2),
	}
	c, layers, _, _ := newController(t, geo)

	require.NoError(t, c.BeginPick(ModeOrigin))
	c.OnMapPick(here)
	<-geo.started

	require.NoError(t, c.BeginPick(ModeOrigin))
	c.OnMapPick(there)
	<-geo.started

	close(firstGate)
	c.Wait()

	origin, _ := c.Points()
	require.NotNil(t, origin)
	assert.Equal(t, there, origin.Point)
	assert.Equal(t, "New place", origin.Label)
	m, _ := layers.Marker(mapview.MarkerOrigin)
	assert.Equal(t, "New place", m.Label)
}

func TestBothPointsTriggerQuote(t *testing.T) {
	c, layers, pipeline, router := newController(t, &gatedGeocoder{answers: []geoAnswer{{label: "A"}, {label: "B"}}})

	require.NoError(t, c.BeginPick(ModeOrigin))
	layers.Tap(here)
	c.Wait()
	assert.Equal(t, 0, router.calls)

	require.NoError(t, c.BeginPick(ModeDestination))
	layers.Tap(there)
	c.Wait()
	assert.Equal(t, 1, router.calls)

	q, _, ok := pipeline.Current()
	require.True(t, ok)
	assert.Equal(t, 4.0, q.DistanceKm)
	assert.Equal(t, 11, q.DurationMin)
	assert.Equal(t, int64(60), q.FareDirect.Amount)
}

func TestAutoPick(t *testing.T) {
	c, layers, _, _ := newController(t, &gatedGeocoder{answers: []geoAnswer{{label: "Mi ubicación"}}})
	require.NoError(t, c.BeginPick(ModeDestination))

	c.AutoPick(here)
	c.Wait()

	assert.Equal(t, ModeDestination, c.Mode(), "auto-pick leaves pick mode alone")
	assert.True(t, layers.State().TapArmed)
	origin, _ := c.Points()
	require.NotNil(t, origin)
	assert.Equal(t, "Mi ubicación", origin.Label)
	_, ok := layers.Marker(mapview.MarkerUser)
	assert.True(t, ok)
	assert.Equal(t, here, layers.State().Center)

	// a second fix moves the user marker but keeps the chosen origin
	c.AutoPick(there)
	c.Wait()
	origin, _ = c.Points()
	assert.Equal(t, here, origin.Point)
	m, _ := layers.Marker(mapview.MarkerUser)
	assert.Equal(t, there, m.Position)
}

func TestReset_DropsPointsAndPendingLabels(t *testing.T) {
	gate := make(chan struct{})
	geo := &gatedGeocoder{answers: []geoAnswer{{label: "Parque Central", gate: gate}}, started: make(chan int, 1)}
	c, layers, _, _ := newController(t, geo)

	require.NoError(t, c.BeginPick(ModeOrigin))
	c.OnMapPick(here)
	<-geo.started
	require.NoError(t, c.BeginPick(ModeDestination))

	c.Reset()
	close(gate)
	c.Wait()

	origin, dest := c.Points()
	assert.Nil(t, origin)
	assert.Nil(t, dest)
	assert.Equal(t, ModeNone, c.Mode())
	assert.False(t, layers.State().TapArmed)
	_, ok := layers.Marker(mapview.MarkerOrigin)
	assert.False(t, ok, "late label must not redraw the origin marker")
}
