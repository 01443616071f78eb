package mapview

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mototaxi/internal/types"
)

func TestLayers_Markers(t *testing.T) {
	l := NewLayers(types.DefaultCenter)
	l.SetMarker(MarkerOrigin, types.Point{Lat: 1, Lng: 2}, "A")
	l.SetMarker(MarkerDestination, types.Point{Lat: 3, Lng: 4}, "B")
	l.SetMarker(MarkerOrigin, types.Point{Lat: 5, Lng: 6}, "A2")

	st := l.State()
	require.Len(t, st.Markers, 2)
	assert.Equal(t, MarkerDestination, st.Markers[0].Kind)
	assert.Equal(t, "A2", st.Markers[1].Label)

	l.RemoveMarker(MarkerOrigin)
	_, ok := l.Marker(MarkerOrigin)
	assert.False(t, ok)
}

func TestLayers_RouteAndFit(t *testing.T) {
	l := NewLayers(types.DefaultCenter)
	path := []types.Point{{Lat: 1, Lng: -3}, {Lat: 2, Lng: -1}, {Lat: 0, Lng: -2}}
	l.DrawRoute(path)
	l.FitBounds(path...)

	st := l.State()
	assert.Equal(t, path, st.Route)
	require.NotNil(t, st.Fit)
	assert.Equal(t, types.Point{Lat: 0, Lng: -3}, st.Fit.SouthWest)
	assert.Equal(t, types.Point{Lat: 2, Lng: -1}, st.Fit.NorthEast)

	l.ClearRoute()
	st = l.State()
	assert.Empty(t, st.Route)
	assert.Nil(t, st.Fit)
}

func TestLayers_SingleTapHandler(t *testing.T) {
	l := NewLayers(types.DefaultCenter)
	assert.False(t, l.Tap(types.Point{}))

	var first, second int
	l.OnTap(func(types.Point) { first++ })
	l.OnTap(func(types.Point) { second++ })
	assert.True(t, l.State().TapArmed)
	assert.True(t, l.Tap(types.Point{}))
	assert.Equal(t, 0, first)
	assert.Equal(t, 1, second)

	l.ClearTap()
	assert.False(t, l.Tap(types.Point{}))
	assert.False(t, l.State().TapArmed)
}

func TestLayers_HandlerMayMutate(t *testing.T) {
	l := NewLayers(types.DefaultCenter)
	l.OnTap(func(p types.Point) {
		l.SetMarker(MarkerOrigin, p, "")
		l.ClearTap()
	})
	l.Tap(types.Point{Lat: 9, Lng: 9})
	m, ok := l.Marker(MarkerOrigin)
	require.True(t, ok)
	assert.Equal(t, 9.0, m.Position.Lat)
}

func TestLayers_Subscribe(t *testing.T) {
	l := NewLayers(types.DefaultCenter)
	var revisions []uint64
	unsubscribe := l.Subscribe(func(st State) { revisions = append(revisions, st.Revision) })

	l.SetMarker(MarkerUser, types.Point{}, "")
	l.RemoveMarker(MarkerDriver) // no-op, no notification
	l.RemoveMarker(MarkerUser)
	unsubscribe()
	l.SetCenter(types.Point{Lat: 1})

	assert.Equal(t, []uint64{1, 2}, revisions)
	assert.Equal(t, uint64(3), l.State().Revision)
}
