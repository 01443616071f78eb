// README: In-memory map overlay model; the UI draws whatever State it is pushed.
package mapview

import (
	"math"
	"sort"
	"sync"

	"mototaxi/internal/types"
)

type MarkerKind string

const (
	MarkerOrigin      MarkerKind = "origin"
	MarkerDestination MarkerKind = "destination"
	MarkerDriver      MarkerKind = "driver"
	MarkerUser        MarkerKind = "user"
)

type Marker struct {
	Kind     MarkerKind  `json:"kind"`
	Position types.Point `json:"position"`
	Label    string      `json:"label,omitempty"`
}

type Bounds struct {
	SouthWest types.Point `json:"south_west"`
	NorthEast types.Point `json:"north_east"`
}

// State is an immutable copy of the overlays at one revision.
type State struct {
	Revision uint64        `json:"revision"`
	Center   types.Point   `json:"center"`
	Markers  []Marker      `json:"markers"`
	Route    []types.Point `json:"route,omitempty"`
	Fit      *Bounds       `json:"fit,omitempty"`
	TapArmed bool          `json:"tap_armed"`
}

type TapHandler func(types.Point)

// Layers holds the overlays. At most one tap handler is registered at a time.
type Layers struct {
	mu       sync.Mutex
	center   types.Point
	markers  map[MarkerKind]Marker
	route    []types.Point
	fit      *Bounds
	tap      TapHandler
	revision uint64
	nextSub  int
	subs     map[int]func(State)
}

func NewLayers(center types.Point) *Layers {
	return &Layers{
		center:  center,
		markers: make(map[MarkerKind]Marker),
		subs:    make(map[int]func(State)),
	}
}

// Subscribe registers fn for every change and returns the unsubscribe func.
func (l *Layers) Subscribe(fn func(State)) func() {
	l.mu.Lock()
	id := l.nextSub
	l.nextSub++
	l.subs[id] = fn
	l.mu.Unlock()
	return func() {
		l.mu.Lock()
		delete(l.subs, id)
		l.mu.Unlock()
	}
}

// mutate applies fn under the lock and then notifies subscribers.
func (l *Layers) mutate(fn func() bool) {
	l.mu.Lock()
	if !fn() {
		l.mu.Unlock()
		return
	}
	l.revision++
	st := l.snapshotLocked()
	subs := make([]func(State), 0, len(l.subs))
	for _, s := range l.subs {
		subs = append(subs, s)
	}
	l.mu.Unlock()

	for _, s := range subs {
		s(st)
	}
}

func (l *Layers) SetCenter(p types.Point) {
	l.mutate(func() bool {
		l.center = p
		return true
	})
}

func (l *Layers) SetMarker(kind MarkerKind, p types.Point, label string) {
	l.mutate(func() bool {
		l.markers[kind] = Marker{Kind: kind, Position: p, Label: label}
		return true
	})
}

func (l *Layers) RemoveMarker(kind MarkerKind) {
	l.mutate(func() bool {
		if _, ok := l.markers[kind]; !ok {
			return false
		}
		delete(l.markers, kind)
		return true
	})
}

// DrawRoute replaces the route line.
func (l *Layers) DrawRoute(path []types.Point) {
	cp := append([]types.Point(nil), path...)
	l.mutate(func() bool {
		l.route = cp
		return true
	})
}

func (l *Layers) ClearRoute() {
	l.mutate(func() bool {
		if l.route == nil && l.fit == nil {
			return false
		}
		l.route = nil
		l.fit = nil
		return true
	})
}

// FitBounds asks the viewport to show every given point.
func (l *Layers) FitBounds(points ...types.Point) {
	b, ok := boundsOf(points)
	if !ok {
		return
	}
	l.mutate(func() bool {
		l.fit = &b
		return true
	})
}

// OnTap registers the single tap handler, replacing any previous one.
func (l *Layers) OnTap(h TapHandler) {
	l.mutate(func() bool {
		l.tap = h
		return true
	})
}

func (l *Layers) ClearTap() {
	l.mutate(func() bool {
		if l.tap == nil {
			return false
		}
		l.tap = nil
		return true
	})
}

// Tap delivers a user tap to the registered handler. It reports whether a
// handler was registered.
func (l *Layers) Tap(p types.Point) bool {
	l.mu.Lock()
	h := l.tap
	l.mu.Unlock()
	if h == nil {
		return false
	}
	h(p)
	return true
}

func (l *Layers) Marker(kind MarkerKind) (Marker, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.markers[kind]
	return m, ok
}

func (l *Layers) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshotLocked()
}

func (l *Layers) snapshotLocked() State {
	st := State{
		Revision: l.revision,
		Center:   l.center,
		Markers:  make([]Marker, 0, len(l.markers)),
		Route:    append([]types.Point(nil), l.route...),
		TapArmed: l.tap != nil,
	}
	for _, m := range l.markers {
		st.Markers = append(st.Markers, m)
	}
	sort.Slice(st.Markers, func(i, j int) bool { return st.Markers[i].Kind < st.Markers[j].Kind })
	if l.fit != nil {
		b := *l.fit
		st.Fit = &b
	}
	return st
}

func boundsOf(points []types.Point) (Bounds, bool) {
	if len(points) == 0 {
		return Bounds{}, false
	}
	b := Bounds{
		SouthWest: types.Point{Lat: math.Inf(1), Lng: math.Inf(1)},
		NorthEast: types.Point{Lat: math.Inf(-1), Lng: math.Inf(-1)},
	}
	for _, p := range points {
		b.SouthWest.Lat = math.Min(b.SouthWest.Lat, p.Lat)
		b.SouthWest.Lng = math.Min(b.SouthWest.Lng, p.Lng)
		b.NorthEast.Lat = math.Max(b.NorthEast.Lat, p.Lat)
		b.NorthEast.Lng = math.Max(b.NorthEast.Lng, p.Lng)
	}
	return b, true
}
