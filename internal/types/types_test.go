package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "L 150.00", FormatAmount(Lempira(150)))
	assert.Equal(t, "L 0.00", FormatAmount(Money{}))
}

func TestPointPlaceholder(t *testing.T) {
	p := Point{Lat: 15.50481234, Lng: -88.02501}
	assert.Equal(t, "15.5048, -88.0250", p.Placeholder())
	assert.Equal(t, "15.504812,-88.025010", p.LatLng())
}

func TestPointValid(t *testing.T) {
	assert.True(t, DefaultCenter.Valid())
	assert.False(t, Point{Lat: 91}.Valid())
	assert.False(t, Point{Lng: -181}.Valid())
}

func TestNewID(t *testing.T) {
	a, b := NewID(), NewID()
	assert.NotEqual(t, a, b)
	assert.False(t, a.IsZero())
	assert.Len(t, a.String(), 36)
}
