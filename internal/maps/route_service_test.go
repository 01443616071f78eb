package maps

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gmaps "googlemaps.github.io/maps"

	"mototaxi/internal/types"
)

func googleServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRouteService_Route(t *testing.T) {
	srv := googleServer(t, `{"status":"OK","routes":[{
		"summary":"CA-5",
		"legs":[{"distance":{"text":"10 km","value":10000},"duration":{"text":"10 mins","value":600}}],
		"overview_polyline":{"points":"_p~iF~ps|U_ulLnnqC_mqNvxq`+"`"+`@"}}]}`)

	svc, err := NewRouteService("test-key", gmaps.WithBaseURL(srv.URL))
	require.NoError(t, err)

	route, err := svc.Route(context.Background(), types.Point{Lat: 38.5, Lng: -120.2}, types.Point{Lat: 43.252, Lng: -126.453})
	require.NoError(t, err)
	assert.Equal(t, 10000.0, route.DistanceMeters)
	assert.Equal(t, 600.0, route.DurationSeconds)
	require.Len(t, route.Geometry, 3)
	assert.InDelta(t, 38.5, route.Geometry[0].Lat, 1e-5)
	assert.InDelta(t, -126.453, route.Geometry[2].Lng, 1e-5)
}

func TestRouteService_ZeroResults(t *testing.T) {
	srv := googleServer(t, `{"status":"ZERO_RESULTS","routes":[]}`)
	svc, err := NewRouteService("test-key", gmaps.WithBaseURL(srv.URL))
	require.NoError(t, err)

	_, err = svc.Route(context.Background(), types.Point{}, types.Point{Lat: 1})
	assert.ErrorIs(t, err, ErrNoRoute)
}

func TestRouteService_DeniedIsAdapterError(t *testing.T) {
	srv := googleServer(t, `{"status":"REQUEST_DENIED","error_message":"bad key","routes":[]}`)
	svc, err := NewRouteService("test-key", gmaps.WithBaseURL(srv.URL))
	require.NoError(t, err)

	_, err = svc.Route(context.Background(), types.Point{}, types.Point{Lat: 1})
	var adapterErr *AdapterError
	assert.ErrorAs(t, err, &adapterErr)
}

func TestGeocodeService_ReverseGeocode(t *testing.T) {
	srv := googleServer(t, `{"status":"OK","results":[{"formatted_address":"3 Calle, San Pedro Sula, Honduras"}]}`)
	svc, err := NewGeocodeService("test-key", gmaps.WithBaseURL(srv.URL))
	require.NoError(t, err)

	label, err := svc.ReverseGeocode(context.Background(), types.Point{Lat: 15.5, Lng: -88})
	require.NoError(t, err)
	assert.Equal(t, "3 Calle", label)
}

func TestGeocodeService_Empty(t *testing.T) {
	srv := googleServer(t, `{"status":"ZERO_RESULTS","results":[]}`)
	svc, err := NewGeocodeService("test-key", gmaps.WithBaseURL(srv.URL))
	require.NoError(t, err)

	_, err = svc.ReverseGeocode(context.Background(), types.Point{})
	assert.ErrorIs(t, err, ErrNoLabel)
}
