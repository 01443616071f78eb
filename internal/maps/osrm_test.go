package maps

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mototaxi/internal/types"
)

func TestOSRMClient_Route(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`{"code":"Ok","routes":[{"distance":10000,"duration":600,
			"geometry":{"coordinates":[[-88.025,15.5048],[-88.01,15.51]]}}]}`))
	}))
	defer srv.Close()

	c := NewOSRMClient(srv.URL + "/")
	route, err := c.Route(context.Background(), types.Point{Lat: 15.5048, Lng: -88.025}, types.Point{Lat: 15.51, Lng: -88.01})
	require.NoError(t, err)

	assert.Equal(t, "/route/v1/driving/-88.025000,15.504800;-88.010000,15.510000", gotPath)
	assert.Equal(t, "overview=full&geometries=geojson", gotQuery)
	assert.Equal(t, 10000.0, route.DistanceMeters)
	assert.Equal(t, 600.0, route.DurationSeconds)
	require.Len(t, route.Geometry, 2)
	assert.Equal(t, types.Point{Lat: 15.5048, Lng: -88.025}, route.Geometry[0])
}

func TestOSRMClient_NoRoute(t *testing.T) {
	for _, body := range []string{`{"code":"NoRoute","routes":[]}`, `{"code":"Ok","routes":[]}`} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(body))
		}))
		_, err := NewOSRMClient(srv.URL).Route(context.Background(), types.Point{}, types.Point{Lat: 1})
		srv.Close()
		assert.ErrorIs(t, err, ErrNoRoute, body)
	}
}

func TestOSRMClient_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`<html>bad gateway</html>`))
	}))
	defer srv.Close()

	_, err := NewOSRMClient(srv.URL).Route(context.Background(), types.Point{}, types.Point{Lat: 1})
	var adapterErr *AdapterError
	require.True(t, errors.As(err, &adapterErr))
	assert.Equal(t, "osrm", adapterErr.Provider)
}
