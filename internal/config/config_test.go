package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("MOTO_RIDER_ID", "rider-1")

	cfg, err := load(viper.New())
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, "rider-1", cfg.Rider.ID)
	assert.Equal(t, 4*time.Second, cfg.Tracking.Interval)
	assert.Equal(t, ProviderOSRM, cfg.Maps.Router)
	assert.Equal(t, ProviderNominatim, cfg.Maps.Geocoder)
	assert.Equal(t, 15.0, cfg.Fare.PerKmRate)
	assert.Equal(t, 30.0, cfg.Fare.MinimumFare)
	assert.Equal(t, 0.3, cfg.Fare.PooledDiscount)
	assert.Equal(t, 3, cfg.Adapter.Attempts)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("MOTO_RIDER_ID", "rider-1")
	t.Setenv("MOTO_TRACKING_INTERVAL", "2s")
	t.Setenv("MOTO_TRACKING_SOURCE", SourceRedis)
	t.Setenv("MOTO_FARE_PER_KM_RATE", "20")

	cfg, err := load(viper.New())
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, cfg.Tracking.Interval)
	assert.Equal(t, SourceRedis, cfg.Tracking.Source)
	assert.Equal(t, 20.0, cfg.Fare.PerKmRate)
}

func TestLoad_MissingRider(t *testing.T) {
	_, err := load(viper.New())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MOTO_RIDER_ID")
}

func TestLoad_GoogleNeedsKey(t *testing.T) {
	t.Setenv("MOTO_RIDER_ID", "rider-1")
	t.Setenv("MOTO_MAPS_ROUTER", ProviderGoogle)

	_, err := load(viper.New())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GOOGLE_API_KEY")
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "moto.yaml")
	body := "rider:\n  id: from-file\nhttp:\n  addr: \":9090\"\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	t.Setenv("MOTO_CONFIG", path)

	cfg, err := load(viper.New())
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.Rider.ID)
	assert.Equal(t, ":9090", cfg.HTTP.Addr)
}
