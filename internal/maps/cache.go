package maps

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"mototaxi/internal/types"
)

// CachedGeocoder memoises labels in Redis keyed by the coordinate rounded to
// four decimals (about 11 m). Cache failures degrade to the inner geocoder.
type CachedGeocoder struct {
	inner Geocoder
	rdb   *redis.Client
	ttl   time.Duration
	log   logrus.FieldLogger
}

func NewCachedGeocoder(inner Geocoder, rdb *redis.Client, ttl time.Duration, log logrus.FieldLogger) *CachedGeocoder {
	return &CachedGeocoder{inner: inner, rdb: rdb, ttl: ttl, log: log}
}

func labelKey(p types.Point) string {
	return fmt.Sprintf("geocode:label:%.4f:%.4f", p.Lat, p.Lng)
}

func (c *CachedGeocoder) ReverseGeocode(ctx context.Context, p types.Point) (string, error) {
	key := labelKey(p)
	label, err := c.rdb.Get(ctx, key).Result()
	if err == nil && label != "" {
		return label, nil
	}
	if err != nil && !errors.Is(err, redis.Nil) {
		c.log.WithError(err).Warn("geocode cache read failed")
	}

	label, err = c.inner.ReverseGeocode(ctx, p)
	if err != nil {
		return "", err
	}
	if err := c.rdb.Set(ctx, key, label, c.ttl).Err(); err != nil {
		c.log.WithError(err).Warn("geocode cache write failed")
	}
	return label, nil
}
