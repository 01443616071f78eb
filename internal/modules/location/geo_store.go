// README: Driver positions kept in a Redis GEO set.
package location

import (
	"context"

	"github.com/redis/go-redis/v9"

	"mototaxi/internal/types"
)

// DriversGeoKey is the GEO set the driver app writes positions into.
const DriversGeoKey = "geo:drivers"

type GeoStore struct {
	redis *redis.Client
	key   string
}

func NewGeoStore(rdb *redis.Client) *GeoStore {
	return &GeoStore{redis: rdb, key: DriversGeoKey}
}

func (s *GeoStore) SetDriverPosition(ctx context.Context, driverID types.ID, p types.Point) error {
	return s.redis.GeoAdd(ctx, s.key, &redis.GeoLocation{
		Name:      string(driverID),
		Longitude: p.Lng,
		Latitude:  p.Lat,
	}).Err()
}

func (s *GeoStore) DriverPosition(ctx context.Context, driverID types.ID) (Position, error) {
	res, err := s.redis.GeoPos(ctx, s.key, string(driverID)).Result()
	if err != nil {
		return Position{}, err
	}
	if len(res) == 0 || res[0] == nil {
		return Position{}, ErrNoPosition
	}
	return Position{
		DriverID: driverID,
		Point:    types.Point{Lat: res[0].Latitude, Lng: res[0].Longitude},
	}, nil
}
