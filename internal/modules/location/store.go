// README: Driver positions read from the drivers table in Postgres.
package location

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"mototaxi/internal/types"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// DriverPosition returns ErrNoPosition when the driver row is missing or
// has never reported coordinates.
func (s *Store) DriverPosition(ctx context.Context, driverID types.ID) (Position, error) {
	var lat, lng *float64
	err := s.db.QueryRow(ctx, `SELECT lat, lng FROM drivers WHERE id = $1`, string(driverID)).Scan(&lat, &lng)
	if errors.Is(err, pgx.ErrNoRows) {
		return Position{}, ErrNoPosition
	}
	if err != nil {
		return Position{}, err
	}
	if lat == nil || lng == nil {
		return Position{}, ErrNoPosition
	}
	return Position{DriverID: driverID, Point: types.Point{Lat: *lat, Lng: *lng}}, nil
}
