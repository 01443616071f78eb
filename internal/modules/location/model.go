// README: Driver positions as seen by the rider while a ride is assigned.
package location

import (
	"context"
	"errors"
	"time"

	"mototaxi/internal/types"
)

// ErrNoPosition means the source has no coordinates for the driver yet.
var ErrNoPosition = errors.New("location: driver position unknown")

type Position struct {
	DriverID   types.ID    `json:"driver_id"`
	Point      types.Point `json:"point"`
	RecordedAt time.Time   `json:"recorded_at,omitempty"`
}

// PositionSource fetches the latest known position of one driver.
type PositionSource interface {
	DriverPosition(ctx context.Context, driverID types.ID) (Position, error)
}

// Update is published after every successful poll.
type Update struct {
	Position
	PickupKm float64 `json:"pickup_km"`
}
