// README: Ride change notifications and the feeds that deliver them.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"mototaxi/internal/modules/ride"
	"mototaxi/internal/types"
)

var (
	ErrMalformed = errors.New("realtime: malformed change payload")
	errPanicked  = errors.New("realtime: change handler panicked")
)

// RowImage is the slice of a rides row carried by a notification.
type RowImage struct {
	ID       types.ID   `json:"id"`
	RiderID  types.ID   `json:"rider_id"`
	State    ride.State `json:"state"`
	DriverID *types.ID  `json:"driver_id,omitempty"`
}

// Change is one row-level event. Old is nil for inserts.
type Change struct {
	Old *RowImage `json:"old"`
	New *RowImage `json:"new"`
}

func (c Change) RiderID() types.ID {
	if c.New != nil {
		return c.New.RiderID
	}
	if c.Old != nil {
		return c.Old.RiderID
	}
	return ""
}

func ParseChange(payload []byte) (Change, error) {
	var c Change
	if err := json.Unmarshal(payload, &c); err != nil {
		return Change{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if c.New == nil && c.Old == nil {
		return Change{}, ErrMalformed
	}
	return c, nil
}

// Source delivers the rider's ride changes until ctx ends (nil) or the
// feed breaks (non-nil). ready is called once the subscription is live,
// before the first delivery.
type Source interface {
	Listen(ctx context.Context, riderID types.ID, ready func(), deliver func(Change)) error
}
