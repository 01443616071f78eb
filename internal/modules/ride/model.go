// README: Ride aggregate, lifecycle states, and the client-side snapshot.
package ride

import (
	"time"

	"mototaxi/internal/modules/pricing"
	"mototaxi/internal/types"
)

type State string

const (
	StateSearching       State = "searching"
	StateAssigned        State = "assigned"
	StateAccepted        State = "accepted"
	StateEnRoute         State = "en_route"
	StateInProgress      State = "in_progress"
	StateCompleted       State = "completed"
	StateRiderCancelled  State = "rider_cancelled"
	StateDriverCancelled State = "driver_cancelled"
)

// ActiveStates are the non-terminal states, in lifecycle order.
var ActiveStates = []State{StateSearching, StateAssigned, StateAccepted, StateEnRoute, StateInProgress}

func (s State) IsTerminal() bool {
	switch s {
	case StateCompleted, StateRiderCancelled, StateDriverCancelled:
		return true
	}
	return false
}

func (s State) IsCancelled() bool {
	return s == StateRiderCancelled || s == StateDriverCancelled
}

// CanCancel reports whether the rider may still cancel. Once the trip is in
// progress only completion is possible.
func (s State) CanCancel() bool {
	switch s {
	case StateSearching, StateAssigned, StateAccepted, StateEnRoute:
		return true
	}
	return false
}

// Driver is the card shown once a driver is assigned.
type Driver struct {
	ID           types.ID `json:"id"`
	Name         string   `json:"name"`
	Phone        string   `json:"phone"`
	Plate        string   `json:"plate"`
	VehicleModel string   `json:"vehicle_model"`
	Color        string   `json:"color"`
}

type Ride struct {
	ID            types.ID          `json:"id"`
	RiderID       types.ID          `json:"rider_id"`
	RideClass     pricing.RideClass `json:"ride_class"`
	Fare          types.Money       `json:"fare"`
	DistanceKm    float64           `json:"distance_km"`
	EtaMin        int               `json:"eta_min"`
	Origin        types.RidePoint   `json:"origin"`
	Destination   types.RidePoint   `json:"destination"`
	State         State             `json:"state"`
	DriverID      *types.ID         `json:"driver_id,omitempty"`
	RequestedAt   time.Time         `json:"requested_at"`
	DriverRating  *int              `json:"driver_rating,omitempty"`
	RatingComment *string           `json:"rating_comment,omitempty"`
	Driver        *Driver           `json:"driver,omitempty"`
}

func (r *Ride) clone() *Ride {
	if r == nil {
		return nil
	}
	cp := *r
	if r.DriverID != nil {
		d := *r.DriverID
		cp.DriverID = &d
	}
	if r.Driver != nil {
		d := *r.Driver
		cp.Driver = &d
	}
	return &cp
}

type Phase string

const (
	// PhaseTentative marks a locally built ride not yet confirmed by a reload.
	PhaseTentative Phase = "tentative"
	PhaseConfirmed Phase = "confirmed"
)

// Snapshot is the local mirror of the active ride. A nil Ride means none.
type Snapshot struct {
	Ride         *Ride     `json:"ride"`
	LastSyncedAt time.Time `json:"last_synced_at"`
	Phase        Phase     `json:"phase"`
}

// DriverID returns the assigned driver or "" when there is none.
func (s Snapshot) DriverID() types.ID {
	if s.Ride == nil || s.Ride.DriverID == nil {
		return ""
	}
	return *s.Ride.DriverID
}
