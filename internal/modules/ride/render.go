package ride

import "mototaxi/internal/types"

type Panel string

const (
	PanelRequestForm Panel = "request_form"
	PanelSearching   Panel = "searching"
	PanelDriver      Panel = "driver"
	PanelInProgress  Panel = "in_progress"
	PanelRating      Panel = "rating"
)

// Prompt is the rating prompt state; RideID is the last completed ride.
type Prompt struct {
	RideID  types.ID `json:"ride_id,omitempty"`
	Pending bool     `json:"pending"`
}

type View struct {
	Panel        Panel    `json:"panel"`
	Title        string   `json:"title,omitempty"`
	Ride         *Ride    `json:"ride,omitempty"`
	Driver       *Driver  `json:"driver,omitempty"`
	Fare         string   `json:"fare,omitempty"`
	CanCancel    bool     `json:"can_cancel"`
	Tracking     bool     `json:"tracking"`
	RatingPrompt bool     `json:"rating_prompt"`
	RatingRideID types.ID `json:"rating_ride_id,omitempty"`
}

// Render maps the snapshot and prompt to what the rider sees. It has no side
// effects.
func Render(s Snapshot, p Prompt) View {
	v := View{RatingPrompt: p.Pending}
	if p.Pending {
		v.RatingRideID = p.RideID
	}

	r := s.Ride
	if r == nil || r.State.IsTerminal() {
		v.Panel = PanelRequestForm
		if p.Pending {
			v.Panel = PanelRating
			v.Title = "¿Cómo estuvo tu viaje?"
		}
		return v
	}

	v.Ride = r.clone()
	v.Fare = types.FormatAmount(r.Fare)
	switch r.State {
	case StateSearching:
		v.Panel = PanelSearching
		v.Title = "Buscando conductor..."
		v.CanCancel = true
	case StateAssigned, StateAccepted, StateEnRoute:
		v.Panel = PanelDriver
		v.Title = "Conductor en camino"
		v.CanCancel = true
		v.Tracking = r.DriverID != nil
	case StateInProgress:
		v.Panel = PanelInProgress
		v.Title = "En viaje"
		v.Tracking = r.DriverID != nil
	}
	if v.Panel != PanelSearching && r.Driver != nil {
		d := *r.Driver
		v.Driver = &d
	}
	return v
}
