// README: Driver positions read from Firebase RTDB under /driver_locations.
package location

import (
	"context"
	"fmt"
	"time"

	"firebase.google.com/go/v4/db"

	"mototaxi/internal/types"
)

const driverLocationsNode = "driver_locations"

// rtdbDriverEntry mirrors a single driver entry stored in Firebase RTDB
// under the /driver_locations node.
type rtdbDriverEntry struct {
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	Status    string  `json:"status"`
	Timestamp int64   `json:"timestamp"`
}

func (e rtdbDriverEntry) position(driverID types.ID) (Position, error) {
	if e.Timestamp == 0 && e.Lat == 0 && e.Lng == 0 {
		return Position{}, ErrNoPosition
	}
	pos := Position{DriverID: driverID, Point: types.Point{Lat: e.Lat, Lng: e.Lng}}
	if e.Timestamp > 0 {
		pos.RecordedAt = time.UnixMilli(e.Timestamp).UTC()
	}
	return pos, nil
}

type FirebaseSource struct {
	client *db.Client
}

func NewFirebaseSource(client *db.Client) *FirebaseSource {
	return &FirebaseSource{client: client}
}

func (s *FirebaseSource) DriverPosition(ctx context.Context, driverID types.ID) (Position, error) {
	var entry rtdbDriverEntry
	ref := s.client.NewRef(driverLocationsNode).Child(string(driverID))
	if err := ref.Get(ctx, &entry); err != nil {
		return Position{}, fmt.Errorf("reading driver location %s: %w", driverID, err)
	}
	return entry.position(driverID)
}
