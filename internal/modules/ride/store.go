// README: Ride store backed by PostgreSQL.
package ride

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"mototaxi/internal/types"
)

const uniqueViolation = "23505"

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) Insert(ctx context.Context, r *Ride) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO rides (
			id, rider_id, ride_class, fare, distance_km, eta_min,
			origin_lat, origin_lng, origin_label,
			destination_lat, destination_lng, destination_label,
			state, requested_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9,
			$10, $11, $12,
			$13, $14
		)`,
		string(r.ID), string(r.RiderID), string(r.RideClass), r.Fare.Amount, r.DistanceKm, r.EtaMin,
		r.Origin.Lat, r.Origin.Lng, r.Origin.Label,
		r.Destination.Lat, r.Destination.Lng, r.Destination.Label,
		string(r.State), r.RequestedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", ErrActiveRide, pgErr.ConstraintName)
	}
	return err
}

// ListActive returns the rider's non-terminal rides with the driver card
// joined, newest first.
func (s *Store) ListActive(ctx context.Context, riderID types.ID) ([]Ride, error) {
	states := make([]string, len(ActiveStates))
	for i, st := range ActiveStates {
		states[i] = string(st)
	}
	rows, err := s.db.Query(ctx, `
		SELECT r.id, r.rider_id, r.ride_class, r.fare, r.distance_km, r.eta_min,
		       r.origin_lat, r.origin_lng, r.origin_label,
		       r.destination_lat, r.destination_lng, r.destination_label,
		       r.state, r.driver_id, r.requested_at, r.driver_rating, r.rating_comment,
		       d.name, d.phone, d.plate, d.vehicle_model, d.color
		FROM rides r
		LEFT JOIN drivers d ON d.id = r.driver_id
		WHERE r.rider_id = $1 AND r.state = ANY($2)
		ORDER BY r.requested_at DESC`,
		string(riderID), states,
	)
	if err != nil {
		return nil, fmt.Errorf("query active rides: %w", err)
	}
	defer rows.Close()

	var out []Ride
	for rows.Next() {
		r, err := scanRide(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// get loads one ride by id regardless of state.
func (s *Store) get(ctx context.Context, id types.ID) (*Ride, error) {
	rows, err := s.db.Query(ctx, `
		SELECT r.id, r.rider_id, r.ride_class, r.fare, r.distance_km, r.eta_min,
		       r.origin_lat, r.origin_lng, r.origin_label,
		       r.destination_lat, r.destination_lng, r.destination_label,
		       r.state, r.driver_id, r.requested_at, r.driver_rating, r.rating_comment,
		       d.name, d.phone, d.plate, d.vehicle_model, d.color
		FROM rides r
		LEFT JOIN drivers d ON d.id = r.driver_id
		WHERE r.id = $1`, string(id),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, ErrNotFound
	}
	r, err := scanRide(rows)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func scanRide(row pgx.Row) (Ride, error) {
	var (
		r        Ride
		driverID *string
		rating   *int32
		comment  *string
	)
	var name, phone, plate, vehicleModel, colour *string
	err := row.Scan(
		&r.ID, &r.RiderID, &r.RideClass, &r.Fare.Amount, &r.DistanceKm, &r.EtaMin,
		&r.Origin.Lat, &r.Origin.Lng, &r.Origin.Label,
		&r.Destination.Lat, &r.Destination.Lng, &r.Destination.Label,
		&r.State, &driverID, &r.RequestedAt, &rating, &comment,
		&name, &phone, &plate, &vehicleModel, &colour,
	)
	if err != nil {
		return Ride{}, fmt.Errorf("scan ride: %w", err)
	}
	r.Fare.Currency = types.DefaultCurrency
	if driverID != nil {
		id := types.ID(*driverID)
		r.DriverID = &id
		r.Driver = &Driver{
			ID:           id,
			Name:         deref(name),
			Phone:        deref(phone),
			Plate:        deref(plate),
			VehicleModel: deref(vehicleModel),
			Color:        deref(colour),
		}
	}
	if rating != nil {
		v := int(*rating)
		r.DriverRating = &v
	}
	r.RatingComment = comment
	return r, nil
}

// Cancel moves the ride to rider_cancelled if it is still cancellable.
func (s *Store) Cancel(ctx context.Context, id types.ID) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE rides SET state = $1
		WHERE id = $2 AND state IN ('searching','assigned','accepted','en_route')`,
		string(StateRiderCancelled), string(id),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotCancellable
	}
	return nil
}

// Rate stores the rider's score and comment; repeated calls overwrite.
func (s *Store) Rate(ctx context.Context, id types.ID, score int, comment string) error {
	var c *string
	if comment != "" {
		c = &comment
	}
	tag, err := s.db.Exec(ctx, `
		UPDATE rides SET driver_rating = $1, rating_comment = $2
		WHERE id = $3 AND state = $4`,
		score, c, string(id), string(StateCompleted),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
