// README: Idempotent DDL for rides, drivers, configuration, and the ride change trigger.
package infra

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// RideChangesChannel is the NOTIFY channel the ride trigger publishes on.
const RideChangesChannel = "ride_changes"

var schema = []string{
	`CREATE TABLE IF NOT EXISTS drivers (
		id            TEXT PRIMARY KEY,
		name          TEXT NOT NULL DEFAULT '',
		phone         TEXT NOT NULL DEFAULT '',
		plate         TEXT NOT NULL DEFAULT '',
		vehicle_model TEXT NOT NULL DEFAULT '',
		color         TEXT NOT NULL DEFAULT '',
		lat           DOUBLE PRECISION,
		lng           DOUBLE PRECISION,
		heading       DOUBLE PRECISION
	)`,
	`CREATE TABLE IF NOT EXISTS rides (
		id                TEXT PRIMARY KEY,
		rider_id          TEXT NOT NULL,
		ride_class        TEXT NOT NULL,
		fare              BIGINT NOT NULL,
		distance_km       DOUBLE PRECISION NOT NULL,
		eta_min           INTEGER NOT NULL,
		origin_lat        DOUBLE PRECISION NOT NULL,
		origin_lng        DOUBLE PRECISION NOT NULL,
		origin_label      TEXT NOT NULL,
		destination_lat   DOUBLE PRECISION NOT NULL,
		destination_lng   DOUBLE PRECISION NOT NULL,
		destination_label TEXT NOT NULL,
		state             TEXT NOT NULL,
		driver_id         TEXT REFERENCES drivers(id),
		requested_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		driver_rating     SMALLINT CHECK (driver_rating BETWEEN 1 AND 5),
		rating_comment    TEXT
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS rides_one_active_per_rider ON rides (rider_id)
		WHERE state IN ('searching','assigned','accepted','en_route','in_progress')`,
	`CREATE TABLE IF NOT EXISTS configuration (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`,
	`CREATE OR REPLACE FUNCTION notify_ride_change() RETURNS trigger AS $$
	BEGIN
		PERFORM pg_notify('` + RideChangesChannel + `', json_build_object(
			'old', CASE WHEN TG_OP = 'INSERT' THEN NULL
				ELSE json_build_object('id', OLD.id, 'rider_id', OLD.rider_id, 'state', OLD.state, 'driver_id', OLD.driver_id) END,
			'new', json_build_object('id', NEW.id, 'rider_id', NEW.rider_id, 'state', NEW.state, 'driver_id', NEW.driver_id)
		)::text);
		RETURN NEW;
	END;
	$$ LANGUAGE plpgsql`,
	`DROP TRIGGER IF EXISTS rides_notify ON rides`,
	`CREATE TRIGGER rides_notify AFTER INSERT OR UPDATE ON rides
		FOR EACH ROW EXECUTE FUNCTION notify_ride_change()`,
}

// EnsureSchema creates the tables the rider client reads and writes.
func EnsureSchema(ctx context.Context, db *pgxpool.Pool) error {
	for i, stmt := range schema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i, err)
		}
	}
	return nil
}
