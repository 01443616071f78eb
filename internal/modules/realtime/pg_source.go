// README: Change feed over Postgres LISTEN/NOTIFY on the rides trigger channel.
package realtime

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"mototaxi/internal/infra"
	"mototaxi/internal/types"
)

type PGSource struct {
	db  *pgxpool.Pool
	log logrus.FieldLogger
}

func NewPGSource(db *pgxpool.Pool, log logrus.FieldLogger) *PGSource {
	return &PGSource{db: db, log: log}
}

func (s *PGSource) Listen(ctx context.Context, riderID types.ID, ready func(), deliver func(Change)) error {
	conn, err := s.db.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire listen conn: %w", err)
	}
	defer func() {
		unlistenCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_, _ = conn.Exec(unlistenCtx, "UNLISTEN *")
		conn.Release()
	}()

	if _, err := conn.Exec(ctx, "LISTEN "+infra.RideChangesChannel); err != nil {
		return fmt.Errorf("listen %s: %w", infra.RideChangesChannel, err)
	}
	s.log.WithField("channel", infra.RideChangesChannel).Info("listening for ride changes")
	ready()

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("wait for notification: %w", err)
		}
		c, err := ParseChange([]byte(n.Payload))
		if err != nil {
			s.log.WithError(err).Warn("dropping ride change")
			continue
		}
		if c.RiderID() != riderID {
			continue
		}
		deliver(c)
	}
}
