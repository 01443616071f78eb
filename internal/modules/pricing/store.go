// README: Fare configuration store backed by PostgreSQL.
package pricing

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// Values returns the fare keys present in the configuration table.
func (s *Store) Values(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.Query(ctx, `
		SELECT key, value FROM configuration
		WHERE key = ANY($1)`,
		[]string{KeyPerKmRate, KeyMinimumFare, KeyPooledDiscount},
	)
	if err != nil {
		return nil, fmt.Errorf("query configuration: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string, 3)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}
