package pricing

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_Values(t *testing.T) {
	dsn := os.Getenv("MOTO_TEST_DB_DSN")
	if dsn == "" {
		t.Skip("MOTO_TEST_DB_DSN not set; skipping integration test")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	defer pool.Close()

	_, err = pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS configuration (key TEXT PRIMARY KEY, value TEXT NOT NULL)`)
	require.NoError(t, err)
	_, err = pool.Exec(ctx, `INSERT INTO configuration (key, value) VALUES ('price_per_km', '17')
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`)
	require.NoError(t, err)

	values, err := NewStore(pool).Values(ctx)
	require.NoError(t, err)
	assert.Equal(t, "17", values[KeyPerKmRate])
}
