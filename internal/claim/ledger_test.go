package claim

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exerciseLedger runs the common Ledger contract against l.
func exerciseLedger(t *testing.T, l Ledger) {
	t.Helper()
	ctx := context.Background()
	hash := HashEmail(NormalizeEmail(t.Name() + "@example.com"))
	t.Cleanup(func() { _ = l.Release(ctx, hash) })

	has, err := l.Has(ctx, hash)
	require.NoError(t, err)
	assert.False(t, has)

	ok, err := l.Reserve(ctx, hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = l.Reserve(ctx, hash)
	require.NoError(t, err)
	assert.False(t, ok, "second reservation must not succeed")

	has, err = l.Has(ctx, hash)
	require.NoError(t, err)
	assert.True(t, has)

	require.NoError(t, l.Release(ctx, hash))
	has, err = l.Has(ctx, hash)
	require.NoError(t, err)
	assert.False(t, has)
}

func TestMemoryLedger(t *testing.T) {
	exerciseLedger(t, NewMemoryLedger())
}

func TestSQLiteLedger(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "claims.db")
	l, err := OpenSQLiteLedger(ctx, path)
	require.NoError(t, err)
	exerciseLedger(t, l)

	// Claims survive a reopen.
	ok, err := l.Reserve(ctx, "persisted")
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, l.Close())

	l, err = OpenSQLiteLedger(ctx, path)
	require.NoError(t, err)
	defer l.Close()
	has, err := l.Has(ctx, "persisted")
	require.NoError(t, err)
	assert.True(t, has)
}

func TestRedisLedger(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}
	opts, err := redis.ParseURL(url)
	require.NoError(t, err)
	rdb := redis.NewClient(opts)
	defer rdb.Close()
	exerciseLedger(t, NewRedisLedger(rdb))
}

func TestPostgresLedger(t *testing.T) {
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, url)
	require.NoError(t, err)
	defer pool.Close()
	_, err = pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS discount_claims (
		email_hash TEXT PRIMARY KEY,
		claimed_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`)
	require.NoError(t, err)
	exerciseLedger(t, NewPostgresLedger(pool))
}
