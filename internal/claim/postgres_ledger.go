package claim

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresLedger stores claims in the discount_claims table (see
// database.Migrate).
type PostgresLedger struct {
	pool *pgxpool.Pool
}

// NewPostgresLedger returns a Ledger backed by pool.
func NewPostgresLedger(pool *pgxpool.Pool) *PostgresLedger {
	return &PostgresLedger{pool: pool}
}

// Reserve implements Ledger.
func (l *PostgresLedger) Reserve(ctx context.Context, hash string) (bool, error) {
	tag, err := l.pool.Exec(ctx,
		`INSERT INTO discount_claims (email_hash) VALUES ($1) ON CONFLICT (email_hash) DO NOTHING`, hash)
	if err != nil {
		return false, fmt.Errorf("reserve claim: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Release implements Ledger.
func (l *PostgresLedger) Release(ctx context.Context, hash string) error {
	if _, err := l.pool.Exec(ctx, `DELETE FROM discount_claims WHERE email_hash = $1`, hash); err != nil {
		return fmt.Errorf("release claim: %w", err)
	}
	return nil
}

// Has implements Ledger.
func (l *PostgresLedger) Has(ctx context.Context, hash string) (bool, error) {
	var exists bool
	err := l.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM discount_claims WHERE email_hash = $1)`, hash).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check claim: %w", err)
	}
	return exists, nil
}
