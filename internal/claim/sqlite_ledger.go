package claim

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS discount_claims (
	email_hash TEXT PRIMARY KEY,
	claimed_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
)`

// SQLiteLedger stores claims in a local SQLite file, for single-node
// deployments without Postgres.
type SQLiteLedger struct {
	db *sql.DB
}

// OpenSQLiteLedger opens (creating if needed) the database at path.
func OpenSQLiteLedger(ctx context.Context, path string) (*SQLiteLedger, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate sqlite %s: %w", path, err)
	}
	return &SQLiteLedger{db: db}, nil
}

// Close closes the database.
func (l *SQLiteLedger) Close() error { return l.db.Close() }

// Reserve implements Ledger.
func (l *SQLiteLedger) Reserve(ctx context.Context, hash string) (bool, error) {
	res, err := l.db.ExecContext(ctx, `INSERT OR IGNORE INTO discount_claims (email_hash) VALUES (?)`, hash)
	if err != nil {
		return false, fmt.Errorf("reserve claim: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reserve claim: %w", err)
	}
	return n == 1, nil
}

// Release implements Ledger.
func (l *SQLiteLedger) Release(ctx context.Context, hash string) error {
	if _, err := l.db.ExecContext(ctx, `DELETE FROM discount_claims WHERE email_hash = ?`, hash); err != nil {
		return fmt.Errorf("release claim: %w", err)
	}
	return nil
}

// Has implements Ledger.
func (l *SQLiteLedger) Has(ctx context.Context, hash string) (bool, error) {
	var n int
	err := l.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM discount_claims WHERE email_hash = ?`, hash).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check claim: %w", err)
	}
	return n > 0, nil
}
