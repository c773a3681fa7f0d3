// Package database builds the Postgres pool and applies the schema.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

const (
	pingAttempts = 5
	pingBackoff  = time.Second
)

// migrations run in order on every start; each must be idempotent.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS discount_claims (
		email_hash TEXT PRIMARY KEY,
		claimed_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

// Connect opens a pool for url and waits until Postgres answers.
func Connect(ctx context.Context, url string, log *logrus.Entry) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConns = 10
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	for attempt := 1; ; attempt++ {
		err = pool.Ping(ctx)
		if err == nil {
			log.Infof("Connected to Postgres at %s", cfg.ConnConfig.Host)
			return pool, nil
		}
		if attempt == pingAttempts {
			break
		}
		log.WithError(err).Warnf("Postgres ping %d/%d failed", attempt, pingAttempts)
		select {
		case <-ctx.Done():
			pool.Close()
			return nil, ctx.Err()
		case <-time.After(pingBackoff):
		}
	}
	pool.Close()
	return nil, fmt.Errorf("postgres unreachable: %w", err)
}

// Migrate applies the schema.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for i, stmt := range migrations {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}
