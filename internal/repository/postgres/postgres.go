package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DB wraps a PostgreSQL connection pool
type DB struct {
	Pool *pgxpool.Pool
}

// New creates a new PostgreSQL connection pool
func New(ctx context.Context, databaseURL string) (*DB, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{Pool: pool}, nil
}

// EnsureSchema creates the tables this service owns if they do not exist.
func (db *DB) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS hospitals (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			district TEXT NOT NULL DEFAULT '',
			city TEXT NOT NULL DEFAULT '',
			state TEXT NOT NULL DEFAULT '',
			latitude DOUBLE PRECISION,
			longitude DOUBLE PRECISION,
			blood_groups TEXT NOT NULL DEFAULT '',
			components TEXT NOT NULL DEFAULT '',
			units_available DOUBLE PRECISION,
			emergency_service BOOLEAN NOT NULL DEFAULT FALSE,
			open_24x7 BOOLEAN NOT NULL DEFAULT FALSE,
			beds_available DOUBLE PRECISION,
			doctors_on_duty DOUBLE PRECISION,
			patient_satisfaction_pct DOUBLE PRECISION,
			safety_score_pct DOUBLE PRECISION,
			avg_response_min DOUBLE PRECISION,
			last_updated_min_ago DOUBLE PRECISION,
			blood_bank_level TEXT NOT NULL DEFAULT '',
			requested_at TIMESTAMPTZ,
			position INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS index_fingerprints (
			source_path TEXT PRIMARY KEY,
			content_hash TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	}

	for _, stmt := range statements {
		if _, err := db.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}

// Close closes the connection pool
func (db *DB) Close() {
	db.Pool.Close()
}
