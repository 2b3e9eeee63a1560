package store

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/claraops/callsheet/internal/dedupe"
)

// schemaSQL is embedded so the service can self-bootstrap its database
// schema.
//
//go:embed schema.sql
var schemaSQL string

// PostgresStore is the durable fingerprint set for duplicate detection,
// shared across instances of the webhook service.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a connection pool and fails fast if the
// database is unreachable.
func NewPostgresStore(dbURL string) (*PostgresStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

// EnsureSchema applies schema.sql. Safe to run multiple times.
func (p *PostgresStore) EnsureSchema() error {
	_, err := p.pool.Exec(context.Background(), schemaSQL)
	return err
}

// Ping is used by the readiness endpoint to validate DB connectivity.
func (p *PostgresStore) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Close shuts down the connection pool.
func (p *PostgresStore) Close() {
	p.pool.Close()
}

// Seen reports whether the fingerprint was already recorded.
func (p *PostgresStore) Seen(ctx context.Context, hash string) (bool, error) {
	var seen bool
	err := p.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM fingerprints WHERE hash = $1)
	`, hash).Scan(&seen)
	return seen, err
}

// Record inserts the fingerprint and prunes the table to its retention
// limits. Concurrent deliveries of the same call are resolved by the
// primary-key constraint rather than a read-modify-write race.
func (p *PostgresStore) Record(ctx context.Context, hash string, meta dedupe.Meta) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO fingerprints(hash, call_id, processed_at, ts)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (hash) DO NOTHING
	`, hash, meta.CallID, meta.ProcessedAt, meta.Timestamp)
	if err != nil {
		return err
	}
	return p.prune(ctx)
}

// prune enforces the age and count caps.
func (p *PostgresStore) prune(ctx context.Context) error {
	cutoff := time.Now().Add(-dedupe.MaxAge)
	if _, err := p.pool.Exec(ctx, `
		DELETE FROM fingerprints WHERE processed_at < $1
	`, cutoff); err != nil {
		return fmt.Errorf("prune by age: %w", err)
	}

	if _, err := p.pool.Exec(ctx, `
		DELETE FROM fingerprints
		WHERE hash NOT IN (
			SELECT hash FROM fingerprints ORDER BY ts DESC LIMIT $1
		)
	`, dedupe.MaxEntries); err != nil {
		return fmt.Errorf("prune by count: %w", err)
	}
	return nil
}
