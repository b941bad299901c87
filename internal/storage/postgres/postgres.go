// Package postgres implements the run archive on PostgreSQL via pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Pool wraps pgxpool.Pool for dependency injection.
type Pool struct {
	*pgxpool.Pool
}

// NewPool creates a new Postgres connection pool.
func NewPool(ctx context.Context, dsn string) (*Pool, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &Pool{Pool: pool}, nil
}

// Close closes the connection pool.
func (p *Pool) Close() {
	p.Pool.Close()
}

const pgErrUniqueViolation = "23505" // unique_violation

func isDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgErrUniqueViolation
	}
	return false
}

func isNotFoundError(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

const schema = `
CREATE TABLE IF NOT EXISTS compensation_runs (
	id          BIGSERIAL PRIMARY KEY,
	start_block BIGINT NOT NULL,
	end_block   BIGINT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (start_block, end_block)
);

CREATE TABLE IF NOT EXISTS compensation_rows (
	run_id         BIGINT NOT NULL REFERENCES compensation_runs(id),
	position       INT NOT NULL,
	address        TEXT NOT NULL,
	eligible_usd   NUMERIC(78, 0) NOT NULL,
	primary_comp   NUMERIC(78, 0) NOT NULL,
	secondary_usd  NUMERIC(78, 0) NOT NULL,
	secondary_comp NUMERIC(78, 0) NOT NULL,
	PRIMARY KEY (run_id, position)
);
`

// Migrate creates the archive tables when missing.
func Migrate(ctx context.Context, pool *Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply archive schema: %w", err)
	}
	return nil
}
