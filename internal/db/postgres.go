package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresOptions sizes the connection pool. Zero fields take the defaults.
type PostgresOptions struct {
	MaxConns        int
	MinConns        int
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
}

// The store issues a handful of short upserts per mutation, so the pool
// stays small.
const (
	defaultPostgresMaxConns    = 10
	defaultPostgresMinConns    = 2
	defaultPostgresIdleTime    = 5 * time.Minute
	defaultPostgresPingTimeout = 5 * time.Second
)

func (o PostgresOptions) withDefaults() PostgresOptions {
	if o.MaxConns <= 0 {
		o.MaxConns = defaultPostgresMaxConns
	}
	if o.MinConns <= 0 {
		o.MinConns = defaultPostgresMinConns
	}
	if o.MinConns > o.MaxConns {
		o.MinConns = o.MaxConns
	}
	if o.ConnMaxIdleTime <= 0 {
		o.ConnMaxIdleTime = defaultPostgresIdleTime
	}
	if o.PingTimeout <= 0 {
		o.PingTimeout = defaultPostgresPingTimeout
	}
	return o
}

// OpenPostgres opens a pgx-backed pool and checks it is reachable.
func OpenPostgres(ctx context.Context, dsn string, opts PostgresOptions) (*sql.DB, error) {
	opts = opts.withDefaults()
	conn, err := sql.Open(DriverPostgres, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	conn.SetMaxOpenConns(opts.MaxConns)
	conn.SetMaxIdleConns(opts.MinConns)
	conn.SetConnMaxIdleTime(opts.ConnMaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, opts.PingTimeout)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return conn, nil
}
