// Package database provides PostgreSQL connection management using pgx.
package database

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Shivanand-hulikatti/training-registration/internal/config"
)

//go:embed schema.sql
var schema string

// NewPool creates and validates a pgxpool connection pool.
// It retries up to 5 times to accommodate containers starting up.
func NewPool(ctx context.Context, cfg config.Database) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse db config: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	var pool *pgxpool.Pool
	err = connectRetry.run(ctx, func() error {
		p, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			return err
		}
		if err := p.Ping(ctx); err != nil {
			p.Close()
			return err
		}
		pool = p
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	return pool, nil
}

type retryPolicy struct {
	attempts int
	backoff  time.Duration
	after    func(time.Duration) <-chan time.Time
}

var connectRetry = retryPolicy{attempts: 5, backoff: 2 * time.Second, after: time.After}

// run calls op until it succeeds or attempts are used up. It waits backoff
// between attempts, never after the last one.
func (p retryPolicy) run(ctx context.Context, op func() error) error {
	var err error
	for attempt := 1; attempt <= p.attempts; attempt++ {
		if err = op(); err == nil {
			return nil
		}
		slog.Warn("db connect attempt failed", "attempt", attempt, "max", p.attempts, "error", err)
		if attempt == p.attempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.after(p.backoff):
		}
	}
	return err
}

// ApplySchema creates the sessions and registrations tables if missing.
func ApplySchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
