package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// TxQuerier is implemented by both pgxpool.Pool and pgx.Tx.
// Repository methods that need transaction support should accept TxQuerier.
type TxQuerier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// maxBackoff caps the wait between connection attempts.
const maxBackoff = 16 * time.Second

// backoffFor returns the wait after a failed attempt (0-based): 1s, 2s, 4s, ... capped at maxBackoff.
func backoffFor(attempt int) time.Duration {
	if attempt >= 5 {
		return maxBackoff
	}
	return time.Duration(1<<attempt) * time.Second
}

// NewPool creates a PostgreSQL connection pool and verifies it with a ping,
// retrying with exponential backoff. maxAttempts below 1 still makes one attempt.
// A malformed DSN fails immediately.
func NewPool(ctx context.Context, dsn string, maxAttempts int) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database dsn: %w", err)
	}

	if maxAttempts < 1 {
		maxAttempts = 1
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		var pool *pgxpool.Pool
		pool, err = connect(ctx, poolCfg)
		if err == nil {
			log.Info().
				Str("host", poolCfg.ConnConfig.Host).
				Str("database", poolCfg.ConnConfig.Database).
				Int32("max_conns", poolCfg.MaxConns).
				Msg("database connection established")
			return pool, nil
		}

		if attempt == maxAttempts-1 {
			break
		}

		backoff := backoffFor(attempt)
		log.Warn().
			Err(err).
			Int("attempt", attempt+1).
			Int("max_attempts", maxAttempts).
			Dur("next_retry_in", backoff).
			Msg("database connection failed, retrying")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}

	return nil, fmt.Errorf("failed to connect after %d attempts: %w", maxAttempts, err)
}

// connect opens a pool and pings it once. The pool is closed again when the ping fails.
func connect(ctx context.Context, cfg *pgxpool.Config) (*pgxpool.Pool, error) {
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping failed: %w", err)
	}
	return pool, nil
}
