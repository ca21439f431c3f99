package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "github.com/jackc/pgx/v5/stdlib"

	"videotube-accounts/internal/observability"
)

type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	// PingAttempts bounds the startup ping retries. Zero means a single try.
	PingAttempts int
}

var newPingBackOff = func() backoff.BackOff {
	return backoff.NewExponentialBackOff()
}

// Open connects to Postgres through the pgx stdlib driver and waits for the
// server to answer a ping.
func Open(ctx context.Context, databaseURL string, pool PoolConfig, logger *observability.Logger) (*sql.DB, error) {
	database, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	database.SetMaxOpenConns(pool.MaxOpenConns)
	database.SetMaxIdleConns(pool.MaxIdleConns)
	database.SetConnMaxLifetime(pool.ConnMaxLifetime)
	database.SetConnMaxIdleTime(pool.ConnMaxIdleTime)

	if err := Ping(ctx, database, pool.PingAttempts, logger); err != nil {
		_ = database.Close()
		return nil, err
	}

	return database, nil
}

// Ping retries with exponential backoff until the database answers, ctx ends
// or attempts run out.
func Ping(ctx context.Context, database *sql.DB, attempts int, logger *observability.Logger) error {
	if logger == nil {
		logger = observability.Nop()
	}
	retries := uint64(0)
	if attempts > 1 {
		retries = uint64(attempts - 1)
	}

	attempt := 0
	operation := func() error {
		attempt++
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return database.PingContext(pingCtx)
	}
	notify := func(err error, delay time.Duration) {
		logger.Warn("database_ping_retry", map[string]any{
			"attempt": attempt,
			"delay":   delay.String(),
			"error":   err.Error(),
		})
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(newPingBackOff(), retries), ctx)
	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		return fmt.Errorf("ping database after %d attempts: %w", attempt, err)
	}
	return nil
}
