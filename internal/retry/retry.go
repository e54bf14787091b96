// Package retry reruns short database operations that failed on a
// transient condition: serialization failures, deadlocks, or a lock
// that could not be obtained. Backoff grows linearly per attempt with
// a random jitter so concurrent workers do not retry in lockstep.
package retry

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// Config controls retry behavior. Zero values fall back to a single
// attempt with no delay.
type Config struct {
	MaxAttempts int
	Backoff     time.Duration
	Jitter      time.Duration
}

// transientStates are the SQLSTATE codes worth retrying:
// serialization_failure, deadlock_detected, lock_not_available.
var transientStates = map[string]bool{
	"40001": true,
	"40P01": true,
	"55P03": true,
}

// IsTransient reports whether err is a database error that a fresh
// attempt may succeed on.
func IsTransient(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return transientStates[pgErr.Code]
	}
	return false
}

// Do runs fn up to cfg.MaxAttempts times, sleeping between attempts.
// Non-transient errors and context cancellation stop immediately; the
// last error is returned when attempts run out.
func Do(ctx context.Context, cfg Config, fn func() error) error {
	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		if !IsTransient(err) || attempt == attempts {
			return err
		}
		delay := cfg.Backoff * time.Duration(attempt)
		if cfg.Jitter > 0 {
			delay += time.Duration(rand.Int63n(int64(cfg.Jitter)))
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}
