// README: Bounded retry with exponential backoff for adapter and store calls.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"
)

type Func func(ctx context.Context) error

// Config bounds a retried call. Attempts counts the first call too.
type Config struct {
	Attempts       int
	AttemptTimeout time.Duration
	BaseDelay      time.Duration
	MaxDelay       time.Duration
	Multiplier     float64
	Jitter         bool
	Retryable      func(error) bool
}

func DefaultConfig() Config {
	return Config{
		Attempts:       3,
		AttemptTimeout: 8 * time.Second,
		BaseDelay:      250 * time.Millisecond,
		MaxDelay:       5 * time.Second,
		Multiplier:     2.0,
		Jitter:         true,
	}
}

type permanentError struct{ err error }

func (p permanentError) Error() string { return p.err.Error() }
func (p permanentError) Unwrap() error { return p.err }

// Permanent marks an error that must not be retried.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err: err}
}

type Retrier struct {
	cfg Config
	log logrus.FieldLogger
}

func New(cfg Config, log logrus.FieldLogger) *Retrier {
	if cfg.Attempts < 1 {
		cfg.Attempts = 1
	}
	if cfg.Multiplier <= 0 {
		cfg.Multiplier = 2.0
	}
	return &Retrier{cfg: cfg, log: log}
}

// Do runs fn until it succeeds, returns a permanent error, the context ends,
// or the attempts are used up. Each attempt gets its own timeout.
func (r *Retrier) Do(ctx context.Context, op string, fn Func) error {
	var lastErr error
	for attempt := 0; attempt < r.cfg.Attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := r.once(ctx, fn)
		if err == nil {
			if attempt > 0 {
				r.log.WithFields(logrus.Fields{"op": op, "attempt": attempt + 1}).Debug("succeeded after retry")
			}
			return nil
		}
		lastErr = err

		var perm permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
		if r.cfg.Retryable != nil && !r.cfg.Retryable(err) {
			return err
		}
		if attempt == r.cfg.Attempts-1 {
			break
		}

		delay := r.delay(attempt)
		r.log.WithError(err).WithFields(logrus.Fields{
			"op":      op,
			"attempt": attempt + 1,
			"delay":   delay.String(),
		}).Debug("attempt failed, retrying")

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return fmt.Errorf("%s: gave up after %d attempts: %w", op, r.cfg.Attempts, lastErr)
}

func (r *Retrier) once(ctx context.Context, fn Func) error {
	if r.cfg.AttemptTimeout <= 0 {
		return fn(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, r.cfg.AttemptTimeout)
	defer cancel()
	return fn(attemptCtx)
}

func (r *Retrier) delay(attempt int) time.Duration {
	d := float64(r.cfg.BaseDelay) * math.Pow(r.cfg.Multiplier, float64(attempt))
	if r.cfg.MaxDelay > 0 && d > float64(r.cfg.MaxDelay) {
		d = float64(r.cfg.MaxDelay)
	}
	if r.cfg.Jitter {
		d += d * 0.1 * rand.Float64()
	}
	return time.Duration(d)
}

// Backoff returns the wait before reconnect number n (0-based), capped at max.
func Backoff(n int, base, max time.Duration) time.Duration {
	if n > 30 {
		return max
	}
	d := base << uint(n)
	if d <= 0 || d > max {
		return max
	}
	return d
}
