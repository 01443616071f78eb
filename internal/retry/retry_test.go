package retry

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func fastConfig(attempts int) Config {
	return Config{Attempts: attempts, AttemptTimeout: time.Second, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Multiplier: 2}
}

func TestDo_SucceedsAfterFailures(t *testing.T) {
	r := New(fastConfig(3), quietLogger())
	calls := 0
	err := r.Do(context.Background(), "op", func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("temporary")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_GivesUp(t *testing.T) {
	r := New(fastConfig(2), quietLogger())
	calls := 0
	boom := errors.New("boom")
	err := r.Do(context.Background(), "route", func(ctx context.Context) error {
		calls++
		return boom
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, calls)
}

func TestDo_PermanentStops(t *testing.T) {
	r := New(fastConfig(5), quietLogger())
	calls := 0
	err := r.Do(context.Background(), "op", func(ctx context.Context) error {
		calls++
		return Permanent(io.EOF)
	})
	assert.Equal(t, io.EOF, err)
	assert.Equal(t, 1, calls)
}

func TestDo_AttemptTimeout(t *testing.T) {
	cfg := fastConfig(1)
	cfg.AttemptTimeout = 10 * time.Millisecond
	r := New(cfg, quietLogger())
	err := r.Do(context.Background(), "slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDo_CancelledContext(t *testing.T) {
	r := New(fastConfig(3), quietLogger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := r.Do(ctx, "op", func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBackoff(t *testing.T) {
	assert.Equal(t, time.Second, Backoff(0, time.Second, 30*time.Second))
	assert.Equal(t, 4*time.Second, Backoff(2, time.Second, 30*time.Second))
	assert.Equal(t, 30*time.Second, Backoff(10, time.Second, 30*time.Second))
	assert.Equal(t, 30*time.Second, Backoff(64, time.Second, 30*time.Second))
}
