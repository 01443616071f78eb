package maps

import (
	"context"
	"time"

	"mototaxi/internal/retry"
	"mototaxi/internal/types"
)

type routerFunc func(ctx context.Context, origin, destination types.Point) (Route, error)

func (f routerFunc) Route(ctx context.Context, origin, destination types.Point) (Route, error) {
	return f(ctx, origin, destination)
}

func testRetrier(attempts int) *retry.Retrier {
	return retry.New(retry.Config{Attempts: attempts, AttemptTimeout: time.Second, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}, quietLogger())
}
