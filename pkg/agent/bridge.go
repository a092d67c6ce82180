package agent

import (
	"context"
	"time"
)

// runBridged executes fn on a fresh goroutine under a timeout-scoped context
// and blocks the caller until fn returns. Each call gets its own context, so
// a slow exchange can never stall a later one, and the channel is buffered,
// so the worker goroutine never leaks even if fn outlives the timeout.
func runBridged[T any](timeout time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	type outcome struct {
		value T
		err   error
	}

	done := make(chan outcome, 1)
	go func() {
		v, err := fn(ctx)
		done <- outcome{value: v, err: err}
	}()

	res := <-done
	return res.value, res.err
}
