// Package race provides a resolve-once combinator for racing independent
// waiters: first to complete wins, the rest are cancelled.
package race

import (
	"context"
	"sync/atomic"
)

// Waiter is one competitor. It must return promptly once ctx is cancelled.
type Waiter[T any] func(ctx context.Context) (T, error)

// First runs all waiters concurrently and returns the outcome of the first
// one to complete, success or failure. The remaining waiters are cancelled
// through the derived context. An explicit resolved flag guards against a
// late-arriving waiter double-resolving the continuation.
func First[T any](ctx context.Context, waiters ...Waiter[T]) (T, error) {
	raceCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	type outcome struct {
		val T
		err error
	}
	done := make(chan outcome, 1)
	var resolved atomic.Bool

	for _, w := range waiters {
		go func(w Waiter[T]) {
			val, err := w(raceCtx)
			if resolved.CompareAndSwap(false, true) {
				done <- outcome{val: val, err: err}
			}
		}(w)
	}

	select {
	case o := <-done:
		return o.val, o.err
	case <-ctx.Done():
		// Mark resolved so stragglers drop their result instead of
		// blocking on the channel.
		resolved.Store(true)
		var zero T
		return zero, ctx.Err()
	}
}
