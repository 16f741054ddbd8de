package test

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Both runs a and b concurrently, and returns their results once both have returned.
//
// When one party fails, the context of the other one is cancelled, so that it
// does not wait forever on a peer that is gone.
func Both[T any](ctx context.Context, a, b func(context.Context) (T, error)) (resultA, resultB T, errA, errB error) {
	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		resultA, errA = a(ctx)
		return errA
	})
	eg.Go(func() error {
		resultB, errB = b(ctx)
		return errB
	})
	_ = eg.Wait()
	return
}
