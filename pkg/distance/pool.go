package distance

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// batchesPerWorker keeps workers busy when line costs are uneven.
const batchesPerWorker = 4

// parallelRange splits [0,n) into contiguous batches and runs fn on each with
// at most workers goroutines in flight. It returns once every batch is done,
// which makes it the barrier between dependent passes.
func parallelRange(ctx context.Context, n, workers int, fn func(lo, hi int) error) error {
	if n == 0 {
		return nil
	}
	if workers < 1 {
		workers = 1
	}

	batch := max(1, n/(workers*batchesPerWorker))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for lo := 0; lo < n; lo += batch {
		lo := lo
		hi := min(lo+batch, n)
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return fn(lo, hi)
		})
	}
	return g.Wait()
}
