package eval

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// EvaluateAll evaluates positions concurrently with up to workers
// goroutines (GOMAXPROCS when workers <= 0). The first error cancels the
// remaining work and is returned; results are in input order.
func (e *Evaluator) EvaluateAll(ctx context.Context, positions []Position, workers int) ([]Result, error) {
	return evaluateAll(ctx, positions, workers, func(_ context.Context, pos Position) (Result, error) {
		return e.EvaluateDetail(pos)
	})
}

func evaluateAll[P any](ctx context.Context, positions []P, workers int,
	fn func(context.Context, P) (Result, error)) ([]Result, error) {

	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	results := make([]Result, len(positions))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i := range positions {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := fn(gctx, positions[i])
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
