package eval

import (
	"context"

	"github.com/hailam/reversi/internal/board"
)

// Key identifies a cached evaluation: the model that produced it and the
// Zobrist hash of the position.
type Key struct {
	Model    uint64
	Position uint64
}

// Cache stores heuristic evaluations.
type Cache interface {
	Get(ctx context.Context, key Key) (Result, bool, error)
	Put(ctx context.Context, key Key, res Result) error
}

// Cached wraps an Evaluator with a Cache. Cache failures never fail an
// evaluation; they are reported through OnError when set.
type Cached struct {
	eval  *Evaluator
	cache Cache
	model uint64

	// OnError receives cache read and write errors.
	OnError func(error)
}

// NewCached creates a cached evaluator. model namespaces the cache so
// results from different model artifacts never mix. A nil cache
// evaluates every position directly.
func NewCached(e *Evaluator, cache Cache, model uint64) *Cached {
	return &Cached{eval: e, cache: cache, model: model}
}

// Evaluator returns the wrapped evaluator.
func (c *Cached) Evaluator() *Evaluator {
	return c.eval
}

// Evaluate returns the score of pos, consulting the cache for
// non-terminal positions.
func (c *Cached) Evaluate(ctx context.Context, pos *board.Position) (Result, error) {
	if pos.IsGameOver() || c.cache == nil {
		return c.eval.EvaluateDetail(pos)
	}

	key := Key{Model: c.model, Position: pos.Hash}
	if res, ok, err := c.cache.Get(ctx, key); err != nil {
		c.report(err)
	} else if ok {
		return res, nil
	}

	res, err := c.eval.EvaluateDetail(pos)
	if err != nil {
		return res, err
	}

	if err := c.cache.Put(ctx, key, res); err != nil {
		c.report(err)
	}
	return res, nil
}

// EvaluateAll evaluates positions with up to workers goroutines.
func (c *Cached) EvaluateAll(ctx context.Context, positions []*board.Position, workers int) ([]Result, error) {
	return evaluateAll(ctx, positions, workers, c.Evaluate)
}

func (c *Cached) report(err error) {
	if c.OnError != nil {
		c.OnError(err)
	}
}
