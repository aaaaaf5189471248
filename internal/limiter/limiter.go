// Package limiter bounds in-flight work for fan-out stages.
package limiter

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// DefaultSize is the pool size used when a caller passes zero
const DefaultSize = 3

// Outcome is the per-item result of Map
type Outcome[R any] struct {
	Value R
	Err   error
}

// Map runs fn over items with at most size calls in flight and returns
// outcomes in input order. An item error is recorded in its slot and
// does not cancel the others. Items not yet started when ctx is done
// record ctx.Err().
func Map[T, R any](ctx context.Context, items []T, size int, fn func(ctx context.Context, index int, item T) (R, error)) []Outcome[R] {
	if size <= 0 {
		size = DefaultSize
	}

	outcomes := make([]Outcome[R], len(items))

	var g errgroup.Group
	g.SetLimit(size)

	for i, item := range items {
		if err := ctx.Err(); err != nil {
			outcomes[i].Err = err
			continue
		}

		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				outcomes[i].Err = err
				return nil
			}
			value, err := fn(ctx, i, item)
			outcomes[i] = Outcome[R]{Value: value, Err: err}
			return nil
		})
	}

	_ = g.Wait()
	return outcomes
}
