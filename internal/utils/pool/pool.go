// Package pool provides the bounded-parallelism runner used by batch
// generation operations.
package pool

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Result holds the settled outcome of one work item.
type Result[R any] struct {
	Value R
	Err   error
}

// Map runs fn over items with at most limit invocations in flight and
// returns one result per item in input order. A failing item never
// cancels or blocks its siblings; panics are captured as item errors.
// The limit is coerced to at least 1 and capped at len(items).
func Map[T, R any](ctx context.Context, items []T, limit int, fn func(ctx context.Context, item T) (R, error)) []Result[R] {
	if len(items) == 0 {
		return nil
	}
	if limit < 1 {
		limit = 1
	}
	if limit > len(items) {
		limit = len(items)
	}

	results := make([]Result[R], len(items))

	// Plain Group, not WithContext: one item's failure must not cancel
	// the rest of the batch.
	var g errgroup.Group
	g.SetLimit(limit)

	for i, item := range items {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					results[i].Err = fmt.Errorf("panic in work item %d: %v", i, r)
				}
			}()
			results[i].Value, results[i].Err = fn(ctx, item)
			return nil
		})
	}

	g.Wait()
	return results
}
