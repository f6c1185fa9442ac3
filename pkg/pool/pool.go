package pool

import (
	"context"
	"sync"
	"sync/atomic"
)

// ProgressFunc is invoked once per completed item with the number of items
// finished so far and the batch total.
type ProgressFunc func(completed, total int)

// Map runs fn over items with at most limit concurrent workers and returns a
// slice whose index i always holds the result for items[i], regardless of
// completion order. A failed item leaves a nil slot; one item's error never
// aborts its siblings. The limit is clamped to len(items).
//
// Workers race over a shared atomic index rather than a work channel, so no
// item is ever claimed twice and no redistribution is needed.
func Map[T, R any](ctx context.Context, items []T, limit int, fn func(context.Context, T) (R, error), onProgress ProgressFunc) []*R {
	results := make([]*R, len(items))
	if len(items) == 0 {
		return results
	}
	if limit > len(items) {
		limit = len(items)
	}
	if limit < 1 {
		limit = 1
	}

	var next atomic.Int64
	var wg sync.WaitGroup

	// Guarding the counter and the callback with one lock keeps progress
	// reports strictly monotonic.
	var progressMu sync.Mutex
	completed := 0

	report := func() {
		progressMu.Lock()
		completed++
		if onProgress != nil {
			onProgress(completed, len(items))
		}
		progressMu.Unlock()
	}

	for w := 0; w < limit; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				i := int(next.Add(1)) - 1
				if i >= len(items) {
					return
				}
				if ctx.Err() != nil {
					report()
					continue
				}
				if r, err := fn(ctx, items[i]); err == nil {
					results[i] = &r
				}
				report()
			}
		}()
	}

	wg.Wait()
	return results
}

// Collect filters the nil slots out of a Map result, preserving order.
func Collect[R any](results []*R) []R {
	out := make([]R, 0, len(results))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out
}
