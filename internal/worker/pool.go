// Package worker provides a generic parallel task pool, generalized from a
// tile-generation-specific worker pool into a reusable fan-out primitive
// shared by any bounded batch of independent jobs — in this module, the
// per-seed-zone reduction overlay.Run performs.
package worker

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Result pairs a job's index with its output and elapsed time, so callers
// can reassemble results in input order without relying on channel
// delivery order.
type Result[R any] struct {
	Index   int
	Value   R
	Err     error
	Elapsed time.Duration
}

// ProgressFunc is called after each task completes.
type ProgressFunc func(completed, total, failed int)

// Config configures the worker pool.
type Config[T, R any] struct {
	Workers    int
	Fn         func(ctx context.Context, job T) (R, error)
	OnProgress ProgressFunc
}

// Pool runs a bounded-parallelism map over a slice of jobs: an errgroup
// capped at the worker count, an index-addressed result slice, and an
// optional progress callback, generalized with Go generics so it is not
// tied to a single job/result shape.
type Pool[T, R any] struct {
	workers    int
	fn         func(ctx context.Context, job T) (R, error)
	onProgress ProgressFunc
}

// New creates a new worker pool.
func New[T, R any](cfg Config[T, R]) *Pool[T, R] {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	return &Pool[T, R]{workers: workers, fn: cfg.Fn, onProgress: cfg.OnProgress}
}

// Run executes fn over every job and returns results in input order. It
// blocks until all jobs complete or ctx is cancelled. Concurrency is capped
// at p.workers via errgroup.Group.SetLimit; a single job's error is
// recorded on its own Result rather than aborting the remaining jobs.
func (p *Pool[T, R]) Run(ctx context.Context, jobs []T) []Result[R] {
	if len(jobs) == 0 {
		return nil
	}

	results := make([]Result[R], len(jobs))
	var completed, failed int
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	for i, j := range jobs {
		i, j := i, j
		g.Go(func() error {
			var r Result[R]
			select {
			case <-ctx.Done():
				r = Result[R]{Index: i, Err: ctx.Err()}
			default:
				start := time.Now()
				value, err := p.fn(ctx, j)
				r = Result[R]{Index: i, Value: value, Err: err, Elapsed: time.Since(start)}
			}
			results[i] = r

			mu.Lock()
			completed++
			if r.Err != nil {
				failed++
			}
			c, f := completed, failed
			mu.Unlock()

			if p.onProgress != nil {
				p.onProgress(c, len(jobs), f)
			}
			return nil
		})
	}
	_ = g.Wait()

	return results
}
