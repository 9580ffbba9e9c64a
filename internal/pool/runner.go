// Package pool implements the bounded worker pool used for crawl fan-out.
package pool

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Runner executes batches of independent tasks against a fixed-size worker
// pool. Pool size is set once at process start and shared by every batch;
// it is not resized concurrently with in-flight work.
type Runner struct {
	sem    chan struct{}
	logger *zap.Logger
}

// New constructs a Runner with the given worker count.
func New(size int, logger *zap.Logger) *Runner {
	if size <= 0 {
		size = 4
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		sem:    make(chan struct{}, size),
		logger: logger,
	}
}

// Size reports the worker count.
func (r *Runner) Size() int { return cap(r.sem) }

// Task produces a slice of results, so batch results are flattened rather
// than one-per-task.
type Task[T any] func(ctx context.Context) ([]T, error)

// Collect runs every task through the runner's pool and returns the
// flattened results. A task that fails is logged and excluded; partial
// failure is the normal case, not fatal. Results arrive in completion
// order, so callers must sort downstream if order matters.
func Collect[T any](ctx context.Context, r *Runner, tasks []Task[T]) []T {
	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		out []T
	)
	for i, task := range tasks {
		wg.Add(1)
		go func(index int, run Task[T]) {
			defer wg.Done()
			select {
			case r.sem <- struct{}{}:
				defer func() { <-r.sem }()
			case <-ctx.Done():
				r.logger.Warn("task skipped, context done",
					zap.Int("task", index), zap.Error(ctx.Err()))
				return
			}
			items, err := run(ctx)
			if err != nil {
				r.logger.Warn("task failed",
					zap.Int("task", index), zap.Error(err))
				return
			}
			mu.Lock()
			out = append(out, items...)
			mu.Unlock()
		}(i, task)
	}
	wg.Wait()
	return out
}
