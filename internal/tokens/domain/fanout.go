package domain

import (
	"context"
	"log/slog"
	"sync"
)

// task is one unit of concurrent work. fallback is its contribution when the
// task panics or has not finished when the context ends.
type task[T any] struct {
	name     string
	run      func(ctx context.Context) T
	fallback T
}

// fanOut runs every task in its own goroutine and joins them under ctx.
// The result has one entry per task, in task order. Once ctx is done,
// results that already completed are kept and the rest are abandoned.
func fanOut[T any](ctx context.Context, logger *slog.Logger, tasks []task[T]) []T {
	type result struct {
		idx int
		val T
	}

	out := make([]T, len(tasks))
	for i, t := range tasks {
		out[i] = t.fallback
	}
	if len(tasks) == 0 {
		return out
	}

	results := make(chan result, len(tasks))
	var wg sync.WaitGroup

	for i, t := range tasks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			val := t.fallback
			defer func() {
				if r := recover(); r != nil {
					logger.Error("task panicked", "task", t.name, "panic", r)
					val = t.fallback
				}
				results <- result{idx: i, val: val}
			}()
			val = t.run(ctx)
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	for {
		select {
		case r, ok := <-results:
			if !ok {
				return out
			}
			out[r.idx] = r.val
		case <-ctx.Done():
			for {
				select {
				case r, ok := <-results:
					if !ok {
						return out
					}
					out[r.idx] = r.val
				default:
					logger.Debug("fan-out deadline reached", "tasks", len(tasks))
					return out
				}
			}
		}
	}
}
