package pipeline

import (
	"context"
	"sync"
)

// DefaultWorkers is the stage fan-out width when none is configured.
const DefaultWorkers = 5

// fanOut runs fn for each index with bounded concurrency and collects results
// in index order. Workers drain a task channel and write only their own slot;
// the caller merges after the join, so no mutable state is shared mid-flight.
func fanOut[T any](ctx context.Context, n, workers int, fn func(ctx context.Context, i int) T) []T {
	if n <= 0 {
		return nil
	}
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if workers > n {
		workers = n
	}

	tasks := make(chan int)
	out := make([]T, n)
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case i, ok := <-tasks:
					if !ok {
						return
					}
					out[i] = fn(ctx, i)
				}
			}
		}()
	}

feed:
	for i := 0; i < n; i++ {
		select {
		case <-ctx.Done():
			break feed
		case tasks <- i:
		}
	}
	close(tasks)
	wg.Wait()
	return out
}
