package parallel

import (
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Workers resolves an n_jobs style setting into a worker count for items tasks.
// Values <= 0 mean "all CPUs" (n_jobs=-1); the result never exceeds items.
func Workers(nJobs, items int) int {
	n := nJobs
	if n <= 0 {
		n = runtime.NumCPU()
	}
	if n > items {
		n = items
	}
	if n < 1 {
		n = 1
	}
	return n
}

// Parallelize divides items into contiguous ranges, one per worker, and
// executes fn for each range (start, end) concurrently.
func Parallelize(items, nJobs int, fn func(start, end int)) {
	if items == 0 {
		return
	}

	numWorkers := Workers(nJobs, items)

	// ceiling division
	chunkSize := (items + numWorkers - 1) / numWorkers

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		start := i * chunkSize
		end := start + chunkSize
		if end > items {
			end = items
		}
		if start >= end {
			continue
		}

		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			fn(s, e)
		}(start, end)
	}
	wg.Wait()
}

// ForEach calls fn(i) for every i in [0, items) with at most Workers(nJobs, items)
// calls in flight and returns the first error.
func ForEach(items, nJobs int, fn func(i int) error) error {
	if items == 0 {
		return nil
	}
	var g errgroup.Group
	g.SetLimit(Workers(nJobs, items))
	for i := 0; i < items; i++ {
		g.Go(func() error {
			return fn(i)
		})
	}
	return g.Wait()
}
