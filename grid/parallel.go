package grid

import (
	"runtime"
	"sync"
)

// parallelThreshold is the minimum slot count before the stencil fans out
// across goroutines. Below it the goroutine overhead outweighs the work.
const parallelThreshold = 1024

// workerCount resolves a requested worker count against the row budget.
func workerCount(requested, rows, slots int) int {
	if slots < parallelThreshold {
		return 1
	}
	n := requested
	if n <= 0 {
		n = runtime.GOMAXPROCS(0)
	}
	return max(1, min(n, rows))
}

// forRows splits [0, rows) into contiguous chunks and runs fn on each, one
// goroutine per chunk. Chunks never overlap, so fn may write its rows of a
// shared output without locking.
func forRows(rows, workers int, fn func(r0, r1 int)) {
	if workers <= 1 || rows <= 1 {
		fn(0, rows)
		return
	}

	chunkSize := (rows + workers - 1) / workers
	var wg sync.WaitGroup
	for start := 0; start < rows; start += chunkSize {
		end := min(start+chunkSize, rows)
		wg.Add(1)
		go func(r0, r1 int) {
			defer wg.Done()
			fn(r0, r1)
		}(start, end)
	}
	wg.Wait()
}
