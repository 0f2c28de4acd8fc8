// Package workerpool provides a persistent pool of goroutine "lanes"
// standing in for a GPU block's warp of worker threads: lanes are
// spawned once when EvaluateProposal starts and reused across every
// exposure and every band, so pixel-level parallelism never pays a
// per-call goroutine-spawn cost.
//
// Each lane owns its own dedicated job slot rather than pulling from a
// shared queue, so a lane's position in the pool is a stable identity
// across calls — EvaluateProposal relies on that to address a fixed
// per-lane accumulator bucket instead of routing through a shared
// counter.
package workerpool

import (
	"runtime"
	"sync"
)

// lane is one persistent worker goroutine. jobs delivers one closure at
// a time; done reports back when it finishes, one signal per job.
type lane struct {
	jobs chan func()
	done chan struct{}
}

func newLane() *lane {
	l := &lane{jobs: make(chan func()), done: make(chan struct{})}
	go l.run()
	return l
}

func (l *lane) run() {
	for job := range l.jobs {
		job()
		l.done <- struct{}{}
	}
}

// Pool is a fixed set of lanes reused across many ParallelFor and
// ParallelForAtomic calls.
type Pool struct {
	lanes []*lane

	mu     sync.Mutex
	closed bool
}

// New creates a Pool with the given number of lanes. If numWorkers is
// <= 0, runtime.GOMAXPROCS(0) is used instead, matching one lane per
// available core.
func New(numWorkers int) *Pool {
	if numWorkers <= 0 {
		numWorkers = runtime.GOMAXPROCS(0)
	}

	p := &Pool{lanes: make([]*lane, numWorkers)}
	for i := range p.lanes {
		p.lanes[i] = newLane()
	}
	return p
}

// NumWorkers returns the number of lanes backing the pool.
func (p *Pool) NumWorkers() int {
	return len(p.lanes)
}

// Close shuts every lane down. Any in-flight ParallelFor or
// ParallelForAtomic calls complete first. Calling Close more than once
// is safe.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	for _, l := range p.lanes {
		close(l.jobs)
	}
}

func (p *Pool) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// ParallelFor partitions [0, n) into one contiguous range per lane,
// assigns lane w range w deterministically, and blocks until every
// range completes. This is the pixel-level barrier described in the
// concurrency model: every lane must finish its chunk of a pixel
// block's residual-and-derivative pass before the block-level
// reduction can run, and a given lane always owns the same chunk index
// for a fixed (n, lane count) pair.
func (p *Pool) ParallelFor(n int, fn func(start, end int)) {
	if n <= 0 {
		return
	}

	if p.isClosed() {
		fn(0, n)
		return
	}

	workers := len(p.lanes)
	if n < workers {
		workers = n
	}

	if workers <= 1 {
		fn(0, n)
		return
	}

	chunk := (n + workers - 1) / workers

	dispatched := 0
	for w := 0; w < workers; w++ {
		start := w * chunk
		if start >= n {
			break
		}
		end := start + chunk
		if end > n {
			end = n
		}
		p.lanes[w].jobs <- func() { fn(start, end) }
		dispatched++
	}

	for w := 0; w < dispatched; w++ {
		<-p.lanes[w].done
	}
}

// ParallelForAtomic runs fn(i) for every i in [0, n), handing indices
// out from a pre-loaded, closed channel that every participating lane
// drains concurrently rather than statically chunking up front. This
// gives better load balance than ParallelFor when per-pixel cost
// varies, e.g. when MAX_EXP_ARG clipping causes some pixels to
// short-circuit their Gaussian sum: a lane that finishes its current
// index early immediately receives the next one instead of sitting
// idle on an oversized static chunk.
func (p *Pool) ParallelForAtomic(n int, fn func(i int)) {
	if n <= 0 {
		return
	}

	if p.isClosed() {
		for i := 0; i < n; i++ {
			fn(i)
		}
		return
	}

	workers := len(p.lanes)
	if n < workers {
		workers = n
	}

	if workers <= 1 {
		for i := 0; i < n; i++ {
			fn(i)
		}
		return
	}

	indices := make(chan int, n)
	for i := 0; i < n; i++ {
		indices <- i
	}
	close(indices)

	for w := 0; w < workers; w++ {
		p.lanes[w].jobs <- func() {
			for idx := range indices {
				fn(idx)
			}
		}
	}

	for w := 0; w < workers; w++ {
		<-p.lanes[w].done
	}
}
