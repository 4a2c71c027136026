package engine

import (
	"runtime"
	"sync"
)

// dispatchThreshold is the minimum work-item count to use parallel
// processing. Below this, single-threaded is faster due to goroutine
// overhead.
const dispatchThreshold = 64

// Kernel is one work item of a dispatch: a pure function of the item index
// plus the worker slot, used to select per-worker scratch space. Workers
// within a dispatch must not assume any relative execution order; all
// cross-worker coordination goes through atomics.
type Kernel func(i, worker int)

// dispatchChunk is a contiguous index range handed to one worker.
type dispatchChunk struct {
	start, end int
	worker     int
	kernel     Kernel
}

// Device models the parallel compute device: a pool of persistent workers
// that execute kernels over index ranges. Dispatch returns only after every
// worker has finished, so a completed dispatch doubles as the full memory
// barrier between pipeline stages.
type Device struct {
	numWorkers int

	workChan chan dispatchChunk
	doneChan chan struct{}
	stopChan chan struct{}
	wg       sync.WaitGroup
	running  bool
}

// NewDevice creates a device with one worker per available CPU.
func NewDevice() *Device {
	return &Device{numWorkers: runtime.GOMAXPROCS(0)}
}

// Workers returns the worker pool size (and therefore the number of
// scratch slots a caller must provision).
func (d *Device) Workers() int { return d.numWorkers }

// start launches the persistent worker goroutines.
func (d *Device) start() {
	if d.running {
		return
	}
	d.workChan = make(chan dispatchChunk, d.numWorkers)
	d.doneChan = make(chan struct{}, d.numWorkers)
	d.stopChan = make(chan struct{})
	d.running = true

	for i := 0; i < d.numWorkers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
}

// Stop signals all workers to exit and waits for them.
func (d *Device) Stop() {
	if !d.running {
		return
	}
	close(d.stopChan)
	d.wg.Wait()
	close(d.workChan)
	close(d.doneChan)
	d.running = false
}

func (d *Device) worker() {
	defer d.wg.Done()
	for {
		select {
		case <-d.stopChan:
			return
		case chunk, ok := <-d.workChan:
			if !ok {
				return
			}
			for i := chunk.start; i < chunk.end; i++ {
				chunk.kernel(i, chunk.worker)
			}
			d.doneChan <- struct{}{}
		}
	}
}

// Dispatch runs kernel for every index in [0, n) and returns once all
// writes made by the kernel are visible to the caller.
func (d *Device) Dispatch(n int, kernel Kernel) {
	if n <= 0 {
		return
	}

	if n < dispatchThreshold {
		for i := 0; i < n; i++ {
			kernel(i, 0)
		}
		return
	}

	if !d.running {
		d.start()
	}

	chunkSize := (n + d.numWorkers - 1) / d.numWorkers
	dispatched := 0
	for w := 0; w < d.numWorkers; w++ {
		start := w * chunkSize
		end := start + chunkSize
		if end > n {
			end = n
		}
		if start >= end {
			continue
		}
		d.workChan <- dispatchChunk{start: start, end: end, worker: w, kernel: kernel}
		dispatched++
	}

	for i := 0; i < dispatched; i++ {
		<-d.doneChan
	}
}
