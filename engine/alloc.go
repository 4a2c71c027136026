package engine

import "sync/atomic"

// SlotPool hands out indices into a fixed-capacity array under contention
// from many concurrent workers. It combines a monotonic high-water mark
// (total) with an occupancy counter (live) and a stack of reclaimed slots.
//
// The reservation arithmetic is computed from single fetch-and-add results,
// never from separately read-then-written counters: two workers that load
// and store independently could claim the same free slot.
type SlotPool struct {
	capacity int32
	live     atomic.Int32 // occupied slots
	total    atomic.Int32 // slots ever claimed, never decreases past live
	free     []int32      // stack of reclaimed slot indices
}

// NewSlotPool creates a pool with the given fixed capacity.
func NewSlotPool(capacity int) *SlotPool {
	return &SlotPool{
		capacity: int32(capacity),
		free:     make([]int32, capacity),
	}
}

// Alloc claims a slot. It prefers reclaimed slots and mints a fresh index
// otherwise. When capacity is exhausted both counters are clamped back down
// and ok is false; the caller must abandon whatever needed the slot.
func (p *SlotPool) Alloc() (slot int32, ok bool) {
	r := p.live.Add(1)
	t := p.total.Load()
	if r <= t {
		// A reclaimed slot exists. The free stack holds total-live entries;
		// reservation r maps to stack position total-r.
		return p.free[t-r], true
	}

	n := p.total.Add(1)
	if n > p.capacity {
		storeMin(&p.total, p.capacity)
		storeMin(&p.live, p.capacity)
		return 0, false
	}
	return n - 1, true
}

// Free returns a slot to the pool for reuse. Alloc is safe to call from
// many workers at once, but the free stack write below is not ordered
// against concurrent Alloc reads, so Free must only run while no worker
// can allocate: kernels buffer retired slots and drain them at a stage
// barrier instead of calling Free directly.
func (p *SlotPool) Free(slot int32) {
	nl := p.live.Add(-1)
	t := p.total.Load()
	p.free[t-nl-1] = slot
}

// Live returns the current occupancy.
func (p *SlotPool) Live() int { return int(p.live.Load()) }

// Total returns the high-water mark of slots ever claimed.
func (p *SlotPool) Total() int { return int(p.total.Load()) }

// Capacity returns the fixed capacity.
func (p *SlotPool) Capacity() int { return int(p.capacity) }

// Remaining returns how many more slots can be claimed.
func (p *SlotPool) Remaining() int {
	r := int(p.capacity) - p.Live()
	if r < 0 {
		return 0
	}
	return r
}

// Reset empties the pool.
func (p *SlotPool) Reset() {
	p.live.Store(0)
	p.total.Store(0)
}

// storeMin lowers v to x unless it is already at or below x.
func storeMin(v *atomic.Int32, x int32) {
	for {
		cur := v.Load()
		if cur <= x || v.CompareAndSwap(cur, x) {
			return
		}
	}
}
