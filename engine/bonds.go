package engine

import "sync/atomic"

// Bond is one adhesion connection between two sibling cells. The Mode
// governing the bond supplies its spring parameters. An inactive bond's
// slot is eligible for reuse; an active bond references two live cells,
// each of which holds this bond's slot index in its own bond list.
type Bond struct {
	A, B   int32
	Mode   int32
	Active bool
}

// AdhesionGraph is the sparse table of bonds plus the allocator that hands
// out bond slots. Cell-side bond list entries are mutated with atomic
// compare-and-swap so that many lifecycle workers can relocate bonds on
// shared neighbors concurrently.
type AdhesionGraph struct {
	bonds []Bond
	pool  *SlotPool
}

// NewAdhesionGraph creates a graph backed by the given slot pool.
func NewAdhesionGraph(pool *SlotPool) *AdhesionGraph {
	return &AdhesionGraph{
		bonds: make([]Bond, pool.Capacity()),
		pool:  pool,
	}
}

// At returns the bond stored in the given slot.
func (g *AdhesionGraph) At(slot int32) Bond { return g.bonds[slot] }

// Pool returns the bond slot pool.
func (g *AdhesionGraph) Pool() *SlotPool { return g.pool }

// Connect allocates a bond between cells a and b and records it in both
// bond lists. On any failure (pool exhausted, either list full) the
// allocation is rolled back and ok is false; committed state is untouched.
func (g *AdhesionGraph) Connect(cells []Cell, a, b, mode int32) (slot int32, ok bool) {
	slot, ok = g.pool.Alloc()
	if !ok {
		return 0, false
	}
	g.bonds[slot] = Bond{A: a, B: b, Mode: mode, Active: true}

	if !attachRef(&cells[a], slot) {
		g.bonds[slot].Active = false
		g.pool.Free(slot)
		return 0, false
	}
	if !attachRef(&cells[b], slot) {
		clearRef(&cells[a], slot)
		g.bonds[slot].Active = false
		g.pool.Free(slot)
		return 0, false
	}
	return slot, true
}

// Sever deactivates a bond, removes it from both endpoint lists, and
// returns its slot for reuse.
func (g *AdhesionGraph) Sever(cells []Cell, slot int32) {
	b := &g.bonds[slot]
	if !b.Active {
		return
	}
	b.Active = false
	clearRef(&cells[b.A], slot)
	clearRef(&cells[b.B], slot)
	g.pool.Free(slot)
}

// set installs a bond record into an already-allocated slot.
func (g *AdhesionGraph) set(slot int32, b Bond) { g.bonds[slot] = b }

// retire marks a bond inactive without touching any cell bond list or
// the pool; callers handle their own list surgery and must hand the slot
// to Free once no worker can still allocate concurrently.
func (g *AdhesionGraph) retire(slot int32) {
	g.bonds[slot].Active = false
}

// Partner returns the other endpoint of the bond in slot, or -1 if the
// bond does not involve cell i.
func (g *AdhesionGraph) Partner(slot, i int32) int32 {
	b := g.bonds[slot]
	switch i {
	case b.A:
		return b.B
	case b.B:
		return b.A
	}
	return -1
}

// Reset deactivates every bond and empties the pool.
func (g *AdhesionGraph) Reset() {
	for i := range g.bonds {
		g.bonds[i] = Bond{}
	}
	g.pool.Reset()
}

// attachRef claims an empty entry in the cell's bond list via CAS.
// Returns false when all entries are occupied.
func attachRef(c *Cell, slot int32) bool {
	for k := range c.Bonds {
		if atomic.CompareAndSwapInt32(&c.Bonds[k], BondNone, slot) {
			return true
		}
	}
	return false
}

// clearRef empties the list entry holding slot, if present.
func clearRef(c *Cell, slot int32) {
	for k := range c.Bonds {
		if atomic.CompareAndSwapInt32(&c.Bonds[k], slot, BondNone) {
			return
		}
	}
}

// replaceRef swaps an old slot reference for a new one in place, keeping
// the entry position stable so concurrent workers touching other entries
// of the same list never collide.
func replaceRef(c *Cell, old, new int32) bool {
	for k := range c.Bonds {
		if atomic.CompareAndSwapInt32(&c.Bonds[k], old, new) {
			return true
		}
	}
	return false
}
