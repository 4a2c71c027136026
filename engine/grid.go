package engine

import (
	"sync/atomic"

	"gonum.org/v1/gonum/spatial/r3"
)

// SpatialGrid is a uniform grid over the world cube, rebuilt from scratch
// every tick by a four-phase counting sort: clear, count, prefix-sum,
// scatter. A fresh rebuild avoids incremental-update bugs and stale
// neighbor lists at the cost of O(N) work per tick.
type SpatialGrid struct {
	resolution int
	cellSize   float64
	halfWorld  float64
	maxPerCell int32

	counts  []int32 // per-cell occupancy from the count phase
	cursors []int32 // per-cell claim counters for the scatter phase
	offsets []int32 // per-cell start offsets into indices
	indices []int32 // flat cell-index array, counting-sorted by grid cell
}

// NewSpatialGrid creates a grid of resolution^3 cells covering a cube of
// edge worldSize centered on the origin. capacity bounds the total entity
// count; maxPerCell caps occupancy per grid cell.
func NewSpatialGrid(resolution int, worldSize float64, maxPerCell, capacity int) *SpatialGrid {
	total := resolution * resolution * resolution
	return &SpatialGrid{
		resolution: resolution,
		cellSize:   worldSize / float64(resolution),
		halfWorld:  worldSize / 2,
		maxPerCell: int32(maxPerCell),
		counts:     make([]int32, total),
		cursors:    make([]int32, total),
		offsets:    make([]int32, total),
		indices:    make([]int32, capacity),
	}
}

// Rebuild runs the four phases over the given cell buffer. Each dispatch
// completes before the next begins, so every phase sees the previous
// phase's writes.
func (g *SpatialGrid) Rebuild(dev *Device, cells []Cell, n int) {
	if n == 0 {
		return
	}

	// Phase 1: clear per-cell counters.
	dev.Dispatch(len(g.counts), func(c, _ int) {
		atomic.StoreInt32(&g.counts[c], 0)
		atomic.StoreInt32(&g.cursors[c], 0)
	})

	// Phase 2: count entities per grid cell.
	dev.Dispatch(n, func(i, _ int) {
		c := g.cellIndex(cells[i].Position)
		atomic.AddInt32(&g.counts[c], 1)
	})

	// Phase 3: exclusive prefix sum of capped counts into start offsets.
	g.prefixSum()

	// Phase 4: scatter entity indices into claimed slots.
	dev.Dispatch(n, func(i, _ int) {
		c := g.cellIndex(cells[i].Position)
		k := atomic.AddInt32(&g.cursors[c], 1) - 1
		if k >= g.maxPerCell {
			return // cell over occupancy cap, entity silently dropped
		}
		g.indices[g.offsets[c]+k] = int32(i)
	})
}

func (g *SpatialGrid) prefixSum() {
	var sum int32
	for c := range g.counts {
		g.offsets[c] = sum
		sum += g.cappedCount(c)
	}
}

func (g *SpatialGrid) cappedCount(c int) int32 {
	n := g.counts[c]
	if n > g.maxPerCell {
		return g.maxPerCell
	}
	return n
}

// cellIndex maps a world position to a flat grid cell index, clamping to
// the world bounds.
func (g *SpatialGrid) cellIndex(p r3.Vec) int {
	x := g.axisCoord(p.X)
	y := g.axisCoord(p.Y)
	z := g.axisCoord(p.Z)
	return (z*g.resolution+y)*g.resolution + x
}

func (g *SpatialGrid) axisCoord(v float64) int {
	c := int((v + g.halfWorld) / g.cellSize)
	if c < 0 {
		return 0
	}
	if c >= g.resolution {
		return g.resolution - 1
	}
	return c
}

// NeighborsInto appends the indices of all entities in the 3x3x3 block of
// grid cells around p to dst and returns the updated slice. Reuse dst
// across calls to avoid allocations.
func (g *SpatialGrid) NeighborsInto(dst []int32, p r3.Vec) []int32 {
	cx := g.axisCoord(p.X)
	cy := g.axisCoord(p.Y)
	cz := g.axisCoord(p.Z)

	for dz := -1; dz <= 1; dz++ {
		z := cz + dz
		if z < 0 || z >= g.resolution {
			continue
		}
		for dy := -1; dy <= 1; dy++ {
			y := cy + dy
			if y < 0 || y >= g.resolution {
				continue
			}
			for dx := -1; dx <= 1; dx++ {
				x := cx + dx
				if x < 0 || x >= g.resolution {
					continue
				}
				c := (z*g.resolution+y)*g.resolution + x
				dst = append(dst, g.CellList(c)...)
			}
		}
	}
	return dst
}

// CellList returns the sorted index list for one grid cell. The returned
// slice aliases the grid's backing array and is valid until the next
// rebuild.
func (g *SpatialGrid) CellList(c int) []int32 {
	n := g.cappedCount(c)
	off := g.offsets[c]
	return g.indices[off : off+n]
}

// Clear zeroes the grid, used on simulation reset.
func (g *SpatialGrid) Clear() {
	for c := range g.counts {
		g.counts[c] = 0
		g.cursors[c] = 0
		g.offsets[c] = 0
	}
	for i := range g.indices {
		g.indices[i] = 0
	}
}
