package engine

import (
	"sort"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

func sortedCopy(s []int32) []int32 {
	out := append([]int32(nil), s...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func TestSpatialGrid_RebuildPlacesCells(t *testing.T) {
	d := NewDevice()
	defer d.Stop()

	g := NewSpatialGrid(4, 40, 8, 16)
	cells := make([]Cell, 3)
	cells[0].Position = r3.Vec{X: -15, Y: -15, Z: -15} // cell (0,0,0)
	cells[1].Position = r3.Vec{X: 15, Y: 15, Z: 15}    // cell (3,3,3)
	cells[2].Position = r3.Vec{X: -15, Y: -15, Z: -15} // same as 0

	g.Rebuild(d, cells, len(cells))

	low := g.CellList(g.cellIndex(cells[0].Position))
	if got := sortedCopy(low); len(got) != 2 || got[0] != 0 || got[1] != 2 {
		t.Errorf("low corner list = %v, want [0 2]", got)
	}
	high := g.CellList(g.cellIndex(cells[1].Position))
	if len(high) != 1 || high[0] != 1 {
		t.Errorf("high corner list = %v, want [1]", high)
	}
}

func TestSpatialGrid_RebuildIsIdempotent(t *testing.T) {
	d := NewDevice()
	defer d.Stop()

	g := NewSpatialGrid(8, 80, 16, 256)
	cells := make([]Cell, 256)
	for i := range cells {
		f := float64(i)
		cells[i].Position = r3.Vec{
			X: -35 + 0.27*f,
			Y: 35 - 0.27*f,
			Z: -35 + 0.13*f,
		}
	}

	g.Rebuild(d, cells, len(cells))
	first := make(map[int][]int32)
	for c := 0; c < 8*8*8; c++ {
		if l := g.CellList(c); len(l) > 0 {
			first[c] = sortedCopy(l)
		}
	}

	// A second rebuild of the same positions reproduces the same
	// partitioning; nothing from the first pass leaks through.
	g.Rebuild(d, cells, len(cells))
	total := 0
	for c := 0; c < 8*8*8; c++ {
		l := sortedCopy(g.CellList(c))
		total += len(l)
		want := first[c]
		if len(l) != len(want) {
			t.Fatalf("cell %d: %v after second rebuild, want %v", c, l, want)
		}
		for k := range l {
			if l[k] != want[k] {
				t.Fatalf("cell %d: %v after second rebuild, want %v", c, l, want)
			}
		}
	}
	if total != len(cells) {
		t.Errorf("second rebuild indexed %d cells, want %d", total, len(cells))
	}
}

func TestSpatialGrid_ClampsOutOfBounds(t *testing.T) {
	d := NewDevice()
	defer d.Stop()

	g := NewSpatialGrid(4, 40, 8, 8)
	cells := make([]Cell, 2)
	cells[0].Position = r3.Vec{X: -1000, Y: -1000, Z: -1000}
	cells[1].Position = r3.Vec{X: 1000, Y: 1000, Z: 1000}

	g.Rebuild(d, cells, len(cells))

	if l := g.CellList(0); len(l) != 1 || l[0] != 0 {
		t.Errorf("low corner cell = %v, want [0]", l)
	}
	last := 4*4*4 - 1
	if l := g.CellList(last); len(l) != 1 || l[0] != 1 {
		t.Errorf("high corner cell = %v, want [1]", l)
	}
}

func TestSpatialGrid_OccupancyCap(t *testing.T) {
	d := NewDevice()
	defer d.Stop()

	const maxPerCell = 4
	g := NewSpatialGrid(4, 40, maxPerCell, 64)

	// All 20 cells land in the same grid cell; only maxPerCell survive.
	cells := make([]Cell, 20)
	for i := range cells {
		cells[i].Position = r3.Vec{X: 5, Y: 5, Z: 5}
	}
	g.Rebuild(d, cells, len(cells))

	l := g.CellList(g.cellIndex(cells[0].Position))
	if len(l) != maxPerCell {
		t.Fatalf("overfull cell holds %d entries, want %d", len(l), maxPerCell)
	}
	seen := make(map[int32]bool)
	for _, idx := range l {
		if idx < 0 || int(idx) >= len(cells) {
			t.Fatalf("index %d out of range", idx)
		}
		if seen[idx] {
			t.Fatalf("index %d appears twice", idx)
		}
		seen[idx] = true
	}
}

func TestSpatialGrid_NeighborsInto(t *testing.T) {
	d := NewDevice()
	defer d.Stop()

	g := NewSpatialGrid(8, 80, 16, 16)
	cells := make([]Cell, 3)
	cells[0].Position = r3.Vec{X: 1, Y: 1, Z: 1}
	cells[1].Position = r3.Vec{X: 11, Y: 1, Z: 1}    // adjacent grid cell
	cells[2].Position = r3.Vec{X: -30, Y: -30, Z: -30} // far away

	g.Rebuild(d, cells, len(cells))

	got := sortedCopy(g.NeighborsInto(nil, cells[0].Position))
	if len(got) != 2 || got[0] != 0 || got[1] != 1 {
		t.Errorf("neighbors = %v, want [0 1]", got)
	}

	// Query at a world corner must not wrap around or panic.
	corner := g.NeighborsInto(nil, r3.Vec{X: -39, Y: -39, Z: -39})
	for _, idx := range corner {
		if idx != 2 {
			t.Errorf("corner query returned unexpected index %d", idx)
		}
	}
}
