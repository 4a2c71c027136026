package engine

import (
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Instance is one cell prepared for host-side consumption: the transform
// and the display color resolved from its mode.
type Instance struct {
	Position    r3.Vec
	Orientation quat.Number
	Radius      float64
	Mode        int32
	Color       [3]float64
}

// Stage queues an externally authored cell for admission at the start of
// the next tick.
func (s *Simulation) Stage(c Cell) { s.ingest.Stage(c) }

// CellAt returns the committed record for slot i from the read buffer.
// Out-of-range indices, including slots not yet minted, return a zero
// record rather than panicking.
func (s *Simulation) CellAt(i int) Cell {
	if i < 0 || i >= int(s.cellPool.Total()) {
		return Cell{}
	}
	return s.store.Read()[i]
}

// SetCellTransform overwrites a cell's position and velocity in all three
// buffers so the edit survives any rotation phase. Must not be called
// while Step is running.
func (s *Simulation) SetCellTransform(i int, pos, vel r3.Vec) {
	if i < 0 || i >= int(s.cellPool.Total()) {
		return
	}
	for _, buf := range [][]Cell{s.store.Read(), s.store.Write(), s.store.Standby()} {
		buf[i].Position = pos
		buf[i].Velocity = vel
	}
}

// RenderSnapshot appends an Instance per committed cell to dst and returns
// the extended slice. Reads the read buffer only.
func (s *Simulation) RenderSnapshot(dst []Instance) []Instance {
	read := s.store.Read()
	n := int(s.cellPool.Total())
	for i := 0; i < n; i++ {
		c := &read[i]
		dst = append(dst, Instance{
			Position:    c.Position,
			Orientation: c.Orientation,
			Radius:      c.Radius(),
			Mode:        c.Mode,
			Color:       s.modes[c.Mode].Color,
		})
	}
	return dst
}

// Reset returns the simulation to its post-construction state: empty
// buffers, empty pools, no bonds, no staged or pending cells, tick zero,
// rotation zero.
func (s *Simulation) Reset() {
	s.store.Clear()
	s.grid.Clear()
	s.cellPool.Reset()
	s.bondPool.Reset()
	s.bonds.Reset()
	s.ingest.Reset()
	for i := range s.splitFlags {
		s.splitFlags[i] = false
	}
	for w := range s.scratch {
		s.scratch[w].breaks = s.scratch[w].breaks[:0]
		s.scratch[w].bondFrees = s.scratch[w].bondFrees[:0]
		s.scratch[w].cellFrees = s.scratch[w].cellFrees[:0]
	}
	s.surface.Refresh()
	s.collector.Reset()
	s.tick = 0
}
