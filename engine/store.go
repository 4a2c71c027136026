package engine

import (
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	// SignalCount is the width of the signalling-substance vector.
	SignalCount = 4

	// BondSlots is the fixed per-cell bond list length. The packing and
	// atomic slot math assume a fixed stride, so this stays a constant
	// rather than a dynamic collection.
	BondSlots = 20

	// BondNone marks an empty bond list entry.
	BondNone int32 = -1
)

// Cell is one simulated cell. Mass doubles as the radius; both are held at
// 1.0 for every cell.
type Cell struct {
	Position r3.Vec
	Mass     float64

	Velocity     r3.Vec
	Acceleration r3.Vec

	Orientation         quat.Number
	AngularVelocity     r3.Vec
	AngularAcceleration r3.Vec

	Signals [SignalCount]float64
	Mode    int32

	// Age increases monotonically except immediately after a split, where
	// it is reset to the overflow beyond the split interval so elapsed time
	// is conserved rather than discarded.
	Age float64

	Bonds [BondSlots]int32
}

// NewCell returns a cell in the given mode with identity orientation,
// unit mass, and an empty bond list.
func NewCell(mode int32) Cell {
	c := Cell{
		Mass:        1.0,
		Orientation: quat.Number{Real: 1},
		Mode:        mode,
	}
	clearBonds(&c)
	return c
}

// Radius returns the cell's collision radius.
func (c *Cell) Radius() float64 { return c.Mass }

func clearBonds(c *Cell) {
	for i := range c.Bonds {
		c.Bonds[i] = BondNone
	}
}

// Store holds the triple-buffered cell state. One buffer is read
// (authoritative state from the previous tick), one is write (being
// produced this tick), and the third decouples host readback from the
// writes that start immediately after rotation.
type Store struct {
	buffers  [3][]Cell
	rotation int
}

// NewStore allocates three buffers of the given fixed capacity.
func NewStore(capacity int) *Store {
	s := &Store{}
	for i := range s.buffers {
		s.buffers[i] = make([]Cell, capacity)
	}
	return s
}

// Read returns the buffer holding the previous tick's final state.
func (s *Store) Read() []Cell { return s.buffers[s.rotation] }

// Write returns the buffer being produced this tick.
func (s *Store) Write() []Cell { return s.buffers[(s.rotation+1)%3] }

// Standby returns the third buffer, safe for host readback while the
// current tick runs.
func (s *Store) Standby() []Cell { return s.buffers[(s.rotation+2)%3] }

// Rotate reassigns the three buffer roles cyclically: write becomes read,
// standby becomes write, read becomes standby. No data is copied.
func (s *Store) Rotate() { s.rotation = (s.rotation + 1) % 3 }

// Rotation returns the current rotation phase in [0, 3).
func (s *Store) Rotation() int { return s.rotation }

// Clear zeroes all three buffers and resets the rotation.
func (s *Store) Clear() {
	for i := range s.buffers {
		buf := s.buffers[i]
		for j := range buf {
			buf[j] = Cell{}
		}
	}
	s.rotation = 0
}
