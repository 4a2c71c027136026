package engine

import (
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/cytoplasm/genome"
)

func TestStep_OverlappingCellsRepel(t *testing.T) {
	cfg := testConfig(t)
	s := newTestSim(t, cfg, []genome.Mode{inertMode()})

	a := NewCell(0)
	a.Position = r3.Vec{X: -0.5}
	b := NewCell(0)
	b.Position = r3.Vec{X: 0.5}
	s.Stage(a)
	s.Stage(b)

	before := 1.0
	for i := 0; i < 20; i++ {
		s.Step()
	}
	after := r3.Norm(r3.Sub(s.CellAt(1).Position, s.CellAt(0).Position))
	if after <= before {
		t.Errorf("separation %v after 20 ticks, want growth past %v", after, before)
	}

	// Repulsion is symmetric: the midpoint stays put.
	mid := r3.Scale(0.5, r3.Add(s.CellAt(0).Position, s.CellAt(1).Position))
	if !vecClose(mid, r3.Vec{}, 1e-6) {
		t.Errorf("midpoint drifted to %+v", mid)
	}
}

func TestStep_AdhesionPullsTowardRestLength(t *testing.T) {
	cfg := testConfig(t)
	modes := []genome.Mode{inertMode()}
	modes[0].Adhesion = genome.AdhesionParams{
		RestLength:    2.0,
		LinearSpring:  20.0,
		LinearDamping: 1.0,
	}
	s := newTestSim(t, cfg, modes)

	a := NewCell(0)
	a.Position = r3.Vec{X: -3}
	b := NewCell(0)
	b.Position = r3.Vec{X: 3}
	s.Stage(a)
	s.Stage(b)
	s.Step()

	if _, ok := s.bonds.Connect(s.store.Read(), 0, 1, 0); !ok {
		t.Fatal("Connect failed")
	}

	before := r3.Norm(r3.Sub(s.CellAt(1).Position, s.CellAt(0).Position))
	for i := 0; i < 50; i++ {
		s.Step()
	}
	after := r3.Norm(r3.Sub(s.CellAt(1).Position, s.CellAt(0).Position))

	if after >= before {
		t.Errorf("bonded cells at distance %v after 50 ticks, want pulled in from %v", after, before)
	}
	if s.Counters().BondsLive != 1 {
		t.Errorf("bonds live = %d, want intact 1", s.Counters().BondsLive)
	}
}

func TestStep_OverstressedBondBreaks(t *testing.T) {
	cfg := testConfig(t)
	modes := []genome.Mode{inertMode()}
	modes[0].Adhesion = genome.AdhesionParams{
		CanBreak:     true,
		BreakForce:   10.0,
		RestLength:   2.0,
		LinearSpring: 50.0,
	}
	s := newTestSim(t, cfg, modes)

	a := NewCell(0)
	a.Position = r3.Vec{X: -5}
	b := NewCell(0)
	b.Position = r3.Vec{X: 5}
	s.Stage(a)
	s.Stage(b)
	s.Step()

	// Stretch 8 past rest length at spring 50 is far beyond the break
	// force, so the bond snaps on the next tick.
	if _, ok := s.bonds.Connect(s.store.Read(), 0, 1, 0); !ok {
		t.Fatal("Connect failed")
	}
	s.Step()

	if got := s.Counters().BondsLive; got != 0 {
		t.Fatalf("bonds live = %d, want snapped 0", got)
	}
	read := s.store.Read()
	for i := 0; i < 2; i++ {
		for _, slot := range read[i].Bonds {
			if slot != BondNone {
				t.Errorf("cell %d still references bond %d after break", i, slot)
			}
		}
	}

	stats := s.Collector().Flush(s.Tick(), 2, 0)
	if stats.BondsBroken == 0 {
		t.Error("break not recorded in telemetry")
	}
}
