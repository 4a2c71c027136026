// Package engine implements the concurrent cell-lifecycle and
// spatial-partitioning core: the triple-buffered cell state store, the
// uniform grid rebuilt each tick by counting sort, the lock-free slot
// allocator that grows the population during mitosis, the adhesion graph,
// and the tick pipeline that sequences the stages across host and device.
package engine

import (
	"fmt"

	"github.com/pthm-cable/cytoplasm/config"
	"github.com/pthm-cable/cytoplasm/genome"
	"github.com/pthm-cable/cytoplasm/telemetry"
)

// kernelScratch holds per-worker reusable buffers. The free lists defer
// slot reclamation out of kernel code: SlotPool.Free may not race with
// Alloc, so kernels record retired slots here and the pipeline drains
// them on the host at the stage barrier.
type kernelScratch struct {
	neighbors []int32
	breaks    []int32 // bond slots whose break force was exceeded
	bondFrees []int32 // bond slots retired during the lifecycle stage
	cellFrees []int32 // cell slots from cancelled splits
}

// Simulation owns all device-resident simulation state and the pipeline
// that advances it. Host-side accessors (Stage, CellAt, SetCellTransform,
// RenderSnapshot, Reset) must not be called while Step is running.
type Simulation struct {
	cfg   *config.Config
	modes []genome.Mode

	device   *Device
	store    *Store
	grid     *SpatialGrid
	cellPool *SlotPool
	bondPool *SlotPool
	bonds    *AdhesionGraph
	ingest   *IngestionQueue
	surface  *CounterSurface

	scratch []kernelScratch

	// splitFlags carries split decisions from the lifecycle decide pass to
	// the apply pass. Entry i is only ever touched by the kernel for i.
	splitFlags []bool

	collector *telemetry.Collector
	perf      *telemetry.PerfCollector

	tick uint64
	dt   float64
}

// New creates a simulation from a finalized config and a validated mode
// table. The mode table is uploaded in full before the first tick and is
// read-only afterwards.
func New(cfg *config.Config, modes []genome.Mode) (*Simulation, error) {
	if len(modes) == 0 {
		return nil, fmt.Errorf("engine: mode table is empty")
	}
	for i, m := range modes {
		if int(m.ChildA.Mode) >= len(modes) || int(m.ChildB.Mode) >= len(modes) {
			return nil, fmt.Errorf("engine: mode %d references missing child mode", i)
		}
	}

	dev := NewDevice()
	cellPool := NewSlotPool(cfg.Capacity.Cells)
	bondPool := NewSlotPool(cfg.Capacity.Bonds)

	scratch := make([]kernelScratch, dev.Workers())
	for i := range scratch {
		scratch[i].neighbors = make([]int32, 0, 64)
	}

	s := &Simulation{
		cfg:        cfg,
		modes:      modes,
		device:     dev,
		store:      NewStore(cfg.Capacity.Cells),
		grid:       NewSpatialGrid(cfg.Grid.Resolution, cfg.World.Size, cfg.Grid.MaxPerCell, cfg.Capacity.Cells),
		cellPool:   cellPool,
		bondPool:   bondPool,
		bonds:      NewAdhesionGraph(bondPool),
		ingest:     NewIngestionQueue(cfg.Derived.AdditionSlots),
		surface:    NewCounterSurface(cellPool, bondPool),
		scratch:    scratch,
		splitFlags: make([]bool, cfg.Capacity.Cells),
		collector:  telemetry.NewCollector(cfg.Telemetry.StatsWindow, cfg.Physics.DT),
		perf:       telemetry.NewPerfCollector(cfg.Telemetry.PerfCollectorWindow),
		dt:         cfg.Physics.DT,
	}
	return s, nil
}

// Close shuts down the device workers.
func (s *Simulation) Close() { s.device.Stop() }

// Tick returns the number of completed ticks.
func (s *Simulation) Tick() uint64 { return s.tick }

// Counters returns the host-visible counter snapshot from the last refresh.
func (s *Simulation) Counters() CounterSnapshot { return s.surface.Snapshot() }

// Modes returns the uploaded mode table.
func (s *Simulation) Modes() []genome.Mode { return s.modes }

// Collector returns the stats collector.
func (s *Simulation) Collector() *telemetry.Collector { return s.collector }

// Perf returns the per-phase timing collector.
func (s *Simulation) Perf() *telemetry.PerfCollector { return s.perf }
