package engine

import "log/slog"

// CounterSnapshot is the host-visible copy of the simulation counters,
// refreshed once per tick. It is the single source of truth for how many
// cells and bonds exist; counts are never inferred by scanning buffers.
type CounterSnapshot struct {
	CellsLive  int
	CellsTotal int
	BondsLive  int
	BondsTotal int
}

// LogValue implements slog.LogValuer for structured logging.
func (s CounterSnapshot) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("cells_live", s.CellsLive),
		slog.Int("cells_total", s.CellsTotal),
		slog.Int("bonds_live", s.BondsLive),
		slog.Int("bonds_total", s.BondsTotal),
	)
}

// CounterSurface mirrors the atomic slot-pool counters into a stable
// snapshot. Kernels mutate the pools concurrently during a dispatch;
// Refresh must only run at a barrier, when no dispatch is in flight.
type CounterSurface struct {
	cells *SlotPool
	bonds *SlotPool
	snap  CounterSnapshot
}

// NewCounterSurface creates a surface over the two pools.
func NewCounterSurface(cells, bonds *SlotPool) *CounterSurface {
	return &CounterSurface{cells: cells, bonds: bonds}
}

// Refresh copies the live counter values into the host snapshot.
func (s *CounterSurface) Refresh() {
	s.snap = CounterSnapshot{
		CellsLive:  s.cells.Live(),
		CellsTotal: s.cells.Total(),
		BondsLive:  s.bonds.Live(),
		BondsTotal: s.bonds.Total(),
	}
}

// Snapshot returns the counters as of the last Refresh.
func (s *CounterSurface) Snapshot() CounterSnapshot { return s.snap }
