package engine

import (
	"log/slog"

	"github.com/pthm-cable/cytoplasm/telemetry"
)

// Step advances the simulation by one tick. Stages run in a fixed order
// with a full barrier between them: each Dispatch returns only after every
// kernel invocation has completed, so a stage always observes its
// predecessor's writes.
func (s *Simulation) Step() {
	s.perf.StartTick()

	s.perf.StartPhase(telemetry.PhaseCounters)
	s.surface.Refresh()

	s.perf.StartPhase(telemetry.PhaseAdmission)
	s.admitStaged()

	// Cells admitted above participate this tick; slots minted by mitosis
	// below the lifecycle stage join the next one.
	n := int(s.cellPool.Total())

	s.perf.StartPhase(telemetry.PhaseSpatialGrid)
	s.grid.Rebuild(s.device, s.store.Read(), n)

	s.perf.StartPhase(telemetry.PhasePhysics)
	s.device.Dispatch(n, s.physicsKernel)
	s.severBroken()

	s.perf.StartPhase(telemetry.PhaseIntegration)
	s.device.Dispatch(n, s.integrateKernel)

	// Lifecycle runs as two dispatches: decide on stable state, then apply
	// the splits once every decision is final.
	s.perf.StartPhase(telemetry.PhaseLifecycle)
	s.device.Dispatch(n, s.lifecycleDecideKernel)
	s.device.Dispatch(n, s.lifecycleApplyKernel)
	s.reclaimFreed()

	s.perf.StartPhase(telemetry.PhaseAdditions)
	s.applyAdditions()

	s.surface.Refresh()
	s.store.Rotate()
	s.tick++

	s.perf.EndTick()
}

// severBroken tears down the bonds the physics kernels flagged as
// overstressed. Runs on the host at the post-physics barrier; Sever is
// idempotent, so a bond recorded by both endpoints is torn down once.
func (s *Simulation) severBroken() {
	write := s.store.Write()
	for w := range s.scratch {
		sc := &s.scratch[w]
		for _, slot := range sc.breaks {
			if s.bonds.At(slot).Active {
				s.bonds.Sever(write, slot)
				s.collector.RecordBondBroken()
			}
		}
		sc.breaks = sc.breaks[:0]
	}
}

// reclaimFreed returns the slots the lifecycle kernels retired back to
// their pools. Runs on the host after the apply pass's barrier, once no
// worker can allocate concurrently.
func (s *Simulation) reclaimFreed() {
	for w := range s.scratch {
		sc := &s.scratch[w]
		for _, slot := range sc.bondFrees {
			s.bondPool.Free(slot)
		}
		sc.bondFrees = sc.bondFrees[:0]
		for _, slot := range sc.cellFrees {
			s.cellPool.Free(slot)
		}
		sc.cellFrees = sc.cellFrees[:0]
	}
}

// admitStaged moves externally staged cells into freshly allocated slots.
// Each admitted cell is written to both the read and write buffers so it
// is visible to this tick's grid build and survives the copy-forward.
func (s *Simulation) admitStaged() {
	staged := s.ingest.TakeStaged()
	if len(staged) == 0 {
		return
	}
	read := s.store.Read()
	write := s.store.Write()
	rejected := 0
	for i := range staged {
		slot, ok := s.cellPool.Alloc()
		if !ok {
			rejected++
			s.collector.RecordStagedRejected()
			continue
		}
		read[slot] = staged[i]
		write[slot] = staged[i]
		s.collector.RecordStagedAdmitted()
	}
	if rejected > 0 {
		slog.Warn("staged cells rejected at capacity",
			"rejected", rejected,
			"staged", len(staged),
			"capacity", s.cellPool.Capacity())
	}
}

// applyAdditions commits the children produced by this tick's lifecycle
// stage into their reserved slots, again in both buffers, so they become
// simulated cells after the rotation below.
func (s *Simulation) applyAdditions() {
	read := s.store.Read()
	write := s.store.Write()
	for _, a := range s.ingest.Additions() {
		read[a.Slot] = a.Cell
		write[a.Slot] = a.Cell
	}
	s.ingest.ResetPending()
}
