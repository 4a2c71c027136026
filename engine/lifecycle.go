package engine

import (
	"sync/atomic"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/cytoplasm/genome"
)

// splitPriority is the stable pseudo-random priority used to order bonded
// split candidates within a tick.
func splitPriority(i int32, tick uint64) uint64 {
	return hash64(uint64(uint32(i)) ^ tick)
}

// lifecycleDecideKernel is the first lifecycle pass. It ages growing
// cells and flags split winners, mutating nothing else, so every
// candidate judges its bonded partners against stable state. A candidate
// defers when any bonded partner is a candidate with strictly higher
// priority; ties break toward the higher index. Bonded pairs therefore
// never split in the same tick, which is what makes the apply pass's
// bond surgery on non-splitting partners safe.
func (s *Simulation) lifecycleDecideKernel(i, _ int) {
	read := s.store.Read()
	write := s.store.Write()
	c := &write[i]
	mode := &s.modes[c.Mode]

	if c.Age < mode.SplitInterval {
		c.Age += s.dt
		return
	}

	pri := splitPriority(int32(i), s.tick)
	for k := range c.Bonds {
		bs := atomic.LoadInt32(&c.Bonds[k])
		if bs == BondNone {
			continue
		}
		b := s.bonds.At(bs)
		if !b.Active {
			continue
		}
		p := s.bonds.Partner(bs, int32(i))
		if p < 0 || int(p) >= len(read) {
			continue
		}
		if read[p].Age < s.modes[read[p].Mode].SplitInterval {
			continue
		}
		pp := splitPriority(p, s.tick)
		if pp > pri || (pp == pri && p > int32(i)) {
			s.collector.RecordSplitDeferred()
			return
		}
	}

	s.splitFlags[i] = true
}

// lifecycleApplyKernel is the second lifecycle pass, running after the
// decide pass's barrier. Only flagged cells mutate shared state here, and
// no two of them share a bond.
func (s *Simulation) lifecycleApplyKernel(i, worker int) {
	if !s.splitFlags[i] {
		return
	}
	s.splitFlags[i] = false

	write := s.store.Write()
	c := &write[i]
	s.split(int32(i), c, &s.modes[c.Mode], &s.scratch[worker])
}

// split divides the cell in write slot idx into two children. Child A
// overwrites the parent slot; child B is committed to the addition buffer
// with a freshly allocated slot. All allocation failures degrade
// gracefully: the split is cancelled, or an individual bond is skipped,
// without ever leaving a half-constructed record. Retired slots go into
// the worker's scratch free lists; the pipeline reclaims them at the
// lifecycle barrier.
func (s *Simulation) split(idx int32, parent *Cell, mode *genome.Mode, sc *kernelScratch) {
	write := s.store.Write()

	// Reserve the child slot and the addition entry before any mutation so
	// failure cancels cleanly.
	childSlot, ok := s.cellPool.Alloc()
	if !ok {
		s.collector.RecordSplitCancelled()
		return
	}
	addIdx, ok := s.ingest.ReserveChild()
	if !ok {
		sc.cellFrees = append(sc.cellFrees, childSlot)
		s.collector.RecordSplitCancelled()
		return
	}

	parentMode := parent.Mode
	overflow := parent.Age - mode.SplitInterval

	childA := *parent
	childB := *parent
	clearBonds(&childA)
	clearBonds(&childB)

	worldDir := rotateVec(parent.Orientation, mode.SplitDirection)
	offset := r3.Scale(parent.Radius()*s.cfg.Lifecycle.SplitOffset, worldDir)
	childA.Position = r3.Add(parent.Position, offset)
	childB.Position = r3.Sub(parent.Position, offset)

	childA.Mode = mode.ChildA.Mode
	childB.Mode = mode.ChildB.Mode

	// Elapsed time is conserved: both children resume at the overflow past
	// the split interval.
	childA.Age = overflow
	childB.Age = overflow

	childA.Orientation = s.childOrientation(parent.Orientation, mode.ChildA.Orientation, idx)
	childB.Orientation = s.childOrientation(parent.Orientation, mode.ChildB.Orientation, childSlot)

	// Relocate the parent's bonds to the children per the mode's flags.
	for k := range parent.Bonds {
		bs := atomic.LoadInt32(&parent.Bonds[k])
		if bs == BondNone {
			continue
		}
		b := s.bonds.At(bs)
		if !b.Active {
			continue
		}
		partner := s.bonds.Partner(bs, idx)
		if partner < 0 {
			continue
		}

		s.bonds.retire(bs)
		sc.bondFrees = append(sc.bondFrees, bs)

		// reused marks whether a replacement took over the partner's old
		// list entry; otherwise the stale entry is cleared at the end.
		reused := false

		if mode.ChildA.KeepAdhesion {
			reused = s.inheritBond(&childA, idx, partner, b.Mode, write, bs, reused, sc)
		}
		if mode.ChildB.KeepAdhesion {
			reused = s.inheritBond(&childB, childSlot, partner, b.Mode, write, bs, reused, sc)
		}
		if !reused {
			replaceRef(&write[partner], bs, BondNone)
		}
	}

	// Optionally bond the two children to each other.
	if mode.MakeAdhesion {
		if ns, bok := s.bondPool.Alloc(); bok {
			s.bonds.set(ns, Bond{A: idx, B: childSlot, Mode: parentMode, Active: true})
			if addLocalRef(&childA, ns) && addLocalRef(&childB, ns) {
				s.collector.RecordBondCreated()
			} else {
				removeLocalRef(&childA, ns)
				removeLocalRef(&childB, ns)
				s.bonds.retire(ns)
				sc.bondFrees = append(sc.bondFrees, ns)
				s.collector.RecordBondDropped()
			}
		} else {
			s.collector.RecordBondDropped()
		}
	}

	// Commit both children exactly once, after all inheritance logic.
	*parent = childA
	s.ingest.CommitChild(addIdx, childSlot, childB)
	s.collector.RecordSplit()
}

// inheritBond creates a replacement bond from a child to the parent's old
// partner. When the partner's old list entry has not been reused yet the
// replacement takes it over in place; otherwise it claims an empty entry.
// Returns whether the old entry is now reused. Failures skip just this
// bond.
func (s *Simulation) inheritBond(child *Cell, childIdx, partner, bondMode int32, write []Cell, oldSlot int32, reused bool, sc *kernelScratch) bool {
	ns, ok := s.bondPool.Alloc()
	if !ok {
		s.collector.RecordBondDropped()
		return reused
	}
	s.bonds.set(ns, Bond{A: childIdx, B: partner, Mode: bondMode, Active: true})

	if !addLocalRef(child, ns) {
		s.bonds.retire(ns)
		sc.bondFrees = append(sc.bondFrees, ns)
		s.collector.RecordBondDropped()
		return reused
	}

	var attached bool
	if !reused {
		attached = replaceRef(&write[partner], oldSlot, ns)
	} else {
		attached = attachRef(&write[partner], ns)
	}
	if !attached {
		removeLocalRef(child, ns)
		s.bonds.retire(ns)
		sc.bondFrees = append(sc.bondFrees, ns)
		s.collector.RecordBondDropped()
		return reused
	}

	s.collector.RecordBondCreated()
	return true
}

// childOrientation composes the parent orientation with the mode's child
// rotation and a tiny deterministic perturbation keyed by the child's slot
// index, breaking the perfect symmetry of simultaneous splits.
func (s *Simulation) childOrientation(parentQ, childQ quat.Number, childIdx int32) quat.Number {
	base := quat.Mul(parentQ, childQ)
	h := hash64(uint64(uint32(childIdx)) + s.tick<<20)
	perturb := axisAngle(hashUnitVec(h), s.cfg.Lifecycle.PerturbAngle)
	return normalizeQuat(quat.Mul(perturb, base))
}

// addLocalRef fills the first empty entry of a locally owned bond list.
func addLocalRef(c *Cell, slot int32) bool {
	for k := range c.Bonds {
		if c.Bonds[k] == BondNone {
			c.Bonds[k] = slot
			return true
		}
	}
	return false
}

// removeLocalRef clears a locally owned bond list entry.
func removeLocalRef(c *Cell, slot int32) {
	for k := range c.Bonds {
		if c.Bonds[k] == slot {
			c.Bonds[k] = BondNone
			return
		}
	}
}
