package engine

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// physicsKernel computes one cell's forces for this tick. It reads the
// previous tick's state plus the spatial grid and writes the full record,
// with fresh accelerations, into the write buffer. Velocity and position
// are left for the integration stage.
func (s *Simulation) physicsKernel(i, worker int) {
	read := s.store.Read()
	write := s.store.Write()

	c := read[i]
	var acc, angAcc r3.Vec

	// Soft-body repulsion against grid neighbors.
	sc := &s.scratch[worker]
	sc.neighbors = s.grid.NeighborsInto(sc.neighbors[:0], c.Position)
	stiffness := s.cfg.Physics.CollisionStiffness
	colDamp := s.cfg.Physics.CollisionDamping

	for _, jn := range sc.neighbors {
		j := int(jn)
		if j == i {
			continue
		}
		o := &read[j]

		d := r3.Sub(o.Position, c.Position)
		dist := r3.Norm(d)
		minDist := c.Radius() + o.Radius()
		if dist >= minDist || dist < 1e-9 {
			continue
		}

		n := r3.Scale(1/dist, d)
		overlap := minDist - dist
		relVel := r3.Dot(r3.Sub(o.Velocity, c.Velocity), n)

		// Spring pushes apart, damper bleeds off approach velocity.
		f := -stiffness*overlap + colDamp*relVel
		acc = r3.Add(acc, r3.Scale(f, n))
	}

	// Adhesion springs for active bonds.
	for k := range c.Bonds {
		bs := c.Bonds[k]
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
		o := &read[p]
		ad := s.modes[b.Mode].Adhesion

		d := r3.Sub(o.Position, c.Position)
		dist := r3.Norm(d)
		if dist < 1e-9 {
			continue
		}
		n := r3.Scale(1/dist, d)

		stretch := dist - ad.RestLength
		relVel := r3.Dot(r3.Sub(o.Velocity, c.Velocity), n)
		f := ad.LinearSpring*stretch + ad.LinearDamping*relVel

		// An overstressed breakable bond snaps instead of pulling. The
		// actual severing happens on the host at the next barrier; both
		// endpoints may record the same slot.
		if ad.CanBreak && math.Abs(f) > ad.BreakForce {
			sc.breaks = append(sc.breaks, bs)
			continue
		}
		acc = r3.Add(acc, r3.Scale(f, n))

		// Angular restoring torque pulls the cell's anchor axis (the mode
		// split direction in world space) toward the bond axis, capped at
		// the mode's maximum angular deviation.
		if ad.OrientSpring > 0 {
			rest := rotateVec(c.Orientation, s.modes[c.Mode].SplitDirection)
			axis := r3.Cross(rest, n)
			sin := r3.Norm(axis)
			if sin > 1e-9 {
				angle := math.Atan2(sin, r3.Dot(rest, n))
				if ad.MaxAngleDeviation > 0 && angle > ad.MaxAngleDeviation {
					angle = ad.MaxAngleDeviation
				}
				angAcc = r3.Add(angAcc, r3.Scale(ad.OrientSpring*angle/sin, axis))
			}
		}
		if ad.OrientDamping > 0 {
			relW := r3.Sub(o.AngularVelocity, c.AngularVelocity)
			angAcc = r3.Add(angAcc, r3.Scale(ad.OrientDamping, relW))
		}
	}

	c.Acceleration = acc
	c.AngularAcceleration = angAcc
	write[i] = c
}
