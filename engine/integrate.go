package engine

import "gonum.org/v1/gonum/spatial/r3"

// integrateKernel advances one cell's motion in place on the write buffer:
// velocity from acceleration, damping, position from velocity, and
// reflection at the world bounds.
func (s *Simulation) integrateKernel(i, _ int) {
	write := s.store.Write()
	c := &write[i]
	dt := s.dt

	c.Velocity = r3.Add(c.Velocity, r3.Scale(dt, c.Acceleration))
	c.Velocity = r3.Scale(s.cfg.Physics.Damping, c.Velocity)
	c.Position = r3.Add(c.Position, r3.Scale(dt, c.Velocity))
	s.reflect(c)

	c.AngularVelocity = r3.Add(c.AngularVelocity, r3.Scale(dt, c.AngularAcceleration))
	c.AngularVelocity = r3.Scale(s.cfg.Physics.AngularDamping, c.AngularVelocity)
	c.Orientation = integrateOrientation(c.Orientation, c.AngularVelocity, dt)
}

// reflect clamps a cell to the world cube and bounces the offending
// velocity component.
func (s *Simulation) reflect(c *Cell) {
	limit := s.cfg.Derived.HalfWorld - c.Radius()

	if c.Position.X > limit {
		c.Position.X = limit
		if c.Velocity.X > 0 {
			c.Velocity.X = -c.Velocity.X
		}
	} else if c.Position.X < -limit {
		c.Position.X = -limit
		if c.Velocity.X < 0 {
			c.Velocity.X = -c.Velocity.X
		}
	}

	if c.Position.Y > limit {
		c.Position.Y = limit
		if c.Velocity.Y > 0 {
			c.Velocity.Y = -c.Velocity.Y
		}
	} else if c.Position.Y < -limit {
		c.Position.Y = -limit
		if c.Velocity.Y < 0 {
			c.Velocity.Y = -c.Velocity.Y
		}
	}

	if c.Position.Z > limit {
		c.Position.Z = limit
		if c.Velocity.Z > 0 {
			c.Velocity.Z = -c.Velocity.Z
		}
	} else if c.Position.Z < -limit {
		c.Position.Z = -limit
		if c.Velocity.Z < 0 {
			c.Velocity.Z = -c.Velocity.Z
		}
	}
}
