package engine

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/spatial/r3"
)

// SpawnCluster stages n cells in the given mode, scattered uniformly
// through a sphere of the configured spawn radius around the origin with
// random orientations. The cells enter the simulation at the next tick's
// admission pass.
func (s *Simulation) SpawnCluster(rng *rand.Rand, n int, mode int32) {
	for i := 0; i < n; i++ {
		c := NewCell(mode)
		c.Position = randInSphere(rng, s.cfg.World.SpawnRadius)
		c.Orientation = axisAngle(randUnitVec(rng), rng.Float64()*2*math.Pi)
		s.Stage(c)
	}
}

func randUnitVec(rng *rand.Rand) r3.Vec {
	z := rng.Float64()*2 - 1
	t := rng.Float64() * 2 * math.Pi
	r := math.Sqrt(1 - z*z)
	return r3.Vec{X: r * math.Cos(t), Y: r * math.Sin(t), Z: z}
}

func randInSphere(rng *rand.Rand, radius float64) r3.Vec {
	r := radius * math.Cbrt(rng.Float64())
	return r3.Scale(r, randUnitVec(rng))
}
