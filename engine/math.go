package engine

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// rotateVec rotates v by the unit quaternion q.
func rotateVec(q quat.Number, v r3.Vec) r3.Vec {
	p := quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}
	r := quat.Mul(quat.Mul(q, p), quat.Conj(q))
	return r3.Vec{X: r.Imag, Y: r.Jmag, Z: r.Kmag}
}

// axisAngle builds a rotation quaternion from a unit axis and an angle in radians.
func axisAngle(axis r3.Vec, angle float64) quat.Number {
	s, c := math.Sincos(angle / 2)
	return quat.Number{Real: c, Imag: axis.X * s, Jmag: axis.Y * s, Kmag: axis.Z * s}
}

// normalizeQuat rescales q to unit length, falling back to identity for
// degenerate input.
func normalizeQuat(q quat.Number) quat.Number {
	n := quat.Abs(q)
	if n < 1e-12 {
		return quat.Number{Real: 1}
	}
	return quat.Scale(1/n, q)
}

// integrateOrientation advances q by angular velocity w over dt.
func integrateOrientation(q quat.Number, w r3.Vec, dt float64) quat.Number {
	wq := quat.Number{Imag: w.X, Jmag: w.Y, Kmag: w.Z}
	dq := quat.Scale(0.5*dt, quat.Mul(wq, q))
	return normalizeQuat(quat.Add(q, dq))
}

// hash64 is the splitmix64 finalizer, used wherever a stable pseudo-random
// value keyed by slot index and tick is needed inside a kernel.
func hash64(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}

// hashUnitVec derives a deterministic unit vector from a hash value.
func hashUnitVec(h uint64) r3.Vec {
	// Two uniform doubles in [0,1) from the high and low halves.
	u := float64(h>>40) / float64(1<<24)
	v := float64(h&0xffffff) / float64(1<<24)
	z := 2*u - 1
	r := math.Sqrt(math.Max(0, 1-z*z))
	s, c := math.Sincos(2 * math.Pi * v)
	return r3.Vec{X: r * c, Y: r * s, Z: z}
}
