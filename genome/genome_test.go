package genome

import (
	"math"
	"strings"
	"testing"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

const sampleGenome = `
modes:
  - name: trunk
    color: [0.2, 0.6, 0.3]
    split_interval: 4.0
    split_direction: [0, 0, 2]
    child_a:
      mode: 0
      keep_adhesion: true
    child_b:
      mode: 1
      orientation: [0, 180, 0]
    make_adhesion: true
    adhesion:
      can_break: true
      break_force: 30
      linear_spring: 15
      max_angle_deviation: 45
  - name: leaf
    split_interval: 100.0
seeds:
  - mode: 0
    position: [1, 2, 3]
    age: 0.5
`

func TestParse(t *testing.T) {
	g, err := Parse([]byte(sampleGenome))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(g.Modes) != 2 {
		t.Fatalf("parsed %d modes, want 2", len(g.Modes))
	}

	trunk := g.Modes[0]
	if trunk.Name != "trunk" || trunk.SplitInterval != 4.0 {
		t.Errorf("trunk = %q interval %v, want trunk/4.0", trunk.Name, trunk.SplitInterval)
	}

	// Split direction is normalized on load.
	if math.Abs(r3.Norm(trunk.SplitDirection)-1) > 1e-12 || trunk.SplitDirection.Z != 1 {
		t.Errorf("split direction = %+v, want unit +Z", trunk.SplitDirection)
	}

	if !trunk.ChildA.KeepAdhesion || trunk.ChildA.Mode != 0 {
		t.Errorf("child_a = %+v, want mode 0 keeping adhesion", trunk.ChildA)
	}
	if trunk.ChildB.Mode != 1 {
		t.Errorf("child_b mode = %d, want 1", trunk.ChildB.Mode)
	}
	if !trunk.MakeAdhesion {
		t.Error("make_adhesion not carried over")
	}

	ad := trunk.Adhesion
	if !ad.CanBreak || ad.BreakForce != 30 || ad.LinearSpring != 15 {
		t.Errorf("adhesion = %+v", ad)
	}
	if ad.RestLength != 2.0 {
		t.Errorf("rest_length = %v, want default 2.0", ad.RestLength)
	}
	if math.Abs(ad.MaxAngleDeviation-math.Pi/4) > 1e-12 {
		t.Errorf("max_angle_deviation = %v rad, want pi/4", ad.MaxAngleDeviation)
	}

	// Omitted split direction defaults to +Y; omitted color gets the
	// neutral default.
	leaf := g.Modes[1]
	if leaf.SplitDirection != (r3.Vec{Y: 1}) {
		t.Errorf("leaf split direction = %+v, want +Y", leaf.SplitDirection)
	}
	if leaf.Color == ([3]float64{}) {
		t.Error("leaf color left at zero")
	}

	if len(g.Seeds) != 1 {
		t.Fatalf("parsed %d seeds, want 1", len(g.Seeds))
	}
	seed := g.Seeds[0]
	if seed.Position != (r3.Vec{X: 1, Y: 2, Z: 3}) || seed.Age != 0.5 {
		t.Errorf("seed = %+v", seed)
	}
}

func TestParse_Validation(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			"no modes",
			`seeds: []`,
			"no modes",
		},
		{
			"zero split interval",
			"modes:\n  - name: a\n    split_interval: 0\n",
			"split_interval",
		},
		{
			"child mode out of range",
			"modes:\n  - name: a\n    split_interval: 1\n    child_a: {mode: 3}\n",
			"out of range",
		},
		{
			"seed mode out of range",
			"modes:\n  - name: a\n    split_interval: 1\nseeds:\n  - mode: 5\n",
			"out of range",
		},
		{
			"malformed yaml",
			"modes: [unclosed",
			"parsing genome",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatal("Parse succeeded, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestDefault(t *testing.T) {
	g := Default()
	if len(g.Modes) != 1 || len(g.Seeds) != 1 {
		t.Fatalf("default genome has %d modes / %d seeds, want 1/1", len(g.Modes), len(g.Seeds))
	}

	m := g.Modes[0]
	if m.SplitInterval <= 0 {
		t.Error("default mode has no split interval")
	}
	if m.ChildA.Mode != 0 || m.ChildB.Mode != 0 {
		t.Error("default children must stay in mode 0")
	}
	if math.Abs(r3.Norm(m.SplitDirection)-1) > 1e-12 {
		t.Error("default split direction not unit length")
	}
	if math.Abs(quat.Abs(m.ChildA.Orientation)-1) > 1e-12 ||
		math.Abs(quat.Abs(m.ChildB.Orientation)-1) > 1e-12 {
		t.Error("default child orientations not unit quaternions")
	}
}

func TestEulerDegrees(t *testing.T) {
	// Identity for zero angles.
	q := EulerDegrees([3]float64{0, 0, 0})
	if q.Real != 1 || q.Imag != 0 || q.Jmag != 0 || q.Kmag != 0 {
		t.Errorf("zero Euler = %+v, want identity", q)
	}

	// A single-axis rotation matches axisAngle directly.
	q = EulerDegrees([3]float64{0, 90, 0})
	want := axisAngle(r3.Vec{Y: 1}, math.Pi/2)
	if math.Abs(q.Real-want.Real) > 1e-12 || math.Abs(q.Jmag-want.Jmag) > 1e-12 {
		t.Errorf("90deg yaw = %+v, want %+v", q, want)
	}

	if math.Abs(quat.Abs(EulerDegrees([3]float64{10, 20, 30}))-1) > 1e-12 {
		t.Error("composed Euler rotation not unit length")
	}
}
