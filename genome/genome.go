// Package genome defines the authoring format for cell behavior templates.
//
// A genome is a table of Modes. Each cell references one Mode, and the Mode
// decides when the cell divides, how the two children are oriented, which
// Modes the children adopt, and how adhesion bonds behave. Modes are loaded
// once before the simulation starts and are read-only afterwards.
package genome

import (
	"fmt"
	"math"
	"os"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
	"gopkg.in/yaml.v3"
)

// Mode is an immutable behavior template shared by many cells.
type Mode struct {
	Name           string
	Color          [3]float64
	SplitInterval  float64 // Age at which a cell attempts to divide
	SplitDirection r3.Vec  // Unit vector in the parent's local frame
	ChildA         ChildSpec
	ChildB         ChildSpec
	MakeAdhesion   bool // Bond the two children to each other at split time
	Adhesion       AdhesionParams
}

// ChildSpec describes one of the two mitosis products.
type ChildSpec struct {
	Mode         int32       // Mode index the child adopts
	Orientation  quat.Number // Rotation relative to the parent frame
	KeepAdhesion bool        // Child inherits the parent's bonds
}

// AdhesionParams are the spring constants governing bonds created by this Mode.
// MaxAngleDeviation is in radians.
type AdhesionParams struct {
	CanBreak          bool
	BreakForce        float64
	RestLength        float64
	LinearSpring      float64
	LinearDamping     float64
	OrientSpring      float64
	OrientDamping     float64
	MaxAngleDeviation float64
}

// Seed is an initial cell authored alongside the mode table.
type Seed struct {
	Mode     int32
	Position r3.Vec
	Age      float64
}

// Genome is a loaded, validated mode table plus its initial population.
type Genome struct {
	Modes []Mode
	Seeds []Seed
}

// File-facing structures. Angles are authored in degrees and converted on load.

type fileRoot struct {
	Modes []fileMode `yaml:"modes"`
	Seeds []fileSeed `yaml:"seeds"`
}

type fileMode struct {
	Name           string     `yaml:"name"`
	Color          [3]float64 `yaml:"color"`
	SplitInterval  float64    `yaml:"split_interval"`
	SplitDirection [3]float64 `yaml:"split_direction"`
	ChildA         fileChild  `yaml:"child_a"`
	ChildB         fileChild  `yaml:"child_b"`
	MakeAdhesion   bool       `yaml:"make_adhesion"`
	Adhesion       fileAdhesion `yaml:"adhesion"`
}

type fileChild struct {
	Mode         int32      `yaml:"mode"`
	Orientation  [3]float64 `yaml:"orientation"` // Euler angles in degrees, applied Z·Y·X
	KeepAdhesion bool       `yaml:"keep_adhesion"`
}

type fileAdhesion struct {
	CanBreak          bool    `yaml:"can_break"`
	BreakForce        float64 `yaml:"break_force"`
	RestLength        float64 `yaml:"rest_length"`
	LinearSpring      float64 `yaml:"linear_spring"`
	LinearDamping     float64 `yaml:"linear_damping"`
	OrientSpring      float64 `yaml:"orient_spring"`
	OrientDamping     float64 `yaml:"orient_damping"`
	MaxAngleDeviation float64 `yaml:"max_angle_deviation"` // Degrees
}

type fileSeed struct {
	Mode     int32      `yaml:"mode"`
	Position [3]float64 `yaml:"position"`
	Age      float64    `yaml:"age"`
}

// Load reads a genome file and converts it to the simulation representation.
func Load(path string) (*Genome, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading genome file: %w", err)
	}
	return Parse(data)
}

// Parse converts YAML genome data to the simulation representation.
func Parse(data []byte) (*Genome, error) {
	var root fileRoot
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parsing genome: %w", err)
	}
	if len(root.Modes) == 0 {
		return nil, fmt.Errorf("genome defines no modes")
	}

	g := &Genome{
		Modes: make([]Mode, 0, len(root.Modes)),
		Seeds: make([]Seed, 0, len(root.Seeds)),
	}

	for i, fm := range root.Modes {
		m, err := fm.convert(len(root.Modes))
		if err != nil {
			return nil, fmt.Errorf("mode %d (%q): %w", i, fm.Name, err)
		}
		g.Modes = append(g.Modes, m)
	}

	for i, fs := range root.Seeds {
		if fs.Mode < 0 || int(fs.Mode) >= len(g.Modes) {
			return nil, fmt.Errorf("seed %d: mode index %d out of range", i, fs.Mode)
		}
		g.Seeds = append(g.Seeds, Seed{
			Mode:     fs.Mode,
			Position: r3.Vec{X: fs.Position[0], Y: fs.Position[1], Z: fs.Position[2]},
			Age:      fs.Age,
		})
	}

	return g, nil
}

func (fm fileMode) convert(modeCount int) (Mode, error) {
	if fm.SplitInterval <= 0 {
		return Mode{}, fmt.Errorf("split_interval must be positive, got %v", fm.SplitInterval)
	}
	if fm.ChildA.Mode < 0 || int(fm.ChildA.Mode) >= modeCount {
		return Mode{}, fmt.Errorf("child_a mode index %d out of range", fm.ChildA.Mode)
	}
	if fm.ChildB.Mode < 0 || int(fm.ChildB.Mode) >= modeCount {
		return Mode{}, fmt.Errorf("child_b mode index %d out of range", fm.ChildB.Mode)
	}

	dir := r3.Vec{X: fm.SplitDirection[0], Y: fm.SplitDirection[1], Z: fm.SplitDirection[2]}
	if r3.Norm(dir) < 1e-9 {
		dir = r3.Vec{Y: 1}
	} else {
		dir = r3.Unit(dir)
	}

	color := fm.Color
	if color == [3]float64{} {
		color = [3]float64{0.8, 0.8, 0.8}
	}

	return Mode{
		Name:           fm.Name,
		Color:          color,
		SplitInterval:  fm.SplitInterval,
		SplitDirection: dir,
		ChildA: ChildSpec{
			Mode:         fm.ChildA.Mode,
			Orientation:  EulerDegrees(fm.ChildA.Orientation),
			KeepAdhesion: fm.ChildA.KeepAdhesion,
		},
		ChildB: ChildSpec{
			Mode:         fm.ChildB.Mode,
			Orientation:  EulerDegrees(fm.ChildB.Orientation),
			KeepAdhesion: fm.ChildB.KeepAdhesion,
		},
		MakeAdhesion: fm.MakeAdhesion,
		Adhesion: AdhesionParams{
			CanBreak:          fm.Adhesion.CanBreak,
			BreakForce:        fm.Adhesion.BreakForce,
			RestLength:        defaultIfZero(fm.Adhesion.RestLength, 2.0),
			LinearSpring:      fm.Adhesion.LinearSpring,
			LinearDamping:     fm.Adhesion.LinearDamping,
			OrientSpring:      fm.Adhesion.OrientSpring,
			OrientDamping:     fm.Adhesion.OrientDamping,
			MaxAngleDeviation: fm.Adhesion.MaxAngleDeviation * math.Pi / 180,
		},
	}, nil
}

func defaultIfZero(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}

// Default returns a minimal self-replicating genome used when no genome file
// is supplied: one mode whose children both stay in that mode and bond to
// each other.
func Default() *Genome {
	return &Genome{
		Modes: []Mode{
			{
				Name:           "stem",
				Color:          [3]float64{0.3, 0.8, 0.4},
				SplitInterval:  5.0,
				SplitDirection: r3.Vec{Y: 1},
				ChildA:         ChildSpec{Mode: 0, Orientation: identity(), KeepAdhesion: true},
				ChildB:         ChildSpec{Mode: 0, Orientation: EulerDegrees([3]float64{0, 180, 0}), KeepAdhesion: false},
				MakeAdhesion:   true,
				Adhesion: AdhesionParams{
					CanBreak:          true,
					BreakForce:        25.0,
					RestLength:        2.0,
					LinearSpring:      20.0,
					LinearDamping:     1.0,
					OrientSpring:      2.0,
					OrientDamping:     0.5,
					MaxAngleDeviation: math.Pi / 4,
				},
			},
		},
		Seeds: []Seed{{Mode: 0}},
	}
}

// EulerDegrees builds a unit quaternion from Euler angles in degrees,
// applied in Z (roll), then Y (yaw), then X (pitch) order.
func EulerDegrees(deg [3]float64) quat.Number {
	qx := axisAngle(r3.Vec{X: 1}, deg[0]*math.Pi/180)
	qy := axisAngle(r3.Vec{Y: 1}, deg[1]*math.Pi/180)
	qz := axisAngle(r3.Vec{Z: 1}, deg[2]*math.Pi/180)
	return quat.Mul(qx, quat.Mul(qy, qz))
}

func axisAngle(axis r3.Vec, angle float64) quat.Number {
	s, c := math.Sincos(angle / 2)
	return quat.Number{Real: c, Imag: axis.X * s, Jmag: axis.Y * s, Kmag: axis.Z * s}
}

func identity() quat.Number {
	return quat.Number{Real: 1}
}
