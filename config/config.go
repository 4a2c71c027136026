// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
type Config struct {
	World     WorldConfig     `yaml:"world"`
	Grid      GridConfig      `yaml:"grid"`
	Capacity  CapacityConfig  `yaml:"capacity"`
	Physics   PhysicsConfig   `yaml:"physics"`
	Lifecycle LifecycleConfig `yaml:"lifecycle"`
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// WorldConfig holds simulation world dimensions.
// The world is a cube of edge length Size centered on the origin.
type WorldConfig struct {
	Size        float64 `yaml:"size"`
	SpawnRadius float64 `yaml:"spawn_radius"` // Radius for random seed placement
}

// GridConfig holds spatial grid parameters.
type GridConfig struct {
	Resolution int `yaml:"resolution"`   // Cells per axis (grid is Resolution^3)
	MaxPerCell int `yaml:"max_per_cell"` // Occupancy cap per grid cell
}

// CapacityConfig holds fixed slot-pool capacities.
type CapacityConfig struct {
	Cells int `yaml:"cells"`
	Bonds int `yaml:"bonds"`
}

// PhysicsConfig holds simulation physics parameters.
type PhysicsConfig struct {
	DT                 float64 `yaml:"dt"`
	Damping            float64 `yaml:"damping"`
	AngularDamping     float64 `yaml:"angular_damping"`
	CollisionStiffness float64 `yaml:"collision_stiffness"`
	CollisionDamping   float64 `yaml:"collision_damping"`
}

// LifecycleConfig holds mitosis parameters.
type LifecycleConfig struct {
	SplitOffset  float64 `yaml:"split_offset"`  // Child offset as a fraction of radius
	PerturbAngle float64 `yaml:"perturb_angle"` // Symmetry-breaking rotation in radians
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow         float64 `yaml:"stats_window"`
	PerfCollectorWindow int     `yaml:"perf_collector_window"`
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	HalfWorld      float64 // World.Size / 2
	GridCellSize   float64 // World.Size / Grid.Resolution
	TotalGridCells int     // Grid.Resolution^3
	AdditionSlots  int     // Addition buffer length
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	// Start with embedded defaults
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	// Load user config if provided
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.Finalize()

	return cfg, nil
}

// Finalize recomputes derived values. Load calls it automatically; call it
// again after mutating a loaded config by hand.
func (c *Config) Finalize() {
	if c.Grid.Resolution < 1 {
		c.Grid.Resolution = 1
	}
	if c.Grid.MaxPerCell < 1 {
		c.Grid.MaxPerCell = 1
	}
	if c.Capacity.Cells < 1 {
		c.Capacity.Cells = 1
	}
	if c.Capacity.Bonds < 1 {
		c.Capacity.Bonds = 1
	}
	if c.World.SpawnRadius <= 0 {
		c.World.SpawnRadius = c.World.Size / 4
	}

	c.Derived.HalfWorld = c.World.Size / 2
	c.Derived.GridCellSize = c.World.Size / float64(c.Grid.Resolution)
	c.Derived.TotalGridCells = c.Grid.Resolution * c.Grid.Resolution * c.Grid.Resolution
	c.Derived.AdditionSlots = c.Capacity.Cells
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
