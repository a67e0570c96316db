// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/evolimo/components"
	"github.com/pthm-cable/evolimo/grid"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
type Config struct {
	Grid       GridConfig       `yaml:"grid"`
	Stencil    StencilConfig    `yaml:"stencil"`
	Physics    PhysicsConfig    `yaml:"physics"`
	Population PopulationConfig `yaml:"population"`
	Spawn      SpawnConfig      `yaml:"spawn"`
	Recorder   RecorderConfig   `yaml:"recorder"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// GridConfig holds the spatial grid geometry.
type GridConfig struct {
	Width      int     `yaml:"width"`
	Height     int     `yaml:"height"`
	Capacity   int     `yaml:"capacity"`
	CellWidth  float64 `yaml:"cell_width"`
	CellHeight float64 `yaml:"cell_height"`
}

// StencilConfig holds neighbor interaction parameters.
type StencilConfig struct {
	Radius      int     `yaml:"radius"`
	Softening   float64 `yaml:"softening"`
	ExcludeSelf bool    `yaml:"exclude_self"`
	Workers     int     `yaml:"workers"`
}

// PhysicsConfig holds integration parameters.
type PhysicsConfig struct {
	DT       float64 `yaml:"dt"`
	Gravity  float64 `yaml:"gravity"`
	Drag     float64 `yaml:"drag"`
	MaxSpeed float64 `yaml:"max_speed"`
}

// PopulationConfig holds agent creation parameters.
type PopulationConfig struct {
	Agents       int     `yaml:"agents"`
	MassMin      float64 `yaml:"mass_min"`
	MassMax      float64 `yaml:"mass_max"`
	InitialSpeed float64 `yaml:"initial_speed"`
}

// SpawnConfig holds the noise-driven initial placement parameters.
type SpawnConfig struct {
	NoiseScale  float64 `yaml:"noise_scale"`
	Threshold   float64 `yaml:"threshold"`
	MaxAttempts int     `yaml:"max_attempts"`
}

// RecorderConfig holds frame recording parameters.
type RecorderConfig struct {
	Path          string `yaml:"path"`
	FlushInterval int    `yaml:"flush_interval"`
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsInterval int `yaml:"stats_interval"`
	PerfWindow    int `yaml:"perf_window"`
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	DT32     float32             // Physics.DT as float32
	WorldW32 float32             // Grid.Width * Grid.CellWidth
	WorldH32 float32             // Grid.Height * Grid.CellHeight
	Grid     grid.Config         // engine geometry
	Stencil  grid.StencilOptions // engine stencil settings, agent state channel layout
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

	cfg.computeDerived()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.DT32 = float32(c.Physics.DT)
	c.Derived.Grid = grid.Config{
		Width:      c.Grid.Width,
		Height:     c.Grid.Height,
		Capacity:   c.Grid.Capacity,
		CellWidth:  float32(c.Grid.CellWidth),
		CellHeight: float32(c.Grid.CellHeight),
	}
	c.Derived.WorldW32, c.Derived.WorldH32 = c.Derived.Grid.WorldSize()

	c.Derived.Stencil = grid.StencilOptions{
		Radius:      c.Stencil.Radius,
		Softening:   float32(c.Stencil.Softening),
		ExcludeSelf: c.Stencil.ExcludeSelf,
		Layout:      components.StateLayout(),
		Workers:     c.Stencil.Workers,
	}
}

// Validate rejects configurations the engine or the driver cannot run.
func (c *Config) Validate() error {
	if err := c.Derived.Grid.Validate(); err != nil {
		return fmt.Errorf("grid: %w", err)
	}
	if err := c.Derived.Stencil.Validate(components.NumStateDims); err != nil {
		return fmt.Errorf("stencil: %w", err)
	}
	if c.Physics.DT <= 0 {
		return fmt.Errorf("physics: dt must be positive, got %g", c.Physics.DT)
	}
	if c.Population.Agents < 0 {
		return fmt.Errorf("population: negative agent count %d", c.Population.Agents)
	}
	if c.Population.MassMin < 0 || c.Population.MassMax < c.Population.MassMin {
		return fmt.Errorf("population: mass range [%g, %g] is invalid", c.Population.MassMin, c.Population.MassMax)
	}
	return nil
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
