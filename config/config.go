// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
type Config struct {
	World        WorldConfig        `yaml:"world"`
	Sim          SimConfig          `yaml:"sim"`
	Population   PopulationConfig   `yaml:"population"`
	Physics      PhysicsConfig      `yaml:"physics"`
	Energy       EnergyConfig       `yaml:"energy"`
	Sense        SenseConfig        `yaml:"sense"`
	Reproduction ReproductionConfig `yaml:"reproduction"`
	Mutation     MutationConfig     `yaml:"mutation"`
	Reward       RewardConfig       `yaml:"reward"`
	Plants       PlantsConfig       `yaml:"plants"`
	Brain        BrainConfig        `yaml:"brain"`
	Telemetry    TelemetryConfig    `yaml:"telemetry"`
	StateFeed    StateFeedConfig    `yaml:"statefeed"`
	Logging      LoggingConfig      `yaml:"logging"`
}

// WorldConfig holds the toroidal world dimensions in world units.
type WorldConfig struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

// SimConfig holds tick cadence and spatial index parameters.
type SimConfig struct {
	DT           float64 `yaml:"dt"`             // Seconds advanced per tick
	GridCellSize float64 `yaml:"grid_cell_size"` // Spatial hash cell size
	MaxCreatures int     `yaml:"max_creatures"`  // Reproduction pauses at this population
}

// PopulationConfig holds the founding population.
type PopulationConfig struct {
	Creatures        int     `yaml:"creatures"`
	Plants           int     `yaml:"plants"`
	ParasiteFraction float64 `yaml:"parasite_fraction"` // Share of founders spawned as parasites
}

// PhysicsConfig holds jet actuator and drag parameters.
type PhysicsConfig struct {
	JetForce      float64 `yaml:"jet_force"`      // Thrust per unit activation
	MinActivation float64 `yaml:"min_activation"` // Activations below this do not fire
	JetCooldown   float64 `yaml:"jet_cooldown"`   // Seconds between firings per jet
	LinearDrag    float64 `yaml:"linear_drag"`
	AngularDrag   float64 `yaml:"angular_drag"`
}

// EnergyConfig holds energy economics parameters.
type EnergyConfig struct {
	InitialFraction    float64 `yaml:"initial_fraction"`    // Starting energy as fraction of storage
	BaseCost           float64 `yaml:"base_cost"`           // Drain per second for existing
	JetCost            float64 `yaml:"jet_cost"`            // Drain per unit of applied activation
	PlantValue         float64 `yaml:"plant_value"`         // Energy gained from consuming one plant
	EatRadius          float64 `yaml:"eat_radius"`          // Grazer feeding reach
	ParasiteDrain      float64 `yaml:"parasite_drain"`      // Host energy siphoned per second
	ParasiteEfficiency float64 `yaml:"parasite_efficiency"` // Fraction of siphoned energy retained
	ParasiteRadius     float64 `yaml:"parasite_radius"`     // Siphon reach
}

// SenseConfig holds proximity sensing parameters.
type SenseConfig struct {
	Range float64 `yaml:"range"` // Distance at which sensed targets saturate
}

// ReproductionConfig holds reproduction parameters. SplitParentEnergy
// selects between halving the parent's energy with the child and granting
// the child a fixed fraction of its storage at the parent's expense.
type ReproductionConfig struct {
	ThresholdFraction float64 `yaml:"threshold_fraction"` // Of energy storage, required to reproduce
	Probability       float64 `yaml:"probability"`        // Per eligible creature per tick
	SplitParentEnergy bool    `yaml:"split_parent_energy"`
	ChildFraction     float64 `yaml:"child_fraction"` // Used when split_parent_energy is false
	SpawnOffset       float64 `yaml:"spawn_offset"`   // Max offspring displacement from parent
}

// MutationConfig holds mutation parameters.
type MutationConfig struct {
	Rate float64 `yaml:"rate"` // Per-gene mutation probability
}

// RewardConfig holds reward shaping coefficients for training signals.
type RewardConfig struct {
	EnergyScale  float64 `yaml:"energy_scale"`  // Scales normalized energy delta
	EatBonus     float64 `yaml:"eat_bonus"`     // Added when a grazer consumes a plant
	DeathPenalty float64 `yaml:"death_penalty"` // Subtracted on the terminal transition
}

// PlantsConfig holds plant lifecycle parameters.
type PlantsConfig struct {
	SeedChance float64 `yaml:"seed_chance"` // Per plant per tick
	SeedRadius float64 `yaml:"seed_radius"` // Max seedling displacement from parent
	MaxPlants  int     `yaml:"max_plants"`
}

// BrainConfig holds the decision-service connection parameters.
type BrainConfig struct {
	Addr        string        `yaml:"addr"`
	Encoding    string        `yaml:"encoding"` // "lines" or "frames"
	DialTimeout time.Duration `yaml:"dial_timeout"`
}

// TelemetryConfig holds telemetry output parameters.
type TelemetryConfig struct {
	StatsWindow float64 `yaml:"stats_window"` // Seconds between snapshots
	CSVDir      string  `yaml:"csv_dir"`      // Empty disables CSV output
	SQLitePath  string  `yaml:"sqlite_path"`  // Empty disables the run store
}

// StateFeedConfig holds the read-only world snapshot feed parameters.
type StateFeedConfig struct {
	Addr     string        `yaml:"addr"` // Empty disables the feed
	Interval time.Duration `yaml:"interval"`
}

// LoggingConfig selects log verbosity and encoder.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "console"
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

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Default returns a configuration built from the embedded defaults only.
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults invalid: %v", err))
	}
	return cfg
}

// Validate rejects configurations the engine cannot run with.
// Failures here are fatal at startup.
func (c *Config) Validate() error {
	if c.World.Width <= 0 || c.World.Height <= 0 {
		return fmt.Errorf("config: world dimensions must be positive, got %gx%g", c.World.Width, c.World.Height)
	}
	if c.Sim.DT <= 0 {
		return fmt.Errorf("config: sim.dt must be positive, got %g", c.Sim.DT)
	}
	if c.Sim.GridCellSize <= 0 {
		return fmt.Errorf("config: sim.grid_cell_size must be positive, got %g", c.Sim.GridCellSize)
	}
	if c.Mutation.Rate < 0 || c.Mutation.Rate > 1 {
		return fmt.Errorf("config: mutation.rate must be in [0,1], got %g", c.Mutation.Rate)
	}
	if c.Population.ParasiteFraction < 0 || c.Population.ParasiteFraction > 1 {
		return fmt.Errorf("config: population.parasite_fraction must be in [0,1], got %g", c.Population.ParasiteFraction)
	}
	if c.Reproduction.ThresholdFraction <= 0 || c.Reproduction.ThresholdFraction > 1 {
		return fmt.Errorf("config: reproduction.threshold_fraction must be in (0,1], got %g", c.Reproduction.ThresholdFraction)
	}
	if c.Energy.InitialFraction <= 0 || c.Energy.InitialFraction > 1 {
		return fmt.Errorf("config: energy.initial_fraction must be in (0,1], got %g", c.Energy.InitialFraction)
	}
	switch c.Brain.Encoding {
	case "lines", "frames":
	default:
		return fmt.Errorf("config: brain.encoding must be %q or %q, got %q", "lines", "frames", c.Brain.Encoding)
	}
	return nil
}

// YAML renders the configuration as YAML.
func (c *Config) YAML() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshaling config: %w", err)
	}
	return data, nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := c.YAML()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
