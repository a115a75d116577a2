// Package config loads, saves, and validates the YAML settings file and
// binds its sections onto the runtime types they configure.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mkrv/smctune/internal/cost"
	"github.com/mkrv/smctune/internal/dynamics"
	"github.com/mkrv/smctune/internal/integrators"
	"github.com/mkrv/smctune/internal/optim"
	"github.com/mkrv/smctune/internal/plant"
	"github.com/mkrv/smctune/internal/smc"
)

type Config struct {
	Plant      plant.Params     `yaml:"plant"`
	Simulation SimConfig        `yaml:"simulation"`
	Controller ControllerConfig `yaml:"controller"`
	Cost       CostConfig       `yaml:"cost"`
	Swarm      SwarmConfig      `yaml:"swarm"`
	Scenarios  []ScenarioConfig `yaml:"scenarios"`
}

type SimConfig struct {
	Integrator string  `yaml:"integrator"`
	Dt         float64 `yaml:"dt"`
	Duration   float64 `yaml:"duration"`
	Tolerance  float64 `yaml:"tolerance"`
	MaxDt      float64 `yaml:"max_dt"`
	MinDt      float64 `yaml:"min_dt"`
}

// ControllerConfig mirrors smc.Config in YAML form. Gains left empty fall
// back to the variant's spec defaults; zero branch parameters (sta_k1,
// sta_k2, adapt_rate) take the package defaults. LockTimeout is in seconds.
type ControllerConfig struct {
	Variant       string    `yaml:"variant"`
	Gains         []float64 `yaml:"gains"`
	MaxForce      float64   `yaml:"max_force"`
	BoundaryLayer float64   `yaml:"boundary_layer"`
	KInit         float64   `yaml:"k_init"`
	KMin          float64   `yaml:"k_min"`
	KMax          float64   `yaml:"k_max"`
	LeakRate      float64   `yaml:"leak_rate"`
	DeadZone      float64   `yaml:"dead_zone"`
	SwitchSigma   float64   `yaml:"switch_sigma"`
	Hysteresis    float64   `yaml:"hysteresis"`
	DwellSteps    int       `yaml:"dwell_steps"`
	JumpLimit     float64   `yaml:"jump_limit"`
	STA1          float64   `yaml:"sta_k1"`
	STA2          float64   `yaml:"sta_k2"`
	AdaptRate     float64   `yaml:"adapt_rate"`
	LockTimeout   float64   `yaml:"lock_timeout"`
}

// CostConfig tunes the candidate evaluator. EvalTimeout is in seconds.
type CostConfig struct {
	Weights     cost.Weights `yaml:"weights"`
	Penalty     float64      `yaml:"penalty"`
	EvalTimeout float64      `yaml:"eval_timeout"`
}

type SwarmConfig struct {
	Particles  int     `yaml:"particles"`
	Iterations int     `yaml:"iterations"`
	Inertia    float64 `yaml:"inertia"`
	Cognitive  float64 `yaml:"cognitive"`
	Social     float64 `yaml:"social"`
	VMax       float64 `yaml:"vmax"`
	Seed       int64   `yaml:"seed"`
	Patience   int     `yaml:"patience"`
	Tolerance  float64 `yaml:"tolerance"`
	Workers    int     `yaml:"workers"`
	Bounds     string  `yaml:"bounds"`
}

type ScenarioConfig struct {
	Name   string       `yaml:"name"`
	Init   []float64    `yaml:"init"`
	Pulses []cost.Pulse `yaml:"pulses"`
}

func DefaultConfig() *Config {
	return &Config{
		Plant: plant.DefaultParams(),
		Simulation: SimConfig{
			Integrator: "rk4",
			Dt:         0.01,
			Duration:   10.0,
			Tolerance:  1e-6,
			MaxDt:      0.1,
			MinDt:      1e-8,
		},
		Controller: ControllerConfig{
			Variant:       "classical",
			MaxForce:      smc.DefaultMaxForce,
			BoundaryLayer: smc.DefaultBoundaryLayer,
			KInit:         smc.DefaultKInit,
			KMin:          smc.DefaultKMin,
			KMax:          smc.DefaultKMax,
			LeakRate:      smc.DefaultLeakRate,
			DeadZone:      smc.DefaultDeadZone,
			SwitchSigma:   smc.DefaultSwitchSigma,
			Hysteresis:    smc.DefaultHysteresis,
			DwellSteps:    smc.DefaultDwellSteps,
			JumpLimit:     smc.DefaultJumpLimit,
			LockTimeout:   0.1,
		},
		Cost: CostConfig{
			Weights:     cost.DefaultWeights(),
			Penalty:     cost.DefaultPenalty,
			EvalTimeout: 10,
		},
		Swarm: SwarmConfig{
			Particles:  30,
			Iterations: 100,
			Inertia:    0.72,
			Cognitive:  2.05,
			Social:     2.05,
			VMax:       0.25,
			Seed:       1,
			Patience:   20,
			Tolerance:  1e-6,
			Bounds:     string(optim.BoundsReflect),
		},
	}
}

// Load reads a YAML file on top of the defaults, so partial files work.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (c *Config) Validate() error {
	v, err := smc.ParseVariant(c.Controller.Variant)
	if err != nil {
		return err
	}
	if _, err := integrators.New(c.Simulation.Integrator); err != nil {
		return err
	}
	if c.Simulation.Dt <= 0 {
		return fmt.Errorf("config: dt must be positive, got %v", c.Simulation.Dt)
	}
	if c.Simulation.Duration <= 0 {
		return fmt.Errorf("config: duration must be positive, got %v", c.Simulation.Duration)
	}
	if len(c.Controller.Gains) > 0 {
		if err := smc.Validate(v, c.Controller.Gains); err != nil {
			return err
		}
	}
	for _, sc := range c.Scenarios {
		if len(sc.Init) != plant.StateDim {
			return fmt.Errorf("config: scenario %q init has %d entries, want %d",
				sc.Name, len(sc.Init), plant.StateDim)
		}
	}
	return nil
}

// ControllerSettings binds the controller section to the given plant model.
func (c *Config) ControllerSettings(sys dynamics.System) smc.Config {
	return smc.Config{
		Plant:         sys,
		MaxForce:      c.Controller.MaxForce,
		BoundaryLayer: c.Controller.BoundaryLayer,
		KInit:         c.Controller.KInit,
		KMin:          c.Controller.KMin,
		KMax:          c.Controller.KMax,
		LeakRate:      c.Controller.LeakRate,
		DeadZone:      c.Controller.DeadZone,
		SwitchSigma:   c.Controller.SwitchSigma,
		Hysteresis:    c.Controller.Hysteresis,
		DwellSteps:    c.Controller.DwellSteps,
		JumpLimit:     c.Controller.JumpLimit,
		STA1:          c.Controller.STA1,
		STA2:          c.Controller.STA2,
		AdaptRate:     c.Controller.AdaptRate,
		LockTimeout:   time.Duration(c.Controller.LockTimeout * float64(time.Second)),
	}
}

// SimSettings returns the runner configuration. The rk45 integrator implies
// adaptive stepping.
func (c *Config) SimSettings() dynamics.Config {
	return dynamics.Config{
		Dt:            c.Simulation.Dt,
		Duration:      c.Simulation.Duration,
		Tolerance:     c.Simulation.Tolerance,
		MaxDt:         c.Simulation.MaxDt,
		MinDt:         c.Simulation.MinDt,
		Adaptive:      c.Simulation.Integrator == "rk45",
		ValidateState: true,
	}
}

func (c *Config) SwarmSettings() optim.Config {
	return optim.Config{
		Particles:  c.Swarm.Particles,
		Iterations: c.Swarm.Iterations,
		Inertia:    c.Swarm.Inertia,
		Cognitive:  c.Swarm.Cognitive,
		Social:     c.Swarm.Social,
		VMax:       c.Swarm.VMax,
		Seed:       c.Swarm.Seed,
		Patience:   c.Swarm.Patience,
		Tolerance:  c.Swarm.Tolerance,
		Workers:    c.Swarm.Workers,
		Bounds:     optim.BoundsPolicy(c.Swarm.Bounds),
	}
}

// CostScenarios converts the scenario section; an empty section falls back
// to the built-in set.
func (c *Config) CostScenarios() []cost.Scenario {
	if len(c.Scenarios) == 0 {
		return cost.DefaultScenarios()
	}
	out := make([]cost.Scenario, len(c.Scenarios))
	for i, sc := range c.Scenarios {
		out[i] = cost.Scenario{
			Name:   sc.Name,
			Init:   dynamics.State(sc.Init),
			Pulses: sc.Pulses,
		}
	}
	return out
}

// EvalTimeout converts the cost section's timeout to a duration.
func (c *Config) EvalTimeout() time.Duration {
	return time.Duration(c.Cost.EvalTimeout * float64(time.Second))
}
