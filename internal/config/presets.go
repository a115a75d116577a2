package config

import (
	"sort"

	"github.com/mkrv/smctune/internal/cost"
	"github.com/mkrv/smctune/internal/smc"
)

// Presets holds ready-made tuning setups per controller variant: a fast
// smoke run, a thorough search, and a disturbance-rejection emphasis.
var Presets = buildPresets()

func buildPresets() map[string]map[string]*Config {
	out := make(map[string]map[string]*Config)
	for _, v := range smc.Variants() {
		name := string(v)
		out[name] = map[string]*Config{
			"quick": preset(name, func(c *Config) {
				c.Swarm.Particles = 12
				c.Swarm.Iterations = 25
				c.Swarm.Patience = 10
				c.Simulation.Duration = 3.0
			}),
			"thorough": preset(name, func(c *Config) {
				c.Swarm.Particles = 40
				c.Swarm.Iterations = 150
				c.Swarm.Patience = 40
			}),
			"disturbance": preset(name, func(c *Config) {
				c.Scenarios = disturbanceScenarios()
			}),
		}
	}
	return out
}

func preset(variant string, mutate func(*Config)) *Config {
	cfg := DefaultConfig()
	cfg.Controller.Variant = variant
	mutate(cfg)
	return cfg
}

// disturbanceScenarios stresses recovery with strong pushes both ways.
func disturbanceScenarios() []ScenarioConfig {
	return []ScenarioConfig{
		{
			Name:   "shove",
			Init:   []float64{0, 0.02, -0.02, 0, 0, 0},
			Pulses: []cost.Pulse{{Start: 1, Duration: 0.3, Peak: 30}},
		},
		{
			Name: "double_hit",
			Init: []float64{0, 0.05, 0.02, 0, 0, 0},
			Pulses: []cost.Pulse{
				{Start: 1, Duration: 0.3, Peak: 20},
				{Start: 3, Duration: 0.3, Peak: -25},
			},
		},
	}
}

func GetPreset(variant, name string) *Config {
	variantPresets, ok := Presets[variant]
	if !ok {
		return nil
	}
	cfg, ok := variantPresets[name]
	if !ok {
		return nil
	}
	return cfg
}

func ListPresets(variant string) []string {
	variantPresets, ok := Presets[variant]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(variantPresets))
	for name := range variantPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
