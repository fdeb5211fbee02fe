package config

import (
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sivogel/hydpy-sub000/internal/model"
	"github.com/sivogel/hydpy-sub000/internal/solver"
)

const (
	DefaultSteps        = 96
	DefaultStepSize     = 1.0
	DefaultAbsTolerance = 1e-4
	DefaultDtMin        = 1e-3
	DefaultMethods      = 10
	DefaultRetention    = 4.2
	DefaultInflow       = 2.0
)

type Config struct {
	Model      string          `yaml:"model"`
	PublishDir string          `yaml:"publish_dir"`
	Toolchain  ToolchainConfig `yaml:"toolchain"`
	Solver     SolverConfig    `yaml:"solver"`
	Run        RunConfig       `yaml:"run"`
}

type ToolchainConfig struct {
	Cmd   string   `yaml:"cmd"`
	Flags []string `yaml:"flags"`
}

type SolverConfig struct {
	AbsTolerance float64 `yaml:"abs_tolerance"`
	RelTolerance float64 `yaml:"rel_tolerance"` // <= 0 disables relative tracking
	DtMin        float64 `yaml:"dt_min"`
	Methods      int     `yaml:"methods"`
	DtIncrease   float64 `yaml:"dt_increase"`
	DtDecrease   float64 `yaml:"dt_decrease"`
}

type RunConfig struct {
	Steps     int     `yaml:"steps"`
	StepSize  float64 `yaml:"step_size"`
	Inflow    float64 `yaml:"inflow"`
	Retention float64 `yaml:"retention"`
}

func DefaultConfig() *Config {
	return &Config{
		Model:      "reservoir",
		PublishDir: "kernels",
		Toolchain:  ToolchainConfig{Cmd: "cc"},
		Solver: SolverConfig{
			AbsTolerance: DefaultAbsTolerance,
			RelTolerance: 0,
			DtMin:        DefaultDtMin,
			Methods:      DefaultMethods,
			DtIncrease:   2.0,
			DtDecrease:   2.0,
		},
		Run: RunConfig{
			Steps:     DefaultSteps,
			StepSize:  DefaultStepSize,
			Inflow:    DefaultInflow,
			Retention: DefaultRetention,
		},
	}
}

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
	return os.WriteFile(path, data, 0644)
}

// SolverConfig translates the YAML tolerances into the solver's form,
// where a disabled relative tolerance is NaN rather than zero.
func (c *Config) SolverConfig() solver.Config {
	rel := c.Solver.RelTolerance
	if rel <= 0 {
		rel = math.NaN()
	}
	return solver.Config{
		AbsTolerance: c.Solver.AbsTolerance,
		RelTolerance: rel,
		DtMin:        c.Solver.DtMin,
		MaxMethods:   c.Solver.Methods,
	}
}

// NumConsts is the compile-time constant block matching the solver section.
func (c *Config) NumConsts() model.NumConsts {
	nc := model.DefaultNumConsts(c.Solver.Methods)
	if c.Solver.DtIncrease > 0 {
		nc.DtIncrease = c.Solver.DtIncrease
	}
	if c.Solver.DtDecrease > 0 {
		nc.DtDecrease = c.Solver.DtDecrease
	}
	return nc
}
