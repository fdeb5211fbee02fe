package config

var Presets = map[string]map[string]*Config{
	"reservoir": {
		"daily": {
			Model: "reservoir", PublishDir: "kernels",
			Toolchain: ToolchainConfig{Cmd: "cc"},
			Solver: SolverConfig{
				AbsTolerance: 1e-4, DtMin: 1e-3, Methods: 10,
				DtIncrease: 2.0, DtDecrease: 2.0,
			},
			Run: RunConfig{Steps: 365, StepSize: 1.0, Inflow: 2.0, Retention: 4.2},
		},
		"storm": {
			Model: "reservoir", PublishDir: "kernels",
			Toolchain: ToolchainConfig{Cmd: "cc"},
			Solver: SolverConfig{
				AbsTolerance: 1e-6, RelTolerance: 1e-4, DtMin: 1e-4, Methods: 10,
				DtIncrease: 2.0, DtDecrease: 2.0,
			},
			Run: RunConfig{Steps: 48, StepSize: 0.25, Inflow: 25.0, Retention: 0.8},
		},
		"coarse": {
			Model: "reservoir", PublishDir: "kernels",
			Toolchain: ToolchainConfig{Cmd: "cc"},
			Solver: SolverConfig{
				AbsTolerance: 1e-2, DtMin: 1e-2, Methods: 3,
				DtIncrease: 2.0, DtDecrease: 2.0,
			},
			Run: RunConfig{Steps: 96, StepSize: 1.0, Inflow: 2.0, Retention: 4.2},
		},
	},
	"cascade": {
		"default": {
			Model: "cascade", PublishDir: "kernels",
			Toolchain: ToolchainConfig{Cmd: "cc"},
			Solver: SolverConfig{
				AbsTolerance: 1e-4, DtMin: 1e-3, Methods: 10,
				DtIncrease: 2.0, DtDecrease: 2.0,
			},
			Run: RunConfig{Steps: 96, StepSize: 1.0, Inflow: 2.0, Retention: 4.2},
		},
		"flashy": {
			Model: "cascade", PublishDir: "kernels",
			Toolchain: ToolchainConfig{Cmd: "cc"},
			Solver: SolverConfig{
				AbsTolerance: 1e-5, DtMin: 1e-4, Methods: 10,
				DtIncrease: 2.0, DtDecrease: 2.0,
			},
			Run: RunConfig{Steps: 144, StepSize: 0.5, Inflow: 12.0, Retention: 1.5},
		},
	},
}

func GetPreset(model, preset string) *Config {
	modelPresets, ok := Presets[model]
	if !ok {
		return nil
	}
	cfg, ok := modelPresets[preset]
	if !ok {
		return nil
	}
	return cfg
}

func ListPresets(model string) []string {
	modelPresets, ok := Presets[model]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(modelPresets))
	for name := range modelPresets {
		names = append(names, name)
	}
	return names
}
