package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/sivogel/hydpy-sub000/internal/analysis"
	"github.com/sivogel/hydpy-sub000/internal/calibrate"
	"github.com/sivogel/hydpy-sub000/internal/config"
	"github.com/sivogel/hydpy-sub000/internal/kernel"
	"github.com/sivogel/hydpy-sub000/internal/kernelgen"
	"github.com/sivogel/hydpy-sub000/internal/model"
	"github.com/sivogel/hydpy-sub000/internal/models"
	"github.com/sivogel/hydpy-sub000/internal/pipeline"
	"github.com/sivogel/hydpy-sub000/internal/solver"
	"github.com/sivogel/hydpy-sub000/internal/storage"
	"github.com/sivogel/hydpy-sub000/internal/viz"
)

var (
	dataDir    string
	configFile string
	preset     string
	publishDir string
	ccCmd      string
	ccFlags    []string

	methods   int
	steps     int
	stepSize  float64
	inflow    float64
	retention float64
	cells     int
	absTol    float64
	relTol    float64
	dtMin     float64
	native    bool

	column  string
	height  int
	width   int
	outPath string
	fresh   bool

	calParam  string
	calMin    float64
	calMax    float64
	calPoints int
	calScore  string
	workers   int
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "kernelc",
		Short: "specializing kernel compiler and adaptive simulation runner",
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".kernelc", "run archive directory")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().StringVar(&publishDir, "publish", "kernels", "publish directory for built kernels")
	rootCmd.PersistentFlags().StringVar(&ccCmd, "cc", "cc", "C compiler command")
	rootCmd.PersistentFlags().StringSliceVar(&ccFlags, "cc-flag", nil, "extra C compiler flags")

	buildCmd := &cobra.Command{
		Use:   "build [model]",
		Short: "generate, compile and publish a specialized kernel",
		Args:  cobra.ExactArgs(1),
		RunE:  buildKernel,
	}
	buildCmd.Flags().IntVar(&methods, "methods", config.DefaultMethods, "method order ceiling compiled into the kernel")

	sourceCmd := &cobra.Command{
		Use:   "source [model]",
		Short: "print the generated C source unit",
		Args:  cobra.ExactArgs(1),
		RunE:  printSource,
	}
	sourceCmd.Flags().IntVar(&methods, "methods", config.DefaultMethods, "method order ceiling")

	stubCmd := &cobra.Command{
		Use:   "stub [model]",
		Short: "print the callable-surface listing of a model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := resolveDescriptor(args[0], config.DefaultMethods)
			if err != nil {
				return err
			}
			fmt.Print(kernelgen.Stub(d))
			return nil
		},
	}

	runCmd := &cobra.Command{
		Use:   "run [model]",
		Short: "simulate a model over a series of coarse steps",
		Args:  cobra.ExactArgs(1),
		RunE:  runSimulation,
	}
	runCmd.Flags().IntVar(&methods, "methods", config.DefaultMethods, "method order ceiling")
	runCmd.Flags().IntVar(&steps, "steps", config.DefaultSteps, "number of coarse steps")
	runCmd.Flags().Float64Var(&stepSize, "step-size", config.DefaultStepSize, "coarse step size")
	runCmd.Flags().Float64Var(&inflow, "inflow", config.DefaultInflow, "constant inflow")
	runCmd.Flags().Float64Var(&retention, "retention", config.DefaultRetention, "retention time k")
	runCmd.Flags().IntVar(&cells, "cells", models.DefaultCells, "reservoir count (cascade)")
	runCmd.Flags().Float64Var(&absTol, "abs-tol", config.DefaultAbsTolerance, "absolute tolerance")
	runCmd.Flags().Float64Var(&relTol, "rel-tol", 0, "relative tolerance (0 disables)")
	runCmd.Flags().Float64Var(&dtMin, "dt-min", config.DefaultDtMin, "micro-step floor")
	runCmd.Flags().BoolVar(&native, "native", false, "drive the published C kernel instead of the in-process realization")
	runCmd.Flags().BoolVar(&fresh, "rebuild", false, "force a fresh build of the native kernel before running")
	runCmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list archived runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot archived series",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&column, "column", "", "series column (default: all)")
	plotCmd.Flags().IntVar(&height, "height", 10, "plot height")
	plotCmd.Flags().IntVar(&width, "width", 80, "plot width")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "summarize and spectrum-analyze one series column",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}
	analyzeCmd.Flags().StringVar(&column, "column", "", "series column (default: first)")

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run data to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}
	exportJSONCmd.Flags().StringVar(&outPath, "out", "", "write to file instead of stdout")

	presetsCmd := &cobra.Command{
		Use:   "presets [model]",
		Short: "list available presets for a model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			presets := config.ListPresets(args[0])
			if len(presets) == 0 {
				fmt.Printf("no presets for model: %s\n", args[0])
				return nil
			}
			fmt.Printf("presets for %s:\n", args[0])
			for _, p := range presets {
				fmt.Printf("  %s\n", p)
			}
			return nil
		},
	}

	calibrateCmd := &cobra.Command{
		Use:   "calibrate [model] [run_id]",
		Short: "fit one model parameter against an archived series",
		Args:  cobra.ExactArgs(2),
		RunE:  calibrateModel,
	}
	calibrateCmd.Flags().StringVar(&calParam, "param", "k", "parameter to fit (k or inflow)")
	calibrateCmd.Flags().Float64Var(&calMin, "min", 1, "lower candidate bound")
	calibrateCmd.Flags().Float64Var(&calMax, "max", 10, "upper candidate bound")
	calibrateCmd.Flags().IntVar(&calPoints, "points", 19, "number of candidates")
	calibrateCmd.Flags().StringVar(&calScore, "score", "sse", "objective: sse or nse")
	calibrateCmd.Flags().IntVar(&workers, "workers", 4, "concurrent evaluations")
	calibrateCmd.Flags().StringVar(&column, "column", "", "observed column (default: first)")
	calibrateCmd.Flags().IntVar(&methods, "methods", config.DefaultMethods, "method order ceiling")
	calibrateCmd.Flags().Float64Var(&inflow, "inflow", config.DefaultInflow, "constant inflow")
	calibrateCmd.Flags().Float64Var(&retention, "retention", config.DefaultRetention, "retention time k")
	calibrateCmd.Flags().IntVar(&cells, "cells", models.DefaultCells, "reservoir count (cascade)")
	calibrateCmd.Flags().Float64Var(&absTol, "abs-tol", config.DefaultAbsTolerance, "absolute tolerance")
	calibrateCmd.Flags().Float64Var(&dtMin, "dt-min", config.DefaultDtMin, "micro-step floor")

	watchCmd := &cobra.Command{
		Use:   "watch [model]",
		Short: "rebuild the kernel whenever the config file changes",
		Args:  cobra.ExactArgs(1),
		RunE:  watchConfig,
	}

	rootCmd.AddCommand(buildCmd, sourceCmd, stubCmd, runCmd, listCmd, plotCmd, analyzeCmd, exportJSONCmd, presetsCmd, calibrateCmd, watchCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	if configFile == "" {
		return config.DefaultConfig(), nil
	}
	return config.Load(configFile)
}

func resolveDescriptor(name string, methods int) (*model.Descriptor, error) {
	d := models.Build(name, methods)
	if d == nil {
		return nil, fmt.Errorf("unknown model: %s (available: %v)", name, models.Names())
	}
	return d, nil
}

func newPipeline(cfg *config.Config) *pipeline.Pipeline {
	dir := publishDir
	if dir == "" {
		dir = cfg.PublishDir
	}
	cc := ccCmd
	if cc == "cc" && cfg.Toolchain.Cmd != "" {
		cc = cfg.Toolchain.Cmd
	}
	return pipeline.New(dir, &pipeline.CC{Cmd: cc, Flags: append(cfg.Toolchain.Flags, ccFlags...)})
}

func buildKernel(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	d, err := resolveDescriptor(args[0], methods)
	if err != nil {
		return err
	}

	start := time.Now()
	path, err := newPipeline(cfg).Publish(d)
	if err != nil {
		fmt.Println(viz.StatusFail.Render("build failed"))
		return err
	}
	fmt.Printf("%s %s\n", viz.StatusOK.Render("published"), path)
	fmt.Println(viz.Subtle.Render(fmt.Sprintf("%d methods, %v", methods, time.Since(start).Round(time.Millisecond))))
	return nil
}

func printSource(cmd *cobra.Command, args []string) error {
	d, err := resolveDescriptor(args[0], methods)
	if err != nil {
		return err
	}
	src, err := kernelgen.New(d).Generate()
	if err != nil {
		return err
	}
	fmt.Print(src)
	return nil
}

// runRecorder extracts the per-step series columns of one model.
type runRecorder struct {
	names  []string
	record func() []float64
}

func runSimulation(cmd *cobra.Command, args []string) error {
	name := args[0]

	if preset != "" {
		cfg := config.GetPreset(name, preset)
		if cfg == nil {
			return fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(name))
		}
		applyPreset(cmd, cfg)
	}
	if configFile != "" {
		cfg, err := config.Load(configFile)
		if err != nil {
			return err
		}
		applyConfig(cmd, cfg)
	}

	solverCfg := solver.Config{
		AbsTolerance: absTol,
		RelTolerance: relTolOrNaN(),
		DtMin:        dtMin,
	}

	var (
		kern     kernel.Kernel
		consts   model.NumConsts
		recorder runRecorder
	)
	if native {
		k, c, r, err := nativeRealization(name)
		if err != nil {
			return err
		}
		kern, consts, recorder = k, c, r
	} else {
		k, c, r, err := goRealization(name)
		if err != nil {
			return err
		}
		kern, consts, recorder = k, c, r
	}

	sol, err := solver.New(kern, consts, solverCfg)
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	fmt.Printf("running %s over %d steps...\n", name, steps)
	start := time.Now()

	series := &storage.Series{Names: recorder.names, Stats: map[string]float64{}}
	microSteps := 0
	for i := 0; i < steps; i++ {
		if err := sol.Solve(); err != nil {
			fmt.Println(viz.StatusFail.Render(fmt.Sprintf("step %d failed", i)))
			return err
		}
		microSteps += sol.Vars().StepsTaken
		series.Times = append(series.Times, float64(i+1)*stepSize)
		series.Rows = append(series.Rows, recorder.record())
	}
	elapsed := time.Since(start)
	series.Stats["micro_steps"] = float64(microSteps)

	runID, err := st.Save(storage.RunMetadata{
		Model:        name,
		StepSize:     stepSize,
		AbsTolerance: absTol,
		RelTolerance: relTol,
	}, series)
	if err != nil {
		return err
	}

	fmt.Printf("%s in %v\n", viz.StatusOK.Render("completed"), elapsed.Round(time.Millisecond))
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("%s %d coarse, %d micro\n", viz.MetricLabel.Render("steps:"), steps, microSteps)
	for i, colName := range series.Names {
		col := make([]float64, len(series.Rows))
		for j := range series.Rows {
			col[j] = series.Rows[j][i]
		}
		fmt.Printf("%s %s\n", viz.MetricLabel.Render(fmt.Sprintf("%-6s", colName)), viz.Sparkline(col, 48))
	}
	return nil
}

func relTolOrNaN() float64 {
	if relTol <= 0 {
		cfg := solver.DefaultConfig()
		return cfg.RelTolerance
	}
	return relTol
}

func applyPreset(cmd *cobra.Command, cfg *config.Config) {
	if !cmd.Flags().Changed("steps") {
		steps = cfg.Run.Steps
	}
	if !cmd.Flags().Changed("step-size") {
		stepSize = cfg.Run.StepSize
	}
	if !cmd.Flags().Changed("inflow") {
		inflow = cfg.Run.Inflow
	}
	if !cmd.Flags().Changed("retention") {
		retention = cfg.Run.Retention
	}
	if !cmd.Flags().Changed("abs-tol") {
		absTol = cfg.Solver.AbsTolerance
	}
	if !cmd.Flags().Changed("rel-tol") {
		relTol = cfg.Solver.RelTolerance
	}
	if !cmd.Flags().Changed("dt-min") {
		dtMin = cfg.Solver.DtMin
	}
	if !cmd.Flags().Changed("methods") {
		methods = cfg.Solver.Methods
	}
}

func applyConfig(cmd *cobra.Command, cfg *config.Config) {
	// A config file fills in whatever the flags left untouched; flags win.
	applyPreset(cmd, cfg)
}

func goRealization(name string) (kernel.Kernel, model.NumConsts, runRecorder, error) {
	switch name {
	case "reservoir":
		rk, err := models.NewReservoirKernel(methods)
		if err != nil {
			return nil, model.NumConsts{}, runRecorder{}, err
		}
		rk.Inflow = inflow
		rk.K = retention
		s := rk.Var("s")
		qout := rk.Var("qout")
		rec := runRecorder{
			names: []string{"qout", "s"},
			record: func() []float64 {
				return []float64{qout.Sum[0], s.Values[0]}
			},
		}
		return rk, *rk.Descriptor().Solver, rec, nil
	case "cascade":
		ck, err := models.NewCascadeKernel(methods, cells)
		if err != nil {
			return nil, model.NumConsts{}, runRecorder{}, err
		}
		ck.Inflow = inflow
		ck.K = retention
		q := ck.Var("q")
		sv := ck.Var("sv")
		last := q.Len() - 1
		rec := runRecorder{
			names: []string{"q", "storage"},
			record: func() []float64 {
				total := 0.0
				for _, v := range sv.Values {
					total += v
				}
				return []float64{q.Sum[last], total}
			},
		}
		return ck, *ck.Descriptor().Solver, rec, nil
	default:
		return nil, model.NumConsts{}, runRecorder{}, fmt.Errorf("unknown model: %s (available: %v)", name, models.Names())
	}
}

// nativeRealization loads the published C kernel and drives it through the
// same solver. Recording relies on rank-0 accessors, which restricts the
// native path to the reservoir model.
func nativeRealization(name string) (kernel.Kernel, model.NumConsts, runRecorder, error) {
	if name != "reservoir" {
		return nil, model.NumConsts{}, runRecorder{}, fmt.Errorf("native run supports the reservoir model only")
	}
	cfg, err := loadConfig()
	if err != nil {
		return nil, model.NumConsts{}, runRecorder{}, err
	}
	d, err := resolveDescriptor(name, methods)
	if err != nil {
		return nil, model.NumConsts{}, runRecorder{}, err
	}
	pl := newPipeline(cfg)
	var nat *kernel.Native
	if fresh {
		nat, err = pl.Rebuild(d)
	} else {
		nat, err = pl.Kernel(d)
	}
	if err != nil {
		return nil, model.NumConsts{}, runRecorder{}, err
	}
	if err := nat.SetValue("k", retention); err != nil {
		return nil, model.NumConsts{}, runRecorder{}, err
	}
	if err := nat.SetValue("p", inflow); err != nil {
		return nil, model.NumConsts{}, runRecorder{}, err
	}
	rec := runRecorder{
		names: []string{"qout", "s"},
		record: func() []float64 {
			s, _ := nat.GetValue("s")
			_ = nat.Call("get_sum_fluxes")
			qout, _ := nat.GetValue("qout")
			return []float64{qout, s}
		},
	}
	return nat, *d.Solver, rec, nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	fmt.Println(viz.Title.Render("archived runs"))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tMODEL\tTIME\tSTEPS\tABS_TOL\tMICRO")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%.0e\t%.0f\n",
			run.ID,
			run.Model,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Steps,
			run.AbsTolerance,
			run.Stats["micro_steps"],
		)
	}

	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	series, err := st.LoadSeries(runID)
	if err != nil {
		return err
	}
	if len(series.Rows) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Println(viz.HeaderStyle.Render(fmt.Sprintf("run %s (%s)", meta.ID, meta.Model)))
	fmt.Printf("samples: %d\n\n", len(series.Rows))

	names := series.Names
	if column != "" {
		names = []string{column}
	}
	for _, colName := range names {
		data := series.Column(colName)
		if data == nil {
			return fmt.Errorf("unknown column: %s (available: %v)", colName, series.Names)
		}
		graph := asciigraph.Plot(data,
			asciigraph.Height(height),
			asciigraph.Width(width),
			asciigraph.Caption(fmt.Sprintf("%s vs time", colName)),
		)
		fmt.Println(graph)
		fmt.Println()
	}
	return nil
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	series, err := st.LoadSeries(runID)
	if err != nil {
		return err
	}
	if len(series.Rows) == 0 {
		return fmt.Errorf("no data")
	}

	colName := column
	if colName == "" {
		colName = series.Names[0]
	}
	data := series.Column(colName)
	if data == nil {
		return fmt.Errorf("unknown column: %s (available: %v)", colName, series.Names)
	}

	fmt.Println(viz.HeaderStyle.Render(fmt.Sprintf("analysis: %s (%s)", meta.ID, colName)))

	sum := analysis.Summarize(series.Times, data)
	fmt.Printf("%s %s\n", viz.MetricLabel.Render("peak:"), viz.MetricValue.Render(fmt.Sprintf("%.4f at t=%.2f", sum.Peak, sum.TimeToPeak)))
	fmt.Printf("%s %s\n", viz.MetricLabel.Render("volume:"), viz.MetricValue.Render(fmt.Sprintf("%.4f", sum.Volume)))
	fmt.Printf("%s %s\n\n", viz.MetricLabel.Render("mean:"), viz.MetricValue.Render(fmt.Sprintf("%.4f", sum.Mean)))

	ps := analysis.PowerSpectrum(data)
	plotData := ps[:len(ps)/4+1]
	graph := asciigraph.Plot(plotData,
		asciigraph.Height(12),
		asciigraph.Width(80),
		asciigraph.Caption(fmt.Sprintf("power spectrum (%s)", colName)),
	)
	fmt.Println(graph)
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	series, err := st.LoadSeries(runID)
	if err != nil {
		return err
	}
	series.Stats = meta.Stats
	if outPath != "" {
		if err := storage.ExportJSON(outPath, meta, series); err != nil {
			return err
		}
		fmt.Printf("%s %s\n", viz.StatusOK.Render("exported"), outPath)
		return nil
	}
	return storage.ExportJSONStdout(meta, series)
}

// simulateOutflow runs a fresh in-process kernel over the given number of
// coarse steps and returns the outflow series. Safe for concurrent calls:
// nothing is shared between invocations.
func simulateOutflow(name string, k, in float64, nSteps int, cfg solver.Config) ([]float64, error) {
	var (
		kern   kernel.Kernel
		consts model.NumConsts
		out    *kernel.Var
		last   int
	)
	switch name {
	case "reservoir":
		rk, err := models.NewReservoirKernel(methods)
		if err != nil {
			return nil, err
		}
		rk.Inflow, rk.K = in, k
		kern, consts, out = rk, *rk.Descriptor().Solver, rk.Var("qout")
	case "cascade":
		ck, err := models.NewCascadeKernel(methods, cells)
		if err != nil {
			return nil, err
		}
		ck.Inflow, ck.K = in, k
		q := ck.Var("q")
		kern, consts, out, last = ck, *ck.Descriptor().Solver, q, q.Len()-1
	default:
		return nil, fmt.Errorf("unknown model: %s (available: %v)", name, models.Names())
	}

	sol, err := solver.New(kern, consts, cfg)
	if err != nil {
		return nil, err
	}
	series := make([]float64, nSteps)
	for i := 0; i < nSteps; i++ {
		if err := sol.Solve(); err != nil {
			return nil, err
		}
		series[i] = out.Sum[last]
	}
	return series, nil
}

func calibrateModel(cmd *cobra.Command, args []string) error {
	name, runID := args[0], args[1]

	if calParam != "k" && calParam != "inflow" {
		return fmt.Errorf("unknown parameter: %s (supported: k, inflow)", calParam)
	}

	st := storage.New(dataDir)
	series, err := st.LoadSeries(runID)
	if err != nil {
		return err
	}
	colName := column
	if colName == "" {
		colName = series.Names[0]
	}
	observed := series.Column(colName)
	if observed == nil {
		return fmt.Errorf("unknown column: %s (available: %v)", colName, series.Names)
	}

	solverCfg := solver.Config{
		AbsTolerance: absTol,
		RelTolerance: relTolOrNaN(),
		DtMin:        dtMin,
	}

	obj := func(ctx context.Context, params map[string]float64) (float64, error) {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		k, in := retention, inflow
		if v, ok := params["k"]; ok {
			k = v
		}
		if v, ok := params["inflow"]; ok {
			in = v
		}
		simulated, err := simulateOutflow(name, k, in, len(observed), solverCfg)
		if err != nil {
			return 0, err
		}
		switch calScore {
		case "nse":
			nse, err := calibrate.NashSutcliffe(observed, simulated)
			if err != nil {
				return 0, err
			}
			// The search minimizes; invert the efficiency.
			return -nse, nil
		default:
			return calibrate.SSE(observed, simulated)
		}
	}

	gs, err := calibrate.NewGridSearch([]string{calParam}, [][]float64{calibrate.Candidates(calMin, calMax, calPoints)})
	if err != nil {
		return err
	}
	gs.Workers = workers

	fmt.Printf("calibrating %s of %s against %s (%s)...\n", calParam, name, runID, colName)
	start := time.Now()
	res, err := gs.Search(cmd.Context(), obj)
	if err != nil {
		return err
	}

	fmt.Printf("%s in %v (%d candidates)\n", viz.StatusOK.Render("done"), time.Since(start).Round(time.Millisecond), res.Evaluated)
	fmt.Printf("%s %s\n", viz.MetricLabel.Render("best "+calParam+":"), viz.MetricValue.Render(fmt.Sprintf("%.4f", res.Params[calParam])))
	score := res.Score
	label := "sse:"
	if calScore == "nse" {
		score, label = -score, "nse:"
	}
	fmt.Printf("%s %s\n", viz.MetricLabel.Render(label), viz.MetricValue.Render(fmt.Sprintf("%.6f", score)))
	return nil
}

// watchConfig republishes the kernel whenever the config file is rewritten,
// so tolerance or method-count edits take effect without manual rebuilds.
func watchConfig(cmd *cobra.Command, args []string) error {
	if configFile == "" {
		return fmt.Errorf("watch needs --config")
	}

	rebuild := func() {
		if err := buildKernel(cmd, args); err != nil {
			fmt.Println(viz.StatusFail.Render(err.Error()))
		}
	}
	rebuild()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	if err := watcher.Add(configFile); err != nil {
		return err
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	fmt.Println(viz.Subtle.Render("watching " + configFile + " (ctrl-c to stop)"))

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				fmt.Println(viz.Subtle.Render("config changed, rebuilding"))
				rebuild()
				// Editors replace the file; re-arm the watch.
				_ = watcher.Add(configFile)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Println(viz.StatusFail.Render(err.Error()))
		case <-stop:
			return nil
		}
	}
}
