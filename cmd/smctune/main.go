package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/mkrv/smctune/internal/analysis"
	"github.com/mkrv/smctune/internal/config"
	"github.com/mkrv/smctune/internal/cost"
	"github.com/mkrv/smctune/internal/dynamics"
	"github.com/mkrv/smctune/internal/integrators"
	"github.com/mkrv/smctune/internal/optim"
	"github.com/mkrv/smctune/internal/plant"
	"github.com/mkrv/smctune/internal/report"
	"github.com/mkrv/smctune/internal/sim"
	"github.com/mkrv/smctune/internal/smc"
	"github.com/mkrv/smctune/internal/store"
	"github.com/mkrv/smctune/internal/tui"
)

var (
	// persistent flags
	dataDir    string
	configFile string
	verbose    bool

	// simulate flags
	simDt      float64
	simTime    float64
	integName  string
	gains      []float64
	maxForce   float64
	cartPos    float64
	cartVel    float64
	theta1     float64
	omega1     float64
	theta2     float64
	omega2     float64
	pushAt     float64
	pushFor    float64
	pushPeak   float64

	// tune flags
	method     string
	presetName string
	particles  int
	iterations int
	seed       int64
	workers    int
	gridPoints int
	watch      bool

	// analyze flags
	cutoffHz  float64
	reachBand float64
	lyapunov  bool

	// plot flags
	plotDir string

	// bench flags
	benchTime float64
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "smctune",
		Short: "Sliding-mode controller tuning for the double inverted pendulum",
		Long: `smctune simulates a cart-mounted double inverted pendulum under
sliding-mode control and tunes controller gains with particle swarm
optimization.

Controller variants: ` + strings.Join(variantNames(), ", ") + `

Runs and tuning results are stored under the data directory (--data)
and can be listed, analyzed, plotted, and exported afterwards.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".smctune", "directory for saved runs and tuning results")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "YAML config file (defaults are used when empty)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	simulateCmd := &cobra.Command{
		Use:   "simulate [variant]",
		Short: "Run one closed-loop simulation and save the trajectory",
		Example: `  smctune simulate classical
  smctune simulate sta --theta1 0.3 --duration 5
  smctune simulate adaptive --gains 12,8,18,9,4,2 --push-at 2 --push-peak 30`,
		Args: cobra.ExactArgs(1),
		RunE: runSimulate,
	}
	simulateCmd.Flags().Float64SliceVar(&gains, "gains", nil, "controller gains (comma separated, variant defaults when empty)")
	simulateCmd.Flags().Float64Var(&simDt, "dt", 0.01, "integration timestep in seconds")
	simulateCmd.Flags().Float64Var(&simTime, "duration", 10.0, "simulated time in seconds")
	simulateCmd.Flags().StringVar(&integName, "integrator", "rk4", "integrator: euler, rk4, or rk45")
	simulateCmd.Flags().Float64Var(&maxForce, "max-force", smc.DefaultMaxForce, "actuator saturation in newtons")
	simulateCmd.Flags().Float64Var(&cartPos, "pos", 0, "initial cart position in meters")
	simulateCmd.Flags().Float64Var(&cartVel, "vel", 0, "initial cart velocity")
	simulateCmd.Flags().Float64Var(&theta1, "theta1", 0.1, "initial lower pendulum angle in radians")
	simulateCmd.Flags().Float64Var(&omega1, "omega1", 0, "initial lower pendulum angular velocity")
	simulateCmd.Flags().Float64Var(&theta2, "theta2", -0.05, "initial upper pendulum angle in radians")
	simulateCmd.Flags().Float64Var(&omega2, "omega2", 0, "initial upper pendulum angular velocity")
	simulateCmd.Flags().Float64Var(&pushAt, "push-at", 0, "start of a half-sine cart push in seconds")
	simulateCmd.Flags().Float64Var(&pushFor, "push-for", 0.3, "push duration in seconds")
	simulateCmd.Flags().Float64Var(&pushPeak, "push-peak", 0, "peak push force in newtons (0 disables)")
	rootCmd.AddCommand(simulateCmd)

	tuneCmd := &cobra.Command{
		Use:   "tune [variant]",
		Short: "Search for gains that minimize the closed-loop cost",
		Example: `  smctune tune classical
  smctune tune sta --watch
  smctune tune hybrid --preset thorough --seed 7
  smctune tune classical --method grid --grid-points 4`,
		Args: cobra.ExactArgs(1),
		RunE: runTune,
	}
	tuneCmd.Flags().StringVar(&method, "method", "pso", "search method: pso or grid")
	tuneCmd.Flags().StringVar(&presetName, "preset", "", "tuning preset (see the presets command)")
	tuneCmd.Flags().IntVar(&particles, "particles", 30, "swarm size")
	tuneCmd.Flags().IntVar(&iterations, "iterations", 100, "maximum swarm iterations")
	tuneCmd.Flags().Int64Var(&seed, "seed", 1, "random seed for a reproducible search")
	tuneCmd.Flags().IntVar(&workers, "workers", 0, "parallel evaluations (0 uses all CPUs)")
	tuneCmd.Flags().IntVar(&gridPoints, "grid-points", 5, "samples per dimension for the grid method")
	tuneCmd.Flags().BoolVar(&watch, "watch", false, "live terminal view of the search (pso only, q stops early)")
	rootCmd.AddCommand(tuneCmd)

	validateCmd := &cobra.Command{
		Use:   "validate [variant] [gains...]",
		Short: "Check a gain vector against the variant's constraints",
		Example: `  smctune validate classical 12 8 18 9 4 2
  smctune validate sta`,
		Args: cobra.MinimumNArgs(1),
		RunE: runValidate,
	}
	rootCmd.AddCommand(validateCmd)

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run-id]",
		Short: "Sliding-surface and chattering analysis of a saved run",
		Args:  cobra.ExactArgs(1),
		RunE:  runAnalyze,
	}
	analyzeCmd.Flags().Float64Var(&cutoffHz, "cutoff", 10.0, "chattering cutoff frequency in Hz")
	analyzeCmd.Flags().Float64Var(&reachBand, "band", smc.DefaultBoundaryLayer, "surface band excluded from the reaching check")
	analyzeCmd.Flags().BoolVar(&lyapunov, "lyapunov", false, "estimate the largest Lyapunov exponent of the unforced plant")
	rootCmd.AddCommand(analyzeCmd)

	plotCmd := &cobra.Command{
		Use:   "plot [id]",
		Short: "Write PNG plots for a saved run or tuning result",
		Args:  cobra.ExactArgs(1),
		RunE:  runPlot,
	}
	plotCmd.Flags().StringVar(&plotDir, "out", "plots", "output directory")
	rootCmd.AddCommand(plotCmd)

	exportCmd := &cobra.Command{
		Use:   "export [run-id]",
		Short: "Write a saved run as JSON to stdout",
		Args:  cobra.ExactArgs(1),
		RunE:  runExport,
	}
	rootCmd.AddCommand(exportCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List saved runs and tuning results",
		Args:  cobra.NoArgs,
		RunE:  runList,
	}
	rootCmd.AddCommand(listCmd)

	benchCmd := &cobra.Command{
		Use:   "bench",
		Short: "Benchmark the integrators on the unforced plant",
		Args:  cobra.NoArgs,
		RunE:  runBench,
	}
	benchCmd.Flags().Float64Var(&benchTime, "duration", 5.0, "simulated time per case in seconds")
	rootCmd.AddCommand(benchCmd)

	presetsCmd := &cobra.Command{
		Use:   "presets [variant]",
		Short: "List tuning presets for a controller variant",
		Args:  cobra.ExactArgs(1),
		RunE:  runPresets,
	}
	rootCmd.AddCommand(presetsCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(exitCode(err))
	}
}

func runSimulate(cmd *cobra.Command, args []string) error {
	v, err := smc.ParseVariant(args[0])
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cfg.Controller.Variant = string(v)
	if cmd.Flags().Changed("dt") {
		cfg.Simulation.Dt = simDt
	}
	if cmd.Flags().Changed("duration") {
		cfg.Simulation.Duration = simTime
	}
	if cmd.Flags().Changed("integrator") {
		cfg.Simulation.Integrator = integName
	}
	if cmd.Flags().Changed("max-force") {
		cfg.Controller.MaxForce = maxForce
	}
	if len(gains) > 0 {
		cfg.Controller.Gains = gains
	}

	g := cfg.Controller.Gains
	if len(g) == 0 {
		spec, err := smc.Spec(v)
		if err != nil {
			return err
		}
		g = append([]float64(nil), spec.Defaults...)
		cfg.Controller.Gains = g
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	sys := plant.NewDoublePendulum(cfg.Plant)
	factory := smc.NewFactory(cfg.ControllerSettings(sys))
	ctrl, err := factory.Create(v, g)
	if err != nil {
		return err
	}
	integ, err := integrators.New(cfg.Simulation.Integrator)
	if err != nil {
		return err
	}

	target := factory.Config().Target
	runner := sim.New(sys, integ, ctrl)
	runner.AddMetric(cost.NewTrackingISE(target))
	runner.AddMetric(cost.NewControlRMS())
	runner.AddMetric(cost.NewChattering())
	runner.AddMetric(cost.NewOvershoot(target))
	runner.AddMetric(cost.NewSettling(target, cost.DefaultSettleBand))
	if pushPeak != 0 {
		sc := cost.Scenario{Pulses: []cost.Pulse{{Start: pushAt, Duration: pushFor, Peak: pushPeak}}}
		runner.SetDisturbance(sc.Disturbance)
	}

	x0 := dynamics.State{cartPos, theta1, theta2, cartVel, omega1, omega2}
	slog.Debug("starting simulation",
		"variant", v, "integrator", integ.Name(),
		"dt", cfg.Simulation.Dt, "duration", cfg.Simulation.Duration)

	res, runErr := runner.Run(cmd.Context(), x0, cfg.SimSettings())
	if res == nil {
		return runErr
	}

	st := store.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	runID, err := st.SaveRun(string(v), g, cfg.Simulation.Duration, res)
	if err != nil {
		return err
	}

	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("%d steps in %v (%.0f steps/sec)\n",
		res.Steps, res.Elapsed.Round(time.Millisecond), float64(res.Steps)/res.Elapsed.Seconds())
	if len(res.States) > 0 {
		final := res.States[len(res.States)-1]
		fmt.Printf("final state: x=%.4f m  th1=%.4f rad  th2=%.4f rad\n",
			final[plant.IdxCart], final[plant.IdxTheta1], final[plant.IdxTheta2])
	}
	printMetrics(res.Metrics)

	if runErr != nil {
		return runErr
	}
	if !res.Success {
		return res.Failure
	}
	return nil
}

func runTune(cmd *cobra.Command, args []string) error {
	v, err := smc.ParseVariant(args[0])
	if err != nil {
		return err
	}

	var cfg *config.Config
	if presetName != "" {
		cfg = config.GetPreset(string(v), presetName)
		if cfg == nil {
			return fmt.Errorf("unknown preset %q (available: %s)",
				presetName, strings.Join(config.ListPresets(string(v)), ", "))
		}
	} else {
		cfg, err = loadConfig()
		if err != nil {
			return err
		}
	}
	cfg.Controller.Variant = string(v)
	if cmd.Flags().Changed("particles") {
		cfg.Swarm.Particles = particles
	}
	if cmd.Flags().Changed("iterations") {
		cfg.Swarm.Iterations = iterations
	}
	if cmd.Flags().Changed("seed") {
		cfg.Swarm.Seed = seed
	}
	if cmd.Flags().Changed("workers") {
		cfg.Swarm.Workers = workers
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	sys := plant.NewDoublePendulum(cfg.Plant)
	factory := smc.NewFactory(cfg.ControllerSettings(sys))
	ev, err := cost.NewEvaluator(factory, cfg.CostScenarios())
	if err != nil {
		return err
	}
	ev.Weights = cfg.Cost.Weights
	ev.Sim = cfg.SimSettings()
	ev.Integrator = cfg.Simulation.Integrator
	ev.Penalty = cfg.Cost.Penalty
	ev.Timeout = cfg.EvalTimeout()

	spec, err := smc.Spec(v)
	if err != nil {
		return err
	}
	lower, upper := spec.Bounds()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	start := time.Now()
	var result *optim.Result
	var runErr error

	switch method {
	case "pso":
		swarm, err := optim.NewSwarm(cfg.SwarmSettings(), lower, upper, ev.Func(v))
		if err != nil {
			return err
		}
		if watch {
			stats := make(chan optim.IterationStats, 64)
			swarm.OnIteration = func(s optim.IterationStats) {
				select {
				case stats <- s:
				default:
				}
			}
			done := make(chan struct{})
			go func() {
				result, runErr = swarm.Run(ctx)
				close(stats)
				close(done)
			}()
			uiErr := tui.Run(tui.NewWatch(string(v), spec.Names, stats, cancel))
			if uiErr != nil {
				cancel()
			}
			<-done
			if uiErr != nil {
				return uiErr
			}
		} else {
			swarm.OnIteration = func(s optim.IterationStats) {
				slog.Info("iteration",
					"i", s.Iteration, "best", s.BestCost, "mean", s.MeanCost, "evals", s.Evaluations)
			}
			result, runErr = swarm.Run(ctx)
		}
	case "grid":
		grid, err := optim.NewGrid(lower, upper, gridPoints)
		if err != nil {
			return err
		}
		result, runErr = grid.Search(ctx, ev.Func(v))
	default:
		return fmt.Errorf("unknown method %q (pso or grid)", method)
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	if result == nil {
		return errors.New("tuning produced no result")
	}

	st := store.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	seeds := []int64{}
	if method == "pso" {
		seeds = append(seeds, result.Seed)
	}
	id, err := st.SaveTune(store.TuneRecord{
		Variant:     string(v),
		BestGains:   result.BestPos,
		BestCost:    result.BestCost,
		History:     result.History,
		Iterations:  result.Iterations,
		Evaluations: result.Evaluations,
		StopReason:  result.StopReason,
		Seeds:       seeds,
		Lower:       lower,
		Upper:       upper,
	})
	if err != nil {
		return err
	}

	fmt.Printf("tune id: %s\n", id)
	fmt.Printf("stopped: %s after %d iterations, %d evaluations (%v)\n",
		result.StopReason, result.Iterations, result.Evaluations, time.Since(start).Round(time.Millisecond))
	fmt.Printf("best cost: %.6g\n\n", result.BestCost)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "GAIN\tVALUE\tBOUNDS")
	for i, name := range spec.Names {
		if i < len(result.BestPos) {
			fmt.Fprintf(w, "%s\t%.4f\t[%g, %g]\n", name, result.BestPos[i], lower[i], upper[i])
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if b, err := ev.Evaluate(context.Background(), v, result.BestPos); err == nil && !b.Penalty {
		fmt.Printf("\ncost terms: tracking=%.4g effort=%.4g settling=%.4g chattering=%.4g overshoot=%.4g\n",
			b.Tracking, b.Effort, b.Settling, b.Chattering, b.Overshoot)
	}
	if len(result.History) >= 2 {
		fmt.Println()
		fmt.Println(asciigraph.Plot(result.History,
			asciigraph.Height(10), asciigraph.Width(70), asciigraph.Caption("best cost per iteration")))
	}
	return nil
}

func runValidate(cmd *cobra.Command, args []string) error {
	v, err := smc.ParseVariant(args[0])
	if err != nil {
		return err
	}
	spec, err := smc.Spec(v)
	if err != nil {
		return err
	}

	var g []float64
	if len(args) > 1 {
		g = make([]float64, 0, len(args)-1)
		for _, a := range args[1:] {
			val, err := strconv.ParseFloat(a, 64)
			if err != nil {
				return fmt.Errorf("gain %q is not a number", a)
			}
			g = append(g, val)
		}
	} else {
		g = append([]float64(nil), spec.Defaults...)
		fmt.Println("no gains given, checking the variant defaults")
	}

	if err := smc.Validate(v, g); err != nil {
		var gainErr *smc.GainError
		if errors.As(err, &gainErr) {
			fmt.Printf("invalid %s gains:\n", v)
			for _, violation := range gainErr.Violations {
				fmt.Printf("  - %s\n", violation)
			}
		}
		return err
	}

	fmt.Printf("%s gains ok\n", v)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "GAIN\tVALUE\tBOUNDS")
	for i, name := range spec.Names {
		fmt.Fprintf(w, "%s\t%.4f\t[%g, %g]\n", name, g[i], spec.Lower[i], spec.Upper[i])
	}
	return w.Flush()
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	st := store.New(dataDir)
	meta, err := st.LoadRun(args[0])
	if err != nil {
		return err
	}
	times, states, controls, err := st.LoadTrajectory(args[0])
	if err != nil {
		return err
	}
	if len(states) < 2 {
		return fmt.Errorf("run %s has no trajectory to analyze", meta.ID)
	}

	fmt.Printf("run %s: %s, %s, dt=%.4g, %d samples\n\n",
		meta.ID, meta.Variant, meta.Integrator, meta.Dt, len(times))

	if len(meta.Gains) > 0 {
		v, err := smc.ParseVariant(meta.Variant)
		if err != nil {
			return err
		}
		surf, err := smc.SurfaceFromGains(v, meta.Gains)
		if err != nil {
			return err
		}
		sigma := analysis.SurfaceSeries(states, surf, nil)
		frac := analysis.ReachingFraction(sigma, meta.Dt, reachBand)
		fmt.Printf("reaching condition held on %.1f%% of samples outside |sigma| <= %g\n",
			100*frac, reachBand)
		fmt.Println(asciigraph.Plot(sigma,
			asciigraph.Height(10), asciigraph.Width(70), asciigraph.Caption("sliding surface")))
		fmt.Println()
	}

	us := trimControlPad(controls)
	if len(us) >= 4 {
		idx := analysis.ChatterIndex(us, meta.Dt, cutoffHz)
		fmt.Printf("chatter index (share of control power >= %g Hz): %.3f\n", cutoffHz, idx)
		if power, freqs := analysis.Spectrum(us, meta.Dt); len(power) > 2 {
			peak := 1
			for i := 2; i < len(power); i++ {
				if power[i] > power[peak] {
					peak = i
				}
			}
			fmt.Printf("dominant control frequency: %.2f Hz\n", freqs[peak])
			quarter := len(power) / 4
			if quarter < 8 {
				quarter = len(power)
			}
			fmt.Println(asciigraph.Plot(power[1:quarter],
				asciigraph.Height(10), asciigraph.Width(70), asciigraph.Caption("control power spectrum")))
		}
	}

	if lyapunov {
		sys := plant.NewDoublePendulum(plant.DefaultParams())
		lam := analysis.LargestExponent(sys, integrators.NewRK4(), states[0], meta.Dt, 2.0, 1e-8)
		fmt.Printf("\nlargest Lyapunov exponent of the unforced plant from this start: %.3f /s\n", lam)
	}
	return nil
}

func runPlot(cmd *cobra.Command, args []string) error {
	id := args[0]
	st := store.New(dataDir)

	if rec, err := st.LoadTune(id); err == nil {
		path := filepath.Join(plotDir, rec.ID+"_convergence.png")
		if err := report.Convergence(path, rec.History); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", path)
		return nil
	}

	meta, err := st.LoadRun(id)
	if err != nil {
		return fmt.Errorf("no run or tuning result named %q", id)
	}
	times, states, controls, err := st.LoadTrajectory(id)
	if err != nil {
		return err
	}

	dir := filepath.Join(plotDir, meta.ID)
	if err := report.Trajectory(dir, times, states, trimControlPad(controls)); err != nil {
		return err
	}
	if len(meta.Gains) > 0 {
		if v, err := smc.ParseVariant(meta.Variant); err == nil {
			if surf, err := smc.SurfaceFromGains(v, meta.Gains); err == nil {
				sigma := analysis.SurfaceSeries(states, surf, nil)
				if err := report.Surface(filepath.Join(dir, "sigma.png"), times, sigma); err != nil {
					return err
				}
			}
		}
	}
	fmt.Printf("wrote plots to %s\n", dir)
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	st := store.New(dataDir)
	meta, err := st.LoadRun(args[0])
	if err != nil {
		return err
	}
	times, states, controls, err := st.LoadTrajectory(args[0])
	if err != nil {
		return err
	}
	us := trimControlPad(controls)
	res := &dynamics.Result{
		Times:      times,
		States:     states,
		Controls:   us,
		Metrics:    meta.Metrics,
		Integrator: meta.Integrator,
		Dt:         meta.Dt,
		Steps:      len(us),
		Success:    meta.Success,
	}
	return store.ExportJSON(os.Stdout, meta.Variant, meta.Gains, res)
}

func runList(cmd *cobra.Command, args []string) error {
	st := store.New(dataDir)
	runs, err := st.ListRuns()
	if err != nil {
		return err
	}
	tunes, err := st.ListTunes()
	if err != nil {
		return err
	}
	if len(runs) == 0 && len(tunes) == 0 {
		fmt.Println("no saved runs or tuning results")
		return nil
	}

	if len(runs) > 0 {
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "RUN ID\tVARIANT\tWHEN\tDURATION\tDT\tINTEGRATOR\tOK")
		for _, r := range runs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%.2gs\t%.4g\t%s\t%v\n",
				r.ID, r.Variant, r.Timestamp.Format("2006-01-02 15:04:05"),
				r.Duration, r.Dt, r.Integrator, r.Success)
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}
	if len(tunes) > 0 {
		if len(runs) > 0 {
			fmt.Println()
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "TUNE ID\tVARIANT\tBEST COST\tITERS\tEVALS\tSTOP")
		for _, r := range tunes {
			fmt.Fprintf(w, "%s\t%s\t%.6g\t%d\t%d\t%s\n",
				r.ID, r.Variant, r.BestCost, r.Iterations, r.Evaluations, r.StopReason)
		}
		return w.Flush()
	}
	return nil
}

func runBench(cmd *cobra.Command, args []string) error {
	sys := plant.NewDoublePendulum(plant.DefaultParams().Frictionless())
	x0 := dynamics.State{0, 0.1, -0.05, 0, 0, 0}
	names := []string{"euler", "rk4", "rk45"}
	dts := []float64{0.001, 0.01}

	fmt.Printf("unforced frictionless plant, %.3gs horizon\n\n", benchTime)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "INTEGRATOR\tDT\tSTEPS\tTIME\tSTEPS/SEC\tENERGY DRIFT")
	for _, name := range names {
		integ, err := integrators.New(name)
		if err != nil {
			return err
		}
		for _, dt := range dts {
			cfg := dynamics.DefaultConfig()
			cfg.Dt = dt
			cfg.Duration = benchTime
			cfg.Adaptive = name == "rk45"
			res, err := sim.New(sys, integ, nil).Run(cmd.Context(), x0, cfg)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "%s\t%.4g\t%d\t%v\t%.0f\t%.3e\n",
				name, dt, res.Steps, res.Elapsed.Round(time.Microsecond),
				float64(res.Steps)/res.Elapsed.Seconds(), res.EnergyDrift)
		}
	}
	return w.Flush()
}

func runPresets(cmd *cobra.Command, args []string) error {
	v, err := smc.ParseVariant(args[0])
	if err != nil {
		return err
	}
	names := config.ListPresets(string(v))
	if len(names) == 0 {
		return fmt.Errorf("no presets for variant %q", v)
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PRESET\tPARTICLES\tITERATIONS\tHORIZON\tSCENARIOS")
	for _, n := range names {
		cfg := config.GetPreset(string(v), n)
		fmt.Fprintf(w, "%s\t%d\t%d\t%.3gs\t%d\n",
			n, cfg.Swarm.Particles, cfg.Swarm.Iterations, cfg.Simulation.Duration, len(cfg.Scenarios))
	}
	return w.Flush()
}

func loadConfig() (*config.Config, error) {
	if configFile == "" {
		return config.DefaultConfig(), nil
	}
	return config.Load(configFile)
}

// trimControlPad drops the zero sample appended so the trajectory CSV has
// one control per row.
func trimControlPad(controls []float64) []float64 {
	if len(controls) == 0 {
		return controls
	}
	return controls[:len(controls)-1]
}

func printMetrics(metrics map[string]float64) {
	if len(metrics) == 0 {
		return
	}
	keys := make([]string, 0, len(metrics))
	for k := range metrics {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Println("metrics:")
	for _, k := range keys {
		fmt.Printf("  %-14s %.6g\n", k, metrics[k])
	}
}

func variantNames() []string {
	vs := smc.Variants()
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = string(v)
	}
	return out
}

func exitCode(err error) int {
	var gainErr *smc.GainError
	var lockErr *smc.LockTimeoutError
	var numErr *dynamics.NumericalError
	switch {
	case errors.As(err, &gainErr):
		return 2
	case errors.As(err, &lockErr):
		return 3
	case errors.As(err, &numErr):
		return 4
	case errors.Is(err, context.DeadlineExceeded):
		return 5
	}
	return 1
}
