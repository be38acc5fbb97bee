package main

import (
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/iwvelando/facility-valuation/internal/leaseback"
	"github.com/iwvelando/facility-valuation/internal/montecarlo"
	"github.com/iwvelando/facility-valuation/internal/scenario"
	"github.com/iwvelando/facility-valuation/internal/sensitivity"
	"github.com/iwvelando/facility-valuation/internal/server"
	"github.com/iwvelando/facility-valuation/internal/settings"
	"github.com/iwvelando/facility-valuation/internal/valuation"
	"github.com/iwvelando/facility-valuation/pkg/output"
	"github.com/iwvelando/facility-valuation/pkg/validation"
)

var valueCmd = &cobra.Command{
	Use:   "value <scenario.yaml>",
	Short: "Value a facility and reconcile the six methods",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, sc, err := loadScenario(args[0], "main.value")
		if err != nil {
			return err
		}
		result, err := valuation.NewEngine(logger).ValueScenario(sc)
		if err != nil {
			return err
		}
		return output.Write(cmd.OutOrStdout(), outputFormat, result)
	},
}

var sensitivityCmd = &cobra.Command{
	Use:   "sensitivity <scenario.yaml>",
	Short: "Swing each parameter across its range and rank the impact",
	Long: `Swings every unlocked parameter in the scenario's parameters list from its
min to its max with all others held at baseline, and prints the tornado
rows largest range first. With --curve, prints the reconciled value at
every step of one parameter instead.`,
	Args: cobra.ExactArgs(1),
	RunE: runSensitivity,
}

var monteCarloCmd = &cobra.Command{
	Use:   "montecarlo <scenario.yaml>",
	Short: "Sample the scenario's distributions and summarize the value distribution",
	Args:  cobra.ExactArgs(1),
	RunE:  runMonteCarlo,
}

var leasebackCmd = &cobra.Command{
	Use:   "leaseback <scenario.yaml>",
	Short: "Size a sale-leaseback and classify its rent coverage",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, sc, err := loadScenario(args[0], "main.leaseback")
		if err != nil {
			return err
		}
		result, err := leaseback.Analyze(f.LeasebackInput(), sc.Settings.SaleLeaseback)
		if err != nil {
			return err
		}
		return output.Write(cmd.OutOrStdout(), outputFormat, result)
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate [scenario.yaml]",
	Short: "Validate the settings and, optionally, a scenario's facility data",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runValidate,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the valuation JSON API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := server.NewConfig(*conf, version)
		if err != nil {
			return err
		}
		if addr, _ := cmd.Flags().GetString("address"); addr != "" {
			cfg.Address = addr
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return server.ListenAndServe(ctx, cfg, server.NewHandler(logger, cfg, baseSettings), logger)
	},
}

func init() {
	sensitivityCmd.Flags().String("curve", "", "print the curve of one parameter id instead of the tornado")

	f := monteCarloCmd.Flags()
	f.Int("iterations", 0, "number of iterations (100-10000, overrides scenario and config)")
	f.Uint64("seed", 0, "random seed; 0 picks one from the clock")
	f.Int("buckets", 0, "number of histogram buckets")
	f.Int("workers", 0, "number of parallel workers (default GOMAXPROCS)")

	serveCmd.Flags().String("address", "", "listen address override, e.g. :8080")

	rootCmd.AddCommand(valueCmd, sensitivityCmd, monteCarloCmd, leasebackCmd, validateCmd, serveCmd)
}

func runSensitivity(cmd *cobra.Command, args []string) error {
	f, sc, err := loadScenario(args[0], "main.sensitivity")
	if err != nil {
		return err
	}
	if len(f.Parameters) == 0 {
		return eris.Errorf("%s has no sensitivity parameters", args[0])
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runner := sensitivity.NewRunner(logger, nil)
	if id, _ := cmd.Flags().GetString("curve"); id != "" {
		points, err := runner.Curve(ctx, sc, f.Parameters, id)
		if err != nil {
			return err
		}
		return output.Write(cmd.OutOrStdout(), outputFormat, points)
	}

	report, err := runner.Run(ctx, sc, f.Parameters, sensitivity.Options{
		Locked: f.Locked,
		Progress: func(pct int) {
			logger.Debug("sensitivity progress", zap.String("op", "main.sensitivity"), zap.Int("percent", pct))
		},
	})
	if err != nil {
		return err
	}
	if report.Cancelled {
		logger.Warn("sensitivity run interrupted; reporting finished parameters",
			zap.String("op", "main.sensitivity"),
			zap.Int("parameters", len(report.Results)),
		)
	}
	return output.Write(cmd.OutOrStdout(), outputFormat, report)
}

func runMonteCarlo(cmd *cobra.Command, args []string) error {
	f, sc, err := loadScenario(args[0], "main.montecarlo")
	if err != nil {
		return err
	}
	if len(f.Distributions) == 0 {
		return eris.Errorf("%s has no distributions", args[0])
	}

	opts := monteCarloOptions(cmd, f)
	if err := validation.ValidateIterations(opts.Iterations); err != nil {
		return err
	}
	opts.Progress = func(pct int) {
		logger.Debug("monte carlo progress", zap.String("op", "main.montecarlo"), zap.Int("percent", pct))
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result, err := montecarlo.NewSimulator(logger, nil).Run(ctx, sc, f.Distributions, opts)
	if err != nil {
		return err
	}
	if result.Cancelled {
		logger.Warn("monte carlo run interrupted; reporting completed iterations",
			zap.String("op", "main.montecarlo"),
			zap.Int("iterations", result.Iterations),
		)
	}
	return output.Write(cmd.OutOrStdout(), outputFormat, result)
}

// monteCarloOptions layers flags over the scenario's options over the config.
func monteCarloOptions(cmd *cobra.Command, f scenario.File) montecarlo.Options {
	mc := conf.MonteCarlo
	opts := montecarlo.Options{
		Iterations:       mc.Iterations,
		Buckets:          mc.Buckets,
		Seed:             mc.Seed,
		Workers:          mc.Workers,
		ProgressInterval: mc.ProgressInterval,
	}.Overlay(f.MonteCarlo)

	flags := cmd.Flags()
	if flags.Changed("iterations") {
		opts.Iterations, _ = flags.GetInt("iterations")
	}
	if flags.Changed("seed") {
		opts.Seed, _ = flags.GetUint64("seed")
	}
	if flags.Changed("buckets") {
		opts.Buckets, _ = flags.GetInt("buckets")
	}
	if flags.Changed("workers") {
		opts.Workers, _ = flags.GetInt("workers")
	}
	return opts
}

func runValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	s := baseSettings

	if len(args) == 1 {
		f, err := scenario.Load(args[0])
		if err != nil {
			return err
		}
		sc, err := f.Scenario(baseSettings)
		if err != nil {
			return err
		}
		s = sc.Settings
		for _, w := range f.Warnings() {
			fmt.Fprintf(out, "warning: %s\n", w)
		}
	}

	result := settings.Validate(s)
	if !result.Valid {
		for _, p := range result.Errors {
			fmt.Fprintf(out, "error: %s\n", p)
		}
		return eris.Errorf("settings are invalid: %s", strings.Join(result.Errors, "; "))
	}
	fmt.Fprintf(out, "settings %s are valid\n", s.Version)
	return nil
}
