package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	eclipse "github.com/RendaLiu/Solar-Eclipse"
	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

// This command reads the configuration, integrates the Sun, Earth and Moon (plus any other bodies)
// and reports the eclipses found, compared to a reference catalog.

const dateFormatFilename = "2006-01-02-15.04.05"

var v = eclipse.NewViper()

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var cfgFile string
	root := &cobra.Command{
		Use:          "eclipsim",
		Short:        "Predict solar and lunar eclipses by integrating the Sun, Earth and Moon",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cfgFile == "" {
				return nil
			}
			return eclipse.ReadConfigFile(v, cfgFile)
		},
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "configuration file (TOML, YAML or JSON)")
	root.PersistentFlags().String("log-level", "info", "debug, info, warn or error")
	root.PersistentFlags().String("epoch", "", "start of the simulation, as a date or a Julian date")
	root.PersistentFlags().Float64("years", 0, "simulated span in years")
	root.PersistentFlags().Duration("step", 0, "coarse integration step")
	root.PersistentFlags().String("output", "", "output directory")
	bindFlags(root, map[string]string{
		"log-level": "log.level",
		"epoch":     "simulation.epoch",
		"years":     "simulation.years",
		"step":      "simulation.step",
		"output":    "output.dir",
	})
	root.AddCommand(runCmd(), referenceCmd(), stabilityCmd())
	return root
}

// bindFlags binds the flags to their configuration keys, so that flags set on the command line
// override the configuration file and the environment.
func bindFlags(cmd *cobra.Command, keys map[string]string) {
	for flag, key := range keys {
		if err := v.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
			panic(err)
		}
	}
}

// setup loads the configuration and the logger of a command.
func setup(w io.Writer) (eclipse.Config, kitlog.Logger, error) {
	cfg, err := eclipse.LoadConfig(v)
	if err != nil {
		return cfg, kitlog.NewLogfmtLogger(w), err
	}
	logger, err := eclipse.NewLogger(w, cfg.LogLevel)
	if err != nil {
		return cfg, kitlog.NewLogfmtLogger(w), err
	}
	logConfig(logger, cfg)
	return cfg, logger, nil
}

func logConfig(logger kitlog.Logger, cfg eclipse.Config) {
	level.Debug(logger).Log("subsys", "conf", "epoch", cfg.Epoch, "step", cfg.Step, "years", cfg.Years,
		"fine_steps", cfg.FineSteps, "primaries", fmt.Sprint(cfg.Primaries), "auxiliary", fmt.Sprint(cfg.Auxiliary),
		"lunar_side", cfg.Lunar.Side, "penumbral", cfg.Lunar.Penumbral)
}

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Integrate the configured span and report the eclipses",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(cmd.ErrOrStderr())
			if err != nil {
				level.Error(logger).Log("subsys", "conf", "err", err)
				return err
			}
			return run(cmd.Context(), cfg, cmd.OutOrStdout(), logger)
		},
	}
	cmd.Flags().String("catalog", "", "reference catalog, defaults to the Meeus catalog")
	cmd.Flags().Bool("trajectory", false, "export the trajectory as CSV")
	cmd.Flags().Bool("penumbral", false, "report penumbral lunar eclipses")
	for flag, key := range map[string]string{"catalog": "evaluation.catalog", "trajectory": "output.trajectory", "penumbral": "lunar.penumbral"} {
		if err := v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			panic(err)
		}
	}
	return cmd
}

func run(ctx context.Context, cfg eclipse.Config, out io.Writer, logger kitlog.Logger) (err error) {
	shutdown, err := initTracing(ctx, cfg.Tracing, out, logger)
	if err != nil {
		return err
	}
	defer shutdownTracing(shutdown, logger)

	metrics, err := eclipse.NewMetrics(prometheus.NewRegistry())
	if err != nil {
		return err
	}
	if cfg.MetricsFile != "" {
		defer func() {
			if merr := metrics.WriteToTextfile(cfg.MetricsFile); merr != nil {
				level.Error(logger).Log("subsys", "metrics", "file", cfg.MetricsFile, "err", merr)
			}
		}()
	}

	consts := eclipse.DefaultConstants()
	start := time.Now()
	p, err := eclipse.Predict(ctx, cfg, consts, logger, metrics)
	if err != nil {
		level.Error(logger).Log("subsys", "run", "err", err)
		return err
	}
	level.Info(logger).Log("subsys", "run", "duration", time.Since(start))

	exp := eclipse.ExportConfig{OutputDir: cfg.OutputDir, Filename: cfg.Epoch.Format(dateFormatFilename), Units: consts.Units}
	path, err := exp.WriteFile("eclipses", "log", func(w io.Writer) error {
		return eclipse.WriteReport(w, p.Epoch, p.Solar, p.Lunar)
	})
	if err != nil {
		return err
	}
	level.Info(logger).Log("subsys", "export", "report", path)
	path, err = exp.WriteFile("eclipses", "csv", func(w io.Writer) error {
		return eclipse.WriteEventsCSV(w, append(append([]eclipse.Occurrence(nil), p.Solar...), p.Lunar...))
	})
	if err != nil {
		return err
	}
	level.Info(logger).Log("subsys", "export", "events", path)

	ref, err := reference(cfg, consts)
	if err != nil {
		return err
	}
	solar, lunar := p.Evaluate(ref, cfg.Window)
	if err := eclipse.WriteComparison(out, "Solar eclipses", solar); err != nil {
		return err
	}
	if err := eclipse.WriteComparison(out, "Lunar eclipses", lunar); err != nil {
		return err
	}
	level.Info(logger).Log("subsys", "evaluate", "accuracy", solar.Merge(lunar).Accuracy())
	return nil
}

// reference returns the reference catalog over the simulated span.
func reference(cfg eclipse.Config, consts eclipse.Constants) (*eclipse.Catalog, error) {
	end := cfg.End(consts)
	if cfg.Catalog == "" {
		return eclipse.MeeusCatalog(cfg.Epoch, end), nil
	}
	c, err := eclipse.LoadCatalogFile(cfg.Catalog)
	if err != nil {
		return nil, err
	}
	return c.Between(cfg.Epoch, end), nil
}

func referenceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reference [file]",
		Short: "Write the Meeus eclipse catalog of the configured span as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(cmd.ErrOrStderr())
			if err != nil {
				level.Error(logger).Log("subsys", "conf", "err", err)
				return err
			}
			c := eclipse.MeeusCatalog(cfg.Epoch, cfg.End(eclipse.DefaultConstants()))
			level.Info(logger).Log("subsys", "reference", "solar", len(c.Solar), "lunar", len(c.Lunar))
			if len(args) == 0 {
				return c.WriteJSON(cmd.OutOrStdout())
			}
			f, err := os.Create(args[0])
			if err != nil {
				return err
			}
			if err := c.WriteJSON(f); err != nil {
				f.Close()
				return err
			}
			return f.Close()
		},
	}
}

func stabilityCmd() *cobra.Command {
	var samples, stride int
	cmd := &cobra.Command{
		Use:   "stability",
		Short: "Estimate the RK4 stability of the configured step along the trajectory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(cmd.ErrOrStderr())
			if err != nil {
				level.Error(logger).Log("subsys", "conf", "err", err)
				return err
			}
			consts := eclipse.DefaultConstants()
			sys, err := eclipse.NewEphemeris(cfg.Epoch, consts, cfg.VSOP87Dir).LoadSystem(cfg.Primaries, cfg.Auxiliary)
			if err != nil {
				return err
			}
			step := cfg.StepUnits(consts)
			sim := eclipse.NewSimulation(sys, consts, cfg.Epoch, step, consts.StepsFor(cfg.Years, step), logger, nil)
			scan, err := eclipse.ScanStability(cmd.Context(), sim, samples, stride)
			for _, st := range scan {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t|λ|max=%.6e\th|λ|=%.6e\tstable=%t\n", st.DT.Format(time.RFC3339), st.MaxEigen, st.Ratio, st.Stable())
			}
			return err
		},
	}
	cmd.Flags().IntVar(&samples, "samples", 12, "number of estimates")
	cmd.Flags().IntVar(&stride, "stride", 730, "integration steps between estimates")
	return cmd
}
