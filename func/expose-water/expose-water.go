package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"demclean/internal/config"
	"demclean/internal/logging"
	"demclean/internal/pipeline"
)

// app carries the state shared by every subcommand
type app struct {
	configPath string
	verbose    bool
	logLevel   string
	logFormat  string

	pattern       string
	edgeLength    float64
	degenerateTol float64
	weldTol       float64
	converge      bool
	workers       int

	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "expose-water",
		Short: fmt.Sprintf("Expose Water v%s - remove water surfaces from DEM terrain tiles", pipeline.Version),
		Long: `Expose Water strips the flat water-surface polygons out of PLATEAU DEM
terrain meshes and repairs the topology left behind.

Every object whose name matches the target pattern (default ^\d+_dem_\d+$)
goes through two stages:
  1. edge filter: edges at least --edge-length long are removed together
     with the faces they bound
  2. topology repair: degenerate edges are dissolved, loose edges and
     vertices deleted and coincident vertices welded

Settings come from the YAML config file, then DEMCLEAN_* environment
variables, then flags.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&a.configPath, "config", "c", "demclean.yaml", "Config file")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")
	pf.StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.StringVar(&a.logFormat, "log-format", "", "Log format: text, json")
	pf.StringVar(&a.pattern, "pattern", "", "Regular expression selecting the objects to process")
	pf.Float64Var(&a.edgeLength, "edge-length", config.DefaultEdgeLength, "Remove edges at least this long")
	pf.Float64Var(&a.degenerateTol, "degenerate-tol", 0, "Dissolve edges shorter than this")
	pf.Float64Var(&a.weldTol, "weld-tol", 0, "Weld vertices closer than or equal to this")
	pf.BoolVar(&a.converge, "converge", false, "Repeat repair passes until nothing changes")
	pf.IntVar(&a.workers, "workers", 0, "Objects processed concurrently (0 = one per CPU)")

	root.AddCommand(
		a.processCmd("run", "Filter long edges and repair topology", pipeline.StageFilter, pipeline.StageRepair),
		a.processCmd("filter", "Only remove long edges", pipeline.StageFilter),
		a.processCmd("repair", "Only repair topology", pipeline.StageRepair),
		a.inspectCmd(),
		a.gridCmd(),
		a.watchCmd(),
		a.configCmd(),
		a.versionCmd(),
	)
	return root
}

// setup loads the configuration, applies flag overrides and builds the
// logger
func (a *app) setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("pattern") {
		cfg.TargetPattern = a.pattern
	}
	if flags.Changed("edge-length") {
		cfg.EdgeLength = a.edgeLength
	}
	if flags.Changed("degenerate-tol") {
		cfg.DegenerateTol = a.degenerateTol
	}
	if flags.Changed("weld-tol") {
		cfg.WeldTol = a.weldTol
	}
	if flags.Changed("converge") {
		cfg.Converge = a.converge
	}
	if flags.Changed("workers") {
		cfg.Workers = a.workers
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	if a.verbose {
		cfg.Logging.Level = "debug"
	}
	if a.logFormat != "" {
		cfg.Logging.Format = a.logFormat
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = logger
	logger.Debug("Configuration loaded",
		zap.String("config", a.configPath),
		zap.String("pattern", cfg.TargetPattern),
		zap.Float64("edge_length", cfg.EdgeLength),
		zap.Float64("degenerate_tol", cfg.DegenerateTol),
		zap.Float64("weld_tol", cfg.WeldTol),
		zap.Bool("converge", cfg.Converge),
		zap.Int("workers", cfg.GetWorkers()))
	return nil
}

func (a *app) runner() *pipeline.Runner {
	return pipeline.NewRunner(a.cfg, a.logger)
}

func (a *app) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "Expose Water v%s\n", pipeline.Version)
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
