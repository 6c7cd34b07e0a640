package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alfredjeanlab/linkgraph/internal/config"
	"github.com/alfredjeanlab/linkgraph/internal/model"
	"github.com/alfredjeanlab/linkgraph/internal/ui"
	"github.com/spf13/cobra"
)

var (
	cfg        *config.Config
	logger     *slog.Logger
	jsonOutput bool

	trackerURL      string
	depthFlag       int
	includeTypes    []string
	excludeTypes    []string
	noCustom        bool
	noBidirectional bool
	inferConverse   bool
)

var rootCmd = &cobra.Command{
	Use:           "lg <command>",
	Short:         "Explore issue relationship graphs",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return err
		}
		if trackerURL != "" {
			c.TrackerURL = trackerURL
		}
		level, err := c.SlogLevel()
		if err != nil {
			return err
		}
		cfg = c
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		ui.SetColor(ui.ShouldUseColor(cmd.OutOrStdout()))
		return nil
	},
}

// graphOptions builds traversal options from the persistent filter flags.
func graphOptions() *model.GraphOptions {
	opts := model.DefaultGraphOptions()
	if len(includeTypes) > 0 {
		opts.IncludeTypes = includeTypes
	}
	if len(excludeTypes) > 0 {
		opts.ExcludeTypes = excludeTypes
	}
	opts.IncludeCustom = !noCustom
	opts.Bidirectional = !noBidirectional
	opts.InferConverse = inferConverse
	return &opts
}

// traversalDepth returns --depth when given, else the configured default.
func traversalDepth(cmd *cobra.Command) int {
	if cmd.Flags().Changed("depth") {
		return depthFlag
	}
	return cfg.Depth
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.BoolVar(&jsonOutput, "json", false, "output as JSON")
	pf.StringVar(&trackerURL, "tracker", "", "tracker base URL (overrides LG_TRACKER_URL)")
	pf.IntVar(&depthFlag, "depth", 2, "maximum traversal depth (default from LG_DEPTH)")
	pf.StringSliceVar(&includeTypes, "include", nil, "only record these relationship types")
	pf.StringSliceVar(&excludeTypes, "exclude", nil, "never record these relationship types")
	pf.BoolVar(&noCustom, "no-custom", false, "drop custom (non built-in) relationship types")
	pf.BoolVar(&noBidirectional, "no-bidirectional", false, "ignore links reported in the inward direction")
	pf.BoolVar(&inferConverse, "converse", false, "add the converse of every edge to its target")

	rootCmd.AddGroup(
		&cobra.Group{ID: "graph", Title: "Graphs:"},
		&cobra.Group{ID: "system", Title: "System:"},
	)

	cobra.EnableCommandSorting = false
	rootCmd.SetHelpFunc(colorizedHelpFunc())

	// Graphs
	rootCmd.AddCommand(graphCmd)
	rootCmd.AddCommand(bulkCmd)
	rootCmd.AddCommand(pathCmd)
	rootCmd.AddCommand(cyclesCmd)
	rootCmd.AddCommand(exportCmd)

	// System
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(pingCmd)
	rootCmd.AddCommand(cacheCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
