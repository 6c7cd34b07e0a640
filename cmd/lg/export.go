package main

import (
	"context"
	"fmt"
	"time"

	"github.com/alfredjeanlab/linkgraph/internal/config"
	"github.com/alfredjeanlab/linkgraph/internal/events"
	"github.com/alfredjeanlab/linkgraph/internal/export"
	"github.com/alfredjeanlab/linkgraph/internal/model"
	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export [issue-key]...",
	Short: "Write a relationship graph to stdout, a file, S3 or git",
	Long: `Builds a graph and writes it to every configured destination.

One key is traversed to --depth; several keys are extracted in bulk. With no
keys the LG_EXPORT_SEEDS setting is used. Destinations come from --out and the
LG_EXPORT_* settings; with none configured the document goes to stdout.`,
	GroupID: "graph",
	RunE: func(cmd *cobra.Command, args []string) error {
		formatName, _ := cmd.Flags().GetString("format")
		outFile, _ := cmd.Flags().GetString("out")
		interval, _ := cmd.Flags().GetDuration("interval")
		if !cmd.Flags().Changed("interval") {
			interval = time.Duration(cfg.ExportInterval)
		}

		format, err := export.ParseFormat(formatName)
		if err != nil {
			return err
		}
		seeds := args
		if len(seeds) == 0 {
			seeds = cfg.ExportSeeds
		}
		if len(seeds) == 0 {
			return fmt.Errorf("no issue keys given and LG_EXPORT_SEEDS is empty")
		}

		s, err := newStack(cfg)
		if err != nil {
			return err
		}
		defer s.Close()
		build := buildFunc(s, seeds, traversalDepth(cmd), graphOptions())

		dests, err := exportDestinations(cmd.Context(), cfg, format, outFile)
		if err != nil {
			return err
		}
		if len(dests) == 0 {
			if interval > 0 {
				return fmt.Errorf("scheduled export needs a destination")
			}
			g, err := build(cmd.Context())
			if err != nil {
				return err
			}
			return export.Encode(cmd.OutOrStdout(), g, format, true)
		}

		publisher, err := newPublisher(cfg)
		if err != nil {
			return err
		}
		defer publisher.Close()

		scheduler := export.NewScheduler(build, format, dests, interval, logger).WithPublisher(publisher)
		if interval <= 0 {
			return scheduler.RunOnce(cmd.Context())
		}

		scheduler.Start()
		logger.Info("export scheduler started", "interval", interval, "destinations", len(dests))
		<-cmd.Context().Done()
		scheduler.Stop()
		logger.Info("export scheduler stopped")
		return nil
	},
}

// buildFunc binds a stack and seeds into an export.BuildFunc.
func buildFunc(s *stack, seeds []string, depth int, opts *model.GraphOptions) export.BuildFunc {
	return func(ctx context.Context) (*model.Graph, error) {
		return s.build(ctx, seeds, depth, opts)
	}
}

// exportDestinations returns the destinations enabled in c. outFile, when
// set, replaces c.ExportFile.
func exportDestinations(ctx context.Context, c *config.Config, f export.Format, outFile string) ([]export.Destination, error) {
	var dests []export.Destination

	file := c.ExportFile
	if outFile != "" {
		file = outFile
	}
	if file != "" {
		dests = append(dests, export.NewFileDestination(file))
	}

	if c.ExportS3Bucket != "" {
		d, err := export.NewS3Destination(ctx, c.ExportS3Bucket, c.ExportS3Key, c.ExportS3Region, c.ExportS3Endpoint, f)
		if err != nil {
			return nil, fmt.Errorf("configuring S3 export: %w", err)
		}
		dests = append(dests, d)
	}

	if c.ExportGitRepo != "" {
		dests = append(dests, export.NewGitDestination(c.ExportGitRepo, c.ExportGitFile, c.ExportGitBranch))
	}
	return dests, nil
}

// newPublisher connects to NATS when configured, else returns a no-op.
func newPublisher(c *config.Config) (events.Publisher, error) {
	if c.NATSURL == "" {
		return &events.NoopPublisher{}, nil
	}
	p, err := events.NewNATSPublisher(c.NATSURL)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func init() {
	exportCmd.Flags().String("format", "json", "document format (json or jsonl)")
	exportCmd.Flags().String("out", "", "write to this file (overrides LG_EXPORT_FILE)")
	exportCmd.Flags().Duration("interval", 0, "re-export on this interval until interrupted (default from LG_EXPORT_INTERVAL)")
}
