package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var pingCmd = &cobra.Command{
	Use:     "ping",
	Short:   "Check that the tracker is reachable",
	GroupID: "system",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newStack(cfg)
		if err != nil {
			return err
		}
		defer s.Close()

		version, err := s.tracker.ServerInfo(cmd.Context())
		if err != nil {
			return fmt.Errorf("checking tracker: %w", err)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), map[string]string{"tracker": cfg.TrackerURL, "version": version})
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Tracker: %s (version %s)\n", cfg.TrackerURL, version)
		return nil
	},
}
