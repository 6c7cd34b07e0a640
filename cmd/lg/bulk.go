package main

import (
	"github.com/alfredjeanlab/linkgraph/internal/export"
	"github.com/spf13/cobra"
)

var bulkCmd = &cobra.Command{
	Use:     "bulk <issue-key>...",
	Short:   "Extract the direct relationships of many issues at once",
	GroupID: "graph",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newStack(cfg)
		if err != nil {
			return err
		}
		defer s.Close()

		g, err := s.engine.GetBulkRelationships(cmd.Context(), args, graphOptions())
		if err != nil {
			return err
		}
		if jsonOutput {
			return export.Encode(cmd.OutOrStdout(), g, export.FormatJSON, true)
		}
		printGraph(cmd.OutOrStdout(), g)
		return nil
	},
}
