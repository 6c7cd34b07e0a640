package main

import (
	"github.com/alfredjeanlab/linkgraph/internal/export"
	"github.com/alfredjeanlab/linkgraph/internal/model"
	"github.com/spf13/cobra"
)

var graphCmd = &cobra.Command{
	Use:     "graph <issue-key>",
	Short:   "Traverse the relationships reachable from an issue",
	GroupID: "graph",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tree, _ := cmd.Flags().GetBool("tree")
		chainType, _ := cmd.Flags().GetString("chain")

		s, err := newStack(cfg)
		if err != nil {
			return err
		}
		defer s.Close()

		root := args[0]
		g, err := s.engine.GetRelationshipGraph(cmd.Context(), root, traversalDepth(cmd), graphOptions())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		switch {
		case jsonOutput:
			return export.Encode(out, g, export.FormatJSON, true)
		case tree:
			printChainTree(out, g, root, chainType)
		default:
			printGraph(out, g)
		}
		return nil
	},
}

func init() {
	graphCmd.Flags().Bool("tree", false, "render the chains leaving the root as a tree")
	graphCmd.Flags().String("chain", model.TypeBlocks, "relationship type followed by --tree")
}
