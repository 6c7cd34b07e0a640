package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var pathCmd = &cobra.Command{
	Use:     "path <from> <to>",
	Short:   "Find the shortest relationship chain between two issues",
	GroupID: "graph",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		from, to := args[0], args[1]
		s, err := newStack(cfg)
		if err != nil {
			return err
		}
		defer s.Close()

		depth := traversalDepth(cmd)
		g, err := s.engine.GetRelationshipGraph(cmd.Context(), from, depth, graphOptions())
		if err != nil {
			return err
		}
		path, ok := g.GetPath(from, to)
		if !ok {
			if next := g.Neighbors(from); len(next) > 0 {
				return fmt.Errorf("no path from %s to %s within depth %d (%s links to %s)",
					from, to, depth, from, strings.Join(next, ", "))
			}
			return fmt.Errorf("no path from %s to %s within depth %d", from, to, depth)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"from":   from,
				"to":     to,
				"path":   path,
				"length": len(path) - 1,
			})
		}
		printPath(cmd.OutOrStdout(), path)
		return nil
	},
}

var cyclesCmd = &cobra.Command{
	Use:     "cycles <issue-key>",
	Short:   "List relationship cycles around an issue",
	GroupID: "graph",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		types, _ := cmd.Flags().GetStringSlice("types")
		root := args[0]

		s, err := newStack(cfg)
		if err != nil {
			return err
		}
		defer s.Close()

		g, err := s.engine.GetRelationshipGraph(cmd.Context(), root, traversalDepth(cmd), graphOptions())
		if err != nil {
			return err
		}
		cycles := g.FindCycles(types...)
		if jsonOutput {
			if cycles == nil {
				cycles = [][]string{}
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"root":      root,
				"has_cycle": g.HasCycle(root, types...),
				"cycles":    cycles,
			})
		}
		printCycles(cmd.OutOrStdout(), cycles)
		return nil
	},
}

func init() {
	cyclesCmd.Flags().StringSlice("types", []string{"blocks"}, "relationship types that form cycle edges (empty for all)")
}
