package main

import (
	"bytes"
	"fmt"
	"regexp"

	"github.com/alfredjeanlab/linkgraph/internal/ui"
	"github.com/spf13/cobra"
)

var (
	// Unindented lines ending in ":" such as "Graphs:" or "Flags:".
	reSection = regexp.MustCompile(`(?m)^([A-Z][^\n]*:)[ \t]*$`)

	// "  name   description" rows in the command listing.
	reCommandRow = regexp.MustCompile(`(?m)^(  )(\S+)(  +)`)

	// Flag value types, e.g. "--depth int".
	reFlagValue = regexp.MustCompile(`(--?\S+\s+)(string|int|float|duration|strings|bool)\b`)

	// Default value annotations, e.g. (default "json").
	reDefaultValue = regexp.MustCompile(`\(default [^)]*\)`)
)

// colorizedHelpFunc renders cobra's usage text, styled when the output is a
// terminal.
func colorizedHelpFunc() func(*cobra.Command, []string) {
	return func(cmd *cobra.Command, _ []string) {
		out := cmd.OutOrStdout()
		if !ui.ShouldUseColor(out) {
			_ = cmd.Usage()
			return
		}
		var buf bytes.Buffer
		cmd.SetOut(&buf)
		_ = cmd.Usage()
		cmd.SetOut(out)
		fmt.Fprint(out, colorizeHelp(buf.String()))
	}
}

func colorizeHelp(s string) string {
	s = reSection.ReplaceAllStringFunc(s, ui.RenderAccent)
	s = reCommandRow.ReplaceAllString(s, "${1}"+ui.RenderCommand("${2}")+"${3}")
	s = reFlagValue.ReplaceAllString(s, "${1}"+ui.RenderMuted("${2}"))
	return reDefaultValue.ReplaceAllStringFunc(s, ui.RenderMuted)
}
