package ui

import "fmt"

// ANSI256 color codes.
const (
	colorAccent = 74  // blue, section headers
	colorKey    = 117 // light blue, issue keys
	colorType   = 245 // gray, relationship types
	colorCmd    = 250 // light gray
	colorWarn   = 209 // orange, cycles and missing issues
)

var noColor bool

func paint(code int, s string) string {
	if noColor {
		return s
	}
	return fmt.Sprintf("\x1b[38;5;%dm%s\x1b[0m", code, s)
}

// RenderAccent returns s in the accent color.
func RenderAccent(s string) string { return paint(colorAccent, s) }

// RenderKey returns an issue key styled for tree and list output.
func RenderKey(s string) string { return paint(colorKey, s) }

// RenderType returns a relationship type name in the muted color.
func RenderType(s string) string { return paint(colorType, s) }

// RenderMuted is an alias of RenderType for non-type secondary text.
func RenderMuted(s string) string { return paint(colorType, s) }

// RenderCommand returns s styled as a command name.
func RenderCommand(s string) string { return paint(colorCmd, s) }

// RenderWarn highlights cycles, unfetched issues and other oddities.
func RenderWarn(s string) string { return paint(colorWarn, s) }

// SetColor turns styling on or off globally.
func SetColor(enabled bool) {
	noColor = !enabled
}
