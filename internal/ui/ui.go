package ui

// ANSI codes for the per-package log prefixes written by internal/logging.
// Rendered output uses the lipgloss styles in styles.go.
const (
	Reset     = "\033[0m"
	FgCyan    = "\033[36m"
	FgGreen   = "\033[32m"
	FgMagenta = "\033[35m"
	FgYellow  = "\033[33m"
	FgRed     = "\033[31m"
)

var colorEnabled = true

// Init toggles ANSI log prefixes. The root command calls it with --no-color;
// tests call Init(true) for stable output.
func Init(noColor bool) { colorEnabled = !noColor }

// Color wraps s in the ANSI code unless colors are disabled.
func Color(s string, code string) string {
	if !colorEnabled || code == "" {
		return s
	}
	return code + s + Reset
}
