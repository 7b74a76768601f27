// Package output provides terminal output for logs2eca.
//
// This package includes:
//   - Printer, which writes the tagged operator notices of a watch session
//   - Table rendering for the command run history
//
// Tables use box-drawing separators and ANSI color codes when stdout is a
// terminal. Printer is safe for concurrent use.
package output

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"github.com/blackwell-systems/logs2eca/internal/store"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
	colorGray   = "\033[90m"
)

// IsColorEnabled returns true if ANSI color codes should be emitted.
// It checks that os.Stdout is a TTY and that the NO_COLOR env var is not set.
func IsColorEnabled() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(os.Stdout.Fd())
}

// colorize wraps text in the given ANSI color code if color is enabled.
func colorize(color, text string) string {
	if !IsColorEnabled() {
		return text
	}
	return color + text + colorReset
}

// RenderRunTable renders recorded command runs in the order given.
func RenderRunTable(runs []*store.Run) string {
	if len(runs) == 0 {
		return "No command runs recorded.\n"
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%-16s %-6s %-9s %-24s %s\n",
		"Started", "Exit", "Duration", "Command", "Matched Line"))
	sb.WriteString(strings.Repeat("─", 90))
	sb.WriteString("\n")

	failed := 0
	for _, run := range runs {
		// Pad before colouring so escape codes don't break alignment.
		exit := fmt.Sprintf("%-6d", run.ExitCode)
		if run.ExitCode != 0 {
			exit = colorize(colorRed, exit)
			failed++
		} else {
			exit = colorize(colorGreen, exit)
		}

		sb.WriteString(fmt.Sprintf("%-16s %s %-9s %-24s %s\n",
			truncate(humanize.Time(run.StartedAt), 16),
			exit,
			formatDuration(run.Duration),
			truncate(run.Command, 24),
			truncate(run.MatchedLine, 60)))
	}

	sb.WriteString(strings.Repeat("─", 90))
	sb.WriteString("\n")
	summary := fmt.Sprintf("%s runs", humanize.Comma(int64(len(runs))))
	if len(runs) == 1 {
		summary = "1 run"
	}
	if failed > 0 {
		summary += colorize(colorYellow, fmt.Sprintf(", %s with a non-zero exit", humanize.Comma(int64(failed))))
	}
	sb.WriteString(colorize(colorGray, summary))
	sb.WriteString("\n")

	return sb.String()
}

// formatDuration renders a run duration at a precision useful for commands.
func formatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		return d.Round(time.Second).String()
	}
}

// truncate shortens s to maxLen runes, ending in "..." when cut.
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
