// Package console formats user-facing messages for the ocsfc command line.
//
// Debug output goes through pkg/logger; everything a user is meant to read
// (progress, warnings, compile errors, summaries) is formatted here and written
// to stderr by the caller.
package console

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

var (
	colorSuccess = lipgloss.AdaptiveColor{Light: "#1A7F37", Dark: "#3FB950"}
	colorError   = lipgloss.AdaptiveColor{Light: "#CF222E", Dark: "#F85149"}
	colorWarning = lipgloss.AdaptiveColor{Light: "#9A6700", Dark: "#D29922"}
	colorInfo    = lipgloss.AdaptiveColor{Light: "#0969DA", Dark: "#58A6FF"}
	colorMuted   = lipgloss.AdaptiveColor{Light: "#57606A", Dark: "#8B949E"}

	successStyle = lipgloss.NewStyle().Foreground(colorSuccess)
	errorStyle   = lipgloss.NewStyle().Foreground(colorError).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(colorWarning)
	infoStyle    = lipgloss.NewStyle().Foreground(colorInfo)
	verboseStyle = lipgloss.NewStyle().Foreground(colorMuted).Italic(true)
	headerStyle  = lipgloss.NewStyle().Bold(true)

	// styled is false when stderr is not a terminal so piped output stays plain.
	styled = term.IsTerminal(int(os.Stderr.Fd()))
)

func render(style lipgloss.Style, s string) string {
	if !styled {
		return s
	}
	return style.Render(s)
}

// FormatSuccessMessage formats a success message with a check mark.
func FormatSuccessMessage(message string) string {
	return render(successStyle, "✓ "+message)
}

// FormatErrorMessage formats an error message.
func FormatErrorMessage(message string) string {
	return render(errorStyle, "✗ "+message)
}

// FormatWarningMessage formats a warning message.
func FormatWarningMessage(message string) string {
	return render(warningStyle, "⚠ "+message)
}

// FormatInfoMessage formats an informational message.
func FormatInfoMessage(message string) string {
	return render(infoStyle, "ℹ "+message)
}

// FormatVerboseMessage formats a message only shown with --verbose.
func FormatVerboseMessage(message string) string {
	return render(verboseStyle, "  "+message)
}

// FormatErrorList formats a joined error (errors.Join) as one bullet per line under a header.
func FormatErrorList(header string, err error) string {
	var sb strings.Builder
	sb.WriteString(FormatErrorMessage(header))
	for _, line := range strings.Split(err.Error(), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		fmt.Fprintf(&sb, "\n  • %s", line)
	}
	return sb.String()
}

// LogVerbose writes message to stderr when verbose is set.
func LogVerbose(verbose bool, message string) {
	if verbose {
		fmt.Fprintln(os.Stderr, FormatVerboseMessage(message))
	}
}
