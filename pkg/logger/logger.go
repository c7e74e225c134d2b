// Package logger provides namespaced debug loggers for the compiler pipeline.
//
// Loggers are created once per file as package-level variables:
//
//	var loaderLog = logger.New("corpus:loader")
//
// and are silent unless the DEBUG environment variable selects their namespace.
package logger

import (
	"fmt"
	"hash/fnv"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/term"
)

// Logger represents a debug logger for a specific namespace.
type Logger struct {
	namespace string
	enabled   bool
	color     string

	mu      sync.Mutex
	lastLog time.Time
}

var (
	// DEBUG environment variable value, read once at initialization.
	debugEnv = os.Getenv("DEBUG")

	// DEBUG_COLORS=0 disables colored namespaces.
	debugColors = os.Getenv("DEBUG_COLORS") != "0"

	isTTY = term.IsTerminal(int(os.Stderr.Fd()))

	outputMu sync.Mutex
	output   io.Writer = os.Stderr

	// ANSI 256-color codes readable on light and dark backgrounds.
	colorPalette = []string{
		"\033[38;5;33m",
		"\033[38;5;35m",
		"\033[38;5;166m",
		"\033[38;5;125m",
		"\033[38;5;37m",
		"\033[38;5;161m",
		"\033[38;5;136m",
		"\033[38;5;124m",
		"\033[38;5;28m",
		"\033[38;5;63m",
	}

	colorReset = "\033[0m"
)

// New creates a new Logger for the given namespace.
// The enabled state is computed at construction time from the DEBUG environment variable,
// which follows https://www.npmjs.com/package/debug patterns:
//
//	DEBUG=*                  - enables all loggers
//	DEBUG=resolver:*         - enables every logger in the resolver namespace
//	DEBUG=corpus:loader,cli:* - enables specific namespaces
//	DEBUG=*,-emitter:golang  - enables everything except one logger
func New(namespace string) *Logger {
	return &Logger{
		namespace: namespace,
		enabled:   computeEnabled(debugEnv, namespace),
		color:     selectColor(namespace),
		lastLog:   time.Now(),
	}
}

func selectColor(namespace string) string {
	if !debugColors || !isTTY {
		return ""
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(namespace))
	return colorPalette[h.Sum32()%uint32(len(colorPalette))]
}

// Enabled returns whether this logger is enabled
func (l *Logger) Enabled() bool {
	return l.enabled
}

// Printf prints a formatted message if the logger is enabled.
// A newline is always added, followed by the time elapsed since the previous message.
func (l *Logger) Printf(format string, args ...any) {
	if !l.enabled {
		return
	}
	l.write(fmt.Sprintf(format, args...))
}

// Print prints a message if the logger is enabled.
func (l *Logger) Print(args ...any) {
	if !l.enabled {
		return
	}
	l.write(fmt.Sprint(args...))
}

func (l *Logger) write(message string) {
	l.mu.Lock()
	now := time.Now()
	diff := now.Sub(l.lastLog)
	l.lastLog = now
	l.mu.Unlock()

	outputMu.Lock()
	defer outputMu.Unlock()
	if l.color != "" {
		fmt.Fprintf(output, "%s%s%s %s +%s\n", l.color, l.namespace, colorReset, message, formatDuration(diff))
		return
	}
	fmt.Fprintf(output, "%s %s +%s\n", l.namespace, message, formatDuration(diff))
}

// formatDuration renders elapsed time the way the npm debug package does: 0ms, 12ms, 1.2s, 3m.
func formatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
}

// computeEnabled reports whether namespace matches the comma separated DEBUG patterns.
// Exclusions (leading '-') take precedence over inclusions.
func computeEnabled(env, namespace string) bool {
	enabled := false
	for _, pattern := range strings.Split(env, ",") {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}
		if exclude, ok := strings.CutPrefix(pattern, "-"); ok {
			if matchPattern(namespace, exclude) {
				return false
			}
			continue
		}
		if matchPattern(namespace, pattern) {
			enabled = true
		}
	}
	return enabled
}

// matchPattern checks if a namespace matches a pattern with at most one '*' wildcard.
func matchPattern(namespace, pattern string) bool {
	if pattern == "*" || pattern == namespace {
		return true
	}
	prefix, suffix, found := strings.Cut(pattern, "*")
	if !found {
		return false
	}
	return len(namespace) >= len(prefix)+len(suffix) &&
		strings.HasPrefix(namespace, prefix) &&
		strings.HasSuffix(namespace, suffix)
}
