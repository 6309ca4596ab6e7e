// Package usage collects and aggregates the signals that suggest a
// package is still in use: shell history invocations, Spotlight metadata
// on app bundles, filesystem access times, and explicit user marks.
package usage

import "time"

// Kind identifies the signal that produced a usage event. The string
// values are stored in the registry's usage_events table.
type Kind string

const (
	ShellHistory Kind = "shell_history"
	Spotlight    Kind = "spotlight"
	FileAccess   Kind = "atime"
	Manual       Kind = "manual"
)

// Confidence ranks how trustworthy a signal is. It never affects which
// event decides last-use (the newest date always wins); it only breaks
// same-day ties and labels output.
func (k Kind) Confidence() int {
	switch k {
	case Spotlight:
		return 3
	case ShellHistory:
		return 2
	case FileAccess:
		return 1
	case Manual:
		return 0
	}
	return -1
}

// Display returns the human-readable label for the signal.
func (k Kind) Display() string {
	switch k {
	case ShellHistory:
		return "shell history"
	case Spotlight:
		return "Spotlight"
	case FileAccess:
		return "file access"
	case Manual:
		return "marked used"
	}
	return string(k)
}

// Event is one observed usage signal, at day granularity.
type Event struct {
	Kind   Kind
	Date   time.Time
	Detail string
}
