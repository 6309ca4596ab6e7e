package store

import (
	"time"

	"github.com/blackwell-systems/macsweep/internal/source"
)

// Package is one registry row. Identity is the (Name, Source) pair;
// FirstSeen is set on insert and never changes across rescans.
type Package struct {
	ID           int64
	Name         string
	Source       source.Source
	Version      string
	InstallDate  time.Time // zero when the source does not report one
	BinaryPath   string
	SizeBytes    int64
	IsDependency bool
	FirstSeen    time.Time
	LastSeen     time.Time
	Dependencies []string
}

// UsageEvent records one observed usage signal for a package. Events are
// unique per (package, event type, calendar day); re-observing the same
// signal on the same day is a no-op.
type UsageEvent struct {
	PackageID int64
	EventType string // "shell_history", "spotlight", "atime", "manual"
	Date      time.Time
	Detail    string
}

// UpsertOutcome classifies the effect of reconciling one scan record.
type UpsertOutcome int

const (
	Inserted UpsertOutcome = iota
	Updated
	Unchanged
)

// ScanRun summarizes one reconciliation pass for the history command.
type ScanRun struct {
	ID        int64
	StartedAt time.Time
	Duration  time.Duration
	Scope     string // "full" or "partial"
	Sources   string // comma-separated source tags
	Found     int
	Inserted  int
	Updated   int
	Pruned    int
}

// CleanupRecord summarizes one cleanup run for the history command.
type CleanupRecord struct {
	ID         int64
	ManifestID string
	CreatedAt  time.Time
	State      string
	Removed    int
	Failed     int
	Skipped    int
	BytesFreed int64
}

// dayFormat is the granularity of usage event uniqueness.
const dayFormat = "2006-01-02"
