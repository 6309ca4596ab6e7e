package usage

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"
)

// Harvester gathers usage events for scanned packages from every signal
// at once. Shell history is read once at construction and matched per
// binary; Spotlight and atime lookups run per package.
type Harvester struct {
	history   []HistoryEntry
	spotlight func(ctx context.Context, path string) (time.Time, bool, error)
	atime     func(path string) (time.Time, error)
	log       *slog.Logger
}

// NewHarvester loads shell history from home. Signal lookup failures are
// logged at debug and skipped; usage evidence is best-effort.
func NewHarvester(home string, log *slog.Logger) *Harvester {
	if log == nil {
		log = slog.Default()
	}
	return &Harvester{
		history:   CollectShellHistory(home),
		spotlight: SpotlightLastUsed,
		atime:     FileAccessTime,
		log:       log,
	}
}

// Collect returns the usage events observable for one package, each
// truncated to day granularity.
func (h *Harvester) Collect(ctx context.Context, name, binaryPath string) []Event {
	var events []Event

	binary := name
	if binaryPath != "" && !strings.HasSuffix(binaryPath, ".app") {
		binary = filepath.Base(binaryPath)
	}
	days := make(map[string]bool)
	for _, entry := range h.history {
		if !InvokesBinary(entry.Command, binary) {
			continue
		}
		day := entry.Timestamp.UTC().Format("2006-01-02")
		if days[day] {
			continue
		}
		days[day] = true
		events = append(events, Event{
			Kind:   ShellHistory,
			Date:   truncateDay(entry.Timestamp),
			Detail: binary,
		})
	}

	switch {
	case strings.HasSuffix(binaryPath, ".app"):
		t, ok, err := h.spotlight(ctx, binaryPath)
		if err != nil {
			h.log.Debug("spotlight lookup failed", "path", binaryPath, "error", err)
		} else if ok {
			events = append(events, Event{Kind: Spotlight, Date: truncateDay(t), Detail: binaryPath})
		}
	case binaryPath != "":
		t, err := h.atime(binaryPath)
		if err != nil {
			h.log.Debug("atime lookup failed", "path", binaryPath, "error", err)
		} else {
			events = append(events, Event{Kind: FileAccess, Date: truncateDay(t), Detail: binaryPath})
		}
	}
	return events
}

func truncateDay(t time.Time) time.Time {
	return t.UTC().Truncate(24 * time.Hour)
}
