package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/blackwell-systems/macsweep/internal/analyzer"
	"github.com/blackwell-systems/macsweep/internal/store"
	"github.com/blackwell-systems/macsweep/internal/usage"
)

// ExportRecord is the machine-readable view of one registry row, shared
// by the JSON and CSV exporters.
type ExportRecord struct {
	Name         string   `json:"name"`
	Source       string   `json:"source"`
	Version      string   `json:"version,omitempty"`
	SizeBytes    int64    `json:"size_bytes"`
	InstallDate  string   `json:"install_date,omitempty"`
	FirstSeen    string   `json:"first_seen"`
	LastSeen     string   `json:"last_seen"`
	LastUsed     string   `json:"last_used,omitempty"`
	UsageSignal  string   `json:"usage_signal,omitempty"`
	EventCount   int      `json:"event_count"`
	Class        string   `json:"class"`
	IsDependency bool     `json:"is_dependency"`
	Dependencies []string `json:"dependencies,omitempty"`
}

func exportRecords(pkgs []*store.Package, classes map[int64]analyzer.Class, profiles map[int64]usage.Profile) []ExportRecord {
	out := make([]ExportRecord, 0, len(pkgs))
	for _, pkg := range pkgs {
		rec := ExportRecord{
			Name:         pkg.Name,
			Source:       string(pkg.Source),
			Version:      pkg.Version,
			SizeBytes:    pkg.SizeBytes,
			FirstSeen:    pkg.FirstSeen.Format(time.RFC3339),
			LastSeen:     pkg.LastSeen.Format(time.RFC3339),
			Class:        string(classes[pkg.ID]),
			IsDependency: pkg.IsDependency,
			Dependencies: pkg.Dependencies,
		}
		if !pkg.InstallDate.IsZero() {
			rec.InstallDate = pkg.InstallDate.Format(time.RFC3339)
		}
		if p, ok := profiles[pkg.ID]; ok {
			rec.EventCount = p.EventCount
			if p.Used() {
				rec.LastUsed = p.LastUsed.Format("2006-01-02")
				rec.UsageSignal = string(p.Signal)
			}
		}
		out = append(out, rec)
	}
	return out
}

// ExportJSON writes the registry snapshot as a JSON array.
func ExportJSON(w io.Writer, a *analyzer.Analysis) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(exportRecords(a.Packages, a.Classes, a.Profiles)); err != nil {
		return fmt.Errorf("failed to encode JSON export: %w", err)
	}
	return nil
}

// ExportCSV writes the registry snapshot as CSV with a header row.
func ExportCSV(w io.Writer, a *analyzer.Analysis) error {
	cw := csv.NewWriter(w)
	header := []string{
		"name", "source", "version", "size_bytes", "install_date",
		"first_seen", "last_seen", "last_used", "usage_signal",
		"event_count", "class", "is_dependency",
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, rec := range exportRecords(a.Packages, a.Classes, a.Profiles) {
		row := []string{
			rec.Name, rec.Source, rec.Version,
			strconv.FormatInt(rec.SizeBytes, 10),
			rec.InstallDate, rec.FirstSeen, rec.LastSeen,
			rec.LastUsed, rec.UsageSignal,
			strconv.Itoa(rec.EventCount),
			rec.Class,
			strconv.FormatBool(rec.IsDependency),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
