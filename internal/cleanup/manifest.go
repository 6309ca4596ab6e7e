// Package cleanup plans, applies, and reverses package removals. Every
// apply run writes a backup manifest before the first removal starts, so
// a crash mid-run always leaves enough state to undo.
package cleanup

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/blackwell-systems/macsweep/internal/source"
	"github.com/blackwell-systems/macsweep/internal/store"
)

// ErrManifestNotFound is returned when no manifest matches the requested
// identifier, or no manifests exist at all.
var ErrManifestNotFound = errors.New("cleanup manifest not found")

// State of a cleanup run.
type State string

const (
	StatePlanned               State = "planned"
	StateCompleted             State = "completed"
	StateCompletedWithFailures State = "completed_with_failures"
	StateAborted               State = "aborted"
)

// Outcome of one line item.
type Outcome string

const (
	OutcomePlanned  Outcome = "planned"
	OutcomeRemoved  Outcome = "removed"
	OutcomeFailed   Outcome = "failed"
	OutcomeSkipped  Outcome = "skipped"
	OutcomeRestored Outcome = "restored"
)

// Item is one planned removal with the full pre-removal snapshot needed
// to restore the package and its registry row.
type Item struct {
	Name         string        `json:"name"`
	Source       source.Source `json:"source"`
	Version      string        `json:"version,omitempty"`
	InstallDate  time.Time     `json:"install_date,omitempty"`
	BinaryPath   string        `json:"binary_path,omitempty"`
	SizeBytes    int64         `json:"size_bytes"`
	IsDependency bool          `json:"is_dependency"`
	Dependencies []string      `json:"dependencies,omitempty"`
	FirstSeen    time.Time     `json:"first_seen"`
	LastSeen     time.Time     `json:"last_seen"`
	Action       string        `json:"action"`
	Outcome      Outcome       `json:"outcome"`
	Error        string        `json:"error,omitempty"`
}

// Manifest is the durable record of one cleanup run.
type Manifest struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	State     State     `json:"state"`
	Items     []Item    `json:"items"`
}

// manifestID names manifests so lexical order is chronological order,
// which makes "most recent" a plain sort.
func manifestID(t time.Time) string {
	return "cleanup_" + t.UTC().Format("20060102_150405")
}

func manifestPath(dir, id string) string {
	return filepath.Join(dir, id+".json")
}

// Write persists the manifest with an fsync. Removal must not start until
// this returns successfully.
func (m *Manifest) Write(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create backup directory: %w", err)
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}

	f, err := os.Create(manifestPath(dir, m.ID))
	if err != nil {
		return fmt.Errorf("failed to create manifest file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("failed to sync manifest: %w", err)
	}
	return f.Close()
}

// LoadManifest reads one manifest by ID.
func LoadManifest(dir, id string) (*Manifest, error) {
	data, err := os.ReadFile(manifestPath(dir, id))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%s: %w", id, ErrManifestNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest %s: %w", id, err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", id, err)
	}
	return &m, nil
}

// ListManifests returns every manifest in dir, newest first.
func ListManifests(dir string) ([]*Manifest, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	var ids []string
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, "cleanup_") && strings.HasSuffix(name, ".json") {
			ids = append(ids, strings.TrimSuffix(name, ".json"))
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(ids)))

	manifests := make([]*Manifest, 0, len(ids))
	for _, id := range ids {
		m, err := LoadManifest(dir, id)
		if err != nil {
			return nil, err
		}
		manifests = append(manifests, m)
	}
	return manifests, nil
}

// MostRecentManifest returns the newest manifest in dir.
func MostRecentManifest(dir string) (*Manifest, error) {
	manifests, err := ListManifests(dir)
	if err != nil {
		return nil, err
	}
	if len(manifests) == 0 {
		return nil, fmt.Errorf("no cleanup runs recorded: %w", ErrManifestNotFound)
	}
	return manifests[0], nil
}

// itemFromPackage snapshots a registry row into a manifest line item.
func itemFromPackage(pkg *store.Package, action string) Item {
	return Item{
		Name:         pkg.Name,
		Source:       pkg.Source,
		Version:      pkg.Version,
		InstallDate:  pkg.InstallDate,
		BinaryPath:   pkg.BinaryPath,
		SizeBytes:    pkg.SizeBytes,
		IsDependency: pkg.IsDependency,
		Dependencies: pkg.Dependencies,
		FirstSeen:    pkg.FirstSeen,
		LastSeen:     pkg.LastSeen,
		Action:       action,
		Outcome:      OutcomePlanned,
	}
}

// toPackage rebuilds the registry row recorded in a line item.
func (it Item) toPackage() *store.Package {
	return &store.Package{
		Name:         it.Name,
		Source:       it.Source,
		Version:      it.Version,
		InstallDate:  it.InstallDate,
		BinaryPath:   it.BinaryPath,
		SizeBytes:    it.SizeBytes,
		IsDependency: it.IsDependency,
		Dependencies: it.Dependencies,
		FirstSeen:    it.FirstSeen,
		LastSeen:     it.LastSeen,
	}
}
