package source

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// HomebrewHandler scans formulae via `brew info --json=v2 --installed`.
// It is the only handler that reports dependency edges and the
// installed-on-request flag, so it is the only source that can yield
// orphan classifications downstream.
type HomebrewHandler struct {
	prefix string
}

// NewHomebrewHandler detects the brew prefix (Apple Silicon vs Intel)
// at construction; detection failure falls back to /opt/homebrew.
func NewHomebrewHandler() *HomebrewHandler {
	h := &HomebrewHandler{prefix: "/opt/homebrew"}
	if out, err := runCommand(context.Background(), "brew", "--prefix"); err == nil {
		if p := strings.TrimSpace(string(out)); p != "" {
			h.prefix = p
		}
	}
	return h
}

func (h *HomebrewHandler) Source() Source  { return Homebrew }
func (h *HomebrewHandler) Available() bool { return commandExists("brew") }

// brewInfo mirrors the brew info --json=v2 payload, restricted to the
// fields macsweep reads.
type brewInfo struct {
	Formulae []brewFormula `json:"formulae"`
	Casks    []brewCask    `json:"casks"`
}

type brewFormula struct {
	Name     string   `json:"name"`
	Versions struct {
		Stable string `json:"stable"`
	} `json:"versions"`
	Installed    []brewInstalled `json:"installed"`
	Dependencies []string        `json:"dependencies"`
}

type brewInstalled struct {
	Version             string `json:"version"`
	Time                int64  `json:"time"`
	InstalledOnRequest  bool   `json:"installed_on_request"`
	RuntimeDependencies []struct {
		FullName string `json:"full_name"`
	} `json:"runtime_dependencies"`
}

type brewCask struct {
	Token     string `json:"token"`
	Version   string `json:"version"`
	Installed string `json:"installed"`
}

func (h *HomebrewHandler) installedInfo(ctx context.Context) (*brewInfo, error) {
	out, err := runCommand(ctx, "brew", "info", "--json=v2", "--installed")
	if err != nil {
		return nil, err
	}
	var info brewInfo
	if err := json.Unmarshal(out, &info); err != nil {
		return nil, fmt.Errorf("failed to parse brew info JSON: %w", err)
	}
	return &info, nil
}

func (h *HomebrewHandler) Scan(ctx context.Context) ([]Record, error) {
	info, err := h.installedInfo(ctx)
	if err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(info.Formulae))
	for _, f := range info.Formulae {
		rec := formulaRecord(f)
		if p := h.formulaBinary(f.Name); p != "" {
			rec.BinaryPath = p
		}
		records = append(records, rec)
	}
	return records, nil
}

func formulaRecord(f brewFormula) Record {
	rec := Record{
		Name:         f.Name,
		Source:       Homebrew,
		Version:      f.Versions.Stable,
		Dependencies: f.Dependencies,
	}
	if len(f.Installed) > 0 {
		inst := f.Installed[0]
		if inst.Version != "" {
			rec.Version = inst.Version
		}
		if inst.Time > 0 {
			rec.InstallDate = time.Unix(inst.Time, 0).UTC()
		}
		// The runtime dependency list on the installed payload is more
		// accurate than the formula's declared list when both exist.
		if len(inst.RuntimeDependencies) > 0 {
			deps := make([]string, 0, len(inst.RuntimeDependencies))
			for _, d := range inst.RuntimeDependencies {
				deps = append(deps, d.FullName)
			}
			rec.Dependencies = deps
		}
		rec.IsDependency = !inst.InstalledOnRequest
	}
	return rec
}

// formulaBinary returns the conventional bin path when it exists.
func (h *HomebrewHandler) formulaBinary(name string) string {
	p := filepath.Join(h.prefix, "bin", name)
	if _, err := os.Stat(p); err == nil {
		return p
	}
	return ""
}

// CellarPath returns the directory whose size represents the formula on
// disk; used by the lazy size resolver.
func (h *HomebrewHandler) CellarPath(name string) string {
	return filepath.Join(h.prefix, "Cellar", name)
}

// PayloadPath points the size resolver at the Cellar tree rather than
// the bin symlink.
func (h *HomebrewHandler) PayloadPath(rec Record) string {
	return h.CellarPath(rec.Name)
}

func (h *HomebrewHandler) Remove(ctx context.Context, name, _ string) error {
	return runQuiet(ctx, "brew", "uninstall", name)
}

func (h *HomebrewHandler) Restore(ctx context.Context, name, version, _ string) error {
	// Homebrew pins versions with @ syntax; fall back to latest when the
	// pinned formula is not available.
	if version != "" && !strings.Contains(name, "@") {
		if err := runQuiet(ctx, "brew", "install", name+"@"+version); err == nil {
			return nil
		}
	}
	return runQuiet(ctx, "brew", "install", name)
}

// CaskHandler scans Homebrew casks from the same brew info payload.
// Casks report no dependency edges; every cask is a non-orphan leaf.
type CaskHandler struct {
	brew *HomebrewHandler
}

func NewCaskHandler(brew *HomebrewHandler) *CaskHandler {
	return &CaskHandler{brew: brew}
}

func (h *CaskHandler) Source() Source  { return Cask }
func (h *CaskHandler) Available() bool { return h.brew.Available() }

func (h *CaskHandler) Scan(ctx context.Context) ([]Record, error) {
	info, err := h.brew.installedInfo(ctx)
	if err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(info.Casks))
	for _, c := range info.Casks {
		rec := Record{
			Name:    c.Token,
			Source:  Cask,
			Version: c.Version,
		}
		if c.Installed != "" {
			rec.Version = c.Installed
		}
		if app := guessAppBundle(c.Token); app != "" {
			rec.BinaryPath = app
		}
		records = append(records, rec)
	}
	return records, nil
}

func (h *CaskHandler) Remove(ctx context.Context, name, _ string) error {
	return runQuiet(ctx, "brew", "uninstall", "--cask", name)
}

func (h *CaskHandler) Restore(ctx context.Context, name, _, _ string) error {
	return runQuiet(ctx, "brew", "install", "--cask", name)
}

// guessAppBundle converts a cask token to its likely /Applications bundle,
// e.g. "visual-studio-code" -> "/Applications/Visual Studio Code.app".
// Returns "" when no such bundle exists.
func guessAppBundle(token string) string {
	words := strings.Split(token, "-")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	p := filepath.Join("/Applications", strings.Join(words, " ")+".app")
	if _, err := os.Stat(p); err == nil {
		return p
	}
	return ""
}
