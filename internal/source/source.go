// Package source defines the package managers and application directories
// macsweep knows how to inventory, and the per-source capability interface
// used by the scan, cleanup, and undo paths.
package source

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Source identifies the origin of a package: a package manager or an
// artifact directory. The tag is part of a package's identity; the same
// name under two sources is two distinct packages.
type Source string

const (
	Homebrew     Source = "homebrew"
	Cask         Source = "cask"
	Npm          Source = "npm"
	Pip          Source = "pip"
	Pipx         Source = "pipx"
	Cargo        Source = "cargo"
	Gem          Source = "gem"
	Applications Source = "applications"
)

// All returns every known source tag in stable order.
func All() []Source {
	return []Source{Homebrew, Cask, Npm, Pip, Pipx, Cargo, Gem, Applications}
}

// Parse resolves a user-supplied source name, accepting common aliases.
// Matching is case-insensitive.
func Parse(s string) (Source, error) {
	switch strings.ToLower(s) {
	case "homebrew", "brew":
		return Homebrew, nil
	case "cask", "casks":
		return Cask, nil
	case "npm":
		return Npm, nil
	case "pip", "python":
		return Pip, nil
	case "pipx":
		return Pipx, nil
	case "cargo", "rust":
		return Cargo, nil
	case "gem", "ruby":
		return Gem, nil
	case "applications", "apps":
		return Applications, nil
	}
	return "", fmt.Errorf("unknown source %q (known: homebrew, cask, npm, pip, pipx, cargo, gem, applications)", s)
}

// HasDependencyInfo reports whether the source exposes a dependency tree
// and an "installed as a dependency" flag. Sources without this never
// produce orphans; their packages are always non-orphaned leaves.
func (s Source) HasDependencyInfo() bool {
	return s == Homebrew
}

// Display returns the human-readable label for the source.
func (s Source) Display() string {
	switch s {
	case Homebrew:
		return "Homebrew"
	case Cask:
		return "Homebrew Cask"
	case Npm:
		return "npm"
	case Pip:
		return "pip"
	case Pipx:
		return "pipx"
	case Cargo:
		return "cargo"
	case Gem:
		return "gem"
	case Applications:
		return "Applications"
	}
	return string(s)
}

// Record is one normalized raw scan result. Scanners produce these; the
// reconciler merges them into the registry.
type Record struct {
	Name         string
	Source       Source
	Version      string
	InstallDate  time.Time // zero when the source does not report one
	BinaryPath   string
	SizeBytes    int64
	Dependencies []string
	IsDependency bool
}

// Handler is the capability interface implemented once per source.
// Scan yields raw records, Remove and Restore perform the source-specific
// uninstall and reinstall actions. All external invocations must honor
// the context for cancellation and timeouts.
type Handler interface {
	Source() Source
	Available() bool
	Scan(ctx context.Context) ([]Record, error)
	Remove(ctx context.Context, name, path string) error
	Restore(ctx context.Context, name, version, path string) error
}

// PayloadPather is implemented by handlers whose on-disk payload lives
// somewhere other than the record's binary path, such as a Homebrew
// Cellar tree.
type PayloadPather interface {
	PayloadPath(rec Record) string
}

// Registry is the dispatch table from source tag to handler.
type Registry struct {
	handlers map[Source]Handler
}

// NewRegistry builds a registry from the given handlers.
func NewRegistry(handlers ...Handler) *Registry {
	r := &Registry{handlers: make(map[Source]Handler, len(handlers))}
	for _, h := range handlers {
		r.handlers[h.Source()] = h
	}
	return r
}

// DefaultRegistry wires every supported source.
func DefaultRegistry() *Registry {
	brew := NewHomebrewHandler()
	return NewRegistry(
		brew,
		NewCaskHandler(brew),
		NewNpmHandler(),
		NewPipHandler(),
		NewPipxHandler(),
		NewCargoHandler(),
		NewGemHandler(),
		NewApplicationsHandler(),
	)
}

// Handler returns the handler for a source, if registered.
func (r *Registry) Handler(s Source) (Handler, bool) {
	h, ok := r.handlers[s]
	return h, ok
}

// Sources returns the registered source tags in stable order.
func (r *Registry) Sources() []Source {
	out := make([]Source, 0, len(r.handlers))
	for s := range r.handlers {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
