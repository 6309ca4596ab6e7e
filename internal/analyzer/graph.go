// Package analyzer derives removal advice from the registry: it builds
// the dependency graph, classifies each package, folds usage events into
// last-used profiles, and assigns severity tiers.
package analyzer

import (
	"strings"

	"github.com/blackwell-systems/macsweep/internal/source"
	"github.com/blackwell-systems/macsweep/internal/store"
)

// Class is a package's position in the dependency graph.
type Class string

const (
	// ClassLeaf: nothing depends on it and it was installed on request.
	ClassLeaf Class = "leaf"
	// ClassDependency: at least one installed package depends on it.
	ClassDependency Class = "dependency"
	// ClassOrphan: installed only as a dependency, and every dependent
	// is gone.
	ClassOrphan Class = "orphan"
	// ClassBroken: declares a dependency missing from the registry.
	// Reported, never acted on automatically.
	ClassBroken Class = "broken"
)

// identity keys the graph. Dependency names match case-insensitively and
// only within one source; package managers do not interoperate.
func identity(name string, src source.Source) string {
	return strings.ToLower(name) + "\x00" + string(src)
}

// Classify builds the dependency graph over a registry snapshot and
// classifies every package. The returned map is keyed by package ID.
func Classify(pkgs []*store.Package) map[int64]Class {
	index := make(map[string]*store.Package, len(pkgs))
	for _, p := range pkgs {
		index[identity(p.Name, p.Source)] = p
	}

	incoming := make(map[string]int)
	broken := make(map[int64]bool)
	for _, p := range pkgs {
		for _, dep := range p.Dependencies {
			key := identity(dep, p.Source)
			if _, ok := index[key]; ok {
				incoming[key]++
			} else {
				broken[p.ID] = true
			}
		}
	}

	classes := make(map[int64]Class, len(pkgs))
	for _, p := range pkgs {
		key := identity(p.Name, p.Source)
		switch {
		case broken[p.ID]:
			classes[p.ID] = ClassBroken
		case incoming[key] == 0 && p.IsDependency && p.Source.HasDependencyInfo():
			classes[p.ID] = ClassOrphan
		case incoming[key] == 0:
			classes[p.ID] = ClassLeaf
		default:
			classes[p.ID] = ClassDependency
		}
	}
	return classes
}

// Dependents returns the names of installed packages that depend on the
// given package, within its source.
func Dependents(pkgs []*store.Package, target *store.Package) []string {
	key := identity(target.Name, target.Source)
	var out []string
	for _, p := range pkgs {
		if p.Source != target.Source {
			continue
		}
		for _, dep := range p.Dependencies {
			if identity(dep, p.Source) == key {
				out = append(out, p.Name)
				break
			}
		}
	}
	return out
}
