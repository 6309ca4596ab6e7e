package analyzer

import (
	"time"

	"github.com/blackwell-systems/macsweep/internal/store"
	"github.com/blackwell-systems/macsweep/internal/usage"
)

// Analyzer computes dependency classes, usage profiles, and removal
// candidates over the registry.
type Analyzer struct {
	store *store.Store
}

// New creates an Analyzer backed by the given store.
func New(st *store.Store) *Analyzer {
	return &Analyzer{store: st}
}

// Analyze loads a registry snapshot and produces the full decision
// output. The aggregates are recomputed from scratch on every call; they
// are pure reductions and must never go stale against the registry.
func (a *Analyzer) Analyze(th Thresholds, now time.Time) (*Analysis, error) {
	if err := th.Validate(); err != nil {
		return nil, err
	}

	pkgs, err := a.store.ListPackages("")
	if err != nil {
		return nil, err
	}
	events, err := a.store.AllUsageEvents()
	if err != nil {
		return nil, err
	}

	profiles := make(map[int64]usage.Profile, len(pkgs))
	for _, p := range pkgs {
		profiles[p.ID] = usage.Aggregate(toUsageEvents(events[p.ID]))
	}

	return recommend(pkgs, Classify(pkgs), profiles, th, now), nil
}

func toUsageEvents(events []store.UsageEvent) []usage.Event {
	out := make([]usage.Event, len(events))
	for i, ev := range events {
		out[i] = usage.Event{
			Kind:   usage.Kind(ev.EventType),
			Date:   ev.Date,
			Detail: ev.Detail,
		}
	}
	return out
}
