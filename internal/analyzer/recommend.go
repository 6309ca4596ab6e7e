package analyzer

import (
	"fmt"
	"sort"
	"time"

	"github.com/blackwell-systems/macsweep/internal/store"
	"github.com/blackwell-systems/macsweep/internal/usage"
)

// Severity tiers, strongest recommendation first.
type Severity string

const (
	SeveritySafe    Severity = "safe"
	SeverityReview  Severity = "review"
	SeverityWarning Severity = "warning"
)

func (s Severity) rank() int {
	switch s {
	case SeveritySafe:
		return 0
	case SeverityReview:
		return 1
	case SeverityWarning:
		return 2
	}
	return 3
}

// ParseSeverity resolves a user-supplied tier name.
func ParseSeverity(s string) (Severity, error) {
	switch s {
	case "safe":
		return SeveritySafe, nil
	case "review":
		return SeverityReview, nil
	case "warning":
		return SeverityWarning, nil
	}
	return "", fmt.Errorf("unknown tier %q (known: safe, review, warning)", s)
}

// Includes reports whether a candidate at other is at least as strongly
// recommended as s, for "everything at severity >= X" selections.
func (s Severity) Includes(other Severity) bool {
	return other.rank() <= s.rank()
}

// Thresholds are the staleness cutoffs in days. WarningDays marks the
// lower bound for flagging at all; ReviewDays marks the stronger
// recommendation.
type Thresholds struct {
	WarningDays int
	ReviewDays  int
}

// DefaultThresholds matches the shipped configuration defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{WarningDays: 30, ReviewDays: 90}
}

// Validate rejects threshold pairs that would make the tiers overlap.
func (t Thresholds) Validate() error {
	if t.WarningDays <= 0 || t.ReviewDays <= 0 {
		return fmt.Errorf("thresholds must be positive (warning=%d review=%d)", t.WarningDays, t.ReviewDays)
	}
	if t.WarningDays >= t.ReviewDays {
		return fmt.Errorf("warning threshold (%d) must be below review threshold (%d)", t.WarningDays, t.ReviewDays)
	}
	return nil
}

// Candidate is one package recommended for removal.
type Candidate struct {
	Package  *store.Package
	Class    Class
	Profile  usage.Profile
	Severity Severity
	Reason   string
}

// TierSummary aggregates one severity tier.
type TierSummary struct {
	Count int
	Bytes int64
}

// Analysis is the full decision output over one registry snapshot.
type Analysis struct {
	Packages   []*store.Package
	Classes    map[int64]Class
	Profiles   map[int64]usage.Profile
	Candidates []Candidate
	Tiers      map[Severity]TierSummary
	Total      TierSummary
}

// CandidatesAtLeast filters candidates to severity >= min.
func (a *Analysis) CandidatesAtLeast(min Severity) []Candidate {
	var out []Candidate
	for _, c := range a.Candidates {
		if min.Includes(c.Severity) {
			out = append(out, c)
		}
	}
	return out
}

// recommend assigns severities. Evaluated in priority order: orphans are
// always Safe regardless of usage, then staleness decides Review vs
// Warning; recently used packages are not candidates.
func recommend(pkgs []*store.Package, classes map[int64]Class, profiles map[int64]usage.Profile, th Thresholds, now time.Time) *Analysis {
	a := &Analysis{
		Packages: pkgs,
		Classes:  classes,
		Profiles: profiles,
		Tiers:    make(map[Severity]TierSummary),
	}

	for _, p := range pkgs {
		class := classes[p.ID]
		profile := profiles[p.ID]

		var sev Severity
		var reason string
		switch {
		case class == ClassOrphan:
			sev = SeveritySafe
			reason = "orphaned dependency; nothing installed needs it"
		case !profile.Used():
			sev = SeverityReview
			reason = "no usage evidence recorded"
		case profile.DaysSince(now) > th.ReviewDays:
			sev = SeverityReview
			reason = fmt.Sprintf("last used %d days ago", profile.DaysSince(now))
		case profile.DaysSince(now) > th.WarningDays:
			sev = SeverityWarning
			reason = fmt.Sprintf("last used %d days ago", profile.DaysSince(now))
		default:
			continue
		}

		a.Candidates = append(a.Candidates, Candidate{
			Package:  p,
			Class:    class,
			Profile:  profile,
			Severity: sev,
			Reason:   reason,
		})
	}

	// Strongest tier first; within a tier largest recoverable space
	// first, ties broken by name for determinism.
	sort.Slice(a.Candidates, func(i, j int) bool {
		ci, cj := a.Candidates[i], a.Candidates[j]
		if ci.Severity.rank() != cj.Severity.rank() {
			return ci.Severity.rank() < cj.Severity.rank()
		}
		if ci.Package.SizeBytes != cj.Package.SizeBytes {
			return ci.Package.SizeBytes > cj.Package.SizeBytes
		}
		return ci.Package.Name < cj.Package.Name
	})

	for _, c := range a.Candidates {
		t := a.Tiers[c.Severity]
		t.Count++
		t.Bytes += c.Package.SizeBytes
		a.Tiers[c.Severity] = t
		a.Total.Count++
		a.Total.Bytes += c.Package.SizeBytes
	}
	return a
}
