package analyzer

import (
	"testing"
	"time"

	"github.com/blackwell-systems/macsweep/internal/source"
	"github.com/blackwell-systems/macsweep/internal/store"
	"github.com/blackwell-systems/macsweep/internal/usage"
)

func brewPkg(id int64, name string, isDep bool, deps ...string) *store.Package {
	return &store.Package{
		ID:           id,
		Name:         name,
		Source:       source.Homebrew,
		IsDependency: isDep,
		Dependencies: deps,
	}
}

func TestClassify_OrphanAppearsWhenDependentRemoved(t *testing.T) {
	a := brewPkg(1, "a", false)
	b := brewPkg(2, "b", false, "c")
	c := brewPkg(3, "c", true)

	classes := Classify([]*store.Package{a, b, c})
	if classes[1] != ClassLeaf {
		t.Errorf("a = %v, want leaf", classes[1])
	}
	if classes[2] != ClassLeaf {
		t.Errorf("b = %v, want leaf", classes[2])
	}
	if classes[3] != ClassDependency {
		t.Errorf("c = %v, want dependency while b is installed", classes[3])
	}

	// b is uninstalled; c loses its only dependent.
	classes = Classify([]*store.Package{a, c})
	if classes[3] != ClassOrphan {
		t.Errorf("c = %v, want orphan after b is removed", classes[3])
	}
}

func TestClassify_BrokenWinsOverOrphan(t *testing.T) {
	p := brewPkg(1, "libfoo", true, "vanished")
	classes := Classify([]*store.Package{p})
	if classes[1] != ClassBroken {
		t.Errorf("class = %v, want broken for missing dependency", classes[1])
	}
}

func TestClassify_CaseInsensitiveWithinSource(t *testing.T) {
	lib := brewPkg(1, "OpenSSL", true)
	app := brewPkg(2, "curl", false, "openssl")
	classes := Classify([]*store.Package{lib, app})
	if classes[1] != ClassDependency {
		t.Errorf("openssl = %v, want dependency (case-insensitive match)", classes[1])
	}
}

func TestClassify_NoCrossSourceEdges(t *testing.T) {
	brewLib := brewPkg(1, "node", true)
	npmPkg := &store.Package{
		ID: 2, Name: "typescript", Source: source.Npm,
		Dependencies: []string{"node"},
	}
	classes := Classify([]*store.Package{brewLib, npmPkg})
	// npm's declared "node" does not resolve into homebrew; the brew
	// formula stays orphaned and the npm package reports broken.
	if classes[1] != ClassOrphan {
		t.Errorf("brew node = %v, want orphan", classes[1])
	}
	if classes[2] != ClassBroken {
		t.Errorf("npm typescript = %v, want broken", classes[2])
	}
}

func TestClassify_SourcesWithoutDepInfoNeverOrphan(t *testing.T) {
	p := &store.Package{ID: 1, Name: "black", Source: source.Pipx, IsDependency: true}
	classes := Classify([]*store.Package{p})
	if classes[1] != ClassLeaf {
		t.Errorf("class = %v, want leaf for dep-less source", classes[1])
	}
}

func TestDependents(t *testing.T) {
	lib := brewPkg(1, "pcre2", true)
	rg := brewPkg(2, "ripgrep", false, "pcre2")
	deps := Dependents([]*store.Package{lib, rg}, lib)
	if len(deps) != 1 || deps[0] != "ripgrep" {
		t.Errorf("dependents = %v", deps)
	}
}

func TestThresholdsValidate(t *testing.T) {
	if err := DefaultThresholds().Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
	bad := []Thresholds{
		{WarningDays: 90, ReviewDays: 30},
		{WarningDays: 30, ReviewDays: 30},
		{WarningDays: 0, ReviewDays: 90},
		{WarningDays: 30, ReviewDays: -1},
	}
	for _, th := range bad {
		if err := th.Validate(); err == nil {
			t.Errorf("thresholds %+v should fail validation", th)
		}
	}
}

func TestRecommend_SeverityAssignment(t *testing.T) {
	now := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
	th := DefaultThresholds() // warning 30, review 90
	used := func(daysAgo int) usage.Profile {
		return usage.Profile{LastUsed: now.AddDate(0, 0, -daysAgo), Signal: usage.ShellHistory, EventCount: 1}
	}

	orphan := brewPkg(1, "orphan", true)
	fresh := brewPkg(2, "fresh", false)
	stale := brewPkg(3, "stale", false)
	ancient := brewPkg(4, "ancient", false)
	silent := brewPkg(5, "silent", false)

	pkgs := []*store.Package{orphan, fresh, stale, ancient, silent}
	profiles := map[int64]usage.Profile{
		1: used(2), // recent use does not save an orphan
		2: used(5),
		3: used(40),
		4: used(100),
		// 5: no profile at all
	}

	a := recommend(pkgs, Classify(pkgs), profiles, th, now)

	want := map[string]Severity{
		"orphan":  SeveritySafe,
		"stale":   SeverityWarning,
		"ancient": SeverityReview,
		"silent":  SeverityReview,
	}
	got := make(map[string]Severity)
	for _, c := range a.Candidates {
		got[c.Package.Name] = c.Severity
	}
	for name, sev := range want {
		if got[name] != sev {
			t.Errorf("%s severity = %v, want %v", name, got[name], sev)
		}
	}
	if _, ok := got["fresh"]; ok {
		t.Error("recently used package should not be a candidate")
	}
	if len(a.Candidates) != 4 {
		t.Errorf("candidate count = %d, want 4", len(a.Candidates))
	}
}

func TestRecommend_OrderingAndSummaries(t *testing.T) {
	now := time.Date(2026, 8, 26, 0, 0, 0, 0, time.UTC)
	th := DefaultThresholds()

	big := brewPkg(1, "zeta", true)
	big.SizeBytes = 500
	small := brewPkg(2, "alpha", true)
	small.SizeBytes = 100
	twinA := brewPkg(3, "aaa", true)
	twinA.SizeBytes = 100
	warn := brewPkg(4, "warn", false)
	warn.SizeBytes = 9000

	pkgs := []*store.Package{big, small, twinA, warn}
	profiles := map[int64]usage.Profile{
		4: {LastUsed: now.AddDate(0, 0, -40), Signal: usage.FileAccess, EventCount: 1},
	}

	a := recommend(pkgs, Classify(pkgs), profiles, th, now)
	if len(a.Candidates) != 4 {
		t.Fatalf("got %d candidates", len(a.Candidates))
	}

	// Safe tier first despite the warning item being largest overall;
	// within safe, size desc then name asc.
	order := []string{"zeta", "aaa", "alpha", "warn"}
	for i, name := range order {
		if a.Candidates[i].Package.Name != name {
			t.Errorf("candidate[%d] = %s, want %s", i, a.Candidates[i].Package.Name, name)
		}
	}

	safe := a.Tiers[SeveritySafe]
	if safe.Count != 3 || safe.Bytes != 700 {
		t.Errorf("safe tier = %+v", safe)
	}
	warnTier := a.Tiers[SeverityWarning]
	if warnTier.Count != 1 || warnTier.Bytes != 9000 {
		t.Errorf("warning tier = %+v", warnTier)
	}
	if a.Total.Count != 4 || a.Total.Bytes != 9700 {
		t.Errorf("total = %+v", a.Total)
	}
}

func TestSeverityIncludes(t *testing.T) {
	if !SeverityWarning.Includes(SeveritySafe) {
		t.Error("warning selection should include safe candidates")
	}
	if SeveritySafe.Includes(SeverityReview) {
		t.Error("safe selection should exclude review candidates")
	}
}

func TestAnalyze_EndToEnd(t *testing.T) {
	st, err := store.New(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()
	if err := st.CreateSchema(); err != nil {
		t.Fatal(err)
	}

	now := time.Date(2026, 8, 26, 0, 0, 0, 0, time.UTC)
	lib := &store.Package{Name: "pcre2", Source: source.Homebrew, IsDependency: true, SizeBytes: 5000}
	if _, err := st.UpsertPackage(lib, now); err != nil {
		t.Fatal(err)
	}
	tool := &store.Package{Name: "fd", Source: source.Homebrew, SizeBytes: 2000}
	if _, err := st.UpsertPackage(tool, now); err != nil {
		t.Fatal(err)
	}
	if _, err := st.InsertUsageEvent(store.UsageEvent{
		PackageID: tool.ID,
		EventType: string(usage.ShellHistory),
		Date:      now.AddDate(0, 0, -3),
	}); err != nil {
		t.Fatal(err)
	}

	a, err := New(st).Analyze(DefaultThresholds(), now)
	if err != nil {
		t.Fatalf("Analyze() failed: %v", err)
	}
	if len(a.Candidates) != 1 {
		t.Fatalf("got %d candidates: %+v", len(a.Candidates), a.Candidates)
	}
	c := a.Candidates[0]
	if c.Package.Name != "pcre2" || c.Severity != SeveritySafe {
		t.Errorf("candidate = %s/%v", c.Package.Name, c.Severity)
	}
	if p := a.Profiles[tool.ID]; !p.Used() || p.Signal != usage.ShellHistory {
		t.Errorf("fd profile = %+v", p)
	}
}
