package store

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/blackwell-systems/macsweep/internal/source"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	if err := s.CreateSchema(); err != nil {
		t.Fatalf("CreateSchema() failed: %v", err)
	}
	return s
}

func TestListPackages_NoSchema_ReturnsErrNotInitialized(t *testing.T) {
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	defer s.Close()

	// Do NOT call CreateSchema.
	_, err = s.ListPackages("")
	if err == nil {
		t.Fatal("ListPackages() should return an error on uninitialized DB")
	}
	if !errors.Is(err, ErrNotInitialized) {
		t.Errorf("ListPackages() error = %v; want ErrNotInitialized", err)
	}
}

func TestErrNotInitialized_Message(t *testing.T) {
	if !strings.Contains(ErrNotInitialized.Error(), "macsweep scan") {
		t.Errorf("ErrNotInitialized message %q should point at 'macsweep scan'", ErrNotInitialized.Error())
	}
}

func TestUpsertPackage_InsertUpdateUnchanged(t *testing.T) {
	s := newTestStore(t)
	t0 := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

	pkg := &Package{
		Name:         "ripgrep",
		Source:       source.Homebrew,
		Version:      "14.1.0",
		BinaryPath:   "/opt/homebrew/bin/rg",
		SizeBytes:    5 << 20,
		Dependencies: []string{"pcre2"},
	}
	out, err := s.UpsertPackage(pkg, t0)
	if err != nil {
		t.Fatalf("UpsertPackage() failed: %v", err)
	}
	if out != Inserted {
		t.Errorf("first upsert outcome = %v, want Inserted", out)
	}
	if pkg.ID == 0 {
		t.Error("pkg.ID not set on insert")
	}
	if !pkg.FirstSeen.Equal(t0) {
		t.Errorf("FirstSeen = %v, want %v", pkg.FirstSeen, t0)
	}

	// Same fields again: unchanged, but last_seen moves.
	t1 := t0.Add(24 * time.Hour)
	again := &Package{
		Name:         "ripgrep",
		Source:       source.Homebrew,
		Version:      "14.1.0",
		BinaryPath:   "/opt/homebrew/bin/rg",
		SizeBytes:    5 << 20,
		Dependencies: []string{"pcre2"},
	}
	out, err = s.UpsertPackage(again, t1)
	if err != nil {
		t.Fatalf("UpsertPackage() failed: %v", err)
	}
	if out != Unchanged {
		t.Errorf("second upsert outcome = %v, want Unchanged", out)
	}
	if !again.FirstSeen.Equal(t0) {
		t.Errorf("FirstSeen changed on rescan: %v", again.FirstSeen)
	}
	if !again.LastSeen.Equal(t1) {
		t.Errorf("LastSeen = %v, want %v", again.LastSeen, t1)
	}

	// Version bump: updated, first_seen still immutable.
	t2 := t1.Add(24 * time.Hour)
	bumped := &Package{
		Name:         "ripgrep",
		Source:       source.Homebrew,
		Version:      "14.2.0",
		BinaryPath:   "/opt/homebrew/bin/rg",
		SizeBytes:    5 << 20,
		Dependencies: []string{"pcre2"},
	}
	out, err = s.UpsertPackage(bumped, t2)
	if err != nil {
		t.Fatalf("UpsertPackage() failed: %v", err)
	}
	if out != Updated {
		t.Errorf("third upsert outcome = %v, want Updated", out)
	}
	if !bumped.FirstSeen.Equal(t0) {
		t.Errorf("FirstSeen changed on update: %v", bumped.FirstSeen)
	}

	stored, err := s.GetPackage("ripgrep", source.Homebrew)
	if err != nil {
		t.Fatalf("GetPackage() failed: %v", err)
	}
	if stored.Version != "14.2.0" {
		t.Errorf("stored version = %q", stored.Version)
	}
}

func TestUpsertPackage_ZeroSizeKeepsStoredSize(t *testing.T) {
	s := newTestStore(t)
	now := time.Now().UTC()

	pkg := &Package{Name: "fd", Source: source.Homebrew, Version: "9.0.0", SizeBytes: 1024}
	if _, err := s.UpsertPackage(pkg, now); err != nil {
		t.Fatal(err)
	}

	rescan := &Package{Name: "fd", Source: source.Homebrew, Version: "9.0.0"}
	out, err := s.UpsertPackage(rescan, now)
	if err != nil {
		t.Fatal(err)
	}
	if out != Unchanged {
		t.Errorf("outcome = %v, want Unchanged when size omitted", out)
	}
	stored, err := s.GetPackage("fd", source.Homebrew)
	if err != nil {
		t.Fatal(err)
	}
	if stored.SizeBytes != 1024 {
		t.Errorf("stored size = %d, want 1024", stored.SizeBytes)
	}
}

func TestSameNameDifferentSource_AreDistinct(t *testing.T) {
	s := newTestStore(t)
	now := time.Now().UTC()

	brew := &Package{Name: "typescript", Source: source.Homebrew, Version: "5.4.0"}
	npm := &Package{Name: "typescript", Source: source.Npm, Version: "5.5.2"}
	if _, err := s.UpsertPackage(brew, now); err != nil {
		t.Fatal(err)
	}
	if _, err := s.UpsertPackage(npm, now); err != nil {
		t.Fatal(err)
	}

	pkgs, err := s.ListPackages("")
	if err != nil {
		t.Fatal(err)
	}
	if len(pkgs) != 2 {
		t.Fatalf("got %d packages, want 2", len(pkgs))
	}

	if err := s.DeletePackage("typescript", source.Npm); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetPackage("typescript", source.Homebrew); err != nil {
		t.Errorf("homebrew row should survive npm delete: %v", err)
	}
	if _, err := s.GetPackage("typescript", source.Npm); !errors.Is(err, ErrNotFound) {
		t.Errorf("want ErrNotFound for deleted row, got %v", err)
	}
}

func TestInsertPackageSnapshot_PreservesFirstSeen(t *testing.T) {
	s := newTestStore(t)
	first := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

	pkg := &Package{
		Name:      "httpie",
		Source:    source.Pipx,
		Version:   "3.2.2",
		FirstSeen: first,
		LastSeen:  first.Add(72 * time.Hour),
	}
	if err := s.InsertPackageSnapshot(pkg); err != nil {
		t.Fatalf("InsertPackageSnapshot() failed: %v", err)
	}

	stored, err := s.GetPackage("httpie", source.Pipx)
	if err != nil {
		t.Fatal(err)
	}
	if !stored.FirstSeen.Equal(first) {
		t.Errorf("FirstSeen = %v, want %v", stored.FirstSeen, first)
	}

	// Re-inserting the same snapshot is a no-op upsert, not a constraint
	// violation, so interrupted undos can be retried.
	pkg.Version = "3.2.3"
	if err := s.InsertPackageSnapshot(pkg); err != nil {
		t.Fatalf("repeated InsertPackageSnapshot() failed: %v", err)
	}
	again, err := s.GetPackage("httpie", source.Pipx)
	if err != nil {
		t.Fatal(err)
	}
	if again.ID != stored.ID {
		t.Errorf("snapshot re-insert created a new row: id %d vs %d", again.ID, stored.ID)
	}
	if again.Version != "3.2.3" {
		t.Errorf("Version = %q, want snapshot value", again.Version)
	}
	if !again.FirstSeen.Equal(first) {
		t.Errorf("FirstSeen after retry = %v, want %v", again.FirstSeen, first)
	}
}

func TestInsertUsageEvent_DayDeduplication(t *testing.T) {
	s := newTestStore(t)
	now := time.Now().UTC()

	pkg := &Package{Name: "jq", Source: source.Homebrew, Version: "1.7"}
	if _, err := s.UpsertPackage(pkg, now); err != nil {
		t.Fatal(err)
	}

	day := time.Date(2026, 2, 3, 9, 15, 0, 0, time.UTC)
	ev := UsageEvent{PackageID: pkg.ID, EventType: "shell_history", Date: day}

	inserted, err := s.InsertUsageEvent(ev)
	if err != nil {
		t.Fatal(err)
	}
	if !inserted {
		t.Error("first insert should write a row")
	}

	// Same signal later the same day: deduplicated.
	ev.Date = day.Add(10 * time.Hour)
	inserted, err = s.InsertUsageEvent(ev)
	if err != nil {
		t.Fatal(err)
	}
	if inserted {
		t.Error("same-day duplicate should be a no-op")
	}

	// Different signal kind on the same day is a distinct event.
	inserted, err = s.InsertUsageEvent(UsageEvent{
		PackageID: pkg.ID, EventType: "spotlight", Date: day,
	})
	if err != nil {
		t.Fatal(err)
	}
	if !inserted {
		t.Error("different event type should insert")
	}

	events, err := s.EventsForPackage(pkg.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
}

func TestPruneMissing(t *testing.T) {
	s := newTestStore(t)
	now := time.Now().UTC()

	for _, name := range []string{"a", "b", "c"} {
		if _, err := s.UpsertPackage(&Package{Name: name, Source: source.Cargo}, now); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := s.UpsertPackage(&Package{Name: "a", Source: source.Gem}, now); err != nil {
		t.Fatal(err)
	}

	pruned, err := s.PruneMissing(source.Cargo, map[string]bool{"a": true})
	if err != nil {
		t.Fatalf("PruneMissing() failed: %v", err)
	}
	if pruned != 2 {
		t.Errorf("pruned = %d, want 2", pruned)
	}

	// Other sources untouched.
	if _, err := s.GetPackage("a", source.Gem); err != nil {
		t.Errorf("gem row should survive cargo prune: %v", err)
	}
	if _, err := s.GetPackage("a", source.Cargo); err != nil {
		t.Errorf("seen cargo row should survive prune: %v", err)
	}
}

func TestSourceLocks(t *testing.T) {
	s := newTestStore(t)

	srcs := []source.Source{source.Homebrew, source.Npm}
	if err := s.AcquireSourceLocks(srcs, "scan-1"); err != nil {
		t.Fatalf("AcquireSourceLocks() failed: %v", err)
	}

	err := s.AcquireSourceLocks([]source.Source{source.Npm}, "clean-1")
	if !errors.Is(err, ErrSourceLocked) {
		t.Errorf("want ErrSourceLocked for held source, got %v", err)
	}

	// Disjoint sources are fine.
	if err := s.AcquireSourceLocks([]source.Source{source.Gem}, "clean-1"); err != nil {
		t.Errorf("disjoint lock should succeed: %v", err)
	}

	if err := s.ReleaseSourceLocks("scan-1"); err != nil {
		t.Fatal(err)
	}
	if err := s.AcquireSourceLocks([]source.Source{source.Npm}, "clean-2"); err != nil {
		t.Errorf("lock should be free after release: %v", err)
	}
}

func TestReleaseStaleLocks(t *testing.T) {
	s := newTestStore(t)

	if err := s.AcquireSourceLocks([]source.Source{source.Pip}, "crashed"); err != nil {
		t.Fatal(err)
	}
	// A fresh lock is untouched by a non-zero age bound.
	n, err := s.ReleaseStaleLocks(time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("cleared %d fresh locks, want 0", n)
	}

	// A zero age bound clears it even within the same second.
	n, err = s.ReleaseStaleLocks(0)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("cleared %d locks, want 1", n)
	}
}

func TestScanAndCleanupHistory(t *testing.T) {
	s := newTestStore(t)

	run := &ScanRun{
		StartedAt: time.Now().UTC(),
		Duration:  1500 * time.Millisecond,
		Scope:     "full",
		Sources:   "homebrew,npm",
		Found:     42,
		Inserted:  3,
	}
	if err := s.RecordScan(run); err != nil {
		t.Fatalf("RecordScan() failed: %v", err)
	}
	runs, err := s.ListScans(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].Found != 42 || runs[0].Scope != "full" {
		t.Errorf("unexpected scan history: %+v", runs)
	}
	if runs[0].Duration != 1500*time.Millisecond {
		t.Errorf("duration = %v", runs[0].Duration)
	}

	rec := &CleanupRecord{
		ManifestID: "cleanup_20260826_120000",
		CreatedAt:  time.Now().UTC(),
		State:      "completed",
		Removed:    2,
		BytesFreed: 1 << 20,
	}
	if err := s.RecordCleanup(rec); err != nil {
		t.Fatalf("RecordCleanup() failed: %v", err)
	}
	recs, err := s.ListCleanups(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 || recs[0].ManifestID != rec.ManifestID {
		t.Errorf("unexpected cleanup history: %+v", recs)
	}
}
