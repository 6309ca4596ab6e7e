package usage

import (
	"context"
	"strings"
	"testing"
	"time"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestAggregate_NewestDateWins(t *testing.T) {
	now := day(2026, 8, 26)

	// A weak signal 5 days ago beats a strong signal 40 days ago: the
	// newest evidence decides regardless of kind.
	events := []Event{
		{Kind: Spotlight, Date: now.AddDate(0, 0, -40)},
		{Kind: ShellHistory, Date: now.AddDate(0, 0, -10)},
		{Kind: FileAccess, Date: now.AddDate(0, 0, -5)},
	}
	p := Aggregate(events)
	if !p.LastUsed.Equal(now.AddDate(0, 0, -5)) {
		t.Errorf("LastUsed = %v, want 5 days ago", p.LastUsed)
	}
	if p.Signal != FileAccess {
		t.Errorf("Signal = %v, want FileAccess", p.Signal)
	}
	if p.EventCount != 3 {
		t.Errorf("EventCount = %d", p.EventCount)
	}
	if got := p.DaysSince(now); got != 5 {
		t.Errorf("DaysSince = %d, want 5", got)
	}
}

func TestAggregate_SameDayTieBrokenByConfidence(t *testing.T) {
	d := day(2026, 8, 1)
	p := Aggregate([]Event{
		{Kind: FileAccess, Date: d},
		{Kind: Spotlight, Date: d},
		{Kind: ShellHistory, Date: d},
	})
	if p.Signal != Spotlight {
		t.Errorf("Signal = %v, want Spotlight on same-day tie", p.Signal)
	}
}

func TestAggregate_Empty(t *testing.T) {
	p := Aggregate(nil)
	if p.Used() {
		t.Error("empty profile should report unused")
	}
	if p.DaysSince(time.Now()) != -1 {
		t.Error("DaysSince should be -1 for unused")
	}
}

func TestParseZshHistory(t *testing.T) {
	in := `: 1700000000:0;git status
: 1700086400:2;rg -n "foo" src \
  --glob '*.go'
plain line without timestamp
: bogus:0;ls
`
	entries := ParseZshHistory(strings.NewReader(in))
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].Command != "git status" {
		t.Errorf("command = %q", entries[0].Command)
	}
	if !entries[0].Timestamp.Equal(time.Unix(1700000000, 0).UTC()) {
		t.Errorf("timestamp = %v", entries[0].Timestamp)
	}
	if !strings.HasPrefix(entries[1].Command, "rg ") {
		t.Errorf("command = %q", entries[1].Command)
	}
}

func TestParseBashHistory(t *testing.T) {
	in := `#1700000000
brew upgrade
ls without timestamp is dropped only if no pending stamp
#1700086400
jq . data.json
`
	entries := ParseBashHistory(strings.NewReader(in))
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2: %+v", len(entries), entries)
	}
	if entries[0].Command != "brew upgrade" {
		t.Errorf("command = %q", entries[0].Command)
	}
	if entries[1].Command != "jq . data.json" {
		t.Errorf("command = %q", entries[1].Command)
	}
}

func TestParseFishHistory(t *testing.T) {
	in := `- cmd: htop
  when: 1700000000
- cmd: cargo build
  when: 1700086400
  paths:
    - Cargo.toml
`
	entries := ParseFishHistory(strings.NewReader(in))
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[1].Command != "cargo build" {
		t.Errorf("command = %q", entries[1].Command)
	}
}

func TestInvokesBinary(t *testing.T) {
	cases := []struct {
		command string
		binary  string
		want    bool
	}{
		{"rg -n foo src", "rg", true},
		{"sudo rg foo", "rg", true},
		{"FOO=bar env rg foo", "rg", true},
		{"/opt/homebrew/bin/rg foo", "rg", true},
		{"cat file | rg foo", "rg", true},
		{"git status; rg foo", "rg", true},
		{"ripgrep foo", "rg", false},
		{"echo rg is great", "rg", false},
		{"rgx foo", "rg", false},
	}
	for _, c := range cases {
		if got := InvokesBinary(c.command, c.binary); got != c.want {
			t.Errorf("InvokesBinary(%q, %q) = %v, want %v", c.command, c.binary, got, c.want)
		}
	}
}

func TestParseMdlsDate(t *testing.T) {
	got, ok, err := parseMdlsDate("2026-03-15 10:30:00 +0000\n")
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	want := time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}

	_, ok, err = parseMdlsDate("(null)\n")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("(null) should report no record")
	}
}

func TestHarvesterCollect(t *testing.T) {
	h := &Harvester{
		history: []HistoryEntry{
			{Command: "rg foo", Timestamp: time.Unix(1700000000, 0)},
			{Command: "rg bar", Timestamp: time.Unix(1700001000, 0)}, // same day
			{Command: "git status", Timestamp: time.Unix(1700000000, 0)},
		},
		atime: func(string) (time.Time, error) {
			return time.Unix(1700090000, 0), nil
		},
		spotlight: func(context.Context, string) (time.Time, bool, error) {
			t.Fatal("spotlight should not be consulted for a plain binary")
			return time.Time{}, false, nil
		},
	}

	events := h.Collect(context.Background(), "ripgrep", "/opt/homebrew/bin/rg")
	var shell, access int
	for _, ev := range events {
		switch ev.Kind {
		case ShellHistory:
			shell++
		case FileAccess:
			access++
		}
	}
	if shell != 1 {
		t.Errorf("shell events = %d, want 1 (same-day entries collapse)", shell)
	}
	if access != 1 {
		t.Errorf("atime events = %d, want 1", access)
	}
}
