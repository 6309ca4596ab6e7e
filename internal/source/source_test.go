package source

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseSource(t *testing.T) {
	cases := map[string]Source{
		"homebrew": Homebrew,
		"brew":     Homebrew,
		"CASK":     Cask,
		"npm":      Npm,
		"pip":      Pip,
		"python":   Pip,
		"pipx":     Pipx,
		"cargo":    Cargo,
		"rust":     Cargo,
		"gem":      Gem,
		"ruby":     Gem,
		"apps":     Applications,
	}
	for in, want := range cases {
		got, err := Parse(in)
		if err != nil {
			t.Fatalf("Parse(%q): %v", in, err)
		}
		if got != want {
			t.Errorf("Parse(%q) = %q, want %q", in, got, want)
		}
	}
	if _, err := Parse("ports"); err == nil {
		t.Error("expected error for unknown source")
	}
}

func TestFormulaRecord(t *testing.T) {
	data := `{
		"formulae": [{
			"name": "jq",
			"versions": {"stable": "1.7"},
			"dependencies": ["oniguruma"],
			"installed": [{
				"version": "1.7.1",
				"time": 1700000000,
				"installed_on_request": true,
				"runtime_dependencies": [{"full_name": "oniguruma"}]
			}]
		}, {
			"name": "oniguruma",
			"versions": {"stable": "6.9.9"},
			"installed": [{
				"version": "6.9.9",
				"installed_on_request": false
			}]
		}],
		"casks": [{"token": "iterm2", "version": "3.5.0", "installed": "3.4.19"}]
	}`

	var info brewInfo
	if err := json.Unmarshal([]byte(data), &info); err != nil {
		t.Fatal(err)
	}
	if len(info.Formulae) != 2 || len(info.Casks) != 1 {
		t.Fatalf("got %d formulae, %d casks", len(info.Formulae), len(info.Casks))
	}

	jq := formulaRecord(info.Formulae[0])
	if jq.Name != "jq" || jq.Version != "1.7.1" {
		t.Errorf("jq record = %+v", jq)
	}
	if jq.IsDependency {
		t.Error("jq was installed on request, should not be a dependency")
	}
	want := time.Unix(1700000000, 0).UTC()
	if !jq.InstallDate.Equal(want) {
		t.Errorf("install date = %v, want %v", jq.InstallDate, want)
	}
	if len(jq.Dependencies) != 1 || jq.Dependencies[0] != "oniguruma" {
		t.Errorf("dependencies = %v", jq.Dependencies)
	}

	onig := formulaRecord(info.Formulae[1])
	if !onig.IsDependency {
		t.Error("oniguruma should be flagged as a dependency")
	}
	if onig.Version != "6.9.9" {
		t.Errorf("version = %q", onig.Version)
	}

	if info.Casks[0].Installed != "3.4.19" {
		t.Errorf("cask installed = %q", info.Casks[0].Installed)
	}
}

func TestParsePipxList(t *testing.T) {
	out := "black 24.4.2\nhttpie 3.2.2\n\nmalformed\n"
	recs := parsePipxList(out)
	if len(recs) != 2 {
		t.Fatalf("got %d records, want 2", len(recs))
	}
	if recs[0].Name != "black" || recs[0].Version != "24.4.2" {
		t.Errorf("first record = %+v", recs[0])
	}
	if recs[1].Source != Pipx {
		t.Errorf("source = %q", recs[1].Source)
	}
}

func TestParseCargoList(t *testing.T) {
	out := `ripgrep v14.1.0:
    rg
tokei v12.1.2 (/Users/dev/src/tokei):
    tokei
`
	recs := parseCargoList(out)
	if len(recs) != 2 {
		t.Fatalf("got %d records, want 2", len(recs))
	}
	if recs[0].Name != "ripgrep" || recs[0].Version != "14.1.0" {
		t.Errorf("first record = %+v", recs[0])
	}
	if recs[0].BinaryPath != "rg" {
		t.Errorf("binary = %q, want rg", recs[0].BinaryPath)
	}
	if recs[1].Name != "tokei" || recs[1].Version != "12.1.2" {
		t.Errorf("second record = %+v", recs[1])
	}
}

func TestParseGemList(t *testing.T) {
	out := `
*** LOCAL GEMS ***

bundler (2.5.6, 2.4.22)
rake (13.1.0)
json (default: 2.7.1)
`
	recs := parseGemList(out)
	if len(recs) != 2 {
		t.Fatalf("got %d records, want 2: %+v", len(recs), recs)
	}
	if recs[0].Name != "bundler" || recs[0].Version != "2.5.6" {
		t.Errorf("bundler record = %+v", recs[0])
	}
	if recs[1].Name != "rake" || recs[1].Version != "13.1.0" {
		t.Errorf("rake record = %+v", recs[1])
	}
}

func TestRegistrySources(t *testing.T) {
	reg := NewRegistry(NewNpmHandler(), NewGemHandler())
	srcs := reg.Sources()
	if len(srcs) != 2 {
		t.Fatalf("got %d sources", len(srcs))
	}
	if srcs[0] != Gem || srcs[1] != Npm {
		t.Errorf("sources not sorted: %v", srcs)
	}
	if _, ok := reg.Handler(Cargo); ok {
		t.Error("cargo should not be registered")
	}
}
