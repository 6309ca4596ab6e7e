package app

import (
	"testing"
)

func TestRootCommand(t *testing.T) {
	if RootCmd.Use != "macsweep" {
		t.Errorf("expected Use to be 'macsweep', got '%s'", RootCmd.Use)
	}

	if RootCmd.Short == "" {
		t.Error("expected Short description to be set")
	}

	if RootCmd.Long == "" {
		t.Error("expected Long description to be set")
	}

	if !RootCmd.SilenceUsage {
		t.Error("expected usage to be silenced on errors")
	}
}

func TestRootCommandHasSubcommands(t *testing.T) {
	commands := RootCmd.Commands()

	expected := []string{"scan", "list", "info", "stats", "clean", "undo", "history", "export"}
	found := make(map[string]bool)

	for _, cmd := range commands {
		found[cmd.Name()] = true
	}

	for _, name := range expected {
		if !found[name] {
			t.Errorf("expected command '%s' to be registered", name)
		}
	}
}

func TestRootCommandHasPersistentFlags(t *testing.T) {
	for _, name := range []string{"db", "backup-dir", "config-dir", "verbose", "quiet"} {
		flag := RootCmd.PersistentFlags().Lookup(name)
		if flag == nil {
			t.Errorf("expected --%s flag to be registered", name)
			continue
		}
		if flag.Usage == "" {
			t.Errorf("expected --%s flag to have usage text", name)
		}
	}
}

func TestCleanCommand_Flags(t *testing.T) {
	for _, name := range []string{"tier", "source", "dry-run", "yes", "interactive"} {
		if cleanCmd.Flags().Lookup(name) == nil {
			t.Errorf("flag %s not defined", name)
		}
	}

	tierFlag := cleanCmd.Flags().Lookup("tier")
	if tierFlag.DefValue != "safe" {
		t.Errorf("tier flag default: got %s, want safe", tierFlag.DefValue)
	}
}

func TestListCommand_FlagDefaults(t *testing.T) {
	sortFlag := listCmd.Flags().Lookup("sort")
	if sortFlag == nil {
		t.Fatal("sort flag not found")
	}
	if sortFlag.DefValue != "name" {
		t.Errorf("sort flag default: got %s, want name", sortFlag.DefValue)
	}

	formatFlag := listCmd.Flags().Lookup("format")
	if formatFlag == nil {
		t.Fatal("format flag not found")
	}
	if formatFlag.DefValue != "table" {
		t.Errorf("format flag default: got %s, want table", formatFlag.DefValue)
	}
}
