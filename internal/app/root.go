// Package app wires the macsweep CLI: flag parsing, command dispatch,
// and the composition of store, scanners, analyzer, and cleanup engine.
package app

import (
	"github.com/spf13/cobra"
)

var (
	flagDB        string
	flagBackupDir string
	flagConfigDir string
	flagVerbose   bool
	flagQuiet     bool

	// RootCmd is the root command for macsweep.
	RootCmd = &cobra.Command{
		Use:   "macsweep",
		Short: "Find and safely remove unused software across package managers",
		Long: `macsweep inventories software installed through Homebrew, npm, pip,
pipx, cargo, gem, and the Applications folders, estimates when each
package was last used from shell history, Spotlight metadata, and file
access times, and recommends what is safe to remove.

Removals are reversible: every cleanup writes a backup manifest before
touching anything, and 'macsweep undo' reinstalls from it.

Typical workflow:
  1. macsweep scan            # build the inventory
  2. macsweep stats           # see what is reclaimable
  3. macsweep clean --dry-run # review the plan
  4. macsweep clean           # apply it
  5. macsweep undo            # if you regret it`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	RootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "database path (default: ~/.local/share/macsweep/macsweep.db)")
	RootCmd.PersistentFlags().StringVar(&flagBackupDir, "backup-dir", "", "backup manifest directory (default: ~/.local/share/macsweep/backups)")
	RootCmd.PersistentFlags().StringVar(&flagConfigDir, "config-dir", "", "config directory (default: ~/.config/macsweep)")
	RootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging")
	RootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "errors only")

	RootCmd.SuggestionsMinimumDistance = 2

	RootCmd.AddCommand(scanCmd)
	RootCmd.AddCommand(listCmd)
	RootCmd.AddCommand(infoCmd)
	RootCmd.AddCommand(statsCmd)
	RootCmd.AddCommand(cleanCmd)
	RootCmd.AddCommand(undoCmd)
	RootCmd.AddCommand(historyCmd)
	RootCmd.AddCommand(exportCmd)
}

// Execute runs the root command.
func Execute() error {
	return RootCmd.Execute()
}
