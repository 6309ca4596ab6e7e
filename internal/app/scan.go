package app

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/macsweep/internal/output"
	"github.com/blackwell-systems/macsweep/internal/reconcile"
	"github.com/blackwell-systems/macsweep/internal/sizecache"
	"github.com/blackwell-systems/macsweep/internal/source"
	"github.com/blackwell-systems/macsweep/internal/usage"
)

var (
	scanSources []string
	scanQuick   bool
	scanNoUsage bool

	scanCmd = &cobra.Command{
		Use:   "scan",
		Short: "Inventory installed packages and collect usage evidence",
		Long: `Scan enumerates installed packages from every available source and
reconciles them into the registry. A full scan (no --source flag) also
removes registry entries for packages that are no longer installed;
scanning an explicit subset never removes anything.

Usage evidence (shell history, Spotlight, file access times) is
collected during the scan unless --no-usage is given. --quick skips
usage evidence and size measurement entirely and never removes
entries; it only refreshes what is installed.`,
		RunE: runScan,
	}
)

func init() {
	scanCmd.Flags().StringSliceVar(&scanSources, "source", nil, "scan only these sources (repeatable)")
	scanCmd.Flags().BoolVar(&scanQuick, "quick", false, "fast refresh: skip sizes and usage evidence, never prune")
	scanCmd.Flags().BoolVar(&scanNoUsage, "no-usage", false, "skip usage evidence collection")
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(cfg)

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	srcs, err := parseSources(scanSources)
	if err != nil {
		return err
	}

	sizes, err := sizecache.New(0)
	if err != nil {
		return err
	}

	var harvester *usage.Harvester
	if !scanNoUsage && !scanQuick {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("resolving home directory: %w", err)
		}
		harvester = usage.NewHarvester(home, log)
	}

	rec := reconcile.New(st, source.DefaultRegistry(), sizes, harvester, log)

	spinner := output.NewSpinner("Scanning installed packages")
	spinner.Start()
	res, err := rec.Run(cmd.Context(), srcs, scanQuick)
	spinner.Stop()
	if err != nil {
		return err
	}

	fmt.Print(output.RenderScanResult(res))
	return nil
}
