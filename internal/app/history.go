package app

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/macsweep/internal/output"
	"github.com/blackwell-systems/macsweep/internal/store"
	"github.com/blackwell-systems/macsweep/internal/usage"
)

var (
	historyLimit    int
	historyMarkUsed bool
	historySource   string

	historyCmd = &cobra.Command{
		Use:   "history [package]",
		Short: "Show past scans and cleanups, or one package's usage evidence",
		Long: `With no arguments, history lists recent scan and cleanup runs. With a
package name it shows that package's recorded usage evidence instead.

--mark-used records a manual usage event for the named package, which
resets its staleness clock and keeps it off the removal candidate
list.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistory,
	}
)

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 10, "show at most N entries per section")
	historyCmd.Flags().BoolVar(&historyMarkUsed, "mark-used", false, "record a manual usage event for the named package")
	historyCmd.Flags().StringVar(&historySource, "source", "", "disambiguate the package name across sources")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	if len(args) == 1 {
		if historyMarkUsed {
			return markUsed(st, args[0], historySource)
		}
		return showUsageEvents(st, args[0], historySource)
	}
	if historyMarkUsed {
		return fmt.Errorf("--mark-used needs a package name")
	}

	scans, err := st.ListScans(historyLimit)
	if err != nil {
		return err
	}
	cleanups, err := st.ListCleanups(historyLimit)
	if err != nil {
		return err
	}

	fmt.Print(output.RenderScanHistory(scans))
	fmt.Println()
	fmt.Print(output.RenderCleanupHistory(cleanups))
	return nil
}

func showUsageEvents(st *store.Store, name, srcName string) error {
	pkg, err := resolvePackage(st, name, srcName)
	if err != nil {
		return err
	}
	events, err := st.EventsForPackage(pkg.ID)
	if err != nil {
		return err
	}
	fmt.Print(output.RenderUsageEvents(pkg, events))
	return nil
}

func markUsed(st *store.Store, name, srcName string) error {
	pkg, err := resolvePackage(st, name, srcName)
	if err != nil {
		return err
	}
	inserted, err := st.InsertUsageEvent(store.UsageEvent{
		PackageID: pkg.ID,
		EventType: string(usage.Manual),
		Date:      time.Now(),
		Detail:    "marked used",
	})
	if err != nil {
		return err
	}
	if !inserted {
		fmt.Printf("%s (%s) was already marked used today.\n", pkg.Name, pkg.Source)
		return nil
	}
	fmt.Printf("Marked %s (%s) as used today.\n", pkg.Name, pkg.Source)
	return nil
}
