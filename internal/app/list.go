package app

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/macsweep/internal/analyzer"
	"github.com/blackwell-systems/macsweep/internal/output"
	"github.com/blackwell-systems/macsweep/internal/source"
	"github.com/blackwell-systems/macsweep/internal/store"
)

var (
	listSource   string
	listUnused   int
	listOrphaned bool
	listLarge    bool
	listSort     string
	listLimit    int
	listFormat   string

	listCmd = &cobra.Command{
		Use:   "list",
		Short: "List inventoried packages",
		Long: `List shows the registry contents with last-use estimates. Filters
narrow to one source, to packages unused for at least N days (never-used
packages always qualify), or to orphaned dependencies.`,
		RunE: runList,
	}
)

func init() {
	listCmd.Flags().StringVar(&listSource, "source", "", "limit to one source")
	listCmd.Flags().IntVar(&listUnused, "unused", 0, "only packages unused for at least N days")
	listCmd.Flags().BoolVar(&listOrphaned, "orphaned", false, "only orphaned dependencies")
	listCmd.Flags().BoolVar(&listLarge, "large", false, "largest first (shorthand for --sort size)")
	listCmd.Flags().StringVar(&listSort, "sort", "name", "sort order: name, size, last-used, installed")
	listCmd.Flags().IntVar(&listLimit, "limit", 0, "show at most N packages (0 = all)")
	listCmd.Flags().StringVar(&listFormat, "format", "table", "output format: table, json, csv")
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	analysis, err := newAnalyzer(st).Analyze(thresholdsFromConfig(cfg), time.Now())
	if err != nil {
		return err
	}

	pkgs, err := filterPackages(analysis, time.Now())
	if err != nil {
		return err
	}
	sortPackages(pkgs, analysis)
	if listLimit > 0 && len(pkgs) > listLimit {
		pkgs = pkgs[:listLimit]
	}

	switch listFormat {
	case "table":
		fmt.Print(output.RenderPackageTable(pkgs, analysis.Profiles))
		fmt.Printf("\n%d packages\n", len(pkgs))
	case "json":
		filtered := *analysis
		filtered.Packages = pkgs
		return output.ExportJSON(os.Stdout, &filtered)
	case "csv":
		filtered := *analysis
		filtered.Packages = pkgs
		return output.ExportCSV(os.Stdout, &filtered)
	default:
		return fmt.Errorf("unknown format %q (known: table, json, csv)", listFormat)
	}
	return nil
}

func filterPackages(a *analyzer.Analysis, now time.Time) ([]*store.Package, error) {
	var src source.Source
	if listSource != "" {
		parsed, err := source.Parse(listSource)
		if err != nil {
			return nil, err
		}
		src = parsed
	}

	var out []*store.Package
	for _, p := range a.Packages {
		if src != "" && p.Source != src {
			continue
		}
		if listUnused > 0 {
			profile := a.Profiles[p.ID]
			if profile.Used() && profile.DaysSince(now) < listUnused {
				continue
			}
		}
		if listOrphaned && a.Classes[p.ID] != analyzer.ClassOrphan {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func sortPackages(pkgs []*store.Package, a *analyzer.Analysis) {
	order := listSort
	if listLarge {
		order = "size"
	}
	switch order {
	case "size":
		sort.Slice(pkgs, func(i, j int) bool {
			if pkgs[i].SizeBytes != pkgs[j].SizeBytes {
				return pkgs[i].SizeBytes > pkgs[j].SizeBytes
			}
			return pkgs[i].Name < pkgs[j].Name
		})
	case "last-used":
		// Never-used first, then oldest use first.
		sort.Slice(pkgs, func(i, j int) bool {
			li := a.Profiles[pkgs[i].ID].LastUsed
			lj := a.Profiles[pkgs[j].ID].LastUsed
			if !li.Equal(lj) {
				return li.Before(lj)
			}
			return pkgs[i].Name < pkgs[j].Name
		})
	case "installed":
		// Newest install first; packages without an install date last.
		sort.Slice(pkgs, func(i, j int) bool {
			if !pkgs[i].InstallDate.Equal(pkgs[j].InstallDate) {
				return pkgs[i].InstallDate.After(pkgs[j].InstallDate)
			}
			return pkgs[i].Name < pkgs[j].Name
		})
	default:
		sort.Slice(pkgs, func(i, j int) bool {
			if pkgs[i].Source != pkgs[j].Source {
				return pkgs[i].Source < pkgs[j].Source
			}
			return strings.ToLower(pkgs[i].Name) < strings.ToLower(pkgs[j].Name)
		})
	}
}
