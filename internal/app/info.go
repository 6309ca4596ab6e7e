package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/macsweep/internal/analyzer"
	"github.com/blackwell-systems/macsweep/internal/output"
	"github.com/blackwell-systems/macsweep/internal/source"
	"github.com/blackwell-systems/macsweep/internal/store"
)

var (
	infoSource string

	infoCmd = &cobra.Command{
		Use:   "info <package>",
		Short: "Show everything known about one package",
		Args:  cobra.ExactArgs(1),
		RunE:  runInfo,
	}
)

func init() {
	infoCmd.Flags().StringVar(&infoSource, "source", "", "disambiguate when the name exists under several sources")
}

func runInfo(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	pkg, err := resolvePackage(st, args[0], infoSource)
	if err != nil {
		return err
	}

	if pkg.SizeBytes == 0 {
		if size := measureSize(pkg); size > 0 {
			if err := st.UpdatePackageSize(pkg.ID, size); err == nil {
				pkg.SizeBytes = size
			}
		}
	}

	analysis, err := newAnalyzer(st).Analyze(thresholdsFromConfig(cfg), time.Now())
	if err != nil {
		return err
	}

	class := analysis.Classes[pkg.ID]
	profile := analysis.Profiles[pkg.ID]
	dependents := analyzer.Dependents(analysis.Packages, pkg)

	fmt.Print(output.RenderPackageInfo(pkg, class, profile, dependents))
	return nil
}

// resolvePackage finds a package by name, requiring --source only when
// the name is ambiguous across sources.
func resolvePackage(st *store.Store, name, srcName string) (*store.Package, error) {
	if srcName != "" {
		src, err := source.Parse(srcName)
		if err != nil {
			return nil, err
		}
		pkg, err := st.GetPackage(name, src)
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("package %q not found under %s", name, src)
		}
		return pkg, err
	}

	all, err := st.ListPackages("")
	if err != nil {
		return nil, err
	}
	var matches []*store.Package
	for _, p := range all {
		if strings.EqualFold(p.Name, name) {
			matches = append(matches, p)
		}
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("package %q not found; run 'macsweep scan' to refresh the inventory", name)
	case 1:
		return matches[0], nil
	}
	srcs := make([]string, len(matches))
	for i, p := range matches {
		srcs[i] = string(p.Source)
	}
	return nil, fmt.Errorf("package %q exists under several sources (%s); pick one with --source", name, strings.Join(srcs, ", "))
}
