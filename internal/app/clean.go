package app

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/blackwell-systems/macsweep/internal/analyzer"
	"github.com/blackwell-systems/macsweep/internal/config"
	"github.com/blackwell-systems/macsweep/internal/output"
	"github.com/blackwell-systems/macsweep/internal/source"
	"github.com/blackwell-systems/macsweep/internal/store"
)

var (
	cleanTier        string
	cleanSource      string
	cleanDryRun      bool
	cleanYes         bool
	cleanInteractive bool

	cleanCmd = &cobra.Command{
		Use:   "clean [package...]",
		Short: "Remove unused packages, reversibly",
		Long: `Clean removes the packages named on the command line, or, with no
arguments, every removal candidate at the requested tier or stronger
(--tier safe removes only orphans; --tier review adds long-unused
packages; --tier warning adds everything flagged).

A backup manifest is written before anything is touched. If any
removal fails, the rest still proceed; 'macsweep undo' restores from
the manifest either way.`,
		RunE: runClean,
	}
)

func init() {
	cleanCmd.Flags().StringVar(&cleanTier, "tier", "safe", "minimum severity to include: safe, review, warning")
	cleanCmd.Flags().StringVar(&cleanSource, "source", "", "limit to one source")
	cleanCmd.Flags().BoolVar(&cleanDryRun, "dry-run", false, "show the plan without removing anything")
	cleanCmd.Flags().BoolVarP(&cleanYes, "yes", "y", false, "skip the confirmation prompt")
	cleanCmd.Flags().BoolVarP(&cleanInteractive, "interactive", "i", false, "pick packages one by one")
}

func runClean(cmd *cobra.Command, args []string) error {
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

	pkgs, err := cleanTargets(cfg, st, args)
	if err != nil {
		return err
	}
	if len(pkgs) == 0 {
		fmt.Println("Nothing to clean.")
		return nil
	}

	if cleanInteractive && !cleanDryRun {
		pkgs = selectInteractive(os.Stdin, os.Stdout, pkgs)
		if len(pkgs) == 0 {
			fmt.Println("No packages selected; nothing was removed.")
			return nil
		}
	}

	reg := source.DefaultRegistry()
	engine := newEngine(cfg, st, reg, log)
	plan := engine.Plan(pkgs)

	fmt.Print(output.RenderPlanTable(plan))
	if cleanDryRun {
		fmt.Println("\nDry run; nothing was removed.")
		return nil
	}

	// Interactive selection already confirmed each item.
	if !cleanYes && !cleanInteractive && !confirm(fmt.Sprintf("Remove %d package(s), reclaiming %s?", len(plan.Items), humanize.IBytes(uint64(plan.TotalBytes)))) {
		fmt.Println("Aborted; nothing was removed.")
		return nil
	}

	bar := output.NewProgress(len(plan.Items), "Removing packages")
	engine.Progress = bar.Increment
	manifest, err := engine.Apply(cmd.Context(), plan)
	if err != nil {
		return err
	}
	bar.Finish()
	fmt.Print(output.RenderCleanupResult(manifest))
	return nil
}

// cleanTargets resolves what to remove: the explicitly named packages,
// or every candidate at the requested tier and stronger.
func cleanTargets(cfg *config.Config, st *store.Store, args []string) ([]*store.Package, error) {
	if len(args) > 0 {
		pkgs := make([]*store.Package, 0, len(args))
		for _, name := range args {
			pkg, err := resolvePackage(st, name, cleanSource)
			if err != nil {
				return nil, err
			}
			pkgs = append(pkgs, pkg)
		}
		return pkgs, nil
	}

	tier, err := analyzer.ParseSeverity(cleanTier)
	if err != nil {
		return nil, err
	}
	analysis, err := newAnalyzer(st).Analyze(thresholdsFromConfig(cfg), time.Now())
	if err != nil {
		return nil, err
	}

	var src source.Source
	if cleanSource != "" {
		src, err = source.Parse(cleanSource)
		if err != nil {
			return nil, err
		}
	}

	var pkgs []*store.Package
	for _, c := range analysis.CandidatesAtLeast(tier) {
		if src != "" && c.Package.Source != src {
			continue
		}
		pkgs = append(pkgs, c.Package)
	}
	return pkgs, nil
}

// selectInteractive asks about each package in turn. Answering q keeps
// what was already picked and stops asking.
func selectInteractive(in io.Reader, out io.Writer, pkgs []*store.Package) []*store.Package {
	reader := bufio.NewReader(in)
	var selected []*store.Package
	for _, p := range pkgs {
		fmt.Fprintf(out, "Remove %s (%s, %s)? [y/N/q]: ", p.Name, p.Source, humanize.IBytes(uint64(p.SizeBytes)))
		line, err := reader.ReadString('\n')
		if err != nil {
			break
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			selected = append(selected, p)
		case "q", "quit":
			return selected
		}
	}
	return selected
}

func confirm(prompt string) bool {
	fmt.Printf("%s [y/N]: ", prompt)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
