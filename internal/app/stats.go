package app

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/blackwell-systems/macsweep/internal/output"
	"github.com/blackwell-systems/macsweep/internal/source"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize the inventory and reclaimable space",
	RunE:  runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
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

	type bucket struct {
		count int
		bytes int64
	}
	perSource := make(map[source.Source]*bucket)
	var total bucket
	unused := 0
	for _, p := range analysis.Packages {
		b := perSource[p.Source]
		if b == nil {
			b = &bucket{}
			perSource[p.Source] = b
		}
		b.count++
		b.bytes += p.SizeBytes
		total.count++
		total.bytes += p.SizeBytes
		if !analysis.Profiles[p.ID].Used() {
			unused++
		}
	}

	srcs := make([]source.Source, 0, len(perSource))
	for s := range perSource {
		srcs = append(srcs, s)
	}
	sort.Slice(srcs, func(i, j int) bool { return srcs[i] < srcs[j] })

	var sb strings.Builder
	fmt.Fprintf(&sb, "Inventory: %d packages, %s\n\n", total.count, humanize.IBytes(uint64(total.bytes)))
	for _, s := range srcs {
		b := perSource[s]
		fmt.Fprintf(&sb, "  %-14s %4d  %s\n", s.Display(), b.count, humanize.IBytes(uint64(b.bytes)))
	}
	fmt.Fprintf(&sb, "\n%d packages have no recorded usage.\n\n", unused)
	sb.WriteString(output.RenderTierSummary(analysis))

	if len(analysis.Candidates) > 0 {
		top := analysis.Candidates
		if len(top) > statsTopCandidates {
			top = top[:statsTopCandidates]
		}
		sb.WriteString("\nTop removal candidates:\n\n")
		sb.WriteString(output.RenderCandidateTable(top))
		sb.WriteString("\nRun 'macsweep clean --dry-run' to see the full plan.\n")
	}

	fmt.Print(sb.String())
	return nil
}

const statsTopCandidates = 10
