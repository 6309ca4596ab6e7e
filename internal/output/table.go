// Package output renders macsweep's terminal output: candidate and
// package tables, tier summaries, cleanup plans and reports, plus
// progress indicators for long scans. Tables are plain ASCII with ANSI
// colors when stdout is a terminal.
package output

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/blackwell-systems/macsweep/internal/analyzer"
	"github.com/blackwell-systems/macsweep/internal/cleanup"
	"github.com/blackwell-systems/macsweep/internal/reconcile"
	"github.com/blackwell-systems/macsweep/internal/store"
	"github.com/blackwell-systems/macsweep/internal/usage"
)

// RenderPackageTable renders the list view. profiles may be nil when
// usage columns are not wanted.
func RenderPackageTable(pkgs []*store.Package, profiles map[int64]usage.Profile) string {
	if len(pkgs) == 0 {
		return "No packages found.\n"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-24s %-13s %-12s %-9s %-14s %s\n",
		"Package", "Source", "Version", "Size", "Installed", "Last Used"))
	sb.WriteString(strings.Repeat("─", 92))
	sb.WriteString("\n")

	for _, pkg := range pkgs {
		lastUsed := "no usage data"
		if profiles != nil {
			if p, ok := profiles[pkg.ID]; ok && p.Used() {
				lastUsed = fmt.Sprintf("%s (%s)", formatRelativeTime(p.LastUsed), p.Signal.Display())
			}
		}
		sb.WriteString(fmt.Sprintf("%-24s %-13s %-12s %-9s %-14s %s\n",
			truncate(pkg.Name, 24),
			pkg.Source,
			truncate(pkg.Version, 12),
			formatSize(pkg.SizeBytes),
			formatRelativeTime(pkg.InstallDate),
			lastUsed))
	}
	return sb.String()
}

// RenderCandidateTable renders removal candidates, which arrive already
// ordered by tier, size, and name.
func RenderCandidateTable(candidates []analyzer.Candidate) string {
	if len(candidates) == 0 {
		return "Nothing to recommend; everything looks in use.\n"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-24s %-13s %-9s %-14s %-11s %s\n",
		"Package", "Source", "Size", "Last Used", "Tier", "Why"))
	sb.WriteString(strings.Repeat("─", 104))
	sb.WriteString("\n")

	for _, c := range candidates {
		lastUsed := "no usage data"
		if c.Profile.Used() {
			lastUsed = formatRelativeTime(c.Profile.LastUsed)
		}
		label := tierLabel(c.Severity)
		if IsColorEnabled() {
			label = tierColor(c.Severity) + label + colorReset
		}
		sb.WriteString(fmt.Sprintf("%-24s %-13s %-9s %-14s %-11s %s\n",
			truncate(c.Package.Name, 24),
			c.Package.Source,
			formatSize(c.Package.SizeBytes),
			lastUsed,
			label,
			c.Reason))
	}
	return sb.String()
}

// RenderTierSummary renders the one-line tier breakdown header.
// Format: "SAFE: 5 (43 MiB) · REVIEW: 19 (186 MiB) · WARNING: 3 (12 MiB)".
func RenderTierSummary(a *analyzer.Analysis) string {
	parts := make([]string, 0, 3)
	for _, sev := range []analyzer.Severity{analyzer.SeveritySafe, analyzer.SeverityReview, analyzer.SeverityWarning} {
		t := a.Tiers[sev]
		label := strings.ToUpper(string(sev))
		if IsColorEnabled() {
			label = tierColor(sev) + label + colorReset
		}
		parts = append(parts, fmt.Sprintf("%s: %d (%s)", label, t.Count, formatSize(t.Bytes)))
	}
	return strings.Join(parts, " · ") +
		fmt.Sprintf("\nReclaimable: %s across %d packages\n", formatSize(a.Total.Bytes), a.Total.Count)
}

// RenderPlanTable renders a cleanup plan for review before (or instead
// of) applying it.
func RenderPlanTable(plan *cleanup.Plan) string {
	if len(plan.Items) == 0 {
		return "Nothing to clean.\n"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-24s %-13s %-9s %s\n", "Package", "Source", "Size", "Action"))
	sb.WriteString(strings.Repeat("─", 84))
	sb.WriteString("\n")
	for _, it := range plan.Items {
		sb.WriteString(fmt.Sprintf("%-24s %-13s %-9s %s\n",
			truncate(it.Name, 24), it.Source, formatSize(it.SizeBytes), it.Action))
	}
	sb.WriteString(fmt.Sprintf("\n%d packages, %s reclaimable\n",
		len(plan.Items), formatSize(plan.TotalBytes)))
	return sb.String()
}

// RenderCleanupResult renders per-item outcomes after an apply.
func RenderCleanupResult(m *cleanup.Manifest) string {
	var sb strings.Builder
	var freed int64
	var removed, failed, skipped int

	for _, it := range m.Items {
		switch it.Outcome {
		case cleanup.OutcomeRemoved:
			removed++
			freed += it.SizeBytes
			sb.WriteString(fmt.Sprintf("  %s %s (%s)\n",
				colorize(colorGreen, "removed"), it.Name, formatSize(it.SizeBytes)))
		case cleanup.OutcomeFailed:
			failed++
			sb.WriteString(fmt.Sprintf("  %s  %s: %s\n",
				colorize(colorRed, "failed"), it.Name, it.Error))
		case cleanup.OutcomeSkipped:
			skipped++
			sb.WriteString(fmt.Sprintf("  %s %s: %s\n",
				colorize(colorGray, "skipped"), it.Name, it.Error))
		}
	}

	sb.WriteString(fmt.Sprintf("\n%d removed, %d failed, %d skipped; %s freed\n",
		removed, failed, skipped, formatSize(freed)))
	sb.WriteString(fmt.Sprintf("Backup manifest: %s (undo with 'macsweep undo')\n", m.ID))
	return sb.String()
}

// RenderUndoReport renders per-item restore outcomes.
func RenderUndoReport(r *cleanup.UndoReport) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Undoing %s\n", r.ManifestID))
	for _, it := range r.Items {
		if it.Outcome == cleanup.OutcomeRestored {
			sb.WriteString(fmt.Sprintf("  %s %s (%s)\n",
				colorize(colorGreen, "restored"), it.Name, it.Source))
		} else {
			sb.WriteString(fmt.Sprintf("  %s   %s (%s): %s\n",
				colorize(colorRed, "failed"), it.Name, it.Source, it.Error))
		}
	}
	sb.WriteString(fmt.Sprintf("\n%d restored, %d failed\n", r.Restored, r.Failed))
	return sb.String()
}

// RenderManifestTable lists recorded cleanup runs, newest first.
func RenderManifestTable(manifests []*cleanup.Manifest) string {
	if len(manifests) == 0 {
		return "No cleanup runs recorded.\n"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-26s %-16s %-26s %s\n", "Manifest", "Created", "State", "Items"))
	sb.WriteString(strings.Repeat("─", 84))
	sb.WriteString("\n")
	for _, m := range manifests {
		sb.WriteString(fmt.Sprintf("%-26s %-16s %-26s %d\n",
			m.ID, formatRelativeTime(m.CreatedAt), m.State, len(m.Items)))
	}
	return sb.String()
}

// RenderScanResult renders the post-scan summary line(s).
func RenderScanResult(res *reconcile.Result) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Scanned %d sources (%s): %d packages, %d new, %d updated, %d pruned",
		len(res.Sources), res.Scope, res.Found, res.Inserted, res.Updated, res.Pruned))
	if res.Events > 0 {
		sb.WriteString(fmt.Sprintf(", %d usage events", res.Events))
	}
	sb.WriteString(fmt.Sprintf(" in %s\n", res.Duration.Round(time.Millisecond)))
	for src, err := range res.Failed {
		sb.WriteString(colorize(colorYellow, fmt.Sprintf("warning: %s scan failed: %v\n", src, err)))
	}
	return sb.String()
}

// RenderScanHistory lists recent scan runs, newest first.
func RenderScanHistory(runs []*store.ScanRun) string {
	if len(runs) == 0 {
		return "No scans recorded.\n"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-16s %-9s %-24s %-7s %-5s %-8s %s\n",
		"When", "Scope", "Sources", "Found", "New", "Updated", "Pruned"))
	sb.WriteString(strings.Repeat("─", 84))
	sb.WriteString("\n")
	for _, r := range runs {
		sb.WriteString(fmt.Sprintf("%-16s %-9s %-24s %-7d %-5d %-8d %d\n",
			formatRelativeTime(r.StartedAt), r.Scope, truncate(r.Sources, 24),
			r.Found, r.Inserted, r.Updated, r.Pruned))
	}
	return sb.String()
}

// RenderUsageEvents lists the recorded usage evidence for one package,
// newest first.
func RenderUsageEvents(pkg *store.Package, events []store.UsageEvent) string {
	if len(events) == 0 {
		return fmt.Sprintf("No usage evidence recorded for %s (%s).\n", pkg.Name, pkg.Source)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Usage evidence for %s (%s):\n\n", pkg.Name, pkg.Source))
	sb.WriteString(fmt.Sprintf("%-12s %-15s %s\n", "Date", "Signal", "Detail"))
	sb.WriteString(strings.Repeat("─", 60))
	sb.WriteString("\n")
	for _, ev := range events {
		sb.WriteString(fmt.Sprintf("%-12s %-15s %s\n",
			ev.Date.Format("2006-01-02"), usage.Kind(ev.EventType).Display(), truncate(ev.Detail, 40)))
	}
	return sb.String()
}

// RenderCleanupHistory lists recent cleanup runs, newest first.
func RenderCleanupHistory(recs []*store.CleanupRecord) string {
	if len(recs) == 0 {
		return "No cleanups recorded.\n"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-26s %-16s %-26s %-8s %-7s %s\n",
		"Manifest", "When", "State", "Removed", "Failed", "Freed"))
	sb.WriteString(strings.Repeat("─", 96))
	sb.WriteString("\n")
	for _, r := range recs {
		sb.WriteString(fmt.Sprintf("%-26s %-16s %-26s %-8d %-7d %s\n",
			r.ManifestID, formatRelativeTime(r.CreatedAt), r.State,
			r.Removed, r.Failed, formatSize(r.BytesFreed)))
	}
	return sb.String()
}

// RenderPackageInfo renders the detail view for one package.
func RenderPackageInfo(pkg *store.Package, class analyzer.Class, profile usage.Profile, dependents []string) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s (%s)\n", pkg.Name, pkg.Source.Display()))
	sb.WriteString(strings.Repeat("─", 40))
	sb.WriteString("\n")

	write := func(k, v string) {
		sb.WriteString(fmt.Sprintf("%-14s %s\n", k+":", v))
	}
	if pkg.Version != "" {
		write("Version", pkg.Version)
	}
	write("Size", formatSize(pkg.SizeBytes))
	if pkg.BinaryPath != "" {
		write("Path", pkg.BinaryPath)
	}
	write("Installed", formatRelativeTime(pkg.InstallDate))
	write("First seen", formatRelativeTime(pkg.FirstSeen))
	write("Class", string(class))
	if pkg.IsDependency {
		write("Install type", "pulled in as a dependency")
	} else {
		write("Install type", "installed on request")
	}
	if len(pkg.Dependencies) > 0 {
		write("Depends on", strings.Join(pkg.Dependencies, ", "))
	}
	if len(dependents) > 0 {
		write("Needed by", strings.Join(dependents, ", "))
	}
	if profile.Used() {
		write("Last used", fmt.Sprintf("%s via %s (%d events)",
			formatRelativeTime(profile.LastUsed), profile.Signal.Display(), profile.EventCount))
	} else {
		write("Last used", "no usage data")
	}
	return sb.String()
}

// formatSize renders byte counts in binary units, "0 B" included.
func formatSize(bytes int64) string {
	if bytes < 0 {
		bytes = 0
	}
	return humanize.IBytes(uint64(bytes))
}

// formatRelativeTime converts a timestamp to relative time ("2 days ago").
func formatRelativeTime(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}

	diff := time.Since(t)
	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return plural(int(diff.Minutes()), "minute")
	case diff < 24*time.Hour:
		return plural(int(diff.Hours()), "hour")
	case diff < 7*24*time.Hour:
		return plural(int(diff.Hours()/24), "day")
	case diff < 30*24*time.Hour:
		return plural(int(diff.Hours()/24/7), "week")
	case diff < 365*24*time.Hour:
		return plural(int(diff.Hours()/24/30), "month")
	default:
		return plural(int(diff.Hours()/24/365), "year")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit + " ago"
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}

func tierLabel(sev analyzer.Severity) string {
	switch sev {
	case analyzer.SeveritySafe:
		return "✓ safe"
	case analyzer.SeverityReview:
		return "~ review"
	default:
		return "⚠ warning"
	}
}

func tierColor(sev analyzer.Severity) string {
	switch sev {
	case analyzer.SeveritySafe:
		return colorGreen
	case analyzer.SeverityReview:
		return colorYellow
	default:
		return colorRed
	}
}

// truncate shortens a string to maxLen, adding "..." when cut.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
