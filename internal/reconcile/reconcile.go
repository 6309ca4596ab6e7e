// Package reconcile merges raw scan results into the package registry.
// Scans fan out across sources concurrently; reconciliation itself is
// serial because SQLite allows one writer.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/blackwell-systems/macsweep/internal/sizecache"
	"github.com/blackwell-systems/macsweep/internal/source"
	"github.com/blackwell-systems/macsweep/internal/store"
	"github.com/blackwell-systems/macsweep/internal/usage"
)

// Result summarizes one reconciliation pass.
type Result struct {
	Scope     string // "full" or "partial"
	Sources   []source.Source
	Found     int
	Inserted  int
	Updated   int
	Unchanged int
	Pruned    int
	Events    int
	Duration  time.Duration
	// Failed holds per-source scan errors. A failed source never prunes:
	// absence of evidence from a broken scanner is not evidence of
	// absence.
	Failed map[source.Source]error
}

// Reconciler drives scan, merge, and prune.
type Reconciler struct {
	store     *store.Store
	registry  *source.Registry
	sizes     *sizecache.Cache
	harvester *usage.Harvester
	log       *slog.Logger
	now       func() time.Time
}

// New creates a reconciler. harvester may be nil to skip usage
// collection (used by tests and by --no-usage scans).
func New(st *store.Store, reg *source.Registry, sizes *sizecache.Cache, h *usage.Harvester, log *slog.Logger) *Reconciler {
	if log == nil {
		log = slog.Default()
	}
	return &Reconciler{
		store:     st,
		registry:  reg,
		sizes:     sizes,
		harvester: h,
		log:       log,
		now:       time.Now,
	}
}

// staleLockAge bounds how long a source lock from an interrupted run
// survives before a new full scan clears it.
const staleLockAge = time.Hour

// sourceBatch is one source's scan output.
type sourceBatch struct {
	src     source.Source
	records []source.Record
	err     error
}

// Run scans the given sources and reconciles the results. A full run
// covers every available source and prunes registry rows the scan no
// longer observed; a partial run (explicit source subset) never prunes.
// A quick run covers every source too, but skips size resolution and
// usage collection and never prunes: it refreshes what is installed
// without paying for directory walks or history parsing.
func (r *Reconciler) Run(ctx context.Context, srcs []source.Source, quick bool) (*Result, error) {
	covering := len(srcs) == 0
	if covering {
		srcs = r.availableSources()
	}
	if len(srcs) == 0 {
		return nil, fmt.Errorf("no package sources available on this host")
	}
	full := covering && !quick

	scope := "partial"
	switch {
	case full:
		scope = "full"
	case quick && covering:
		scope = "quick"
	}

	owner := fmt.Sprintf("scan-%d", os.Getpid())
	if full {
		if n, err := r.store.ReleaseStaleLocks(staleLockAge); err == nil && n > 0 {
			r.log.Warn("cleared stale source locks", "count", n)
		}
		// Full scans prune, so they must not interleave with a cleanup
		// touching the same sources.
		if err := r.store.AcquireSourceLocks(srcs, owner); err != nil {
			return nil, err
		}
		defer r.store.ReleaseSourceLocks(owner)
	}

	started := r.now()
	batches := r.scanAll(ctx, srcs)

	result := &Result{
		Scope:   scope,
		Sources: srcs,
		Failed:  make(map[source.Source]error),
	}

	for _, batch := range batches {
		if batch.err != nil {
			r.log.Warn("source scan failed", "source", batch.src, "error", batch.err)
			result.Failed[batch.src] = batch.err
			continue
		}
		if err := r.merge(ctx, batch, result, quick); err != nil {
			return nil, err
		}
		if full {
			seen := make(map[string]bool, len(batch.records))
			for _, rec := range batch.records {
				seen[rec.Name] = true
			}
			pruned, err := r.store.PruneMissing(batch.src, seen)
			if err != nil {
				return nil, err
			}
			result.Pruned += pruned
		}
	}

	result.Duration = r.now().Sub(started)
	run := &store.ScanRun{
		StartedAt: started,
		Duration:  result.Duration,
		Scope:     scope,
		Sources:   store.JoinSources(srcs),
		Found:     result.Found,
		Inserted:  result.Inserted,
		Updated:   result.Updated,
		Pruned:    result.Pruned,
	}
	if err := r.store.RecordScan(run); err != nil {
		return nil, err
	}

	r.log.Info("scan complete",
		"scope", scope,
		"found", result.Found,
		"inserted", result.Inserted,
		"updated", result.Updated,
		"pruned", result.Pruned,
		"failed", len(result.Failed),
		"duration", result.Duration)
	return result, nil
}

func (r *Reconciler) availableSources() []source.Source {
	var srcs []source.Source
	for _, s := range r.registry.Sources() {
		h, _ := r.registry.Handler(s)
		if h.Available() {
			srcs = append(srcs, s)
		}
	}
	return srcs
}

// scanAll fans scans out across sources. Per-source failures are carried
// in the batch, never aborting sibling scans; only context cancellation
// stops the group.
func (r *Reconciler) scanAll(ctx context.Context, srcs []source.Source) []sourceBatch {
	batches := make([]sourceBatch, len(srcs))
	g, ctx := errgroup.WithContext(ctx)
	for i, src := range srcs {
		i, src := i, src
		g.Go(func() error {
			h, ok := r.registry.Handler(src)
			if !ok {
				batches[i] = sourceBatch{src: src, err: fmt.Errorf("no handler for source %s", src)}
				return nil
			}
			records, err := h.Scan(ctx)
			batches[i] = sourceBatch{src: src, records: records, err: err}
			return nil
		})
	}
	g.Wait()
	return batches
}

func (r *Reconciler) merge(ctx context.Context, batch sourceBatch, result *Result, quick bool) error {
	handler, _ := r.registry.Handler(batch.src)
	now := r.now()

	for _, rec := range batch.records {
		if err := ctx.Err(); err != nil {
			return err
		}
		result.Found++

		pkg := &store.Package{
			Name:         rec.Name,
			Source:       rec.Source,
			Version:      rec.Version,
			InstallDate:  rec.InstallDate,
			BinaryPath:   rec.BinaryPath,
			SizeBytes:    rec.SizeBytes,
			IsDependency: rec.IsDependency,
			Dependencies: rec.Dependencies,
		}
		if pkg.SizeBytes == 0 && r.sizes != nil && !quick {
			if size, err := r.sizes.Resolve(r.payloadPath(handler, rec)); err == nil {
				pkg.SizeBytes = size
			} else {
				r.log.Debug("size resolution failed", "package", rec.Name, "error", err)
			}
		}

		outcome, err := r.store.UpsertPackage(pkg, now)
		if err != nil {
			return err
		}
		switch outcome {
		case store.Inserted:
			result.Inserted++
		case store.Updated:
			result.Updated++
		case store.Unchanged:
			result.Unchanged++
		}

		if r.harvester != nil && !quick {
			for _, ev := range r.harvester.Collect(ctx, rec.Name, rec.BinaryPath) {
				inserted, err := r.store.InsertUsageEvent(store.UsageEvent{
					PackageID: pkg.ID,
					EventType: string(ev.Kind),
					Date:      ev.Date,
					Detail:    ev.Detail,
				})
				if err != nil {
					return err
				}
				if inserted {
					result.Events++
				}
			}
		}
	}
	return nil
}

func (r *Reconciler) payloadPath(h source.Handler, rec source.Record) string {
	if pp, ok := h.(source.PayloadPather); ok {
		if p := pp.PayloadPath(rec); p != "" {
			return p
		}
	}
	return rec.BinaryPath
}
