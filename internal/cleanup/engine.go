package cleanup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/blackwell-systems/macsweep/internal/source"
	"github.com/blackwell-systems/macsweep/internal/store"
)

// ErrAborted is returned when a run is cancelled before any removal
// began; the registry and backup directory are untouched.
var ErrAborted = errors.New("cleanup aborted")

const (
	defaultConcurrency = 4
	defaultItemTimeout = 2 * time.Minute
	staleLockAge       = time.Hour
)

// Engine executes cleanup runs against the registry and the per-source
// handlers.
type Engine struct {
	store    *store.Store
	registry *source.Registry
	dir      string
	limit    int64
	timeout  time.Duration
	log      *slog.Logger
	now      func() time.Time

	// Progress, when set, is called once per finished item during Apply.
	// It must be safe for concurrent use.
	Progress func()
}

// NewEngine creates an engine writing manifests under dir. concurrency
// bounds simultaneous removal attempts; itemTimeout bounds each external
// uninstall call. Zero values select defaults.
func NewEngine(st *store.Store, reg *source.Registry, dir string, concurrency int, itemTimeout time.Duration, log *slog.Logger) *Engine {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	if itemTimeout <= 0 {
		itemTimeout = defaultItemTimeout
	}
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		store:    st,
		registry: reg,
		dir:      dir,
		limit:    int64(concurrency),
		timeout:  itemTimeout,
		log:      log,
		now:      time.Now,
	}
}

// Plan is the reviewable form of a cleanup run. Building one has no side
// effects; dry-run output is exactly a plan.
type Plan struct {
	Items      []Item
	TotalBytes int64
}

// Plan builds one line item per package with its source-specific removal
// action.
func (e *Engine) Plan(pkgs []*store.Package) *Plan {
	p := &Plan{}
	for _, pkg := range pkgs {
		p.Items = append(p.Items, itemFromPackage(pkg, removalAction(pkg.Source, pkg.Name)))
		p.TotalBytes += pkg.SizeBytes
	}
	return p
}

func removalAction(src source.Source, name string) string {
	switch src {
	case source.Homebrew:
		return "brew uninstall " + name
	case source.Cask:
		return "brew uninstall --cask " + name
	case source.Npm:
		return "npm uninstall -g " + name
	case source.Pip:
		return "pip3 uninstall -y " + name
	case source.Pipx:
		return "pipx uninstall " + name
	case source.Cargo:
		return "cargo uninstall " + name
	case source.Gem:
		return "gem uninstall " + name
	case source.Applications:
		return "move " + name + ".app to Trash"
	}
	return "remove " + name
}

// Apply executes a plan. The manifest is durably written before the
// first removal attempt; items are then attempted independently under
// the concurrency limit, each bounded by the per-item timeout. Only
// items that actually came out Removed leave the registry.
func (e *Engine) Apply(ctx context.Context, plan *Plan) (*Manifest, error) {
	if len(plan.Items) == 0 {
		return nil, fmt.Errorf("nothing to clean")
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAborted, err)
	}

	owner := fmt.Sprintf("cleanup-%d", os.Getpid())
	if n, err := e.store.ReleaseStaleLocks(staleLockAge); err == nil && n > 0 {
		e.log.Warn("cleared stale source locks", "count", n)
	}
	if err := e.store.AcquireSourceLocks(planSources(plan), owner); err != nil {
		return nil, err
	}
	defer e.store.ReleaseSourceLocks(owner)

	manifest := &Manifest{
		ID:        manifestID(e.now()),
		CreatedAt: e.now().UTC(),
		State:     StatePlanned,
		Items:     plan.Items,
	}

	// The barrier: no removal may begin before its covering manifest is
	// on disk. A manifest write failure is fatal and leaves everything
	// untouched.
	if err := manifest.Write(e.dir); err != nil {
		return nil, fmt.Errorf("refusing to remove anything: %w", err)
	}

	sem := semaphore.NewWeighted(e.limit)
	var wg sync.WaitGroup
	for i := range manifest.Items {
		if err := sem.Acquire(ctx, 1); err != nil {
			// Cancelled mid-run: remaining items stay planned and are
			// reported as skipped.
			manifest.Items[i].Outcome = OutcomeSkipped
			manifest.Items[i].Error = "cancelled before attempt"
			continue
		}
		wg.Add(1)
		i := i
		go func() {
			defer wg.Done()
			defer sem.Release(1)
			e.attempt(ctx, &manifest.Items[i])
			if e.Progress != nil {
				e.Progress()
			}
		}()
	}
	wg.Wait()

	var removed, failed, skipped int
	var freed int64
	for _, it := range manifest.Items {
		switch it.Outcome {
		case OutcomeRemoved:
			removed++
			freed += it.SizeBytes
			if err := e.store.DeletePackage(it.Name, it.Source); err != nil && !errors.Is(err, store.ErrNotFound) {
				return nil, err
			}
		case OutcomeFailed:
			failed++
		case OutcomeSkipped:
			skipped++
		}
	}

	// Skips (unavailable handler, cancellation before the attempt) are
	// not failures; only a Failed outcome marks the run.
	manifest.State = StateCompleted
	if failed > 0 {
		manifest.State = StateCompletedWithFailures
	}
	if err := manifest.Write(e.dir); err != nil {
		return nil, err
	}

	if err := e.store.RecordCleanup(&store.CleanupRecord{
		ManifestID: manifest.ID,
		CreatedAt:  manifest.CreatedAt,
		State:      string(manifest.State),
		Removed:    removed,
		Failed:     failed,
		Skipped:    skipped,
		BytesFreed: freed,
	}); err != nil {
		return nil, err
	}

	e.log.Info("cleanup complete",
		"manifest", manifest.ID,
		"state", manifest.State,
		"removed", removed,
		"failed", failed,
		"skipped", skipped,
		"freed", freed)
	return manifest, nil
}

// attempt runs one removal under the per-item timeout. A hung package
// manager fails that item, never the batch.
func (e *Engine) attempt(ctx context.Context, it *Item) {
	handler, ok := e.registry.Handler(it.Source)
	if !ok || !handler.Available() {
		it.Outcome = OutcomeSkipped
		it.Error = fmt.Sprintf("no %s handler available", it.Source)
		return
	}

	itemCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	if err := handler.Remove(itemCtx, it.Name, it.BinaryPath); err != nil {
		it.Outcome = OutcomeFailed
		if errors.Is(err, context.DeadlineExceeded) || source.IsTimeout(err) {
			it.Error = fmt.Sprintf("timeout after %s", e.timeout)
		} else {
			it.Error = err.Error()
		}
		e.log.Warn("removal failed", "package", it.Name, "source", it.Source, "error", it.Error)
		return
	}
	it.Outcome = OutcomeRemoved
	e.log.Debug("removed", "package", it.Name, "source", it.Source)
}

func planSources(plan *Plan) []source.Source {
	seen := make(map[source.Source]bool)
	var out []source.Source
	for _, it := range plan.Items {
		if !seen[it.Source] {
			seen[it.Source] = true
			out = append(out, it.Source)
		}
	}
	return out
}
