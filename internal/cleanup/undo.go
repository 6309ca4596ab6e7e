package cleanup

import (
	"context"
	"fmt"
)

// UndoItem is one restoration attempt's result.
type UndoItem struct {
	Name    string
	Source  string
	Outcome Outcome
	Error   string
}

// UndoReport summarizes one undo run.
type UndoReport struct {
	ManifestID string
	Items      []UndoItem
	Restored   int
	Failed     int
}

// Undo reverses the removals recorded in a manifest, most recent when id
// is empty. Each item is attempted independently, and the manifest itself
// is never mutated, so a partially failed undo can simply be retried.
func (e *Engine) Undo(ctx context.Context, id string) (*UndoReport, error) {
	var manifest *Manifest
	var err error
	if id == "" {
		manifest, err = MostRecentManifest(e.dir)
	} else {
		manifest, err = LoadManifest(e.dir, id)
	}
	if err != nil {
		return nil, err
	}

	report := &UndoReport{ManifestID: manifest.ID}
	for _, it := range manifest.Items {
		if it.Outcome != OutcomeRemoved {
			continue
		}
		result := UndoItem{Name: it.Name, Source: string(it.Source)}

		if err := e.restore(ctx, it); err != nil {
			result.Outcome = OutcomeFailed
			result.Error = err.Error()
			report.Failed++
			e.log.Warn("restore failed", "package", it.Name, "source", it.Source, "error", err)
		} else {
			result.Outcome = OutcomeRestored
			report.Restored++
			e.log.Debug("restored", "package", it.Name, "source", it.Source)
		}
		report.Items = append(report.Items, result)
	}
	return report, nil
}

// restore reinstalls one package and re-inserts its registry row with the
// snapshot's original first_seen, preserving historical continuity.
func (e *Engine) restore(ctx context.Context, it Item) error {
	handler, ok := e.registry.Handler(it.Source)
	if !ok || !handler.Available() {
		return fmt.Errorf("no %s handler available", it.Source)
	}

	itemCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	if err := handler.Restore(itemCtx, it.Name, it.Version, it.BinaryPath); err != nil {
		return err
	}
	return e.store.InsertPackageSnapshot(it.toPackage())
}
