package store

import (
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/blackwell-systems/macsweep/internal/source"
)

// Package operations

// UpsertPackage reconciles one scan record into the registry. A new
// (name, source) pair is inserted with first_seen set to now; an existing
// row keeps its first_seen forever and is updated only when a mutable
// field actually changed. Every call refreshes last_seen. On return
// pkg.ID, pkg.FirstSeen, and pkg.LastSeen reflect the stored row.
func (s *Store) UpsertPackage(pkg *Package, now time.Time) (UpsertOutcome, error) {
	existing, err := s.GetPackage(pkg.Name, pkg.Source)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return Unchanged, err
	}

	if existing == nil {
		res, err := s.db.Exec(`
			INSERT INTO packages
			(name, source, version, install_date, binary_path, size_bytes, is_dependency, first_seen, last_seen)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			pkg.Name,
			string(pkg.Source),
			pkg.Version,
			formatTime(pkg.InstallDate),
			pkg.BinaryPath,
			pkg.SizeBytes,
			pkg.IsDependency,
			now.UTC().Format(time.RFC3339),
			now.UTC().Format(time.RFC3339),
		)
		if err != nil {
			return Unchanged, fmt.Errorf("failed to insert package %s: %w", pkg.Name, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return Unchanged, err
		}
		pkg.ID = id
		pkg.FirstSeen = now.UTC()
		pkg.LastSeen = now.UTC()
		if err := s.replaceDependencies(id, pkg.Dependencies); err != nil {
			return Unchanged, err
		}
		return Inserted, nil
	}

	pkg.ID = existing.ID
	pkg.FirstSeen = existing.FirstSeen

	// A scan record without a size keeps whatever size the registry
	// already holds; sizes are resolved lazily and must not be clobbered.
	size := pkg.SizeBytes
	if size == 0 {
		size = existing.SizeBytes
	}

	changed := pkg.Version != existing.Version ||
		pkg.BinaryPath != existing.BinaryPath ||
		pkg.IsDependency != existing.IsDependency ||
		size != existing.SizeBytes ||
		!sameInstallDate(pkg.InstallDate, existing.InstallDate) ||
		!sameDependencies(pkg.Dependencies, existing.Dependencies)

	if !changed {
		_, err := s.db.Exec(`UPDATE packages SET last_seen = ? WHERE id = ?`,
			now.UTC().Format(time.RFC3339), existing.ID)
		if err != nil {
			return Unchanged, fmt.Errorf("failed to touch package %s: %w", pkg.Name, err)
		}
		pkg.SizeBytes = size
		pkg.LastSeen = now.UTC()
		return Unchanged, nil
	}

	_, err = s.db.Exec(`
		UPDATE packages
		SET version = ?, install_date = ?, binary_path = ?, size_bytes = ?, is_dependency = ?, last_seen = ?
		WHERE id = ?`,
		pkg.Version,
		formatTime(pkg.InstallDate),
		pkg.BinaryPath,
		size,
		pkg.IsDependency,
		now.UTC().Format(time.RFC3339),
		existing.ID,
	)
	if err != nil {
		return Unchanged, fmt.Errorf("failed to update package %s: %w", pkg.Name, err)
	}
	pkg.SizeBytes = size
	pkg.LastSeen = now.UTC()
	if err := s.replaceDependencies(existing.ID, pkg.Dependencies); err != nil {
		return Unchanged, err
	}
	return Updated, nil
}

// InsertPackageSnapshot re-inserts a package from a cleanup manifest,
// preserving its original first_seen. Used by undo. A row that already
// exists for the identity is updated in place rather than rejected, so a
// retried undo is a no-op for items restored by an earlier attempt.
func (s *Store) InsertPackageSnapshot(pkg *Package) error {
	_, err := s.db.Exec(`
		INSERT INTO packages
		(name, source, version, install_date, binary_path, size_bytes, is_dependency, first_seen, last_seen)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name, source) DO UPDATE SET
			version = excluded.version,
			install_date = excluded.install_date,
			binary_path = excluded.binary_path,
			size_bytes = excluded.size_bytes,
			is_dependency = excluded.is_dependency,
			last_seen = excluded.last_seen`,
		pkg.Name,
		string(pkg.Source),
		pkg.Version,
		formatTime(pkg.InstallDate),
		pkg.BinaryPath,
		pkg.SizeBytes,
		pkg.IsDependency,
		pkg.FirstSeen.UTC().Format(time.RFC3339),
		pkg.LastSeen.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to restore package %s: %w", pkg.Name, err)
	}
	var id int64
	if err := s.db.QueryRow(
		`SELECT id FROM packages WHERE name = ? AND source = ?`,
		pkg.Name, string(pkg.Source)).Scan(&id); err != nil {
		return fmt.Errorf("failed to restore package %s: %w", pkg.Name, err)
	}
	pkg.ID = id
	return s.replaceDependencies(id, pkg.Dependencies)
}

// GetPackage retrieves a package by name and source.
func (s *Store) GetPackage(name string, src source.Source) (*Package, error) {
	row := s.db.QueryRow(`
		SELECT id, name, source, version, install_date, binary_path, size_bytes, is_dependency, first_seen, last_seen
		FROM packages
		WHERE name = ? AND source = ?`,
		name, string(src))

	pkg, err := scanPackage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s (%s): %w", name, src, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get package %s: %w", name, notInitialized(err))
	}
	pkg.Dependencies, err = s.loadDependencies(pkg.ID)
	if err != nil {
		return nil, err
	}
	return pkg, nil
}

// ListPackages returns every package, optionally filtered by source.
// Pass "" to list all sources.
func (s *Store) ListPackages(src source.Source) ([]*Package, error) {
	query := `
		SELECT id, name, source, version, install_date, binary_path, size_bytes, is_dependency, first_seen, last_seen
		FROM packages`
	args := []any{}
	if src != "" {
		query += ` WHERE source = ?`
		args = append(args, string(src))
	}
	query += ` ORDER BY source, name`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list packages: %w", notInitialized(err))
	}
	defer rows.Close()

	var packages []*Package
	for rows.Next() {
		pkg, err := scanPackage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan package row: %w", err)
		}
		packages = append(packages, pkg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating packages: %w", err)
	}

	for _, pkg := range packages {
		pkg.Dependencies, err = s.loadDependencies(pkg.ID)
		if err != nil {
			return nil, err
		}
	}
	return packages, nil
}

// DeletePackage removes a package and its dependency edges and events.
func (s *Store) DeletePackage(name string, src source.Source) error {
	result, err := s.db.Exec(`DELETE FROM packages WHERE name = ? AND source = ?`,
		name, string(src))
	if err != nil {
		return fmt.Errorf("failed to delete package %s: %w", name, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s (%s): %w", name, src, ErrNotFound)
	}
	return nil
}

// PruneMissing deletes packages of the given source that a full scan no
// longer observed. seen maps package names still present on the host.
func (s *Store) PruneMissing(src source.Source, seen map[string]bool) (int, error) {
	rows, err := s.db.Query(`SELECT name FROM packages WHERE source = ?`, string(src))
	if err != nil {
		return 0, fmt.Errorf("failed to list %s packages: %w", src, err)
	}
	var stale []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return 0, err
		}
		if !seen[name] {
			stale = append(stale, name)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	for _, name := range stale {
		if _, err := s.db.Exec(`DELETE FROM packages WHERE name = ? AND source = ?`,
			name, string(src)); err != nil {
			return 0, fmt.Errorf("failed to prune package %s: %w", name, err)
		}
	}
	return len(stale), nil
}

// CountPackages returns the number of registry rows.
func (s *Store) CountPackages() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM packages`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count packages: %w", notInitialized(err))
	}
	return n, nil
}

// UpdatePackageSize records a lazily resolved on-disk size.
func (s *Store) UpdatePackageSize(id int64, size int64) error {
	_, err := s.db.Exec(`UPDATE packages SET size_bytes = ? WHERE id = ?`, size, id)
	if err != nil {
		return fmt.Errorf("failed to update size for package %d: %w", id, err)
	}
	return nil
}

// Usage event operations

// InsertUsageEvent records a usage signal, deduplicated at calendar-day
// granularity. Returns true when a new row was written.
func (s *Store) InsertUsageEvent(ev UsageEvent) (bool, error) {
	res, err := s.db.Exec(`
		INSERT INTO usage_events (package_id, event_type, event_date, detail)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (package_id, event_type, event_date) DO NOTHING`,
		ev.PackageID, ev.EventType, ev.Date.UTC().Format(dayFormat), ev.Detail)
	if err != nil {
		return false, fmt.Errorf("failed to insert usage event: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// EventsForPackage returns every recorded event for one package, newest
// first.
func (s *Store) EventsForPackage(packageID int64) ([]UsageEvent, error) {
	return s.queryEvents(`
		SELECT package_id, event_type, event_date, detail
		FROM usage_events
		WHERE package_id = ?
		ORDER BY event_date DESC, event_type`, packageID)
}

// AllUsageEvents returns every event grouped by package ID.
func (s *Store) AllUsageEvents() (map[int64][]UsageEvent, error) {
	events, err := s.queryEvents(`
		SELECT package_id, event_type, event_date, detail
		FROM usage_events
		ORDER BY event_date DESC, event_type`)
	if err != nil {
		return nil, err
	}
	out := make(map[int64][]UsageEvent)
	for _, ev := range events {
		out[ev.PackageID] = append(out[ev.PackageID], ev)
	}
	return out, nil
}

func (s *Store) queryEvents(query string, args ...any) ([]UsageEvent, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query usage events: %w", err)
	}
	defer rows.Close()

	var events []UsageEvent
	for rows.Next() {
		var ev UsageEvent
		var day string
		var detail sql.NullString
		if err := rows.Scan(&ev.PackageID, &ev.EventType, &day, &detail); err != nil {
			return nil, fmt.Errorf("failed to scan usage event: %w", err)
		}
		ev.Date, err = time.ParseInLocation(dayFormat, day, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("failed to parse event date %q: %w", day, err)
		}
		ev.Detail = detail.String
		events = append(events, ev)
	}
	return events, rows.Err()
}

// History operations

// RecordScan appends one scan run to the history.
func (s *Store) RecordScan(run *ScanRun) error {
	res, err := s.db.Exec(`
		INSERT INTO scans (started_at, duration_ms, scope, sources, found, inserted, updated, pruned)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.StartedAt.UTC().Format(time.RFC3339),
		run.Duration.Milliseconds(),
		run.Scope,
		run.Sources,
		run.Found,
		run.Inserted,
		run.Updated,
		run.Pruned,
	)
	if err != nil {
		return fmt.Errorf("failed to record scan: %w", err)
	}
	run.ID, err = res.LastInsertId()
	return err
}

// ListScans returns the most recent scan runs, newest first.
func (s *Store) ListScans(limit int) ([]*ScanRun, error) {
	rows, err := s.db.Query(`
		SELECT id, started_at, duration_ms, scope, sources, found, inserted, updated, pruned
		FROM scans
		ORDER BY id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list scans: %w", err)
	}
	defer rows.Close()

	var runs []*ScanRun
	for rows.Next() {
		var run ScanRun
		var started string
		var ms int64
		if err := rows.Scan(&run.ID, &started, &ms, &run.Scope, &run.Sources,
			&run.Found, &run.Inserted, &run.Updated, &run.Pruned); err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		run.StartedAt, err = time.Parse(time.RFC3339, started)
		if err != nil {
			return nil, err
		}
		run.Duration = time.Duration(ms) * time.Millisecond
		runs = append(runs, &run)
	}
	return runs, rows.Err()
}

// RecordCleanup appends one cleanup run to the history.
func (s *Store) RecordCleanup(c *CleanupRecord) error {
	res, err := s.db.Exec(`
		INSERT INTO cleanups (manifest_id, created_at, state, removed, failed, skipped, bytes_freed)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ManifestID,
		c.CreatedAt.UTC().Format(time.RFC3339),
		c.State,
		c.Removed,
		c.Failed,
		c.Skipped,
		c.BytesFreed,
	)
	if err != nil {
		return fmt.Errorf("failed to record cleanup: %w", err)
	}
	c.ID, err = res.LastInsertId()
	return err
}

// ListCleanups returns the most recent cleanup runs, newest first.
func (s *Store) ListCleanups(limit int) ([]*CleanupRecord, error) {
	rows, err := s.db.Query(`
		SELECT id, manifest_id, created_at, state, removed, failed, skipped, bytes_freed
		FROM cleanups
		ORDER BY id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list cleanups: %w", err)
	}
	defer rows.Close()

	var records []*CleanupRecord
	for rows.Next() {
		var c CleanupRecord
		var created string
		if err := rows.Scan(&c.ID, &c.ManifestID, &created, &c.State,
			&c.Removed, &c.Failed, &c.Skipped, &c.BytesFreed); err != nil {
			return nil, fmt.Errorf("failed to scan cleanup row: %w", err)
		}
		c.CreatedAt, err = time.Parse(time.RFC3339, created)
		if err != nil {
			return nil, err
		}
		records = append(records, &c)
	}
	return records, rows.Err()
}

// Helpers

// notInitialized maps "no such table" failures to ErrNotInitialized so
// callers can distinguish a never-scanned database from a real error.
func notInitialized(err error) error {
	if err != nil && strings.Contains(err.Error(), "no such table") {
		return fmt.Errorf("%w (%v)", ErrNotInitialized, err)
	}
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPackage(row rowScanner) (*Package, error) {
	var pkg Package
	var src string
	var installDate, firstSeen, lastSeen sql.NullString
	var version, binaryPath sql.NullString

	err := row.Scan(
		&pkg.ID,
		&pkg.Name,
		&src,
		&version,
		&installDate,
		&binaryPath,
		&pkg.SizeBytes,
		&pkg.IsDependency,
		&firstSeen,
		&lastSeen,
	)
	if err != nil {
		return nil, err
	}
	pkg.Source = source.Source(src)
	pkg.Version = version.String
	pkg.BinaryPath = binaryPath.String
	if pkg.InstallDate, err = parseTime(installDate.String); err != nil {
		return nil, err
	}
	if pkg.FirstSeen, err = parseTime(firstSeen.String); err != nil {
		return nil, err
	}
	if pkg.LastSeen, err = parseTime(lastSeen.String); err != nil {
		return nil, err
	}
	return &pkg, nil
}

func (s *Store) loadDependencies(packageID int64) ([]string, error) {
	rows, err := s.db.Query(`
		SELECT depends_on FROM package_dependencies
		WHERE package_id = ?
		ORDER BY depends_on`, packageID)
	if err != nil {
		return nil, fmt.Errorf("failed to load dependencies: %w", err)
	}
	defer rows.Close()

	var deps []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		deps = append(deps, d)
	}
	return deps, rows.Err()
}

func (s *Store) replaceDependencies(packageID int64, deps []string) error {
	if _, err := s.db.Exec(`DELETE FROM package_dependencies WHERE package_id = ?`,
		packageID); err != nil {
		return fmt.Errorf("failed to clear dependencies: %w", err)
	}
	for _, d := range deps {
		if _, err := s.db.Exec(`
			INSERT OR IGNORE INTO package_dependencies (package_id, depends_on)
			VALUES (?, ?)`, packageID, d); err != nil {
			return fmt.Errorf("failed to insert dependency %s: %w", d, err)
		}
	}
	return nil
}

func formatTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse timestamp %q: %w", s, err)
	}
	return t, nil
}

func sameInstallDate(a, b time.Time) bool {
	if a.IsZero() || b.IsZero() {
		return a.IsZero() == b.IsZero()
	}
	return a.Equal(b)
}

func sameDependencies(a, b []string) bool {
	as := slices.Clone(a)
	bs := slices.Clone(b)
	slices.Sort(as)
	slices.Sort(bs)
	return slices.Equal(as, bs)
}

// JoinSources formats a source list for the scans table.
func JoinSources(srcs []source.Source) string {
	parts := make([]string, len(srcs))
	for i, s := range srcs {
		parts[i] = string(s)
	}
	return strings.Join(parts, ",")
}
