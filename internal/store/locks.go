package store

import (
	"fmt"
	"slices"
	"time"

	"github.com/blackwell-systems/macsweep/internal/source"
)

// Per-source advisory locks. A full scan and a cleanup run that touch the
// same source must not interleave: the scan could resurrect rows the
// cleanup is deleting, or prune rows mid-removal. Locks are acquired in
// sorted order inside one transaction so two racing operations cannot
// deadlock, and released by owner so a crashed run can be cleared with
// ReleaseStaleLocks.

// AcquireSourceLocks takes the locks for the given sources on behalf of
// owner. It fails with ErrSourceLocked if any source is already held.
func (s *Store) AcquireSourceLocks(srcs []source.Source, owner string) error {
	sorted := slices.Clone(srcs)
	slices.Sort(sorted)

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin lock transaction: %w", err)
	}
	defer tx.Rollback()

	for _, src := range sorted {
		var holder string
		err := tx.QueryRow(`SELECT owner FROM source_locks WHERE source = ?`,
			string(src)).Scan(&holder)
		if err == nil {
			return fmt.Errorf("source %s held by %s: %w", src, holder, ErrSourceLocked)
		}
		if _, err := tx.Exec(`
			INSERT INTO source_locks (source, owner, acquired_at)
			VALUES (?, ?, ?)`,
			string(src), owner, time.Now().UTC().Format(time.RFC3339)); err != nil {
			return fmt.Errorf("failed to lock source %s: %w", src, err)
		}
	}
	return tx.Commit()
}

// ReleaseSourceLocks drops every lock held by owner.
func (s *Store) ReleaseSourceLocks(owner string) error {
	if _, err := s.db.Exec(`DELETE FROM source_locks WHERE owner = ?`, owner); err != nil {
		return fmt.Errorf("failed to release locks for %s: %w", owner, err)
	}
	return nil
}

// ReleaseStaleLocks clears locks at least maxAge old, left behind by
// interrupted runs. Returns the number of locks cleared. Timestamps are
// second-granular, so the comparison is inclusive: a lock acquired in
// the same second as the cutoff counts as stale.
func (s *Store) ReleaseStaleLocks(maxAge time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-maxAge).Format(time.RFC3339)
	res, err := s.db.Exec(`DELETE FROM source_locks WHERE acquired_at <= ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to clear stale locks: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}
