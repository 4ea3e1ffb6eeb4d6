// package repositories is the persistence layer of the catalog.
//
// Each repository wraps the shared *sql.DB and performs every write as one
// short transaction keyed by fingerprint, so a long reconciler scan never
// holds a lock across files and playback-driven behavior updates interleave
// freely. Readers only ever observe committed whole rows.
package repositories

import (
	"database/sql"
	"fmt"

	"cadence/internal/shared"
)

// withTx runs fn inside a transaction, committing on success and rolling
// back on error. Storage failures are wrapped in [shared.ErrStorage] so
// callers can distinguish them from contract violations like
// [shared.ErrNotFound].
func withTx(db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("%w: failed to begin transaction: %v", shared.ErrStorage, err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: failed to commit: %v", shared.ErrStorage, err)
	}

	return nil
}

// storageErr wraps a low-level database error with context under
// [shared.ErrStorage].
func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", shared.ErrStorage, op, err)
}
