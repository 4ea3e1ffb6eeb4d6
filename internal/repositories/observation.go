package repositories

import (
	"database/sql"
	"errors"
	"time"

	"cadence/internal/models"
)

// Observation is what the reconciler last saw at one filesystem path: the
// fingerprint the bytes resolved to plus the (size, mtime) pair used to
// decide whether the file must be rehashed on the next scan.
//
// Multiple paths may observe the same fingerprint — that is how duplicate
// byte-for-byte copies are recorded without creating a second track.
type Observation struct {
	Path        string
	Fingerprint models.Fingerprint
	Size        int64
	ModTime     time.Time
}

// ObservationRepository persists [Observation] rows keyed by path.
type ObservationRepository struct {
	db *sql.DB
}

// NewObservationRepository creates a new ObservationRepository with the given database connection
func NewObservationRepository(db *sql.DB) *ObservationRepository {
	return &ObservationRepository{db: db}
}

// Get returns the last observation at path, or false when the path has
// never been scanned.
func (r *ObservationRepository) Get(path string) (*Observation, bool, error) {
	var (
		obs Observation
		fp  string
	)

	err := r.db.QueryRow(
		"SELECT path, fingerprint, size, mtime FROM observations WHERE path = ?",
		path,
	).Scan(&obs.Path, &fp, &obs.Size, &obs.ModTime)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, storageErr("get observation", err)
	}

	obs.Fingerprint = models.Fingerprint(fp)
	return &obs, true, nil
}

// Put records or replaces the observation at a path.
func (r *ObservationRepository) Put(obs Observation) error {
	return withTx(r.db, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`
			INSERT INTO observations (path, fingerprint, size, mtime)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(path) DO UPDATE SET
				fingerprint = excluded.fingerprint,
				size = excluded.size,
				mtime = excluded.mtime`,
			obs.Path, string(obs.Fingerprint), obs.Size, obs.ModTime,
		); err != nil {
			return storageErr("put observation", err)
		}
		return nil
	})
}

// Delete forgets the observation at a path. Called when a scan finds the
// path gone.
func (r *ObservationRepository) Delete(path string) error {
	return withTx(r.db, func(tx *sql.Tx) error {
		if _, err := tx.Exec("DELETE FROM observations WHERE path = ?", path); err != nil {
			return storageErr("delete observation", err)
		}
		return nil
	})
}

// Paths returns every observed path. The reconciler diffs this set against
// what it just walked to find files that disappeared.
func (r *ObservationRepository) Paths() (map[string]models.Fingerprint, error) {
	rows, err := r.db.Query("SELECT path, fingerprint FROM observations")
	if err != nil {
		return nil, storageErr("list observations", err)
	}
	defer rows.Close()

	paths := make(map[string]models.Fingerprint)
	for rows.Next() {
		var path, fp string
		if err := rows.Scan(&path, &fp); err != nil {
			return nil, storageErr("scan observation row", err)
		}
		paths[path] = models.Fingerprint(fp)
	}

	if err := rows.Err(); err != nil {
		return nil, storageErr("row iteration", err)
	}

	return paths, nil
}
