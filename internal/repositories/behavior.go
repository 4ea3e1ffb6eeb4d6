package repositories

import (
	"database/sql"
	"errors"
	"fmt"

	"cadence/internal/models"
	"cadence/internal/shared"
)

// BehaviorRepository persists [models.BehaviorRecord], one row per track
// fingerprint. Rows are created by [TrackRepository.Upsert]; updating an
// unknown fingerprint is a contract violation surfaced as
// [shared.ErrNotFound].
type BehaviorRepository struct {
	db *sql.DB
}

// NewBehaviorRepository creates a new BehaviorRepository with the given database connection
func NewBehaviorRepository(db *sql.DB) *BehaviorRepository {
	return &BehaviorRepository{db: db}
}

// Get retrieves the behavior record for a fingerprint.
func (r *BehaviorRepository) Get(fp models.Fingerprint) (*models.BehaviorRecord, error) {
	row := r.db.QueryRow(selectBehavior+" WHERE fingerprint = ?", string(fp))
	record, err := scanBehavior(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrNotFound, fp)
	}
	if err != nil {
		return nil, storageErr("get behavior", err)
	}
	return record, nil
}

// Mutate applies fn to the stored record inside a single transaction. The
// read and write share the transaction, which is what serializes writers
// to the same fingerprint while leaving other keys untouched.
func (r *BehaviorRepository) Mutate(fp models.Fingerprint, fn func(rec *models.BehaviorRecord)) error {
	return withTx(r.db, func(tx *sql.Tx) error {
		row := tx.QueryRow(selectBehavior+" WHERE fingerprint = ?", string(fp))
		record, err := scanBehavior(row)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s", shared.ErrNotFound, fp)
		}
		if err != nil {
			return storageErr("read behavior", err)
		}

		fn(record)

		var lastPlayed any
		if !record.LastPlayedAt.IsZero() {
			lastPlayed = record.LastPlayedAt
		}

		if _, err := tx.Exec(`
			UPDATE behaviors
			SET play_count = ?, skip_count = ?, completed_count = ?,
			    listened_secs = ?, affinity = ?, last_played_at = ?
			WHERE fingerprint = ?`,
			record.PlayCount,
			record.SkipCount,
			record.CompletedCount,
			record.ListenedSecs,
			record.Affinity,
			lastPlayed,
			string(fp),
		); err != nil {
			return storageErr("write behavior", err)
		}

		return nil
	})
}

// All retrieves every behavior record keyed by fingerprint. The selection
// engine uses this to weight a draw over the active track list.
func (r *BehaviorRepository) All() (map[models.Fingerprint]models.BehaviorRecord, error) {
	rows, err := r.db.Query(selectBehavior)
	if err != nil {
		return nil, storageErr("list behaviors", err)
	}
	defer rows.Close()

	records := make(map[models.Fingerprint]models.BehaviorRecord)
	for rows.Next() {
		record, err := scanBehavior(rows)
		if err != nil {
			return nil, storageErr("scan behavior row", err)
		}
		records[record.Fingerprint] = *record
	}

	if err := rows.Err(); err != nil {
		return nil, storageErr("row iteration", err)
	}

	return records, nil
}

const selectBehavior = `
	SELECT fingerprint, play_count, skip_count, completed_count,
	       listened_secs, affinity, last_played_at
	FROM behaviors
`

func scanBehavior(row rowScanner) (*models.BehaviorRecord, error) {
	var (
		record     models.BehaviorRecord
		fp         string
		lastPlayed sql.NullTime
	)

	err := row.Scan(
		&fp,
		&record.PlayCount,
		&record.SkipCount,
		&record.CompletedCount,
		&record.ListenedSecs,
		&record.Affinity,
		&lastPlayed,
	)
	if err != nil {
		return nil, err
	}

	record.Fingerprint = models.Fingerprint(fp)
	if lastPlayed.Valid {
		record.LastPlayedAt = lastPlayed.Time
	}

	return &record, nil
}
