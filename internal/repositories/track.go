package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"cadence/internal/models"
	"cadence/internal/shared"
)

// TrackRepository persists [models.Track] keyed by content fingerprint.
//
// A track is never deleted when its file disappears; it is marked missing
// so its behavior history survives unmounted drives and interrupted
// downloads. Upserting the same fingerprint again resurrects it.
type TrackRepository struct {
	db *sql.DB
}

// NewTrackRepository creates a new TrackRepository with the given database connection
func NewTrackRepository(db *sql.DB) *TrackRepository {
	return &TrackRepository{db: db}
}

// Upsert inserts a new track, or refreshes the stored path, metadata, and
// last-seen time for an existing fingerprint. The missing flag is cleared
// either way. A behavior record is created alongside a new track so the
// two always exist together.
func (r *TrackRepository) Upsert(track *models.Track) error {
	return withTx(r.db, func(tx *sql.Tx) error {
		query := `
			INSERT INTO tracks (fingerprint, path, format, size, duration_secs, title, artist, album, missing, first_seen, last_seen)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)
			ON CONFLICT(fingerprint) DO UPDATE SET
				path = excluded.path,
				format = excluded.format,
				size = excluded.size,
				duration_secs = excluded.duration_secs,
				title = excluded.title,
				artist = excluded.artist,
				album = excluded.album,
				missing = 0,
				last_seen = excluded.last_seen
		`

		if _, err := tx.Exec(query,
			string(track.Fingerprint),
			track.Path,
			track.Format,
			track.Size,
			track.DurationSecs,
			track.Title,
			track.Artist,
			track.Album,
			track.FirstSeen,
			track.LastSeen,
		); err != nil {
			return storageErr("upsert track", err)
		}

		if _, err := tx.Exec(
			"INSERT OR IGNORE INTO behaviors (fingerprint) VALUES (?)",
			string(track.Fingerprint),
		); err != nil {
			return storageErr("create behavior record", err)
		}

		return nil
	})
}

// Get retrieves a track by fingerprint.
func (r *TrackRepository) Get(fp models.Fingerprint) (*models.Track, error) {
	row := r.db.QueryRow(selectTrack+" WHERE fingerprint = ?", string(fp))
	track, err := scanTrack(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrNotFound, fp)
	}
	if err != nil {
		return nil, storageErr("get track", err)
	}
	return track, nil
}

// FindByPath returns the fingerprint currently recorded at path, or false
// when no track lives there.
func (r *TrackRepository) FindByPath(path string) (models.Fingerprint, bool, error) {
	var fp string
	err := r.db.QueryRow("SELECT fingerprint FROM tracks WHERE path = ?", path).Scan(&fp)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, storageErr("find by path", err)
	}
	return models.Fingerprint(fp), true, nil
}

// UpdatePath records that a fingerprint's file now lives at a new location.
// The behavior record is untouched: a move never resets history.
func (r *TrackRepository) UpdatePath(fp models.Fingerprint, path string, seenAt time.Time) error {
	return withTx(r.db, func(tx *sql.Tx) error {
		result, err := tx.Exec(
			"UPDATE tracks SET path = ?, missing = 0, last_seen = ? WHERE fingerprint = ?",
			path, seenAt, string(fp),
		)
		if err != nil {
			return storageErr("update path", err)
		}
		return requireRow(result, fp)
	})
}

// Touch refreshes last_seen and clears the missing flag for a fingerprint
// whose file was re-observed unchanged.
func (r *TrackRepository) Touch(fp models.Fingerprint, seenAt time.Time) error {
	return withTx(r.db, func(tx *sql.Tx) error {
		result, err := tx.Exec(
			"UPDATE tracks SET missing = 0, last_seen = ? WHERE fingerprint = ?",
			seenAt, string(fp),
		)
		if err != nil {
			return storageErr("touch track", err)
		}
		return requireRow(result, fp)
	})
}

// MarkMissing flags a track whose path was not re-observed by the last
// scan. The row, and with it the behavior history, stays.
func (r *TrackRepository) MarkMissing(fp models.Fingerprint) error {
	return withTx(r.db, func(tx *sql.Tx) error {
		result, err := tx.Exec(
			"UPDATE tracks SET missing = 1 WHERE fingerprint = ?",
			string(fp),
		)
		if err != nil {
			return storageErr("mark missing", err)
		}
		return requireRow(result, fp)
	})
}

// SetOverrides stores the user's metadata edits for a track. Empty strings
// clear an override, falling back to the parsed tag value at read time.
func (r *TrackRepository) SetOverrides(fp models.Fingerprint, title, artist, album string) error {
	return withTx(r.db, func(tx *sql.Tx) error {
		result, err := tx.Exec(
			"UPDATE tracks SET title_override = ?, artist_override = ?, album_override = ? WHERE fingerprint = ?",
			title, artist, album, string(fp),
		)
		if err != nil {
			return storageErr("set overrides", err)
		}
		return requireRow(result, fp)
	})
}

// ListActive retrieves all non-missing tracks in stable path order. This is
// the selection engine's candidate set and the sequential play order.
func (r *TrackRepository) ListActive() ([]models.Track, error) {
	return r.list(selectTrack + " WHERE missing = 0 ORDER BY path ASC")
}

// ListAll retrieves every track, missing ones included, in path order.
func (r *TrackRepository) ListAll() ([]models.Track, error) {
	return r.list(selectTrack + " ORDER BY path ASC")
}

func (r *TrackRepository) list(query string) ([]models.Track, error) {
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, storageErr("list tracks", err)
	}
	defer rows.Close()

	var tracks []models.Track
	for rows.Next() {
		track, err := scanTrack(rows)
		if err != nil {
			return nil, storageErr("scan track row", err)
		}
		tracks = append(tracks, *track)
	}

	if err := rows.Err(); err != nil {
		return nil, storageErr("row iteration", err)
	}

	return tracks, nil
}

const selectTrack = `
	SELECT fingerprint, path, format, size, duration_secs,
	       title, artist, album,
	       title_override, artist_override, album_override,
	       missing, first_seen, last_seen
	FROM tracks
`

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrack(row rowScanner) (*models.Track, error) {
	var (
		track   models.Track
		fp      string
		missing int
	)

	err := row.Scan(
		&fp,
		&track.Path,
		&track.Format,
		&track.Size,
		&track.DurationSecs,
		&track.Title,
		&track.Artist,
		&track.Album,
		&track.TitleOverride,
		&track.ArtistOverride,
		&track.AlbumOverride,
		&missing,
		&track.FirstSeen,
		&track.LastSeen,
	)
	if err != nil {
		return nil, err
	}

	track.Fingerprint = models.Fingerprint(fp)
	track.Missing = missing != 0

	return &track, nil
}

// requireRow converts a zero-row update into [shared.ErrNotFound]: callers
// must upsert a track before operating on its fingerprint.
func requireRow(result sql.Result, fp models.Fingerprint) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return storageErr("get affected rows", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrNotFound, fp)
	}
	return nil
}
