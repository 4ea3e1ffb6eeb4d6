package repositories

import (
	"database/sql"

	"cadence/internal/models"
)

// SessionRepository appends to the play session log. Sessions are
// write-once rows; nothing in the player mutates them after the fact,
// they exist for stats and for debugging the affinity model.
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a new SessionRepository with the given database connection
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Append records one finished play session.
func (r *SessionRepository) Append(session models.PlaySession) error {
	return withTx(r.db, func(tx *sql.Tx) error {
		var endedAt any
		if !session.EndedAt.IsZero() {
			endedAt = session.EndedAt
		}

		if _, err := tx.Exec(`
			INSERT INTO play_sessions (id, fingerprint, started_at, ended_at, listened_secs, position_fraction, outcome)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			session.ID,
			string(session.Fingerprint),
			session.StartedAt,
			endedAt,
			session.ListenedSecs,
			session.PositionFraction,
			session.Outcome,
		); err != nil {
			return storageErr("append session", err)
		}
		return nil
	})
}

// ForTrack returns the logged sessions for a fingerprint, most recent
// first.
func (r *SessionRepository) ForTrack(fp models.Fingerprint) ([]models.PlaySession, error) {
	rows, err := r.db.Query(`
		SELECT id, fingerprint, started_at, ended_at, listened_secs, position_fraction, outcome
		FROM play_sessions
		WHERE fingerprint = ?
		ORDER BY started_at DESC`,
		string(fp),
	)
	if err != nil {
		return nil, storageErr("query sessions", err)
	}
	defer rows.Close()

	var sessions []models.PlaySession
	for rows.Next() {
		var (
			session models.PlaySession
			fpCol   string
			endedAt sql.NullTime
		)
		if err := rows.Scan(
			&session.ID,
			&fpCol,
			&session.StartedAt,
			&endedAt,
			&session.ListenedSecs,
			&session.PositionFraction,
			&session.Outcome,
		); err != nil {
			return nil, storageErr("scan session row", err)
		}
		session.Fingerprint = models.Fingerprint(fpCol)
		if endedAt.Valid {
			session.EndedAt = endedAt.Time
		}
		sessions = append(sessions, session)
	}

	if err := rows.Err(); err != nil {
		return nil, storageErr("row iteration", err)
	}

	return sessions, nil
}
