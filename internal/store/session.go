package store

import (
	"database/sql"
	"errors"
	"time"
)

// SessionSource says where a session's frames came from.
type SessionSource string

const (
	// SourceCamera is a session driven by the local camera.
	SourceCamera SessionSource = "camera"
	// SourceWebSocket is a session driven by landmarks pushed over a websocket.
	SourceWebSocket SessionSource = "websocket"
)

// Session is one recognition session.
type Session struct {
	ID          string        `json:"id"`
	Source      SessionSource `json:"source"`
	StartedAt   time.Time     `json:"startedAt"`
	EndedAt     *time.Time    `json:"endedAt,omitempty"`
	Predictions int           `json:"predictions"`
}

// Active reports whether the session has not been ended.
func (s *Session) Active() bool { return s.EndedAt == nil }

// SessionRepository provides access to sessions.
type SessionRepository struct {
	db *sql.DB
}

// Sessions returns the session repository for this store.
func (s *Store) Sessions() *SessionRepository {
	return &SessionRepository{db: s.db}
}

// Create inserts a new session. StartedAt is set to now when zero.
func (r *SessionRepository) Create(sess *Session) error {
	if sess.StartedAt.IsZero() {
		sess.StartedAt = time.Now().UTC()
	}

	_, err := r.db.Exec(
		`INSERT INTO sessions (id, source, started_at) VALUES (?, ?, ?)`,
		sess.ID, string(sess.Source), sess.StartedAt,
	)
	return err
}

// Ensure creates the session if it does not exist yet.
func (r *SessionRepository) Ensure(id string, source SessionSource) error {
	_, err := r.db.Exec(
		`INSERT OR IGNORE INTO sessions (id, source, started_at) VALUES (?, ?, ?)`,
		id, string(source), time.Now().UTC(),
	)
	return err
}

// End marks the session as finished. Ending an ended session keeps the first end time.
func (r *SessionRepository) End(id string) error {
	result, err := r.db.Exec(
		`UPDATE sessions SET ended_at = COALESCE(ended_at, ?) WHERE id = ?`,
		time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// GetByID retrieves a session by its ID.
func (r *SessionRepository) GetByID(id string) (*Session, error) {
	row := r.db.QueryRow(
		`SELECT s.id, s.source, s.started_at, s.ended_at, COUNT(p.id)
		 FROM sessions s LEFT JOIN predictions p ON p.session_id = s.id
		 WHERE s.id = ?
		 GROUP BY s.id`,
		id,
	)

	sess, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return sess, nil
}

// List returns the most recent sessions first. A non-positive limit returns all of them.
func (r *SessionRepository) List(limit int) ([]*Session, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := r.db.Query(
		`SELECT s.id, s.source, s.started_at, s.ended_at, COUNT(p.id)
		 FROM sessions s LEFT JOIN predictions p ON p.session_id = s.id
		 GROUP BY s.id
		 ORDER BY s.started_at DESC, s.rowid DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return sessions, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*Session, error) {
	sess := &Session{}
	var source string
	var ended sql.NullTime

	if err := row.Scan(&sess.ID, &source, &sess.StartedAt, &ended, &sess.Predictions); err != nil {
		return nil, err
	}

	sess.Source = SessionSource(source)
	if ended.Valid {
		t := ended.Time
		sess.EndedAt = &t
	}
	return sess, nil
}
