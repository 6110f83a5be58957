package store

import (
	"database/sql"
	"time"
)

// Prediction is one accepted recognition result.
type Prediction struct {
	ID         int64     `json:"id"`
	SessionID  string    `json:"sessionId"`
	Label      string    `json:"label"`
	Confidence float64   `json:"confidence"`
	CreatedAt  time.Time `json:"createdAt"`
}

// LabelCount is how often a label was recognized in a session.
type LabelCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Summary aggregates the predictions of one session.
type Summary struct {
	SessionID string       `json:"sessionId"`
	Total     int          `json:"total"`
	Counts    []LabelCount `json:"counts"`
	// FinalWord is the most frequent label; ties go to the label seen first.
	FinalWord string `json:"finalWord,omitempty"`
}

// PredictionRepository provides access to predictions.
type PredictionRepository struct {
	db *sql.DB
}

// Predictions returns the prediction repository for this store.
func (s *Store) Predictions() *PredictionRepository {
	return &PredictionRepository{db: s.db}
}

// Create records a prediction. CreatedAt is set to now when zero.
func (r *PredictionRepository) Create(p *Prediction) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}

	result, err := r.db.Exec(
		`INSERT INTO predictions (session_id, label, confidence, created_at) VALUES (?, ?, ?, ?)`,
		p.SessionID, p.Label, p.Confidence, p.CreatedAt,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = id
	return nil
}

// ListBySession returns a session's predictions in the order they were recorded.
func (r *PredictionRepository) ListBySession(sessionID string) ([]*Prediction, error) {
	rows, err := r.db.Query(
		`SELECT id, session_id, label, confidence, created_at
		 FROM predictions WHERE session_id = ? ORDER BY id`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var predictions []*Prediction
	for rows.Next() {
		p := &Prediction{}
		if err := rows.Scan(&p.ID, &p.SessionID, &p.Label, &p.Confidence, &p.CreatedAt); err != nil {
			return nil, err
		}
		predictions = append(predictions, p)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return predictions, nil
}

// Summary tallies a session's labels, most frequent first.
func (r *PredictionRepository) Summary(sessionID string) (*Summary, error) {
	rows, err := r.db.Query(
		`SELECT label, COUNT(*) AS n, MIN(id) AS first
		 FROM predictions WHERE session_id = ?
		 GROUP BY label
		 ORDER BY n DESC, first ASC`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summary := &Summary{SessionID: sessionID, Counts: []LabelCount{}}
	for rows.Next() {
		var lc LabelCount
		var first int64
		if err := rows.Scan(&lc.Label, &lc.Count, &first); err != nil {
			return nil, err
		}
		summary.Counts = append(summary.Counts, lc)
		summary.Total += lc.Count
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(summary.Counts) > 0 {
		summary.FinalWord = summary.Counts[0].Label
	}
	return summary, nil
}
