package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Futsu-coder/Emotion-Detection/internal/pipeline"
	"github.com/Futsu-coder/Emotion-Detection/internal/vision"
)

// ErrSessionNotFound is returned for an unknown session ID
var ErrSessionNotFound = errors.New("session not found")

// Session is a persisted pipeline session
type Session struct {
	ID           string     `json:"id"`
	StartedAt    time.Time  `json:"started_at"`
	StoppedAt    *time.Time `json:"stopped_at,omitempty"`
	ResultCount  int64      `json:"result_count"`
	DroppedCount int64      `json:"dropped_count"`
}

// CreateSession records the start of a session
func (d *Database) CreateSession(ctx context.Context, id string, startedAt time.Time) error {
	_, err := d.db.ExecContext(ctx,
		`INSERT INTO sessions (id, started_at) VALUES (?, ?)
		 ON CONFLICT(id) DO NOTHING`,
		id, startedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// FinishSession stamps the stop time and adds dropped to the drop count
func (d *Database) FinishSession(ctx context.Context, id string, stoppedAt time.Time, dropped uint64) error {
	res, err := d.db.ExecContext(ctx,
		`UPDATE sessions SET stopped_at = ?, dropped_count = dropped_count + ? WHERE id = ?`,
		stoppedAt.UTC(), dropped, id,
	)
	if err != nil {
		return fmt.Errorf("failed to finish session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// InsertResults writes a batch of results in one transaction and bumps the
// per-session counters
func (d *Database) InsertResults(ctx context.Context, results []pipeline.Result) error {
	if len(results) == 0 {
		return nil
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO results (session_id, cycle, slot, x, y, width, height, raw_label, smoothed_label, confidence, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	counts := make(map[string]int)
	for _, r := range results {
		_, err := stmt.ExecContext(ctx,
			r.Session, r.Cycle, r.Slot,
			r.Region.X, r.Region.Y, r.Region.Width, r.Region.Height,
			r.RawLabel, r.SmoothedLabel, r.Confidence, r.Timestamp.UTC(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert result: %w", err)
		}
		counts[r.Session]++
	}

	for session, n := range counts {
		if _, err := tx.ExecContext(ctx,
			`UPDATE sessions SET result_count = result_count + ? WHERE id = ?`, n, session,
		); err != nil {
			return fmt.Errorf("failed to update session counters: %w", err)
		}
	}

	return tx.Commit()
}

// GetSession returns one session
func (d *Database) GetSession(ctx context.Context, id string) (*Session, error) {
	row := d.db.QueryRowContext(ctx,
		`SELECT id, started_at, stopped_at, result_count, dropped_count FROM sessions WHERE id = ?`, id)

	s, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return s, nil
}

// ListSessions returns the most recent sessions first
func (d *Database) ListSessions(ctx context.Context, limit int) ([]Session, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := d.db.QueryContext(ctx,
		`SELECT id, started_at, stopped_at, result_count, dropped_count
		 FROM sessions ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]Session, 0)
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}

// ListResults returns results of a session in emission order
func (d *Database) ListResults(ctx context.Context, sessionID string, limit, offset int) ([]pipeline.Result, error) {
	if limit <= 0 {
		limit = 500
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := d.db.QueryContext(ctx, `
		SELECT session_id, cycle, slot, x, y, width, height, raw_label, smoothed_label, confidence, timestamp
		FROM results WHERE session_id = ?
		ORDER BY id ASC LIMIT ? OFFSET ?`, sessionID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query results: %w", err)
	}
	defer rows.Close()

	results := make([]pipeline.Result, 0)
	for rows.Next() {
		var r pipeline.Result
		var region vision.Region
		if err := rows.Scan(
			&r.Session, &r.Cycle, &r.Slot,
			&region.X, &region.Y, &region.Width, &region.Height,
			&r.RawLabel, &r.SmoothedLabel, &r.Confidence, &r.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		r.Region = region
		results = append(results, r)
	}
	return results, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSession(row scanner) (*Session, error) {
	var s Session
	var stopped sql.NullTime
	if err := row.Scan(&s.ID, &s.StartedAt, &stopped, &s.ResultCount, &s.DroppedCount); err != nil {
		return nil, err
	}
	if stopped.Valid {
		t := stopped.Time
		s.StoppedAt = &t
	}
	return &s, nil
}
