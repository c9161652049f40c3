package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Session is one stretch of recorded proximity readings, bracketed by a
// start and an optional end time. The calibration columns capture the model
// parameters that were in effect when the session ended.
type Session struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	StartedAt         time.Time  `json:"started_at"`
	EndedAt           *time.Time `json:"ended_at"`
	Scale             *float64   `json:"scale"`
	Gamma             *float64   `json:"gamma"`
	ReferencePixels   *float64   `json:"reference_pixels"`
	ReferenceDistance *float64   `json:"reference_distance"`
}

// Active reports whether the session is still recording.
func (s *Session) Active() bool {
	return s.EndedAt == nil
}

// StartSession creates a new session starting now.
func (db *DB) StartSession(name string, startedAt time.Time) (*Session, error) {
	session := &Session{
		ID:        uuid.NewString(),
		Name:      name,
		StartedAt: startedAt,
	}

	_, err := db.DB.Exec(
		`INSERT INTO sessions (session_id, name, started_at_unix_ms) VALUES (?, ?, ?)`,
		session.ID,
		session.Name,
		session.StartedAt.UnixMilli(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return session, nil
}

// EndSession marks a session as finished and records the calibration that
// was in effect. Calibration pointers may be nil when the run never
// calibrated.
func (db *DB) EndSession(id string, endedAt time.Time, scale, gamma, refPixels, refDistance *float64) error {
	result, err := db.DB.Exec(
		`UPDATE sessions
		 SET ended_at_unix_ms = ?, scale = ?, gamma = ?, reference_pixels = ?, reference_distance = ?
		 WHERE session_id = ? AND ended_at_unix_ms IS NULL`,
		endedAt.UnixMilli(), scale, gamma, refPixels, refDistance, id,
	)
	if err != nil {
		return fmt.Errorf("failed to end session: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("no active session with id %s", id)
	}

	return nil
}

// GetSession retrieves a session by ID.
func (db *DB) GetSession(id string) (*Session, error) {
	row := db.DB.QueryRow(
		`SELECT session_id, name, started_at_unix_ms, ended_at_unix_ms,
		        scale, gamma, reference_pixels, reference_distance
		 FROM sessions WHERE session_id = ?`, id)

	session, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("session not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return session, nil
}

// ActiveSession returns the most recently started session that has not
// ended, or nil when nothing is recording.
func (db *DB) ActiveSession() (*Session, error) {
	row := db.DB.QueryRow(
		`SELECT session_id, name, started_at_unix_ms, ended_at_unix_ms,
		        scale, gamma, reference_pixels, reference_distance
		 FROM sessions WHERE ended_at_unix_ms IS NULL
		 ORDER BY started_at_unix_ms DESC LIMIT 1`)

	session, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active session: %w", err)
	}
	return session, nil
}

// ListSessions returns all sessions, newest first.
func (db *DB) ListSessions() ([]Session, error) {
	rows, err := db.DB.Query(
		`SELECT session_id, name, started_at_unix_ms, ended_at_unix_ms,
		        scale, gamma, reference_pixels, reference_distance
		 FROM sessions ORDER BY started_at_unix_ms DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, *session)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return sessions, nil
}

// DeleteSession removes a session and all of its readings.
func (db *DB) DeleteSession(id string) error {
	tx, err := db.DB.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM readings WHERE session_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete session readings: %w", err)
	}

	result, err := tx.Exec(`DELETE FROM sessions WHERE session_id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("session not found")
	}

	return tx.Commit()
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSession(s scanner) (*Session, error) {
	var session Session
	var startedMs int64
	var endedMs *int64

	err := s.Scan(
		&session.ID,
		&session.Name,
		&startedMs,
		&endedMs,
		&session.Scale,
		&session.Gamma,
		&session.ReferencePixels,
		&session.ReferenceDistance,
	)
	if err != nil {
		return nil, err
	}

	session.StartedAt = time.UnixMilli(startedMs).UTC()
	if endedMs != nil {
		t := time.UnixMilli(*endedMs).UTC()
		session.EndedAt = &t
	}

	return &session, nil
}
