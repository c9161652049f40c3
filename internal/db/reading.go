package db

import (
	"fmt"
	"time"
)

// Reading is a single stored proximity sample. Distance is nil for samples
// taken before the run was calibrated.
type Reading struct {
	ID         int64     `json:"id"`
	SessionID  string    `json:"session_id"`
	RecordedAt time.Time `json:"recorded_at"`
	Normalized float64   `json:"normalized"`
	Distance   *float64  `json:"distance"`
}

// AddReading stores one sample against a session.
func (db *DB) AddReading(sessionID string, recordedAt time.Time, normalized float64, distance *float64) error {
	_, err := db.DB.Exec(
		`INSERT INTO readings (session_id, recorded_at_unix_ms, normalized, distance)
		 VALUES (?, ?, ?, ?)`,
		sessionID, recordedAt.UnixMilli(), normalized, distance,
	)
	if err != nil {
		return fmt.Errorf("failed to add reading: %w", err)
	}
	return nil
}

// ListReadings returns up to limit readings for a session, oldest first.
// A non-positive limit returns everything.
func (db *DB) ListReadings(sessionID string, limit int) ([]Reading, error) {
	query := `SELECT reading_id, session_id, recorded_at_unix_ms, normalized, distance
		 FROM readings WHERE session_id = ?
		 ORDER BY recorded_at_unix_ms ASC`
	args := []interface{}{sessionID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := db.DB.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list readings: %w", err)
	}
	defer rows.Close()

	var readings []Reading
	for rows.Next() {
		var r Reading
		var recordedMs int64
		if err := rows.Scan(&r.ID, &r.SessionID, &recordedMs, &r.Normalized, &r.Distance); err != nil {
			return nil, fmt.Errorf("failed to scan reading: %w", err)
		}
		r.RecordedAt = time.UnixMilli(recordedMs).UTC()
		readings = append(readings, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return readings, nil
}

// NormalizedValues returns the normalized signal of every reading in a
// session, oldest first. Used by the session summary.
func (db *DB) NormalizedValues(sessionID string) ([]float64, error) {
	return db.readingColumn(sessionID, "normalized")
}

// DistanceValues returns the estimated distance of every calibrated reading
// in a session, oldest first.
func (db *DB) DistanceValues(sessionID string) ([]float64, error) {
	return db.readingColumn(sessionID, "distance")
}

func (db *DB) readingColumn(sessionID, column string) ([]float64, error) {
	rows, err := db.DB.Query(
		fmt.Sprintf(`SELECT %s FROM readings
		 WHERE session_id = ? AND %s IS NOT NULL
		 ORDER BY recorded_at_unix_ms ASC`, column, column),
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s values: %w", column, err)
	}
	defer rows.Close()

	var values []float64
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to scan %s value: %w", column, err)
		}
		values = append(values, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return values, nil
}

// CountReadings returns the number of stored readings for a session.
func (db *DB) CountReadings(sessionID string) (int, error) {
	var count int
	err := db.DB.QueryRow(`SELECT COUNT(*) FROM readings WHERE session_id = ?`, sessionID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count readings: %w", err)
	}
	return count, nil
}
