// Package stats computes summary statistics over stored session readings.
package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Summary describes one series of readings from a recorded session.
type Summary struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Median float64 `json:"median"`
	P90    float64 `json:"p90"`
}

// Summarize computes a Summary over the given values. An empty or nil slice
// yields a zero Summary with Count 0.
func Summarize(values []float64) Summary {
	if len(values) == 0 {
		return Summary{}
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	std := stat.StdDev(sorted, nil)
	if math.IsNaN(std) {
		// StdDev of a single sample is undefined; report 0 spread.
		std = 0
	}

	return Summary{
		Count:  len(sorted),
		Mean:   stat.Mean(sorted, nil),
		StdDev: std,
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		Median: stat.Quantile(0.5, stat.Empirical, sorted, nil),
		P90:    stat.Quantile(0.9, stat.Empirical, sorted, nil),
	}
}

// SessionSummary pairs the normalized and distance series of a session.
// Distance is nil when the session recorded no calibrated readings.
type SessionSummary struct {
	SessionID  string   `json:"session_id"`
	Normalized Summary  `json:"normalized"`
	Distance   *Summary `json:"distance,omitempty"`
}

// ForSession builds a SessionSummary from the two reading series.
func ForSession(sessionID string, normalized, distance []float64) SessionSummary {
	out := SessionSummary{
		SessionID:  sessionID,
		Normalized: Summarize(normalized),
	}
	if len(distance) > 0 {
		s := Summarize(distance)
		out.Distance = &s
	}
	return out
}
