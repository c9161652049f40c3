package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarize(t *testing.T) {
	t.Parallel()

	t.Run("empty input yields zero summary", func(t *testing.T) {
		t.Parallel()
		s := Summarize(nil)
		assert.Equal(t, 0, s.Count)
		assert.Zero(t, s.Mean)
		assert.Zero(t, s.StdDev)
	})

	t.Run("single value", func(t *testing.T) {
		t.Parallel()
		s := Summarize([]float64{0.4})
		assert.Equal(t, 1, s.Count)
		assert.Equal(t, 0.4, s.Mean)
		assert.Equal(t, 0.4, s.Min)
		assert.Equal(t, 0.4, s.Max)
		assert.Equal(t, 0.4, s.Median)
		assert.Zero(t, s.StdDev)
	})

	t.Run("multiple values", func(t *testing.T) {
		t.Parallel()
		values := []float64{0.3, 0.1, 0.5, 0.2, 0.4}
		s := Summarize(values)

		assert.Equal(t, 5, s.Count)
		assert.InDelta(t, 0.3, s.Mean, 1e-12)
		assert.Equal(t, 0.1, s.Min)
		assert.Equal(t, 0.5, s.Max)
		assert.Equal(t, 0.3, s.Median)
		assert.GreaterOrEqual(t, s.P90, s.Median)
		assert.LessOrEqual(t, s.P90, s.Max)

		// Input order must not matter and the input must not be mutated.
		assert.Equal(t, 0.3, values[0])
	})
}

func TestForSession(t *testing.T) {
	t.Parallel()

	t.Run("uncalibrated session has no distance summary", func(t *testing.T) {
		t.Parallel()
		summary := ForSession("abc", []float64{0.2, 0.25}, nil)
		assert.Equal(t, "abc", summary.SessionID)
		assert.Equal(t, 2, summary.Normalized.Count)
		assert.Nil(t, summary.Distance)
	})

	t.Run("calibrated session summarizes distances", func(t *testing.T) {
		t.Parallel()
		summary := ForSession("abc", []float64{0.2}, []float64{48, 40})
		require.NotNil(t, summary.Distance)
		assert.Equal(t, 2, summary.Distance.Count)
		assert.Equal(t, 40.0, summary.Distance.Min)
		assert.Equal(t, 48.0, summary.Distance.Max)
	})
}
