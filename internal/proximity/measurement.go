// Package proximity implements the signal-conditioning core of the sensor:
// converting per-frame landmark geometry into a normalized proximity signal
// and, once calibrated, into a physical distance estimate.
package proximity

// Measurement is a single per-frame observation. It is immutable once built;
// the pipeline only ever retains the most recent one.
type Measurement struct {
	// PixelDistance is the horizontal pixel distance between the two tracked
	// landmarks.
	PixelDistance float64

	// FrameWidth is the width in pixels of the source frame.
	FrameWidth int

	// Normalized is PixelDistance/FrameWidth clamped to [0,1]. This is the
	// value charted and broadcast to consumers.
	Normalized float64
}

// NewMeasurement builds a Measurement from a raw pixel distance and frame
// width. It returns false when frameWidth is not positive; a frame without a
// usable width is dropped, not an error.
func NewMeasurement(pixelDistance float64, frameWidth int) (Measurement, bool) {
	if frameWidth <= 0 {
		return Measurement{}, false
	}
	return Measurement{
		PixelDistance: pixelDistance,
		FrameWidth:    frameWidth,
		Normalized:    clamp01(pixelDistance / float64(frameWidth)),
	}, true
}

// Ratio returns the raw PixelDistance/FrameWidth ratio without clamping.
// Threshold checks compare against this value, so a pixel distance wider than
// the frame (a geometry artifact near the lens) can trip thresholds above 1.0
// even though the charted signal saturates at 1. Callers that want the
// saturating signal should use Normalized.
func (m Measurement) Ratio() float64 {
	if m.FrameWidth <= 0 {
		return 0
	}
	return m.PixelDistance / float64(m.FrameWidth)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
