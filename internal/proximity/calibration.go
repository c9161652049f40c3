package proximity

import (
	"errors"
	"math"
)

// ErrNoMeasurement is returned by calibration commands that need a usable
// reference measurement when none is available.
var ErrNoMeasurement = errors.New("no usable measurement")

// ErrNotCalibrated is returned by commands that require a prior reference.
var ErrNotCalibrated = errors.New("not calibrated")

// Calibration maps pixel distance to physical distance using a one-point
// power-law model:
//
//	distance = scale * ((referencePixels * referenceDistance) / currentPixels) ^ gamma
//
// A single reference measurement at a known distance anchors the model; gamma
// compensates for non-linearity between apparent size and true distance
// (gamma = 1 is the pinhole-camera inverse relationship) and scale is a
// multiplicative correction refined against a second known distance.
//
// Calibration state is owned by a single pipeline run and is not shared
// across runs. The zero value is not usable; call NewCalibration.
type Calibration struct {
	referencePixels   float64
	referenceDistance float64
	hasReference      bool

	scale float64
	gamma float64

	threshold    float64
	hasThreshold bool
}

// NewCalibration returns a Calibration with scale and gamma at their
// defaults of 1 and no reference or threshold configured.
func NewCalibration() *Calibration {
	return &Calibration{scale: 1, gamma: 1}
}

// Calibrated reports whether a usable reference is present. The model is
// calibrated iff both reference values are set and the reference pixel
// distance is positive.
func (c *Calibration) Calibrated() bool {
	return c.hasReference && c.referencePixels > 0
}

// SetReference overwrites the reference point with the caller's values as-is.
// No validation is applied: pixel distances are positive in practice, and a
// zero or negative reference distance yields a non-physical estimate. That is
// accepted behavior of this simplified model, not an error.
func (c *Calibration) SetReference(referencePixels, referenceDistance float64) {
	c.referencePixels = referencePixels
	c.referenceDistance = referenceDistance
	c.hasReference = true
}

// Reference returns the configured reference point. ok is false when no
// reference has been set.
func (c *Calibration) Reference() (referencePixels, referenceDistance float64, ok bool) {
	if !c.hasReference {
		return 0, 0, false
	}
	return c.referencePixels, c.referenceDistance, true
}

// CalibrateFrom anchors the model using the given measurement's pixel
// distance at the supplied known distance. It fails without touching state
// when the measurement's pixel distance is not positive.
func (c *Calibration) CalibrateFrom(m Measurement, referenceDistance float64) error {
	if m.PixelDistance <= 0 {
		return ErrNoMeasurement
	}
	c.SetReference(m.PixelDistance, referenceDistance)
	return nil
}

// RefineScale recomputes scale so the estimate for the given measurement maps
// to exactly targetDistance. It requires a prior reference and a positive
// pixel distance; on any failure scale is left unchanged.
func (c *Calibration) RefineScale(m Measurement, targetDistance float64) error {
	if !c.hasReference {
		return ErrNotCalibrated
	}
	if m.PixelDistance <= 0 {
		return ErrNoMeasurement
	}
	base := (c.referencePixels * c.referenceDistance) / m.PixelDistance
	if base <= 0 {
		return ErrNotCalibrated
	}
	c.scale = targetDistance / math.Pow(base, c.gamma)
	return nil
}

// Estimate returns the physical distance estimate for the measurement. The
// second return value is false when the model is uncalibrated or the
// measurement's pixel distance is not positive; that is an expected transient
// state, not an error.
func (c *Calibration) Estimate(m Measurement) (float64, bool) {
	if !c.Calibrated() || m.PixelDistance <= 0 {
		return 0, false
	}
	base := (c.referencePixels * c.referenceDistance) / m.PixelDistance
	return c.scale * math.Pow(base, c.gamma), true
}

// SetScale sets the multiplicative correction. NaN coerces to the default of
// 1 rather than being rejected.
func (c *Calibration) SetScale(v float64) {
	if math.IsNaN(v) {
		c.scale = 1
		return
	}
	c.scale = v
}

// Scale returns the current scale factor.
func (c *Calibration) Scale() float64 { return c.scale }

// SetGamma sets the power-law exponent. Non-finite or non-positive values are
// ignored and the prior value is retained.
func (c *Calibration) SetGamma(v float64) {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return
	}
	c.gamma = v
}

// Gamma returns the current exponent.
func (c *Calibration) Gamma() float64 { return c.gamma }

// SetThreshold sets the normalized-signal crossing level. Values outside
// [0,1] or non-finite values clear the threshold entirely: a bad threshold
// means "no threshold", not an error.
func (c *Calibration) SetThreshold(v float64) {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 || v > 1 {
		c.threshold = 0
		c.hasThreshold = false
		return
	}
	c.threshold = v
	c.hasThreshold = true
}

// Threshold returns the configured crossing level and whether one is set.
func (c *Calibration) Threshold() (float64, bool) {
	return c.threshold, c.hasThreshold
}

// CheckThreshold evaluates the measurement against the configured threshold
// and returns the compared value when it is at or above the level. The check
// is level-triggered: every qualifying sample reports true, not only the
// rising edge. The comparison uses the unclamped pixel ratio, which diverges
// from the clamped charting signal for ratios above 1.
func (c *Calibration) CheckThreshold(m Measurement) (float64, bool) {
	if !c.hasThreshold {
		return 0, false
	}
	ratio := m.Ratio()
	if ratio >= c.threshold {
		return ratio, true
	}
	return 0, false
}
