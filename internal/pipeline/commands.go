package pipeline

import (
	"github.com/banshee-data/proximity.report/internal/proximity"
)

// SetCalibration overwrites the calibration reference with the caller's
// values as-is (non-positive values are accepted; see proximity.SetReference).
func (p *Pipeline) SetCalibration(referencePixels, referenceDistance float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.run == nil {
		return ErrNotRunning
	}
	p.run.cal.SetReference(referencePixels, referenceDistance)
	return nil
}

// CalibrateNow anchors calibration on the most recent measurement at the
// supplied known distance. Fails when no usable measurement has been seen yet.
func (p *Pipeline) CalibrateNow(referenceDistance float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.run == nil {
		return ErrNotRunning
	}
	if p.run.last == nil {
		return proximity.ErrNoMeasurement
	}
	return p.run.cal.CalibrateFrom(*p.run.last, referenceDistance)
}

// RefineScale adjusts the scale factor so the current measurement maps to
// exactly targetDistance. Requires prior calibration and a usable last
// measurement.
func (p *Pipeline) RefineScale(targetDistance float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.run == nil {
		return ErrNotRunning
	}
	if p.run.last == nil {
		return proximity.ErrNoMeasurement
	}
	return p.run.cal.RefineScale(*p.run.last, targetDistance)
}

// SetScale sets the multiplicative correction factor (NaN coerces to 1).
func (p *Pipeline) SetScale(value float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.run == nil {
		return ErrNotRunning
	}
	p.run.cal.SetScale(value)
	return nil
}

// SetGamma sets the power-law exponent; invalid values are ignored.
func (p *Pipeline) SetGamma(value float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.run == nil {
		return ErrNotRunning
	}
	p.run.cal.SetGamma(value)
	return nil
}

// SetThreshold sets the crossing level; invalid values clear the threshold.
func (p *Pipeline) SetThreshold(value float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.run == nil {
		return ErrNotRunning
	}
	p.run.cal.SetThreshold(value)
	return nil
}

// Status is a snapshot of the bridge for the API layer.
type Status struct {
	Running           bool     `json:"running"`
	Calibrated        bool     `json:"calibrated"`
	Scale             float64  `json:"scale"`
	Gamma             float64  `json:"gamma"`
	Threshold         *float64 `json:"threshold,omitempty"`
	ReferencePixels   *float64 `json:"reference_pixels,omitempty"`
	ReferenceDistance *float64 `json:"reference_distance,omitempty"`
	LastNormalized    *float64 `json:"last_normalized,omitempty"`
	LastDistance      *float64 `json:"last_distance,omitempty"`
}

// Snapshot returns the current bridge status. Zero values with Running=false
// when no run is active.
func (p *Pipeline) Snapshot() Status {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.run == nil {
		return Status{}
	}

	s := Status{
		Running:    true,
		Calibrated: p.run.cal.Calibrated(),
		Scale:      p.run.cal.Scale(),
		Gamma:      p.run.cal.Gamma(),
	}
	if v, ok := p.run.cal.Threshold(); ok {
		s.Threshold = &v
	}
	if px, dist, ok := p.run.cal.Reference(); ok {
		s.ReferencePixels = &px
		s.ReferenceDistance = &dist
	}
	if p.run.last != nil {
		n := p.run.last.Normalized
		s.LastNormalized = &n
		if d, ok := p.run.cal.Estimate(*p.run.last); ok {
			s.LastDistance = &d
		}
	}
	return s
}
