package proximity

import (
	"errors"
	"math"
	"testing"
)

func mustMeasurement(t *testing.T, pixelDistance float64, frameWidth int) Measurement {
	t.Helper()
	m, ok := NewMeasurement(pixelDistance, frameWidth)
	if !ok {
		t.Fatalf("NewMeasurement(%v, %d) failed", pixelDistance, frameWidth)
	}
	return m
}

func TestCalibratedInvariant(t *testing.T) {
	c := NewCalibration()
	if c.Calibrated() {
		t.Error("fresh calibration should not be calibrated")
	}

	c.SetReference(64, 24)
	if !c.Calibrated() {
		t.Error("expected calibrated after SetReference")
	}

	// Reference pixels must be positive for the model to be usable.
	c.SetReference(0, 24)
	if c.Calibrated() {
		t.Error("zero reference pixels should not count as calibrated")
	}
}

func TestCalibrateFromRoundTrip(t *testing.T) {
	// With scale=1 and gamma=1, calibrating against a measurement and then
	// estimating that same measurement must return exactly the reference
	// distance.
	for _, d := range []float64{1, 24, 48.5, 100, 0.001} {
		c := NewCalibration()
		m := mustMeasurement(t, 64, 320)

		if err := c.CalibrateFrom(m, d); err != nil {
			t.Fatalf("CalibrateFrom(%v): %v", d, err)
		}
		got, ok := c.Estimate(m)
		if !ok {
			t.Fatalf("Estimate after CalibrateFrom(%v) not calibrated", d)
		}
		if got != d {
			t.Errorf("Estimate = %v, want exactly %v", got, d)
		}
	}
}

func TestCalibrateFromRejectsBadMeasurement(t *testing.T) {
	c := NewCalibration()
	c.SetReference(64, 24)

	err := c.CalibrateFrom(Measurement{PixelDistance: 0, FrameWidth: 320}, 48)
	if !errors.Is(err, ErrNoMeasurement) {
		t.Fatalf("err = %v, want ErrNoMeasurement", err)
	}

	// Prior reference untouched.
	got, ok := c.Estimate(mustMeasurement(t, 64, 320))
	if !ok || got != 24 {
		t.Errorf("Estimate = (%v, %v), want (24, true)", got, ok)
	}
}

func TestEstimateScenario(t *testing.T) {
	// Frame width 320, landmarks 64px apart: normalized 0.2. Calibrate at
	// 24 units, then a measurement at 32px should estimate
	// 1 * ((64*24)/32)^1 = 48.
	c := NewCalibration()

	m1 := mustMeasurement(t, 64, 320)
	if m1.Normalized != 0.2 {
		t.Fatalf("normalized = %v, want 0.2", m1.Normalized)
	}
	if err := c.CalibrateFrom(m1, 24); err != nil {
		t.Fatalf("CalibrateFrom: %v", err)
	}

	m2 := mustMeasurement(t, 32, 320)
	got, ok := c.Estimate(m2)
	if !ok {
		t.Fatal("Estimate not calibrated")
	}
	if got != 48 {
		t.Errorf("Estimate = %v, want 48", got)
	}
}

func TestEstimateMonotonicInPixelDistance(t *testing.T) {
	// With gamma=1, closer apparent size (more pixels) means a smaller
	// estimated distance: the estimate is strictly decreasing in pixel
	// distance.
	c := NewCalibration()
	if err := c.CalibrateFrom(mustMeasurement(t, 64, 320), 24); err != nil {
		t.Fatalf("CalibrateFrom: %v", err)
	}

	prev := math.Inf(1)
	for px := 1.0; px <= 320; px += 7 {
		got, ok := c.Estimate(mustMeasurement(t, px, 320))
		if !ok {
			t.Fatalf("Estimate(%v px) not calibrated", px)
		}
		if got >= prev {
			t.Fatalf("Estimate(%v px) = %v, not less than %v", px, got, prev)
		}
		prev = got
	}
}

func TestEstimateUncalibrated(t *testing.T) {
	c := NewCalibration()
	if _, ok := c.Estimate(mustMeasurement(t, 64, 320)); ok {
		t.Error("Estimate reported ok without calibration")
	}

	c.SetReference(64, 24)
	if _, ok := c.Estimate(Measurement{PixelDistance: 0, FrameWidth: 320}); ok {
		t.Error("Estimate reported ok for non-positive pixel distance")
	}
}

func TestRefineScaleExact(t *testing.T) {
	c := NewCalibration()
	m := mustMeasurement(t, 48, 320)
	if err := c.CalibrateFrom(m, 24); err != nil {
		t.Fatalf("CalibrateFrom: %v", err)
	}

	// After refining against a target, the estimate for the same measurement
	// must be exactly that target.
	if err := c.RefineScale(m, 30); err != nil {
		t.Fatalf("RefineScale: %v", err)
	}
	got, ok := c.Estimate(m)
	if !ok {
		t.Fatal("Estimate not calibrated")
	}
	if got != 30 {
		t.Errorf("Estimate after RefineScale = %v, want exactly 30", got)
	}
}

func TestRefineScaleFailures(t *testing.T) {
	t.Run("requires reference", func(t *testing.T) {
		c := NewCalibration()
		err := c.RefineScale(mustMeasurement(t, 48, 320), 30)
		if !errors.Is(err, ErrNotCalibrated) {
			t.Errorf("err = %v, want ErrNotCalibrated", err)
		}
		if c.Scale() != 1 {
			t.Errorf("scale changed on failure: %v", c.Scale())
		}
	})

	t.Run("requires positive pixel distance", func(t *testing.T) {
		c := NewCalibration()
		c.SetReference(64, 24)
		err := c.RefineScale(Measurement{PixelDistance: -1, FrameWidth: 320}, 30)
		if !errors.Is(err, ErrNoMeasurement) {
			t.Errorf("err = %v, want ErrNoMeasurement", err)
		}
		if c.Scale() != 1 {
			t.Errorf("scale changed on failure: %v", c.Scale())
		}
	})

	t.Run("non-positive base leaves scale unchanged", func(t *testing.T) {
		c := NewCalibration()
		// Negative reference distance makes the power-law base negative.
		c.SetReference(64, -24)
		err := c.RefineScale(mustMeasurement(t, 48, 320), 30)
		if err == nil {
			t.Error("expected error for non-positive base")
		}
		if c.Scale() != 1 {
			t.Errorf("scale changed on failure: %v", c.Scale())
		}
	})
}

func TestSetScaleCoercesNaN(t *testing.T) {
	c := NewCalibration()
	c.SetScale(2.5)
	if c.Scale() != 2.5 {
		t.Errorf("Scale = %v, want 2.5", c.Scale())
	}

	c.SetScale(math.NaN())
	if c.Scale() != 1 {
		t.Errorf("Scale after NaN = %v, want 1", c.Scale())
	}
}

func TestSetGammaRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		v    float64
	}{
		{"zero", 0},
		{"negative", -1},
		{"nan", math.NaN()},
		{"positive infinity", math.Inf(1)},
		{"negative infinity", math.Inf(-1)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := NewCalibration()
			c.SetGamma(1.8)
			c.SetGamma(tc.v)
			if c.Gamma() != 1.8 {
				t.Errorf("Gamma = %v, want prior value 1.8", c.Gamma())
			}
		})
	}
}

func TestSetGammaAffectsEstimate(t *testing.T) {
	c := NewCalibration()
	c.SetGamma(2)
	if err := c.CalibrateFrom(mustMeasurement(t, 64, 320), 24); err != nil {
		t.Fatalf("CalibrateFrom: %v", err)
	}

	// base = (64*24)/32 = 48; estimate = 48^2 = 2304.
	got, ok := c.Estimate(mustMeasurement(t, 32, 320))
	if !ok {
		t.Fatal("Estimate not calibrated")
	}
	if got != 2304 {
		t.Errorf("Estimate = %v, want 2304", got)
	}
}

func TestSetThresholdClearsOnInvalid(t *testing.T) {
	tests := []struct {
		name string
		v    float64
	}{
		{"above range", 1.5},
		{"below range", -0.1},
		{"nan", math.NaN()},
		{"infinity", math.Inf(1)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := NewCalibration()
			c.SetThreshold(0.5)
			if _, ok := c.Threshold(); !ok {
				t.Fatal("threshold not set")
			}

			c.SetThreshold(tc.v)
			if _, ok := c.Threshold(); ok {
				t.Error("invalid value should clear the threshold")
			}
			if _, fired := c.CheckThreshold(mustMeasurement(t, 320, 320)); fired {
				t.Error("cleared threshold must never fire")
			}
		})
	}
}

func TestSetThresholdBoundaryValues(t *testing.T) {
	// 0 and 1 are inclusive bounds.
	for _, v := range []float64{0, 1} {
		c := NewCalibration()
		c.SetThreshold(v)
		got, ok := c.Threshold()
		if !ok || got != v {
			t.Errorf("Threshold after Set(%v) = (%v, %v), want (%v, true)", v, got, ok, v)
		}
	}
}

func TestCheckThresholdLevelTriggered(t *testing.T) {
	c := NewCalibration()
	c.SetThreshold(0.5)

	// Every at-or-above sample fires, not just the rising edge.
	above := mustMeasurement(t, 200, 320)
	for i := 0; i < 3; i++ {
		v, fired := c.CheckThreshold(above)
		if !fired {
			t.Fatalf("sample %d at 0.625 did not fire", i)
		}
		if v != 0.625 {
			t.Errorf("fired value = %v, want 0.625", v)
		}
	}

	below := mustMeasurement(t, 100, 320)
	if _, fired := c.CheckThreshold(below); fired {
		t.Error("sample below threshold fired")
	}

	// Exactly at threshold fires.
	at := mustMeasurement(t, 160, 320)
	if _, fired := c.CheckThreshold(at); !fired {
		t.Error("sample exactly at threshold did not fire")
	}
}

func TestCheckThresholdUsesUnclampedRatio(t *testing.T) {
	c := NewCalibration()
	c.SetThreshold(1)

	// Pixel distance wider than the frame: the clamped signal saturates at 1
	// but the threshold comparison sees the raw ratio above it.
	m := mustMeasurement(t, 400, 320)
	v, fired := c.CheckThreshold(m)
	if !fired {
		t.Fatal("ratio above 1 did not fire threshold at 1")
	}
	if v != 1.25 {
		t.Errorf("fired value = %v, want unclamped 1.25", v)
	}
}

func TestCheckThresholdUnconfigured(t *testing.T) {
	c := NewCalibration()
	if _, fired := c.CheckThreshold(mustMeasurement(t, 320, 320)); fired {
		t.Error("detector fired with no threshold configured")
	}
}

func TestSetReferenceAcceptsNonPositiveDistance(t *testing.T) {
	// A non-positive reference distance is accepted as-is and produces a
	// non-physical estimate downstream. Accepted behavior of the simplified
	// model, not an error.
	c := NewCalibration()
	c.SetReference(64, -24)
	if !c.Calibrated() {
		t.Fatal("expected calibrated with negative reference distance")
	}

	got, ok := c.Estimate(mustMeasurement(t, 32, 320))
	if !ok {
		t.Fatal("Estimate not calibrated")
	}
	if got != -48 {
		t.Errorf("Estimate = %v, want -48", got)
	}
}
