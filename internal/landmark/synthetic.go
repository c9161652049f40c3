package landmark

import (
	"context"
	"math"
	"time"

	"github.com/banshee-data/proximity.report/internal/timeutil"
)

// SyntheticSource emits an oscillating eye-spacing signal at a fixed frame
// rate, for running the full stack without a camera (dev mode). The apparent
// eye distance sweeps a sine between minPixels and maxPixels over the period,
// which looks like a face slowly leaning in and out.
type SyntheticSource struct {
	*Broadcaster

	clock     timeutil.Clock
	frameRate time.Duration
	period    time.Duration
	minPixels float64
	maxPixels float64
	width     int
}

// NewSyntheticSource creates a synthetic feed. frameRate is the interval
// between detections; period is the length of one full in-and-out sweep.
func NewSyntheticSource(clock timeutil.Clock, frameRate, period time.Duration, frameWidth int) *SyntheticSource {
	return &SyntheticSource{
		Broadcaster: NewBroadcaster(),
		clock:       clock,
		frameRate:   frameRate,
		period:      period,
		minPixels:   float64(frameWidth) * 0.05,
		maxPixels:   float64(frameWidth) * 0.45,
		width:       frameWidth,
	}
}

// Monitor emits detections on every tick until the context is cancelled.
func (s *SyntheticSource) Monitor(ctx context.Context) error {
	ticker := s.clock.NewTicker(s.frameRate)
	defer ticker.Stop()

	start := s.clock.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C():
			s.Offer(s.detectionAt(now.Sub(start)))
		}
	}
}

// detectionAt computes the synthetic detection for an elapsed time.
func (s *SyntheticSource) detectionAt(elapsed time.Duration) Detection {
	phase := 2 * math.Pi * float64(elapsed) / float64(s.period)
	spread := s.minPixels + (s.maxPixels-s.minPixels)*(0.5+0.5*math.Sin(phase))

	centerX := float64(s.width) / 2
	eyeY := float64(s.width) * 0.3
	return Detection{
		LeftEye:    &Point{X: centerX - spread/2, Y: eyeY},
		RightEye:   &Point{X: centerX + spread/2, Y: eyeY},
		FrameWidth: s.width,
	}
}

// Close closes all subscriber channels.
func (s *SyntheticSource) Close() error {
	s.CloseAll()
	return nil
}
