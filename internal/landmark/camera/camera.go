// Package camera provides the production landmark source: a webcam capture
// loop run through OpenCV's YuNet face detector via gocv.
package camera

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/banshee-data/proximity.report/internal/landmark"
	"github.com/banshee-data/proximity.report/internal/monitoring"
)

// A broken capture device fails Read immediately rather than blocking, so
// failures are paced and a persistently dead device ends the run instead of
// spinning the loop.
const (
	readFailureBackoff = 100 * time.Millisecond
	maxReadFailures    = 50
)

// readRetry tracks consecutive frame-read failures.
type readRetry struct {
	failures int
}

// fail records one more failure and reports whether the device should be
// given up on.
func (r *readRetry) fail() (giveUp bool) {
	r.failures++
	return r.failures >= maxReadFailures
}

// ok resets the tracker after a successful read.
func (r *readRetry) ok() { r.failures = 0 }

// Config holds the capture and detector settings.
type Config struct {
	// DeviceID is the V4L/AVFoundation capture device index.
	DeviceID int

	// ModelPath is the path to the YuNet ONNX model.
	ModelPath string

	// ScoreThreshold is the minimum face confidence.
	ScoreThreshold float64

	// InputWidth and InputHeight size the detector input. The detector is
	// resized to the actual frame on every detect call; these only set the
	// initial allocation.
	InputWidth  int
	InputHeight int
}

// DefaultConfig returns production defaults for the YuNet detector.
func DefaultConfig() Config {
	return Config{
		DeviceID:       0,
		ModelPath:      "models/face_detection_yunet.onnx",
		ScoreThreshold: 0.5,
		InputWidth:     320,
		InputHeight:    320,
	}
}

// Source captures webcam frames, detects the most confident face, and emits
// its eye landmarks to subscribers. It implements landmark.Source.
type Source struct {
	*landmark.Broadcaster

	webcam *gocv.VideoCapture
	faces  *yunet

	closeOnce sync.Once
	closeErr  error
}

// NewSource opens the capture device and loads the face detector. On any
// failure the partially-acquired resources are released before the error is
// returned, so a failed start never orphans the camera.
func NewSource(cfg Config) (*Source, error) {
	webcam, err := gocv.OpenVideoCapture(cfg.DeviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to open capture device %d: %w", cfg.DeviceID, err)
	}

	faces, err := newYuNet(cfg.ModelPath, cfg.ScoreThreshold, cfg.InputWidth, cfg.InputHeight)
	if err != nil {
		webcam.Close()
		return nil, fmt.Errorf("failed to load face detector: %w", err)
	}

	return &Source{
		Broadcaster: landmark.NewBroadcaster(),
		webcam:      webcam,
		faces:       faces,
	}, nil
}

// Monitor reads frames and emits detections until the context is cancelled.
// Frames with no detectable face are skipped; subscribers that are mid-frame
// miss the delivery (frames are disposable, there is no buffering).
func (s *Source) Monitor(ctx context.Context) error {
	img := gocv.NewMat()
	defer img.Close()

	var retry readRetry
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if ok := s.webcam.Read(&img); !ok {
			if retry.fail() {
				return fmt.Errorf("camera: device stopped producing frames after %d consecutive read failures", retry.failures)
			}
			if retry.failures == 1 {
				monitoring.Logf("camera: cannot read frame from device, retrying")
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(readFailureBackoff):
			}
			continue
		}
		retry.ok()
		if img.Empty() {
			continue
		}

		det, ok := s.faces.detect(img)
		if !ok {
			continue
		}
		monitoring.Tracef("camera: face at eyes %.1f/%.1f px", det.LeftEye.X, det.RightEye.X)
		s.Offer(det)
	}
}

// Close releases the camera and detector and closes subscriber channels.
func (s *Source) Close() error {
	s.closeOnce.Do(func() {
		s.CloseAll()
		s.faces.close()
		s.closeErr = s.webcam.Close()
	})
	return s.closeErr
}
