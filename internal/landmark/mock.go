package landmark

import (
	"context"
	"sync"
)

// MockSource is an in-memory Source for tests. Detections are injected with
// Emit and delivered synchronously to every subscriber, so a test can drive
// the pipeline frame by frame.
type MockSource struct {
	*Broadcaster

	mu        sync.Mutex
	monitored bool
	done      chan struct{}
}

// NewMockSource creates an empty MockSource.
func NewMockSource() *MockSource {
	return &MockSource{
		Broadcaster: NewBroadcaster(),
		done:        make(chan struct{}),
	}
}

// Emit delivers a detection to all current subscribers, blocking until each
// has received it.
func (s *MockSource) Emit(d Detection) {
	s.Publish(d)
}

// EmitEyes is a convenience for tests: emits a detection with eyes at the
// given x coordinates on a level line.
func (s *MockSource) EmitEyes(leftX, rightX float64, frameWidth int) {
	s.Emit(Detection{
		LeftEye:    &Point{X: leftX, Y: 120},
		RightEye:   &Point{X: rightX, Y: 120},
		FrameWidth: frameWidth,
	})
}

// Monitor blocks until the context is cancelled or the source is closed. All
// delivery happens through Emit.
func (s *MockSource) Monitor(ctx context.Context) error {
	s.mu.Lock()
	s.monitored = true
	s.mu.Unlock()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return nil
	}
}

// Monitored reports whether Monitor has been started, for lifecycle tests.
func (s *MockSource) Monitored() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.monitored
}

// Close closes all subscriber channels and unblocks Monitor.
func (s *MockSource) Close() error {
	s.mu.Lock()
	select {
	case <-s.done:
	default:
		close(s.done)
	}
	s.mu.Unlock()

	s.CloseAll()
	return nil
}
