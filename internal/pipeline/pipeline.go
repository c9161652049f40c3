// Package pipeline wires a landmark source through the proximity core and
// fans processed events out to the chart sink and host callbacks. It owns the
// lifecycle of a capture run: the camera resource, the last measurement, the
// calibration state, and the event throttles all live and die with one run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/banshee-data/proximity.report/internal/landmark"
	"github.com/banshee-data/proximity.report/internal/monitoring"
	"github.com/banshee-data/proximity.report/internal/proximity"
	"github.com/banshee-data/proximity.report/internal/throttle"
	"github.com/banshee-data/proximity.report/internal/timeutil"
)

// ErrNotRunning is returned by calibration commands when no capture run is
// active; calibration state only exists inside a run.
var ErrNotRunning = errors.New("pipeline not running")

// Default throttle intervals. Raw proximity readings arrive at camera rate
// and are damped for interop cost and visual smoothness; calibrated distance
// events are low-frequency and important enough to always deliver.
const (
	DefaultReadingInterval = 150 * time.Millisecond
	DefaultChartInterval   = 100 * time.Millisecond
)

// SourceFactory acquires a fresh landmark source for one capture run. An
// acquisition failure (camera permission, missing model) is surfaced as a
// hard failure of Start; the factory must release anything partially acquired
// before returning the error.
type SourceFactory func() (landmark.Source, error)

// Events is the set of host callbacks. Any field may be nil. Callbacks are
// dispatched in isolation: a panicking consumer is logged and does not affect
// other consumers or subsequent frames.
type Events struct {
	// OnReading receives the clamped normalized signal, throttled to at most
	// one call per reading interval. The first sample of a run always fires.
	OnReading func(value float64)

	// OnDistance receives the calibrated distance estimate for every
	// qualifying measurement, unthrottled.
	OnDistance func(distance float64)

	// OnThreshold receives the unclamped pixel ratio whenever a calibrated
	// sample sits at or above the configured threshold. Level-triggered:
	// every qualifying sample fires, not only the crossing.
	OnThreshold func(value float64)
}

// Sink is the charting consumer. chart.Rolling satisfies it.
type Sink interface {
	Plot(value float64) error
	SwitchToDistanceMode()
	Dispose()
}

// Config tunes a Pipeline.
type Config struct {
	// ReadingInterval gates OnReading. Zero means DefaultReadingInterval.
	ReadingInterval time.Duration

	// ChartInterval gates chart updates; the normalized and distance series
	// share the one gate. Zero means DefaultChartInterval.
	ChartInterval time.Duration

	// Clock drives the throttles. Nil means the real clock.
	Clock timeutil.Clock
}

// Pipeline is the host bridge. It owns at most one capture run at a time;
// starting while running stops the prior run first, and the old camera
// resource is fully released before the new one is requested.
type Pipeline struct {
	factory         SourceFactory
	clock           timeutil.Clock
	readingInterval time.Duration
	chartInterval   time.Duration

	mu  sync.Mutex
	run *run
}

// run holds the state of one capture run. It is created on Start and
// discarded wholesale on Stop; calibration never survives a restart.
type run struct {
	source landmark.Source
	subID  string
	cancel context.CancelFunc

	events Events
	sink   Sink

	cal  *proximity.Calibration
	last *proximity.Measurement

	readingGate  *throttle.Limiter
	chartGate    *throttle.Limiter
	distanceMode bool
}

// New creates a Pipeline that acquires its landmark source from factory on
// every Start.
func New(factory SourceFactory, cfg Config) *Pipeline {
	clock := cfg.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	readingInterval := cfg.ReadingInterval
	if readingInterval == 0 {
		readingInterval = DefaultReadingInterval
	}
	chartInterval := cfg.ChartInterval
	if chartInterval == 0 {
		chartInterval = DefaultChartInterval
	}
	return &Pipeline{
		factory:         factory,
		clock:           clock,
		readingInterval: readingInterval,
		chartInterval:   chartInterval,
	}
}

// Start begins capture, stopping any prior run first. The source is acquired
// synchronously; an acquisition error is returned without leaving a run
// behind.
func (p *Pipeline) Start(events Events, sink Sink) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopLocked()

	source, err := p.factory()
	if err != nil {
		return fmt.Errorf("failed to start capture: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	subID, ch := source.Subscribe()

	r := &run{
		source:      source,
		subID:       subID,
		cancel:      cancel,
		events:      events,
		sink:        sink,
		cal:         proximity.NewCalibration(),
		readingGate: throttle.New(p.clock, p.readingInterval),
		chartGate:   throttle.New(p.clock, p.chartInterval),
	}
	p.run = r

	go func() {
		if err := source.Monitor(ctx); err != nil && !errors.Is(err, context.Canceled) {
			monitoring.Logf("pipeline: source monitor terminated: %v", err)
		}
	}()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case det, ok := <-ch:
				if !ok {
					return
				}
				p.process(r, det)
			}
		}
	}()

	return nil
}

// Stop ends capture, releases the camera, tears down the chart, and discards
// all run state. Idempotent: calling it with no active run is a no-op.
func (p *Pipeline) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

func (p *Pipeline) stopLocked() {
	r := p.run
	if r == nil {
		return
	}
	p.run = nil

	r.cancel()
	r.source.Unsubscribe(r.subID)
	if r.sink != nil {
		r.sink.Dispose()
	}
	if err := r.source.Close(); err != nil {
		monitoring.Logf("pipeline: failed to close landmark source: %v", err)
	}
}

// Running reports whether a capture run is active.
func (p *Pipeline) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.run != nil
}

// emission is one consumer notification decided under the run lock and
// dispatched after it is released.
type emission struct {
	name string
	fn   func()
}

// process handles a single detection: extract, calibrate, gate, dispatch.
// All decisions are made under the pipeline lock; consumer callbacks run
// after it is released so a slow or reentrant consumer cannot stall the lock.
func (p *Pipeline) process(r *run, det landmark.Detection) {
	m, ok := det.Measure()
	if !ok {
		// Missing landmarks or unusable frame width: expected transient state.
		return
	}

	p.mu.Lock()
	if p.run != r {
		// Stopped (or restarted) while this frame was in flight.
		p.mu.Unlock()
		return
	}

	r.last = &m
	monitoring.Tracef("pipeline: measurement %.1fpx/%d normalized %.3f", m.PixelDistance, m.FrameWidth, m.Normalized)

	var emissions []emission

	estimate, calibrated := r.cal.Estimate(m)

	if calibrated && !r.distanceMode {
		r.distanceMode = true
		if r.sink != nil {
			sink := r.sink
			emissions = append(emissions, emission{"chart", func() { sink.SwitchToDistanceMode() }})
		}
	}

	// The two chart series share a single gate; only the mode-appropriate one
	// is plotted per frame.
	if r.sink != nil && (calibrated || !r.distanceMode) && r.chartGate.Allow() {
		sink := r.sink
		value := m.Normalized
		if r.distanceMode {
			value = estimate
		}
		emissions = append(emissions, emission{"chart", func() {
			if err := sink.Plot(value); err != nil {
				monitoring.Logf("pipeline: chart plot failed: %v", err)
			}
		}})
	}

	if calibrated && r.events.OnDistance != nil {
		fn := r.events.OnDistance
		emissions = append(emissions, emission{"distance", func() { fn(estimate) }})
	}

	if calibrated && r.events.OnThreshold != nil {
		if v, fired := r.cal.CheckThreshold(m); fired {
			fn := r.events.OnThreshold
			emissions = append(emissions, emission{"threshold", func() { fn(v) }})
		}
	}

	if r.events.OnReading != nil && r.readingGate.Allow() {
		fn := r.events.OnReading
		value := m.Normalized
		emissions = append(emissions, emission{"reading", func() { fn(value) }})
	}

	p.mu.Unlock()

	for _, e := range emissions {
		dispatch(e.name, e.fn)
	}
}

// dispatch runs one consumer notification in isolation so a failing consumer
// cannot take down the capture loop or starve its peers.
func dispatch(name string, fn func()) {
	defer func() {
		if rec := recover(); rec != nil {
			monitoring.Logf("pipeline: %s consumer panicked: %v", name, rec)
		}
	}()
	fn()
}
