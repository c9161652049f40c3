// Package chart implements the live rolling-window chart sink fed by the
// capture pipeline and rendered to browsers with go-echarts.
package chart

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// DefaultCapacity is the rolling window size in points.
const DefaultCapacity = 120

// ErrDisposed is returned by Plot after the chart has been torn down.
var ErrDisposed = errors.New("chart disposed")

// Config controls the rolling chart.
type Config struct {
	// Capacity is the number of points kept; older points are evicted.
	// Zero means DefaultCapacity.
	Capacity int

	// Title is the chart page title.
	Title string
}

// Rolling is a fixed-capacity rolling window of samples. Plot appends and
// evicts the oldest point beyond capacity. It starts in normalized-signal
// mode and can be switched to distance mode once calibration produces
// distance estimates.
type Rolling struct {
	mu           sync.Mutex
	capacity     int
	title        string
	points       []float64
	distanceMode bool
	disposed     bool
}

// NewRolling initialises a rolling chart from config.
func NewRolling(cfg Config) *Rolling {
	capacity := cfg.Capacity
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	title := cfg.Title
	if title == "" {
		title = "Proximity"
	}
	return &Rolling{
		capacity: capacity,
		title:    title,
		points:   make([]float64, 0, capacity),
	}
}

// Plot appends a value to the window, evicting the oldest beyond capacity.
func (r *Rolling) Plot(value float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.disposed {
		return ErrDisposed
	}
	r.points = append(r.points, value)
	if len(r.points) > r.capacity {
		r.points = r.points[len(r.points)-r.capacity:]
	}
	return nil
}

// SwitchToDistanceMode flips the chart to plot calibrated distances. The
// window is cleared because the axis scale changes from [0,1] to physical
// units.
func (r *Rolling) SwitchToDistanceMode() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.distanceMode || r.disposed {
		return
	}
	r.distanceMode = true
	r.points = r.points[:0]
}

// DistanceMode reports whether the chart is plotting distances.
func (r *Rolling) DistanceMode() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.distanceMode
}

// Dispose tears the chart down. Further Plot calls fail with ErrDisposed.
func (r *Rolling) Dispose() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.disposed = true
	r.points = nil
}

// Snapshot returns a copy of the current window.
func (r *Rolling) Snapshot() []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]float64, len(r.points))
	copy(out, r.points)
	return out
}

// RenderHTML writes the current window as a standalone go-echarts line chart
// page.
func (r *Rolling) RenderHTML(w io.Writer) error {
	r.mu.Lock()
	points := make([]float64, len(r.points))
	copy(points, r.points)
	distanceMode := r.distanceMode
	title := r.title
	capacity := r.capacity
	r.mu.Unlock()

	seriesName := "normalized"
	subtitle := fmt.Sprintf("rolling window of %d samples, signal in [0,1]", capacity)
	if distanceMode {
		seriesName = "distance"
		subtitle = fmt.Sprintf("rolling window of %d samples, calibrated distance", capacity)
	}

	xAxis := make([]string, len(points))
	data := make([]opts.LineData, len(points))
	for i, v := range points {
		xAxis[i] = strconv.Itoa(i - len(points) + 1)
		data[i] = opts.LineData{Value: v}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Theme: "dark", Width: "900px", Height: "500px"}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	line.SetXAxis(xAxis)
	line.AddSeries(seriesName, data,
		charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}))

	return line.Render(w)
}
