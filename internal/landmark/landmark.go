// Package landmark defines the detection events produced by a face-landmark
// source and the subscription interface the pipeline consumes them through.
// Concrete sources live alongside: a gocv-backed webcam source in the camera
// subpackage, and mock/synthetic sources for tests and dev mode.
package landmark

import (
	"math"

	"github.com/banshee-data/proximity.report/internal/proximity"
)

// Point is a pixel coordinate in the source frame.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Detection is one frame's worth of landmark output: the two tracked eye
// landmarks and the frame's pixel width. Either landmark may be absent when
// the detector loses the face; that is a normal transient state.
type Detection struct {
	LeftEye    *Point
	RightEye   *Point
	FrameWidth int
}

// Measure converts the detection into a proximity measurement. It returns
// false when either landmark is missing or the frame width is not positive;
// such frames are silently dropped by the pipeline.
//
// The eye landmarks sit roughly level, so the Euclidean distance collapses to
// the absolute horizontal difference.
func (d Detection) Measure() (proximity.Measurement, bool) {
	if d.LeftEye == nil || d.RightEye == nil {
		return proximity.Measurement{}, false
	}
	return proximity.NewMeasurement(math.Abs(d.RightEye.X-d.LeftEye.X), d.FrameWidth)
}
