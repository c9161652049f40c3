package camera

import (
	"fmt"
	"image"
	"os"

	"gocv.io/x/gocv"

	"github.com/banshee-data/proximity.report/internal/landmark"
)

// yunet wraps OpenCV's FaceDetectorYN and maps its output rows onto the two
// eye landmarks the pipeline tracks.
type yunet struct {
	detector gocv.FaceDetectorYN
}

func newYuNet(modelPath string, scoreThreshold float64, inputWidth, inputHeight int) (*yunet, error) {
	if _, err := os.Stat(modelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("model file not found: %s", modelPath)
	}

	detector := gocv.NewFaceDetectorYNWithParams(
		modelPath,
		"", // no config file needed for ONNX
		image.Pt(inputWidth, inputHeight),
		float32(scoreThreshold),
		0.3,  // NMS threshold
		5000, // top K
		int(gocv.NetBackendDefault),
		int(gocv.NetTargetCPU),
	)

	return &yunet{detector: detector}, nil
}

// detect runs the face detector on the frame and returns a landmark detection
// for the highest-scoring face. ok is false when no face is present, which is
// a normal transient state.
//
// YuNet output format (15 columns per row):
//
//	0-3:   x, y, w, h (bounding box in pixels)
//	4-5:   right eye x, y
//	6-7:   left eye x, y
//	8-9:   nose tip x, y
//	10-13: mouth corners
//	14:    face score
func (y *yunet) detect(img gocv.Mat) (landmark.Detection, bool) {
	y.detector.SetInputSize(image.Pt(img.Cols(), img.Rows()))

	faces := gocv.NewMat()
	defer faces.Close()

	y.detector.Detect(img, &faces)

	bestRow := -1
	bestScore := float32(0)
	for r := 0; r < faces.Rows(); r++ {
		if score := faces.GetFloatAt(r, 14); score > bestScore {
			bestScore = score
			bestRow = r
		}
	}
	if bestRow < 0 {
		return landmark.Detection{}, false
	}

	rightEye := landmark.Point{
		X: float64(faces.GetFloatAt(bestRow, 4)),
		Y: float64(faces.GetFloatAt(bestRow, 5)),
	}
	leftEye := landmark.Point{
		X: float64(faces.GetFloatAt(bestRow, 6)),
		Y: float64(faces.GetFloatAt(bestRow, 7)),
	}

	return landmark.Detection{
		LeftEye:    &leftEye,
		RightEye:   &rightEye,
		FrameWidth: img.Cols(),
	}, true
}

func (y *yunet) close() {
	y.detector.Close()
}
