package facematch

import (
	"context"
	"image"
)

// Detection is one raw face returned by the face model, in pixel coordinates of the
// image that was sent to it.
type Detection struct {
	BBox      [4]float64   // [x1, y1, x2, y2]
	Landmarks [][2]float64 // [0] and [1] are the eyes
	Embedding []float32    // L2-normalized by the model
	Score     float64      // detector confidence
}

// Observation is the most prominent face of one image.
type Observation struct {
	Embedding       []float32
	Crop            *image.RGBA
	Quality         float64
	BoundingBoxArea int
}

// Detector runs face detection and embedding on an upright RGBA image.
type Detector interface {
	Detect(ctx context.Context, img *image.RGBA) ([]Detection, error)
}
