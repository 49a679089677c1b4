package facematch

import (
	"image"
	"math"
)

// InterocularDistance returns the Euclidean distance between the first two landmarks
// (the eyes). Returns 0 if fewer than two landmarks are present.
func InterocularDistance(landmarks [][2]float64) float64 {
	if len(landmarks) < 2 {
		return 0
	}
	dx := landmarks[0][0] - landmarks[1][0]
	dy := landmarks[0][1] - landmarks[1][1]
	return math.Hypot(dx, dy)
}

// ClampBBox converts a float [x1, y1, x2, y2] box to integer pixels, truncating toward
// zero after raising negatives to 0. The box is not cut to the image, so a face that
// runs off the right or bottom edge keeps its full area.
// The result is empty when the box is degenerate.
func ClampBBox(bbox [4]float64) image.Rectangle {
	toPx := func(v float64) int {
		if math.IsNaN(v) || v < 0 {
			return 0
		}
		if v > math.MaxInt32 {
			return math.MaxInt32
		}
		return int(v)
	}
	x1, y1, x2, y2 := toPx(bbox[0]), toPx(bbox[1]), toPx(bbox[2]), toPx(bbox[3])
	if x2 <= x1 || y2 <= y1 {
		return image.Rectangle{}
	}
	return image.Rectangle{Min: image.Pt(x1, y1), Max: image.Pt(x2, y2)}
}

// BBoxArea returns the pixel area of r.
func BBoxArea(r image.Rectangle) int {
	if r.Empty() {
		return 0
	}
	return r.Dx() * r.Dy()
}
