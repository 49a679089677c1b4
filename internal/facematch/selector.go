package facematch

import (
	"context"
	"fmt"
	"image"
	"sort"

	"github.com/kozaktomas/face-finder/internal/imaging"
)

// Selector picks the single most prominent face of an image.
type Selector struct {
	detector         Detector
	minInterocularPx float64
}

// NewSelector creates a selector. Detections whose eyes are closer than
// minInterocularPx pixels are ignored.
func NewSelector(detector Detector, minInterocularPx float64) *Selector {
	return &Selector{detector: detector, minInterocularPx: minInterocularPx}
}

// MinInterocularPx returns the inter-ocular filter distance.
func (s *Selector) MinInterocularPx() float64 {
	return s.minInterocularPx
}

// WithMinInterocularPx returns a selector sharing the detector but filtering
// at px instead. Non-positive px returns s unchanged.
func (s *Selector) WithMinInterocularPx(px float64) *Selector {
	if px <= 0 || px == s.minInterocularPx {
		return s
	}
	return &Selector{detector: s.detector, minInterocularPx: px}
}

type candidate struct {
	rect      image.Rectangle
	area      int
	detection Detection
}

// SelectMostProminentFace detects all faces in img and returns the one with the
// largest bounding box, ties broken by detector confidence. img is expected to be
// upright already (imaging.Decode applies EXIF orientation).
// Returns nil without error when no face survives filtering.
func (s *Selector) SelectMostProminentFace(ctx context.Context, img image.Image) (*Observation, error) {
	rgba := imaging.ToRGBA(img)

	detections, err := s.detector.Detect(ctx, rgba)
	if err != nil {
		return nil, fmt.Errorf("detecting faces: %w", err)
	}

	best, ok := pickMostProminent(detections, rgba.Bounds(), s.minInterocularPx)
	if !ok {
		return nil, nil
	}

	crop := imaging.Crop(rgba, best.rect)
	if crop == nil {
		return nil, nil
	}

	return &Observation{
		Embedding:       best.detection.Embedding,
		Crop:            crop,
		Quality:         best.detection.Score,
		BoundingBoxArea: best.area,
	}, nil
}

// pickMostProminent filters detections and orders survivors by (area, score) descending.
func pickMostProminent(detections []Detection, bounds image.Rectangle, minInterocularPx float64) (candidate, bool) {
	candidates := make([]candidate, 0, len(detections))
	for _, d := range detections {
		if len(d.Landmarks) < 2 || len(d.Embedding) == 0 {
			continue
		}
		if InterocularDistance(d.Landmarks) < minInterocularPx {
			continue
		}
		box := ClampBBox(d.BBox)
		area := BBoxArea(box)
		if area == 0 {
			continue
		}
		// area ranks the full box; only the crop is cut to the image
		rect := box.Intersect(bounds)
		if rect.Empty() {
			continue
		}
		candidates = append(candidates, candidate{rect: rect, area: area, detection: d})
	}

	if len(candidates) == 0 {
		return candidate{}, false
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].area != candidates[j].area {
			return candidates[i].area > candidates[j].area
		}
		return candidates[i].detection.Score > candidates[j].detection.Score
	})
	return candidates[0], true
}
