// Package imaging decodes, orients, scales and re-encodes images for the face pipeline.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/rwcarlsen/goexif/exif"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
	_ "golang.org/x/image/webp"
)

// ErrEmptyImage is returned when there are no bytes to decode.
var ErrEmptyImage = errors.New("empty image data")

// Decode decodes JPEG, PNG, GIF, WebP or BMP bytes, applies the EXIF orientation
// (when present) and returns an RGBA image whose bounds start at the origin.
func Decode(data []byte) (*image.RGBA, error) {
	if len(data) == 0 {
		return nil, ErrEmptyImage
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	return ApplyOrientation(ToRGBA(img), readOrientation(data)), nil
}

// readOrientation returns the EXIF orientation tag (1-8), or 1 if absent or unreadable.
func readOrientation(data []byte) int {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return 1
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}
	o, err := tag.Int(0)
	if err != nil || o < 1 || o > 8 {
		return 1
	}
	return o
}

// ToRGBA converts any image into an RGBA image with bounds starting at (0, 0).
func ToRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	if rgba, ok := img.(*image.RGBA); ok && b.Min == (image.Point{}) {
		return rgba
	}
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

// ApplyOrientation returns img transformed so that it displays upright for the given
// EXIF orientation. Orientations 5-8 swap width and height.
func ApplyOrientation(img *image.RGBA, orientation int) *image.RGBA {
	if orientation <= 1 || orientation > 8 {
		return img
	}

	w := float64(img.Bounds().Dx())
	h := float64(img.Bounds().Dy())

	// s2d maps source coordinates (x, y) to (a*x + b*y + c, d*x + e*y + f).
	var s2d f64.Aff3
	swap := false
	switch orientation {
	case 2: // mirror horizontal
		s2d = f64.Aff3{-1, 0, w, 0, 1, 0}
	case 3: // rotate 180
		s2d = f64.Aff3{-1, 0, w, 0, -1, h}
	case 4: // mirror vertical
		s2d = f64.Aff3{1, 0, 0, 0, -1, h}
	case 5: // transpose
		s2d = f64.Aff3{0, 1, 0, 1, 0, 0}
		swap = true
	case 6: // rotate 90 CW
		s2d = f64.Aff3{0, -1, h, 1, 0, 0}
		swap = true
	case 7: // transverse
		s2d = f64.Aff3{0, -1, h, -1, 0, w}
		swap = true
	case 8: // rotate 90 CCW
		s2d = f64.Aff3{0, 1, 0, -1, 0, w}
		swap = true
	}

	dw, dh := img.Bounds().Dx(), img.Bounds().Dy()
	if swap {
		dw, dh = dh, dw
	}
	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	draw.NearestNeighbor.Transform(dst, s2d, img, img.Bounds(), draw.Src, nil)
	return dst
}
