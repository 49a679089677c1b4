package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"

	"golang.org/x/image/draw"
)

// Downscale resizes img to fit within maxSide (width or height) while keeping aspect ratio.
// Images already within bounds are returned unchanged.
func Downscale(img *image.RGBA, maxSide int) *image.RGBA {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	if maxSide <= 0 || (width <= maxSide && height <= maxSide) {
		return img
	}

	// Calculate new dimensions.
	var newWidth, newHeight int
	if width > height {
		newWidth = maxSide
		newHeight = int(float64(height) * float64(maxSide) / float64(width))
	} else {
		newHeight = maxSide
		newWidth = int(float64(width) * float64(maxSide) / float64(height))
	}
	newWidth = max(newWidth, 1)
	newHeight = max(newHeight, 1)

	resized := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	draw.CatmullRom.Scale(resized, resized.Bounds(), img, bounds, draw.Over, nil)
	return resized
}

// Crop copies the r sub-rectangle of img into a new RGBA image anchored at the origin.
// r is intersected with the image bounds; an empty intersection yields nil.
func Crop(img *image.RGBA, r image.Rectangle) *image.RGBA {
	r = r.Intersect(img.Bounds())
	if r.Empty() {
		return nil
	}
	dst := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Copy(dst, image.Point{}, img, r, draw.Src, nil)
	return dst
}

// EncodeJPEG encodes img as JPEG at the given quality.
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}

// ThumbnailDataURL downscales img so its longer side is at most maxSide, encodes it as
// JPEG and returns it as an inline data URL ("data:image/jpeg;base64,...").
func ThumbnailDataURL(img image.Image, maxSide, quality int) (string, error) {
	data, err := EncodeJPEG(Downscale(ToRGBA(img), maxSide), quality)
	if err != nil {
		return "", err
	}
	return JPEGDataURL(data), nil
}

// JPEGDataURL wraps already-encoded JPEG bytes as an inline data URL.
func JPEGDataURL(data []byte) string {
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(data)
}
