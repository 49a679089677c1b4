package scoring

import (
	"fmt"
	"math"

	"github.com/kozaktomas/face-finder/internal/constants"
)

// PercentToColor maps 0..100 to a hue between red (0°) and green (120°) at fixed
// saturation and value, formatted as "#rrggbb". Channels are truncated, not rounded.
func PercentToColor(percent int) string {
	percent = max(0, min(100, percent))
	hue := 120.0 * float64(percent) / 100.0
	r, g, b := hsvToRGB(hue, constants.ColorSaturation, constants.ColorValue)
	return fmt.Sprintf("#%02x%02x%02x", int(r*255), int(g*255), int(b*255))
}

// PercentToRGB is PercentToColor as 8-bit channels.
func PercentToRGB(percent int) (uint8, uint8, uint8) {
	percent = max(0, min(100, percent))
	hue := 120.0 * float64(percent) / 100.0
	r, g, b := hsvToRGB(hue, constants.ColorSaturation, constants.ColorValue)
	return uint8(r * 255), uint8(g * 255), uint8(b * 255)
}

// hsvToRGB converts hue in degrees and s, v in [0, 1] to r, g, b in [0, 1].
func hsvToRGB(hue, s, v float64) (float64, float64, float64) {
	if s == 0 {
		return v, v, v
	}
	h := math.Mod(hue, 360) / 60
	i := math.Floor(h)
	f := h - i
	p := v * (1 - s)
	q := v * (1 - s*f)
	t := v * (1 - s*(1-f))

	switch int(i) % 6 {
	case 0:
		return v, t, p
	case 1:
		return q, v, p
	case 2:
		return p, v, t
	case 3:
		return p, q, v
	case 4:
		return t, p, v
	default:
		return v, p, q
	}
}
