package render

import (
	"image/color"
	"math"

	"github.com/RyanBlaney/sonido-genre/algorithms/common"
)

// infernoStops samples the inferno colormap at 0, 0.1, ..., 1
var infernoStops = [...]color.RGBA{
	{0x00, 0x00, 0x04, 0xff},
	{0x16, 0x0b, 0x39, 0xff},
	{0x42, 0x0a, 0x68, 0xff},
	{0x6a, 0x17, 0x6e, 0xff},
	{0x93, 0x26, 0x67, 0xff},
	{0xbc, 0x37, 0x54, 0xff},
	{0xdd, 0x51, 0x3a, 0xff},
	{0xf3, 0x78, 0x19, 0xff},
	{0xfc, 0xa5, 0x0a, 0xff},
	{0xf6, 0xd7, 0x46, 0xff},
	{0xfc, 0xff, 0xa4, 0xff},
}

// Inferno maps t in [0, 1] to a color, dark for 0 and pale yellow for 1.
// Out of range and NaN inputs are clamped.
func Inferno(t float64) color.RGBA {
	if math.IsNaN(t) {
		t = 0
	}
	t = common.Clamp(t, 0, 1)

	pos := t * float64(len(infernoStops)-1)
	i := int(pos)
	if i >= len(infernoStops)-1 {
		return infernoStops[len(infernoStops)-1]
	}
	frac := pos - float64(i)

	a, b := infernoStops[i], infernoStops[i+1]
	return color.RGBA{
		R: lerp8(a.R, b.R, frac),
		G: lerp8(a.G, b.G, frac),
		B: lerp8(a.B, b.B, frac),
		A: 0xff,
	}
}

func lerp8(a, b uint8, t float64) uint8 {
	return uint8(common.Lerp(float64(a), float64(b), t) + 0.5)
}
