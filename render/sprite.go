package render

import (
	"image"
	"image/color"
	"math"

	xdraw "golang.org/x/image/draw"
)

// GenerateSprite builds the soft radial-falloff alpha mask every particle
// billboard samples. Rendered at a fixed reference resolution, then rescaled
// to the requested size.
func GenerateSprite(size int) *image.Alpha {
	const ref = 64
	base := image.NewAlpha(image.Rect(0, 0, ref, ref))
	center := float64(ref-1) / 2
	for y := 0; y < ref; y++ {
		for x := 0; x < ref; x++ {
			dx := (float64(x) - center) / center
			dy := (float64(y) - center) / center
			d := math.Sqrt(dx*dx + dy*dy)
			v := 1.0 - d
			if v < 0 {
				v = 0
			}
			// Squared falloff reads as a soft puff rather than a disc.
			base.SetAlpha(x, y, color.Alpha{A: uint8(v * v * 255)})
		}
	}
	if size <= 0 || size == ref {
		return base
	}
	scaled := image.NewAlpha(image.Rect(0, 0, size, size))
	xdraw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), base, base.Bounds(), xdraw.Src, nil)
	return scaled
}
