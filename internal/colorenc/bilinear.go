package colorenc

import "image"

// SampleBilinear reads the 4 pixels surrounding the fractional image
// coordinate (fx, fy) and blends them by their fractional weights.
//
// This is the same technique internal/tile/resample.go's
// bilinearSampleCached uses to interpolate a COG raster at a fractional
// pixel location, re-expressed against a plain *image.RGBA (the Imagery
// brush samples one decoded texture directly; it has no multi-resolution
// COG pyramid or per-tile cache to thread through, so the cache parameter
// and overview-level selection of the original fall away).
func SampleBilinear(img *image.RGBA, fx, fy float64) (r, g, b, a uint8) {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w == 0 || h == 0 {
		return 0, 0, 0, 0
	}

	// Shift into pixel-center sampling space, then clamp to the valid range.
	fx -= 0.5
	fy -= 0.5
	if fx < 0 {
		fx = 0
	}
	if fy < 0 {
		fy = 0
	}

	x0 := int(fx)
	y0 := int(fy)
	x1 := x0 + 1
	y1 := y0 + 1
	if x1 >= w {
		x1 = w - 1
	}
	if y1 >= h {
		y1 = h - 1
	}
	if x0 >= w {
		x0 = w - 1
	}
	if y0 >= h {
		y0 = h - 1
	}

	tx := fx - float64(x0)
	ty := fy - float64(y0)

	c00 := img.RGBAAt(bounds.Min.X+x0, bounds.Min.Y+y0)
	c10 := img.RGBAAt(bounds.Min.X+x1, bounds.Min.Y+y0)
	c01 := img.RGBAAt(bounds.Min.X+x0, bounds.Min.Y+y1)
	c11 := img.RGBAAt(bounds.Min.X+x1, bounds.Min.Y+y1)

	lerp := func(a, b uint8, t float64) float64 {
		return float64(a) + (float64(b)-float64(a))*t
	}
	blend := func(v00, v10, v01, v11 uint8) uint8 {
		top := lerp(v00, v10, tx)
		bot := lerp(v01, v11, tx)
		return clamp255(int(top + (bot-top)*ty + 0.5))
	}

	r = blend(c00.R, c10.R, c01.R, c11.R)
	g = blend(c00.G, c10.G, c01.G, c11.G)
	b = blend(c00.B, c10.B, c01.B, c11.B)
	a = blend(c00.A, c10.A, c01.A, c11.A)
	return r, g, b, a
}
