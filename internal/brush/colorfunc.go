package brush

import "github.com/hobu/plasio-go/internal/colorenc"

// ColorPointInto runs one brush's ColorPoint against a point and packs
// the resulting RGB triple into a single float32 via §6's color
// encoding. scratch is a caller-owned 3-element buffer reused across
// calls to avoid an allocation per point.
func ColorPointInto(b Brush, scratch []float64, point []float32) float32 {
	scratch[0], scratch[1], scratch[2] = 0, 0, 0
	b.ColorPoint(scratch, point)
	return colorenc.Encode(
		colorenc.ClampChannel(scratch[0]),
		colorenc.ClampChannel(scratch[1]),
		colorenc.ClampChannel(scratch[2]),
	)
}
