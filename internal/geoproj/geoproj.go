// Package geoproj maps the render-space positions the pipeline otherwise
// treats as opaque into the geographic coordinate systems an Imagery
// brush needs in order to sample a geo-referenced texture.
//
// Per §6 of the spec, push's geoTransform field is "opaque (scale,
// offset, fullGeoBounds)" to the cache and to every other brush variant.
// This package is the one place that opacity is lifted, and only for the
// Imagery brush. Projection.go/mercator.go/swiss.go in the teacher
// lineage convert between a source CRS and WGS84 for raster tile
// reprojection; the same interface and implementations are reused here
// to convert a point's geo position into WGS84 before mapping it into an
// imagery texture's pixel space.
package geoproj

import "math"

// Projection converts between a source CRS and WGS84, identical in
// shape to internal/coord.Projection in the teacher lineage.
type Projection interface {
	ToWGS84(x, y float64) (lon, lat float64)
	FromWGS84(lon, lat float64) (x, y float64)
	EPSG() int
}

// ForEPSG returns a Projection for the given EPSG code, or nil if
// unsupported.
func ForEPSG(epsg int) Projection {
	switch epsg {
	case 2056:
		return &SwissLV95{}
	case 4326:
		return &WGS84Identity{}
	case 3857:
		return &WebMercatorProj{}
	default:
		return nil
	}
}

// WGS84Identity is a no-op projection for data already in EPSG:4326.
type WGS84Identity struct{}

func (w *WGS84Identity) ToWGS84(x, y float64) (lon, lat float64)   { return x, y }
func (w *WGS84Identity) FromWGS84(lon, lat float64) (x, y float64) { return lon, lat }
func (w *WGS84Identity) EPSG() int                                { return 4326 }

// WebMercatorProj implements Projection for EPSG:3857.
type WebMercatorProj struct{}

const (
	earthCircumference = 40075016.685578488
	originShift        = earthCircumference / 2.0
)

func (w *WebMercatorProj) EPSG() int { return 3857 }

func (w *WebMercatorProj) ToWGS84(x, y float64) (lon, lat float64) {
	lon = (x / originShift) * 180.0
	lat = (y / originShift) * 180.0
	lat = 180.0 / math.Pi * (2.0*math.Atan(math.Exp(lat*math.Pi/180.0)) - math.Pi/2.0)
	return
}

func (w *WebMercatorProj) FromWGS84(lon, lat float64) (x, y float64) {
	x = lon * originShift / 180.0
	y = math.Log(math.Tan((90.0+lat)*math.Pi/360.0)) / (math.Pi / 180.0)
	y = y * originShift / 180.0
	return
}

// GeoTransform is the decoded form of push's opaque geoTransform field:
// a uniform scale + offset from render-space xyz to a source CRS, plus
// the EPSG code of that CRS and the full geographic bounds of the point
// cloud. Every field other than Imagery treats this as an opaque blob;
// this struct only exists for the Imagery brush and for debug tooling.
type GeoTransform struct {
	ScaleX, ScaleY   float64
	OffsetX, OffsetY float64
	EPSG             int
	FullGeoBounds    [4]float64 // minLon, minLat, maxLon, maxLat
}

// ToWGS84 maps a render-space (x, y) to WGS84 lon/lat through this
// transform's source CRS.
func (g GeoTransform) ToWGS84(x, y float64) (lon, lat float64, ok bool) {
	proj := ForEPSG(g.EPSG)
	if proj == nil {
		return 0, 0, false
	}
	crsX := x*g.ScaleX + g.OffsetX
	crsY := y*g.ScaleY + g.OffsetY
	lon, lat = proj.ToWGS84(crsX, crsY)
	return lon, lat, true
}

// ImagePixel maps a render-space (x, y) into fractional pixel
// coordinates of a width×height texture that covers FullGeoBounds,
// for the Imagery brush's per-point texture sampling.
func (g GeoTransform) ImagePixel(x, y float64, width, height int) (px, py float64, ok bool) {
	lon, lat, ok := g.ToWGS84(x, y)
	if !ok {
		return 0, 0, false
	}
	minLon, minLat, maxLon, maxLat := g.FullGeoBounds[0], g.FullGeoBounds[1], g.FullGeoBounds[2], g.FullGeoBounds[3]
	if maxLon <= minLon || maxLat <= minLat {
		return 0, 0, false
	}
	px = (lon - minLon) / (maxLon - minLon) * float64(width)
	py = (maxLat - lat) / (maxLat - minLat) * float64(height) // image Y grows downward
	return px, py, true
}
