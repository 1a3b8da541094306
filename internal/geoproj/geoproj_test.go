package geoproj

import "testing"

func TestWebMercatorRoundTrip(t *testing.T) {
	proj := &WebMercatorProj{}
	x, y := proj.FromWGS84(8.5, 47.37)
	lon, lat := proj.ToWGS84(x, y)
	if abs(lon-8.5) > 1e-6 || abs(lat-47.37) > 1e-6 {
		t.Errorf("round trip = (%f,%f), want (8.5,47.37)", lon, lat)
	}
}

func TestSwissLV95RoundTrip(t *testing.T) {
	proj := &SwissLV95{}
	// Zurich, roughly.
	lon, lat := proj.ToWGS84(2683000, 1247000)
	easting, northing := proj.FromWGS84(lon, lat)
	if abs(easting-2683000) > 1.0 || abs(northing-1247000) > 1.0 {
		t.Errorf("Swiss round trip = (%f,%f), want ~(2683000,1247000)", easting, northing)
	}
}

func TestForEPSGUnsupported(t *testing.T) {
	if p := ForEPSG(9999); p != nil {
		t.Errorf("ForEPSG(9999) = %v, want nil", p)
	}
}

func TestGeoTransformImagePixel(t *testing.T) {
	g := GeoTransform{
		ScaleX: 1, ScaleY: 1, OffsetX: 0, OffsetY: 0,
		EPSG:          4326,
		FullGeoBounds: [4]float64{0, 0, 10, 10},
	}
	px, py, ok := g.ImagePixel(5, 5, 100, 100)
	if !ok {
		t.Fatal("ImagePixel returned ok=false")
	}
	if abs(px-50) > 1e-6 || abs(py-50) > 1e-6 {
		t.Errorf("ImagePixel(5,5) = (%f,%f), want (50,50)", px, py)
	}
}

func TestGeoTransformUnsupportedEPSG(t *testing.T) {
	g := GeoTransform{EPSG: 1234}
	if _, _, ok := g.ToWGS84(0, 0); ok {
		t.Error("ToWGS84 with unsupported EPSG should return ok=false")
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
