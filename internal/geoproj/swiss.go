package geoproj

// SwissLV95 implements Projection for EPSG:2056 (CH1903+ / LV95), using
// swisstopo's published polynomial approximation. Accuracy ~1 meter,
// sufficient for mapping a point cloud's render-space position onto an
// orthophoto pixel. Ported from internal/coord/swiss.go.
type SwissLV95 struct{}

func (s *SwissLV95) EPSG() int { return 2056 }

func (s *SwissLV95) ToWGS84(easting, northing float64) (lon, lat float64) {
	y := (easting - 2_600_000) / 1_000_000
	x := (northing - 1_200_000) / 1_000_000

	lonSec := 2.6779094 +
		4.728982*y +
		0.791484*y*x +
		0.1306*y*x*x -
		0.0436*y*y*y

	latSec := 16.9023892 +
		3.238272*x -
		0.270978*y*y -
		0.002528*x*x -
		0.0447*y*y*x -
		0.0140*x*x*x

	lon = lonSec * 100.0 / 36.0
	lat = latSec * 100.0 / 36.0
	return
}

func (s *SwissLV95) FromWGS84(lon, lat float64) (easting, northing float64) {
	latSec := (lat*3600 - 169028.66) / 10000
	lonSec := (lon*3600 - 26782.5) / 10000

	easting = 2_600_072.37 +
		211455.93*lonSec -
		10938.51*lonSec*latSec -
		0.36*lonSec*latSec*latSec -
		44.54*lonSec*lonSec*lonSec

	northing = 1_200_147.07 +
		308807.95*latSec +
		3745.25*lonSec*lonSec +
		76.63*latSec*latSec -
		194.56*lonSec*lonSec*latSec +
		119.79*latSec*latSec*latSec

	return
}
