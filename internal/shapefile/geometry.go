package shapefile

import (
	"math"

	"github.com/paulmach/orb"
)

// metersPerDegree approximates one degree of latitude. One degree of
// longitude shrinks with cos(latitude).
const metersPerDegree = 111320.0

// LatLng is a WGS84 coordinate pair.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Centroid returns the arithmetic mean of every vertex in the geometry.
// This is a naive vertex-average centroid, not an area-weighted one; for
// roughly convex cadastral parcels the difference is negligible and the
// result is only used to place markers and pick the area reference
// latitude.
func Centroid(g orb.Geometry) (LatLng, bool) {
	var pts []orb.Point
	collectPoints(g, &pts)
	if len(pts) == 0 {
		return LatLng{}, false
	}
	var sumLng, sumLat float64
	for _, p := range pts {
		sumLng += p.Lon()
		sumLat += p.Lat()
	}
	n := float64(len(pts))
	return LatLng{Lat: sumLat / n, Lng: sumLng / n}, true
}

func collectPoints(g orb.Geometry, pts *[]orb.Point) {
	switch geom := g.(type) {
	case orb.Point:
		*pts = append(*pts, geom)
	case orb.MultiPoint:
		*pts = append(*pts, geom...)
	case orb.LineString:
		*pts = append(*pts, geom...)
	case orb.MultiLineString:
		for _, ls := range geom {
			*pts = append(*pts, ls...)
		}
	case orb.Ring:
		*pts = append(*pts, geom...)
	case orb.Polygon:
		for _, ring := range geom {
			*pts = append(*pts, ring...)
		}
	case orb.MultiPolygon:
		for _, poly := range geom {
			for _, ring := range poly {
				*pts = append(*pts, ring...)
			}
		}
	case orb.Collection:
		for _, sub := range geom {
			collectPoints(sub, pts)
		}
	}
}

// AreaSqm computes the parcel area in square meters for polygonal
// geometries; nil for anything else. The Shoelace formula runs on the
// feature's own lon/lat degree coordinates (outer ring minus holes, summed
// over a MultiPolygon), then square degrees are converted to square meters
// with a latitude correction at the feature's own centroid. This is a
// planar approximation, valid for small parcels only, and deliberately not
// a geodesic computation: downstream consumers are calibrated to it.
func AreaSqm(g orb.Geometry) *float64 {
	var areaDeg float64
	switch geom := g.(type) {
	case orb.Polygon:
		areaDeg = polygonAreaDeg(geom)
	case orb.MultiPolygon:
		for _, poly := range geom {
			areaDeg += polygonAreaDeg(poly)
		}
	default:
		return nil
	}

	centroid, ok := Centroid(g)
	if !ok {
		return nil
	}
	latRad := centroid.Lat * math.Pi / 180
	sqm := areaDeg * metersPerDegree * metersPerDegree * math.Cos(latRad)
	if sqm < 0 {
		sqm = 0
	}
	return &sqm
}

func polygonAreaDeg(poly orb.Polygon) float64 {
	if len(poly) == 0 {
		return 0
	}
	area := ringAreaDeg(poly[0])
	for _, hole := range poly[1:] {
		area -= ringAreaDeg(hole)
	}
	if area < 0 {
		area = 0
	}
	return area
}

// ringAreaDeg is the absolute Shoelace area of one ring in square degrees.
func ringAreaDeg(ring orb.Ring) float64 {
	n := len(ring)
	if n < 3 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += ring[i].Lon()*ring[j].Lat() - ring[j].Lon()*ring[i].Lat()
	}
	return math.Abs(sum) / 2
}
