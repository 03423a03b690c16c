package shapefile

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// degree offsets for a roughly 100m x 100m square at the given latitude
func squareAt(lat, lng float64) orb.Polygon {
	dLat := 100.0 / metersPerDegree
	dLng := 100.0 / (metersPerDegree * math.Cos(lat*math.Pi/180))
	return orb.Polygon{orb.Ring{
		{lng, lat},
		{lng + dLng, lat},
		{lng + dLng, lat + dLat},
		{lng, lat + dLat},
		{lng, lat},
	}}
}

func TestAreaSqmSquareAtEquator(t *testing.T) {
	area := AreaSqm(squareAt(0, 0))
	require.NotNil(t, area)
	assert.InDelta(t, 10000.0, *area, 10.0)
}

func TestAreaSqmAppliesLatitudeCorrection(t *testing.T) {
	// Schleswig-Holstein, around 54.5°N
	area := AreaSqm(squareAt(54.5, 9.5))
	require.NotNil(t, area)
	assert.InDelta(t, 10000.0, *area, 50.0)
}

func TestAreaSqmSubtractsHoles(t *testing.T) {
	outer := squareAt(0, 0)[0]
	dLat := 50.0 / metersPerDegree
	dLng := 50.0 / metersPerDegree
	hole := orb.Ring{
		{0, 0}, {dLng, 0}, {dLng, dLat}, {0, dLat}, {0, 0},
	}
	poly := orb.Polygon{outer, hole}

	area := AreaSqm(poly)
	require.NotNil(t, area)
	assert.InDelta(t, 7500.0, *area, 10.0)
}

func TestAreaSqmMultiPolygonSums(t *testing.T) {
	mp := orb.MultiPolygon{squareAt(0, 0), squareAt(0, 1)}
	area := AreaSqm(mp)
	require.NotNil(t, area)
	assert.InDelta(t, 20000.0, *area, 20.0)
}

func TestAreaSqmNonPolygonal(t *testing.T) {
	assert.Nil(t, AreaSqm(orb.Point{9.5, 54.5}))
	assert.Nil(t, AreaSqm(orb.LineString{{0, 0}, {1, 1}}))
}

func TestAreaSqmDegenerateRing(t *testing.T) {
	area := AreaSqm(orb.Polygon{orb.Ring{{0, 0}, {1, 1}}})
	require.NotNil(t, area)
	assert.Equal(t, 0.0, *area)
}

func TestCentroid(t *testing.T) {
	centroid, ok := Centroid(orb.Polygon{orb.Ring{
		{9.0, 54.0}, {10.0, 54.0}, {10.0, 55.0}, {9.0, 55.0},
	}})
	require.True(t, ok)
	assert.InDelta(t, 9.5, centroid.Lng, 1e-9)
	assert.InDelta(t, 54.5, centroid.Lat, 1e-9)
}

func TestCentroidPoint(t *testing.T) {
	centroid, ok := Centroid(orb.Point{9.5, 54.5})
	require.True(t, ok)
	assert.Equal(t, LatLng{Lat: 54.5, Lng: 9.5}, centroid)
}

func TestCentroidEmptyGeometry(t *testing.T) {
	_, ok := Centroid(orb.MultiPoint{})
	assert.False(t, ok)
}
