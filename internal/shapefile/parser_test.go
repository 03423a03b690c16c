package shapefile

import (
	"errors"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nordwind/parkoffice/internal/domain/entity"
)

// stubDecoder feeds prepared layers into the parser.
type stubDecoder struct {
	result *DecodeResult
	err    error
}

func (d *stubDecoder) Decode(data []byte) (*DecodeResult, error) {
	return d.result, d.err
}

func feature(g orb.Geometry, props geojson.Properties) *geojson.Feature {
	f := &geojson.Feature{Type: "Feature", Geometry: g, Properties: props}
	return f
}

func layerOf(features ...*geojson.Feature) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, f := range features {
		fc.Append(f)
	}
	return fc
}

func parcel() orb.Geometry {
	return orb.Polygon{orb.Ring{
		{9.5, 54.5}, {9.501, 54.5}, {9.501, 54.501}, {9.5, 54.501}, {9.5, 54.5},
	}}
}

func newTestParser(d Decoder) *Parser {
	return NewParser(d, zap.NewNop())
}

func TestParse(t *testing.T) {
	decoder := &stubDecoder{result: &DecodeResult{
		Layers: []*geojson.FeatureCollection{layerOf(
			feature(parcel(), geojson.Properties{"gemarkung": "Jübek", "flur": "3"}),
		)},
		Fields: [][]string{{"gemarkung", "flur"}},
		CRS:    "GEOGCS[...]",
	}}

	result, err := newTestParser(decoder).Parse(nil, "flurstuecke.zip")
	require.NoError(t, err)

	require.Len(t, result.Features, 1)
	assert.Empty(t, result.Warnings)
	assert.Equal(t, []string{"gemarkung", "flur"}, result.Fields)
	assert.Equal(t, "GEOGCS[...]", result.CRS)

	f := result.Features[0]
	assert.Equal(t, 1, f.ID)
	assert.Equal(t, "Jübek", f.Properties["gemarkung"])
	require.NotNil(t, f.Centroid)
	assert.InDelta(t, 54.5005, f.Centroid.Lat, 1e-3)
	require.NotNil(t, f.AreaSqm)
	assert.Greater(t, *f.AreaSqm, 0.0)
}

func TestParseDecoderError(t *testing.T) {
	decoder := &stubDecoder{err: errors.New("not a zip")}
	_, err := newTestParser(decoder).Parse(nil, "kaputt.zip")
	require.Error(t, err)
	assert.True(t, entity.IsKind(err, entity.ErrKindDecode))
	assert.Contains(t, err.Error(), "kaputt.zip")
}

func TestParseNoLayers(t *testing.T) {
	decoder := &stubDecoder{result: &DecodeResult{}}
	_, err := newTestParser(decoder).Parse(nil, "leer.zip")
	assert.True(t, entity.IsKind(err, entity.ErrKindDecode))
}

func TestParseNoFeatures(t *testing.T) {
	decoder := &stubDecoder{result: &DecodeResult{
		Layers: []*geojson.FeatureCollection{layerOf()},
		Fields: [][]string{{}},
	}}
	_, err := newTestParser(decoder).Parse(nil, "leer.zip")
	assert.True(t, entity.IsKind(err, entity.ErrKindDecode))
}

func TestParseMultiLayerWarnsAndUsesFirst(t *testing.T) {
	decoder := &stubDecoder{result: &DecodeResult{
		Layers: []*geojson.FeatureCollection{
			layerOf(feature(parcel(), geojson.Properties{"flur": "1"})),
			layerOf(feature(parcel(), geojson.Properties{"flur": "2"})),
		},
		Fields: [][]string{{"flur"}, {"flur"}},
	}}

	result, err := newTestParser(decoder).Parse(nil, "mehrschichtig.zip")
	require.NoError(t, err)
	require.Len(t, result.Features, 1)
	assert.Equal(t, "1", result.Features[0].Properties["flur"])
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "2 Ebenen")
}

func TestParseSkipsFeaturelessRecords(t *testing.T) {
	decoder := &stubDecoder{result: &DecodeResult{
		Layers: []*geojson.FeatureCollection{layerOf(
			feature(nil, geojson.Properties{"flur": "1"}),
			feature(parcel(), geojson.Properties{"flur": "2"}),
		)},
		Fields: [][]string{{"flur"}},
	}}

	result, err := newTestParser(decoder).Parse(nil, "teilweise.zip")
	require.NoError(t, err)
	require.Len(t, result.Features, 1)
	assert.Equal(t, "2", result.Features[0].Properties["flur"])
	// both the per-feature and the summary warning are present
	require.Len(t, result.Warnings, 2)
	assert.Contains(t, result.Warnings[0], "Feature 1")
	assert.Contains(t, result.Warnings[1], "1 von 2")
}

func TestParseAllFeaturelessFails(t *testing.T) {
	decoder := &stubDecoder{result: &DecodeResult{
		Layers: []*geojson.FeatureCollection{layerOf(
			feature(nil, nil),
			feature(nil, nil),
		)},
		Fields: [][]string{{}},
	}}
	_, err := newTestParser(decoder).Parse(nil, "geometrielos.zip")
	assert.True(t, entity.IsKind(err, entity.ErrKindDecode))
}

func TestParseRepairsEncoding(t *testing.T) {
	decoder := &stubDecoder{result: &DecodeResult{
		Layers: []*geojson.FeatureCollection{layerOf(
			feature(parcel(), geojson.Properties{
				"eigentuemer": "MÃ¼ller",
				"flaeche":     1234.5,
			}),
		)},
		Fields: [][]string{{"eigentuemer", "flaeche"}},
	}}

	result, err := newTestParser(decoder).Parse(nil, "latin1.zip")
	require.NoError(t, err)
	require.Len(t, result.Features, 1)
	assert.Equal(t, "Müller", result.Features[0].Properties["eigentuemer"])
	// non-string values pass through untouched
	assert.Equal(t, 1234.5, result.Features[0].Properties["flaeche"])
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "Zeichenkodierung")
}
