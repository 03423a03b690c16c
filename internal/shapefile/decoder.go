package shapefile

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	shp "github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"
)

// DecodeResult is the raw decoder output: one FeatureCollection per layer
// found in the archive, the attribute schema per layer, and the CRS text of
// the first projection file, if any.
type DecodeResult struct {
	Layers []*geojson.FeatureCollection
	Fields [][]string
	CRS    string
}

// Decoder turns a ZIP buffer into GeoJSON feature collections. Implemented
// by ZipDecoder; replaced by a stub in parser tests.
type Decoder interface {
	Decode(data []byte) (*DecodeResult, error)
}

// ZipDecoder reads zipped ESRI shapefiles (.shp + .dbf, optional .prj).
// Attribute values are passed through as raw strings; any encoding repair
// happens later in the parser.
type ZipDecoder struct {
	logger *zap.Logger
}

// NewZipDecoder creates a decoder.
func NewZipDecoder(logger *zap.Logger) *ZipDecoder {
	return &ZipDecoder{logger: logger}
}

type layerEntry struct {
	shp *zip.File
	dbf *zip.File
}

// Decode implements Decoder.
func (d *ZipDecoder) Decode(data []byte) (*DecodeResult, error) {
	archive, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open zip archive: %w", err)
	}

	layers := make(map[string]*layerEntry)
	var crs string
	for _, file := range archive.File {
		base := strings.ToLower(strings.TrimSuffix(path.Base(file.Name), path.Ext(file.Name)))
		switch strings.ToLower(path.Ext(file.Name)) {
		case ".shp":
			d.layer(layers, base).shp = file
		case ".dbf":
			d.layer(layers, base).dbf = file
		case ".prj":
			if crs == "" {
				content, err := readZipFile(file)
				if err == nil {
					crs = strings.TrimSpace(string(content))
				}
			}
		}
	}

	var names []string
	for name, entry := range layers {
		if entry.shp != nil {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("archive contains no .shp file")
	}
	sort.Strings(names)

	result := &DecodeResult{CRS: crs}
	for _, name := range names {
		entry := layers[name]
		if entry.dbf == nil {
			return nil, fmt.Errorf("layer %q has no .dbf attribute file", name)
		}
		collection, fields, err := d.readLayer(entry)
		if err != nil {
			return nil, fmt.Errorf("read layer %q: %w", name, err)
		}
		result.Layers = append(result.Layers, collection)
		result.Fields = append(result.Fields, fields)
	}
	return result, nil
}

func (d *ZipDecoder) layer(layers map[string]*layerEntry, base string) *layerEntry {
	if layers[base] == nil {
		layers[base] = &layerEntry{}
	}
	return layers[base]
}

func (d *ZipDecoder) readLayer(entry *layerEntry) (*geojson.FeatureCollection, []string, error) {
	shpFile, err := entry.shp.Open()
	if err != nil {
		return nil, nil, fmt.Errorf("open shp member: %w", err)
	}
	dbfFile, err := entry.dbf.Open()
	if err != nil {
		shpFile.Close()
		return nil, nil, fmt.Errorf("open dbf member: %w", err)
	}

	reader := shp.SequentialReaderFromExt(shpFile, dbfFile)
	defer reader.Close()

	collection := geojson.NewFeatureCollection()
	var fieldNames []string

	for reader.Next() {
		fields := reader.Fields()
		if fieldNames == nil {
			fieldNames = make([]string, len(fields))
			for i, f := range fields {
				fieldNames[i] = f.String()
			}
		}

		properties := make(geojson.Properties, len(fields))
		for i := range fields {
			properties[fieldNames[i]] = reader.Attribute(i)
		}

		_, shape := reader.Shape()
		feature := &geojson.Feature{
			Type:       "Feature",
			Geometry:   shapeToGeometry(shape),
			Properties: properties,
		}
		collection.Append(feature)
	}
	if err := reader.Err(); err != nil && err != io.EOF {
		return nil, nil, fmt.Errorf("read shapes: %w", err)
	}
	return collection, fieldNames, nil
}

// shapeToGeometry converts a go-shp shape to an orb geometry. Unknown or
// null shapes yield nil; the parser skips those with a warning.
func shapeToGeometry(shape shp.Shape) orb.Geometry {
	switch s := shape.(type) {
	case *shp.Point:
		return orb.Point{s.X, s.Y}
	case *shp.PointM:
		return orb.Point{s.X, s.Y}
	case *shp.PointZ:
		return orb.Point{s.X, s.Y}
	case *shp.MultiPoint:
		return pointsToMultiPoint(s.Points)
	case *shp.MultiPointZ:
		return pointsToMultiPoint(s.Points)
	case *shp.PolyLine:
		return partsToMultiLineString(s.Points, s.Parts)
	case *shp.PolyLineZ:
		return partsToMultiLineString(s.Points, s.Parts)
	case *shp.Polygon:
		return partsToPolygon(s.Points, s.Parts)
	case *shp.PolygonZ:
		return partsToPolygon(s.Points, s.Parts)
	default:
		return nil
	}
}

func pointsToMultiPoint(points []shp.Point) orb.MultiPoint {
	mp := make(orb.MultiPoint, 0, len(points))
	for _, p := range points {
		mp = append(mp, orb.Point{p.X, p.Y})
	}
	return mp
}

func splitParts(points []shp.Point, parts []int32) [][]orb.Point {
	if len(parts) == 0 {
		parts = []int32{0}
	}
	var out [][]orb.Point
	for i, start := range parts {
		end := len(points)
		if i+1 < len(parts) {
			end = int(parts[i+1])
		}
		if int(start) >= end {
			continue
		}
		segment := make([]orb.Point, 0, end-int(start))
		for _, p := range points[start:end] {
			segment = append(segment, orb.Point{p.X, p.Y})
		}
		out = append(out, segment)
	}
	return out
}

func partsToMultiLineString(points []shp.Point, parts []int32) orb.Geometry {
	segments := splitParts(points, parts)
	if len(segments) == 0 {
		return nil
	}
	if len(segments) == 1 {
		return orb.LineString(segments[0])
	}
	mls := make(orb.MultiLineString, 0, len(segments))
	for _, seg := range segments {
		mls = append(mls, orb.LineString(seg))
	}
	return mls
}

// partsToPolygon treats the first part as the outer ring and all further
// parts as holes, which is how single-parcel cadastral shapes are laid out.
func partsToPolygon(points []shp.Point, parts []int32) orb.Geometry {
	segments := splitParts(points, parts)
	if len(segments) == 0 {
		return nil
	}
	poly := make(orb.Polygon, 0, len(segments))
	for _, seg := range segments {
		poly = append(poly, orb.Ring(seg))
	}
	return poly
}

func readZipFile(file *zip.File) ([]byte, error) {
	rc, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
