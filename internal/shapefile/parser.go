// Package shapefile implements the cadastral import pipeline: zipped
// shapefile decoding, centroid and parcel area computation, and repair of
// mis-decoded attribute text.
package shapefile

import (
	"fmt"

	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"

	"github.com/nordwind/parkoffice/internal/domain/entity"
)

// ParsedFeature is one geometry plus its repaired attributes. AreaSqm is
// only set for polygonal geometries.
type ParsedFeature struct {
	ID         int                 `json:"id"`
	Geometry   *geojson.Geometry   `json:"geometry"`
	Properties geojson.Properties  `json:"properties"`
	Centroid   *LatLng             `json:"centroid,omitempty"`
	AreaSqm    *float64            `json:"area_sqm,omitempty"`
}

// ParseResult is the pipeline output handed to the field-mapping stage.
type ParseResult struct {
	Features []*ParsedFeature `json:"features"`
	Fields   []string         `json:"fields"`
	CRS      string           `json:"crs,omitempty"`
	Warnings []string         `json:"warnings,omitempty"`
}

// Parser runs the decode / repair / measure pipeline over an uploaded ZIP.
type Parser struct {
	decoder Decoder
	logger  *zap.Logger
}

// NewParser creates a parser on top of a decoder.
func NewParser(decoder Decoder, logger *zap.Logger) *Parser {
	return &Parser{decoder: decoder, logger: logger}
}

// Parse decodes the buffer and post-processes every feature. Only the first
// layer of a multi-layer archive is used; extra layers, featureless records
// and encoding repairs are reported as warnings rather than failures.
func (p *Parser) Parse(data []byte, fileName string) (*ParseResult, error) {
	decoded, err := p.decoder.Decode(data)
	if err != nil {
		return nil, entity.NewDecode(fmt.Sprintf(
			"Shapefile %q konnte nicht gelesen werden: %v", fileName, err))
	}
	if len(decoded.Layers) == 0 {
		return nil, entity.NewDecode(fmt.Sprintf(
			"Shapefile %q enthält keine Ebenen", fileName))
	}

	result := &ParseResult{CRS: decoded.CRS}
	if len(decoded.Layers) > 1 {
		result.Warnings = append(result.Warnings, fmt.Sprintf(
			"Archiv enthält %d Ebenen, nur die erste wurde importiert", len(decoded.Layers)))
	}

	layer := decoded.Layers[0]
	if len(decoded.Fields) > 0 {
		result.Fields = decoded.Fields[0]
	}
	if len(layer.Features) == 0 {
		return nil, entity.NewDecode(fmt.Sprintf(
			"Shapefile %q enthält keine Features", fileName))
	}

	encodingFixed := false
	skipped := 0
	for i, feature := range layer.Features {
		if feature.Geometry == nil {
			skipped++
			result.Warnings = append(result.Warnings, fmt.Sprintf(
				"Feature %d übersprungen: keine Geometrie", i+1))
			continue
		}

		properties := make(geojson.Properties, len(feature.Properties))
		for key, value := range feature.Properties {
			fixedKey := FixMojibake(key)
			if fixedKey != key {
				encodingFixed = true
			}
			if text, ok := value.(string); ok {
				fixed := FixMojibake(text)
				if fixed != text {
					encodingFixed = true
				}
				properties[fixedKey] = fixed
			} else {
				properties[fixedKey] = value
			}
		}

		parsed := &ParsedFeature{
			ID:         len(result.Features) + 1,
			Geometry:   geojson.NewGeometry(feature.Geometry),
			Properties: properties,
			AreaSqm:    AreaSqm(feature.Geometry),
		}
		if centroid, ok := Centroid(feature.Geometry); ok {
			parsed.Centroid = &centroid
		}
		result.Features = append(result.Features, parsed)
	}

	if len(result.Features) == 0 {
		return nil, entity.NewDecode(fmt.Sprintf(
			"Shapefile %q enthält keine Features mit Geometrie", fileName))
	}
	if skipped > 0 {
		result.Warnings = append(result.Warnings, fmt.Sprintf(
			"%d von %d Features übersprungen", skipped, len(layer.Features)))
	}
	if encodingFixed {
		for i, name := range result.Fields {
			result.Fields[i] = FixMojibake(name)
		}
		result.Warnings = append(result.Warnings,
			"Zeichenkodierung wurde automatisch korrigiert (UTF-8 als Latin-1 interpretiert)")
	}

	p.logger.Info("Shapefile parsed",
		zap.String("file", fileName),
		zap.Int("features", len(result.Features)),
		zap.Int("skipped", skipped),
		zap.Int("warnings", len(result.Warnings)))

	return result, nil
}
