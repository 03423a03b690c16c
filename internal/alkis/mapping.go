package alkis

import (
	"strconv"
	"strings"

	"github.com/paulmach/orb/geojson"
)

// FieldMapping assigns semantic fields to shapefile attribute names. A
// missing key means the field could not be detected and was not overridden.
type FieldMapping map[string]string

// AutoDetect proposes a mapping for the given attribute names. For each
// semantic field the candidate list is scanned in priority order and the
// first case-insensitive match that no earlier field has claimed wins, so
// the result is 1:1 even where pattern lists overlap. Undetected fields are
// simply absent from the result.
func AutoDetect(attributeNames []string, patterns []FieldPattern) FieldMapping {
	byLower := make(map[string]string, len(attributeNames))
	for _, name := range attributeNames {
		lower := strings.ToLower(name)
		if _, exists := byLower[lower]; !exists {
			byLower[lower] = name
		}
	}

	mapping := make(FieldMapping, len(patterns))
	claimed := make(map[string]bool, len(patterns))
	for _, pattern := range patterns {
		for _, candidate := range pattern.Names {
			actual, ok := byLower[strings.ToLower(candidate)]
			if !ok || claimed[actual] {
				continue
			}
			mapping[pattern.Field] = actual
			claimed[actual] = true
			break
		}
	}
	return mapping
}

// MappedPlotData is the plot projection of one feature's attributes. Nil
// fields were not mapped or held only placeholder values.
type MappedPlotData struct {
	CadastralDistrict       *string  `json:"cadastral_district,omitempty"`
	CadastralDistrictNumber *string  `json:"cadastral_district_number,omitempty"`
	Flur                    *string  `json:"flur,omitempty"`
	PlotNumber              *string  `json:"plot_number,omitempty"`
	AreaSqm                 *float64 `json:"area_sqm,omitempty"`
	LandUse                 *string  `json:"land_use,omitempty"`
	Municipality            *string  `json:"municipality,omitempty"`
	County                  *string  `json:"county,omitempty"`
	State                   *string  `json:"state,omitempty"`
}

// MappedOwnerData is the owner projection of one feature's attributes.
type MappedOwnerData struct {
	Name         *string `json:"name,omitempty"`
	FirstName    *string `json:"first_name,omitempty"`
	LastName     *string `json:"last_name,omitempty"`
	Street       *string `json:"street,omitempty"`
	HouseNumber  *string `json:"house_number,omitempty"`
	PostalCode   *string `json:"postal_code,omitempty"`
	City         *string `json:"city,omitempty"`
	OwnerCount   *int    `json:"owner_count,omitempty"`
	OwnerShare   *string `json:"owner_share,omitempty"`
	IsMultiOwner bool    `json:"is_multi_owner"`
}

// placeholders are values county exports use for "no data"; they must never
// be imported as real content.
var placeholders = map[string]bool{
	"-": true, "--": true, "---": true,
	".": true, "..": true,
	"?": true, "??": true,
	"k.a.": true, "n/a": true, "na": true,
}

// ApplyPlotMapping projects a feature's properties through the mapping.
// The plot number is composed as "numerator/denominator" when both are
// mapped and the denominator is not "0"; without a numerator mapping the
// combined plotNumber attribute is used as-is.
func ApplyPlotMapping(properties geojson.Properties, mapping FieldMapping) *MappedPlotData {
	get := func(field string) *string { return stringValue(properties, mapping, field) }

	data := &MappedPlotData{
		CadastralDistrict:       get(FieldCadastralDistrict),
		CadastralDistrictNumber: get(FieldCadastralDistrictNumber),
		Flur:                    get(FieldFlur),
		LandUse:                 get(FieldLandUse),
		Municipality:            get(FieldMunicipality),
		County:                  get(FieldCounty),
		State:                   get(FieldState),
	}

	numerator := get(FieldPlotNumberNumerator)
	denominator := get(FieldPlotNumberDenominator)
	switch {
	case numerator != nil && denominator != nil && *denominator != "0":
		combined := *numerator + "/" + *denominator
		data.PlotNumber = &combined
	case numerator != nil:
		data.PlotNumber = numerator
	default:
		data.PlotNumber = get(FieldPlotNumber)
	}

	if raw := get(FieldAreaSqm); raw != nil {
		normalized := strings.ReplaceAll(*raw, ",", ".")
		if area, err := strconv.ParseFloat(normalized, 64); err == nil {
			data.AreaSqm = &area
		}
	}
	return data
}

// Multi-owner heuristics. Any single rule is enough; all three are
// evaluated unconditionally because a wrong flag either loses co-owners or
// produces duplicate owner records downstream.
var ownerSeparators = []string{";", " und ", " u. "}
var ownerEntityKeywords = []string{"erbengemeinschaft", "gbr"}

// ApplyOwnerMapping projects owner identity fields and derives the
// multi-owner flag.
func ApplyOwnerMapping(properties geojson.Properties, mapping FieldMapping) *MappedOwnerData {
	get := func(field string) *string { return stringValue(properties, mapping, field) }

	data := &MappedOwnerData{
		Name:        get(FieldOwnerName),
		FirstName:   get(FieldFirstName),
		LastName:    get(FieldLastName),
		Street:      get(FieldStreet),
		HouseNumber: get(FieldHouseNumber),
		PostalCode:  get(FieldPostalCode),
		City:        get(FieldCity),
		OwnerShare:  get(FieldOwnerShare),
	}

	if raw := get(FieldOwnerCount); raw != nil {
		if count, err := strconv.Atoi(strings.TrimSpace(*raw)); err == nil {
			data.OwnerCount = &count
		}
	}

	multi := false
	if data.OwnerCount != nil && *data.OwnerCount > 1 {
		multi = true
	}
	if data.Name != nil && containsSeparator(*data.Name) {
		multi = true
	}
	if data.Name != nil && containsEntityKeyword(*data.Name) {
		multi = true
	}
	data.IsMultiOwner = multi

	return data
}

func containsSeparator(name string) bool {
	for _, sep := range ownerSeparators {
		if strings.Contains(name, sep) {
			return true
		}
	}
	return false
}

func containsEntityKeyword(name string) bool {
	lower := strings.ToLower(name)
	for _, keyword := range ownerEntityKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

// stringValue reads the mapped attribute as a trimmed string; empty strings
// and placeholder values yield nil.
func stringValue(properties geojson.Properties, mapping FieldMapping, field string) *string {
	attr, ok := mapping[field]
	if !ok {
		return nil
	}
	raw, ok := properties[attr]
	if !ok || raw == nil {
		return nil
	}

	var text string
	switch v := raw.(type) {
	case string:
		text = v
	case float64:
		text = strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		text = strconv.Itoa(v)
	default:
		return nil
	}

	text = strings.TrimSpace(text)
	if text == "" || placeholders[strings.ToLower(text)] {
		return nil
	}
	return &text
}
