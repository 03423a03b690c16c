// Package alkis maps arbitrary shapefile attribute schemas onto the plot
// and owner fields this system needs. ALKIS exports are produced by many
// different county offices with many different column naming conventions,
// so detection is an ordered, best-effort guess that a human can override
// per field before the import runs.
package alkis

// Semantic plot field names.
const (
	FieldCadastralDistrict       = "cadastralDistrict"
	FieldCadastralDistrictNumber = "cadastralDistrictNumber"
	FieldFlur                    = "flur"
	FieldPlotNumberNumerator     = "plotNumberNumerator"
	FieldPlotNumberDenominator   = "plotNumberDenominator"
	FieldPlotNumber              = "plotNumber"
	FieldAreaSqm                 = "areaSqm"
	FieldLandUse                 = "landUse"
	FieldMunicipality            = "municipality"
	FieldCounty                  = "county"
	FieldState                   = "state"
)

// Semantic owner field names.
const (
	FieldOwnerName   = "ownerName"
	FieldFirstName   = "firstName"
	FieldLastName    = "lastName"
	FieldStreet      = "street"
	FieldHouseNumber = "houseNumber"
	FieldPostalCode  = "postalCode"
	FieldCity        = "city"
	FieldOwnerCount  = "ownerCount"
	FieldOwnerShare  = "ownerShare"
)

// FieldPattern maps one semantic field to its known attribute-name variants
// in priority order. Matching is case-insensitive.
type FieldPattern struct {
	Field string
	Names []string
}

// PlotFieldPatterns lists the attribute-name variants seen in ALKIS parcel
// exports. Order matters twice: earlier fields claim attributes first, and
// within a field earlier names win.
var PlotFieldPatterns = []FieldPattern{
	{FieldCadastralDistrict, []string{"gemarkung", "gem_name", "gemarkungs", "gmk_name", "gemarkungsname"}},
	{FieldCadastralDistrictNumber, []string{"gemaschl", "gem_schl", "gmkgnr", "gemarkungsnummer"}},
	{FieldFlur, []string{"flur", "flurnummer", "flurnr", "flur_nr"}},
	{FieldPlotNumberNumerator, []string{"flstnrzae", "flstzae", "zaehler", "flst_zae", "flurstueckszaehler"}},
	{FieldPlotNumberDenominator, []string{"flstnrnen", "flstnen", "nenner", "flst_nen", "flurstuecksnenner"}},
	{FieldPlotNumber, []string{"flurstnr", "flstnr", "flurstueck", "flst_kennz", "fsk", "flurstuecksnummer"}},
	{FieldAreaSqm, []string{"amtflsfl", "amtl_fl", "flaeche", "flaeche_qm", "shape_area", "area"}},
	{FieldLandUse, []string{"nutzung", "nutzart", "tatnutzung", "nutz_art"}},
	{FieldMunicipality, []string{"gemeinde", "gdename", "gemeindename", "gem"}},
	{FieldCounty, []string{"kreis", "landkreis", "kreisname"}},
	{FieldState, []string{"land", "bundesland", "landname"}},
}

// OwnerFieldPatterns lists the attribute-name variants seen in ownership
// exports (Bestandsdaten).
var OwnerFieldPatterns = []FieldPattern{
	{FieldOwnerName, []string{"eigentuemer", "eigentümer", "eigent", "name", "owner", "eig_name"}},
	{FieldFirstName, []string{"vorname", "vname", "firstname"}},
	{FieldLastName, []string{"nachname", "nname", "lastname", "familienname"}},
	{FieldStreet, []string{"strasse", "straße", "str", "street"}},
	{FieldHouseNumber, []string{"hausnr", "hausnummer", "hnr", "haus_nr"}},
	{FieldPostalCode, []string{"plz", "postleitzahl", "zip"}},
	{FieldCity, []string{"ort", "wohnort", "stadt", "city"}},
	{FieldOwnerCount, []string{"anzahl_eig", "eig_anzahl", "anz_eigent", "ownercount"}},
	{FieldOwnerShare, []string{"anteil", "eig_anteil", "zaehler_anteil", "share"}},
}
