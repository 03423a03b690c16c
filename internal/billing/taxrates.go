package billing

import (
	"github.com/nordwind/parkoffice/internal/domain/entity"
)

// StaticTaxRateResolver resolves tax categories from tenant configuration.
// German defaults are 19% standard and 7% reduced, but both are
// configurable per tenant.
type StaticTaxRateResolver struct {
	standard float64
	reduced  float64
}

// NewStaticTaxRateResolver creates a resolver with fixed percentages.
func NewStaticTaxRateResolver(standard, reduced float64) *StaticTaxRateResolver {
	return &StaticTaxRateResolver{standard: standard, reduced: reduced}
}

// RateFor implements TaxRateResolver.
func (r *StaticTaxRateResolver) RateFor(taxType string) (float64, error) {
	switch taxType {
	case entity.TaxTypeStandard:
		return r.standard, nil
	case entity.TaxTypeReduced:
		return r.reduced, nil
	case entity.TaxTypeExempt:
		return 0, nil
	default:
		return 0, entity.NewValidation("Unbekannte Steuerkategorie: " + taxType)
	}
}

var _ TaxRateResolver = (*StaticTaxRateResolver)(nil)
