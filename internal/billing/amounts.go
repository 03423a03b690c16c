package billing

import (
	"fmt"

	"github.com/nordwind/parkoffice/internal/domain/entity"
)

// TaxRateResolver resolves a tax category to the tenant-configured
// percentage.
type TaxRateResolver interface {
	RateFor(taxType string) (float64, error)
}

// ItemAmounts holds the computed amounts for one line item. Each of the
// three amounts is rounded to two decimals independently; gross is never
// derived by splitting a rounded total back apart.
type ItemAmounts struct {
	NetAmount   float64
	TaxRate     float64
	TaxAmount   float64
	GrossAmount float64
}

// CalculateItemAmounts computes net, tax and gross for a single position.
func CalculateItemAmounts(quantity, unitPrice float64, taxType string, rates TaxRateResolver) (ItemAmounts, error) {
	rate, err := rates.RateFor(taxType)
	if err != nil {
		return ItemAmounts{}, fmt.Errorf("resolve tax rate for %q: %w", taxType, err)
	}

	net := Round2(quantity * unitPrice)
	tax := Round2(net * rate / 100)
	gross := Round2(net + tax)

	return ItemAmounts{
		NetAmount:   net,
		TaxRate:     rate,
		TaxAmount:   tax,
		GrossAmount: gross,
	}, nil
}

// ItemTotals holds summed amounts across a list of items.
type ItemTotals struct {
	NetAmount   float64
	TaxAmount   float64
	GrossAmount float64
}

// SumItemAmounts sums net/tax/gross across items. Each sum is rounded once,
// at the total: header amounts are the rounded sum of already-rounded lines,
// not a recomputation from quantities, so per-line rounding cannot resurface
// as a discrepancy at the document level.
func SumItemAmounts(items []*entity.InvoiceItem) ItemTotals {
	var net, tax, gross float64
	for _, item := range items {
		net += item.NetAmount
		tax += item.TaxAmount
		gross += item.GrossAmount
	}
	return ItemTotals{
		NetAmount:   Round2(net),
		TaxAmount:   Round2(tax),
		GrossAmount: Round2(gross),
	}
}
