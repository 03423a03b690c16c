package billing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nordwind/parkoffice/internal/domain/entity"
)

func testRates() TaxRateResolver {
	return NewStaticTaxRateResolver(19.0, 7.0)
}

func TestCalculateItemAmounts(t *testing.T) {
	amounts, err := CalculateItemAmounts(5, 100.0, entity.TaxTypeStandard, testRates())
	require.NoError(t, err)
	assert.Equal(t, 500.0, amounts.NetAmount)
	assert.Equal(t, 19.0, amounts.TaxRate)
	assert.Equal(t, 95.0, amounts.TaxAmount)
	assert.Equal(t, 595.0, amounts.GrossAmount)
}

func TestCalculateItemAmountsReduced(t *testing.T) {
	amounts, err := CalculateItemAmounts(3, 9.99, entity.TaxTypeReduced, testRates())
	require.NoError(t, err)
	assert.Equal(t, 29.97, amounts.NetAmount)
	assert.Equal(t, 2.1, amounts.TaxAmount)
	assert.Equal(t, 32.07, amounts.GrossAmount)
}

func TestCalculateItemAmountsExempt(t *testing.T) {
	amounts, err := CalculateItemAmounts(2, 50.0, entity.TaxTypeExempt, testRates())
	require.NoError(t, err)
	assert.Equal(t, 100.0, amounts.NetAmount)
	assert.Equal(t, 0.0, amounts.TaxAmount)
	assert.Equal(t, 100.0, amounts.GrossAmount)
}

func TestCalculateItemAmountsNegativePrice(t *testing.T) {
	// credit note lines carry a negated unit price
	amounts, err := CalculateItemAmounts(4, -50.0, entity.TaxTypeStandard, testRates())
	require.NoError(t, err)
	assert.Equal(t, -200.0, amounts.NetAmount)
	assert.Equal(t, -38.0, amounts.TaxAmount)
	assert.Equal(t, -238.0, amounts.GrossAmount)
}

func TestCalculateItemAmountsUnknownTaxType(t *testing.T) {
	_, err := CalculateItemAmounts(1, 10.0, "LUXURY", testRates())
	assert.Error(t, err)
}

// Every computed amount must be an exact cent multiple and gross must equal
// net plus tax for the line.
func TestItemAmountsAreCentExact(t *testing.T) {
	cases := []struct {
		quantity  float64
		unitPrice float64
		taxType   string
	}{
		{1, 0.01, entity.TaxTypeStandard},
		{3, 33.33, entity.TaxTypeStandard},
		{0.5, 19.99, entity.TaxTypeReduced},
		{7, 142.857, entity.TaxTypeStandard},
		{2.5, -80.04, entity.TaxTypeReduced},
	}
	for _, tc := range cases {
		amounts, err := CalculateItemAmounts(tc.quantity, tc.unitPrice, tc.taxType, testRates())
		require.NoError(t, err)

		for _, v := range []float64{amounts.NetAmount, amounts.TaxAmount, amounts.GrossAmount} {
			cents := v * 100
			assert.InDelta(t, math.Round(cents), cents, 1e-6,
				"amount %v is not a cent multiple", v)
		}
		assert.Equal(t, Round2(amounts.NetAmount+amounts.TaxAmount), amounts.GrossAmount)
	}
}

func TestSumItemAmountsRoundsOncePerTotal(t *testing.T) {
	items := []*entity.InvoiceItem{
		{NetAmount: 33.33, TaxAmount: 6.33, GrossAmount: 39.66},
		{NetAmount: 33.33, TaxAmount: 6.33, GrossAmount: 39.66},
		{NetAmount: 33.33, TaxAmount: 6.33, GrossAmount: 39.66},
	}
	totals := SumItemAmounts(items)
	assert.Equal(t, 99.99, totals.NetAmount)
	assert.Equal(t, 18.99, totals.TaxAmount)
	assert.Equal(t, 118.98, totals.GrossAmount)
}

func TestSumItemAmountsEmpty(t *testing.T) {
	totals := SumItemAmounts(nil)
	assert.Equal(t, 0.0, totals.NetAmount)
	assert.Equal(t, 0.0, totals.TaxAmount)
	assert.Equal(t, 0.0, totals.GrossAmount)
}
