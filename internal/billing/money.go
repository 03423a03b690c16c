// Package billing contains the monetary kernel: cent-accurate rounding,
// per-line amount computation and Skonto (early payment discount) math.
//
// All monetary operations convert to integer cents first and back, which
// keeps amounts reconcilable to the cent in bookkeeping exports and avoids
// binary floating point drift (0.1+0.2 style artifacts).
package billing

import (
	"math"
	"time"

	"github.com/nordwind/parkoffice/internal/domain/entity"
)

// Round2 rounds to two decimals via integer cents.
func Round2(x float64) float64 {
	return math.Round(x*100) / 100
}

func toCents(x float64) int64 {
	return int64(math.Round(x * 100))
}

// CalculateSkontoDiscount returns the discount in EUR for the given gross
// amount and Skonto percentage. Out-of-range inputs yield 0 rather than an
// error; a misconfigured Skonto must never turn into a negative discount.
func CalculateSkontoDiscount(gross, percent float64) float64 {
	if percent <= 0 || percent > 100 || gross <= 0 {
		return 0
	}
	grossCents := toCents(gross)
	discountCents := math.Round(float64(grossCents) * percent / 100)
	return discountCents / 100
}

// CalculateSkontoPaymentAmount returns the amount payable after deducting
// the Skonto discount.
func CalculateSkontoPaymentAmount(gross, percent float64) float64 {
	return Round2(gross - CalculateSkontoDiscount(gross, percent))
}

// SkontoDeadline returns the last calendar day on which the discount may be
// taken: invoice date plus the configured number of days. No business-day
// arithmetic, matching common German payment terms.
func SkontoDeadline(invoiceDate time.Time, skontoDays int) time.Time {
	return invoiceDate.AddDate(0, 0, skontoDays)
}

// IsSkontoValid reports whether the discount may still be taken at the given
// instant. The deadline day itself counts in full, up to 23:59:59.999.
func IsSkontoValid(now, deadline time.Time) bool {
	endOfDay := time.Date(deadline.Year(), deadline.Month(), deadline.Day(),
		23, 59, 59, 999_000_000, deadline.Location())
	return !now.After(endOfDay)
}

// SkontoStatus evaluates the Skonto state machine for an invoice:
// NONE -> ELIGIBLE -> {EXPIRED | APPLIED}. APPLIED is sticky: once a payment
// was recorded with the discount taken it wins over any expiry check.
func SkontoStatus(inv *entity.Invoice, now time.Time) string {
	if inv.SkontoPercent <= 0 || inv.SkontoDays <= 0 {
		return entity.SkontoStatusNone
	}
	if inv.SkontoPaid {
		return entity.SkontoStatusApplied
	}
	deadline := SkontoDeadline(inv.Date, inv.SkontoDays)
	if inv.SkontoDeadline != nil {
		deadline = *inv.SkontoDeadline
	}
	if IsSkontoValid(now, deadline) {
		return entity.SkontoStatusEligible
	}
	return entity.SkontoStatusExpired
}
