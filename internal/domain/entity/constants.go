package entity

// Invoice document types
const (
	InvoiceTypeInvoice    = "INVOICE"
	InvoiceTypeCreditNote = "CREDIT_NOTE"
)

// Invoice lifecycle statuses. Transitions move forward only; a SENT or PAID
// invoice is never edited, it is corrected via a linked document.
const (
	InvoiceStatusDraft     = "DRAFT"
	InvoiceStatusSent      = "SENT"
	InvoiceStatusPaid      = "PAID"
	InvoiceStatusCancelled = "CANCELLED"
)

// Correction types recorded on correction documents
const (
	CorrectionTypePartialCancel = "PARTIAL_CANCEL"
	CorrectionTypeCorrection    = "CORRECTION"
	CorrectionTypeFullCancel    = "FULL_CANCEL"
)

// Tax categories. The percentage behind each category is tenant-configured
// and resolved through billing.TaxRateResolver.
const (
	TaxTypeStandard = "STANDARD"
	TaxTypeReduced  = "REDUCED"
	TaxTypeExempt   = "EXEMPT"
)

// Skonto (early payment discount) statuses
const (
	SkontoStatusNone     = "NONE"
	SkontoStatusEligible = "ELIGIBLE"
	SkontoStatusExpired  = "EXPIRED"
	SkontoStatusApplied  = "APPLIED"
)
