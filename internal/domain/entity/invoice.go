package entity

import "time"

// Invoice represents a financial document (Rechnung or Gutschrift).
// The recipient block is a snapshot taken at creation time and never updated
// afterwards, so issued documents stay stable when master data changes.
// Header amounts carry 2-decimal values; gross = net + tax holds for the
// document and for every line independently.
type Invoice struct {
	ID       int64  `json:"id"`
	TenantID int64  `json:"tenant_id"`
	Type     string `json:"type"` // INVOICE | CREDIT_NOTE
	Number   string `json:"number"`

	Date    time.Time  `json:"date"`
	DueDate *time.Time `json:"due_date,omitempty"`

	// Recipient snapshot, denormalized at creation time
	RecipientType    string `json:"recipient_type"` // PERSON | COMPANY | FUND
	RecipientName    string `json:"recipient_name"`
	RecipientAddress string `json:"recipient_address"`

	NetAmount   float64 `json:"net_amount"`
	TaxAmount   float64 `json:"tax_amount"`
	GrossAmount float64 `json:"gross_amount"`

	Status string `json:"status"` // DRAFT | SENT | PAID | CANCELLED

	// Correction linkage. CorrectionOf points at the document this one
	// corrects; CorrectedPositions holds the serialized audit payload.
	CorrectionOf       *int64 `json:"correction_of,omitempty"`
	CorrectionType     string `json:"correction_type,omitempty"` // PARTIAL_CANCEL | CORRECTION | FULL_CANCEL
	CorrectionReason   string `json:"correction_reason,omitempty"`
	CorrectedPositions string `json:"corrected_positions,omitempty"`

	// CancelledInvoiceID is the pre-CorrectionOf linkage still present on
	// old cancellation documents. New documents set both.
	CancelledInvoiceID *int64 `json:"cancelled_invoice_id,omitempty"`

	// Skonto terms
	SkontoPercent  float64    `json:"skonto_percent,omitempty"`
	SkontoDays     int        `json:"skonto_days,omitempty"`
	SkontoDeadline *time.Time `json:"skonto_deadline,omitempty"`
	SkontoPaid     bool       `json:"skonto_paid,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	CreatedBy int64     `json:"created_by,omitempty"`

	// Items are loaded ordered by position
	Items []*InvoiceItem `json:"items,omitempty"`
}

// InvoiceItem is one billable position of an invoice. Positions are 1-based
// and contiguous. Pass-through references (plot, cost center) are copied
// unchanged from any item this one corrects.
type InvoiceItem struct {
	ID        int64 `json:"id"`
	InvoiceID int64 `json:"invoice_id"`
	Position  int   `json:"position"`

	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	TaxType     string  `json:"tax_type"` // STANDARD | REDUCED | EXEMPT

	NetAmount   float64 `json:"net_amount"`
	TaxAmount   float64 `json:"tax_amount"`
	GrossAmount float64 `json:"gross_amount"`

	PlotReference string `json:"plot_reference,omitempty"`
	CostCenter    string `json:"cost_center,omitempty"`
}

// IsCorrectable reports whether the invoice is in a status that allows
// issuing corrections against it.
func (i *Invoice) IsCorrectable() bool {
	return i.Status == InvoiceStatusSent || i.Status == InvoiceStatusPaid
}
