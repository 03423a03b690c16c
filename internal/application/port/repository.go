package port

import (
	"context"

	"github.com/nordwind/parkoffice/internal/domain/entity"
)

// InvoiceRepository defines persistence operations for invoices and their
// line items. Implementations return (nil, nil) when no row matches; mapping
// that to a NotFound error is the service layer's job. Single-document loads
// are not tenant-filtered so the service can distinguish a foreign tenant's
// invoice (Forbidden) from a missing one (NotFound).
type InvoiceRepository interface {
	// GetByID loads an invoice with its items ordered by position.
	GetByID(ctx context.Context, id int64) (*entity.Invoice, error)

	// GetForUpdate behaves like GetByID but takes a row lock for the
	// duration of the surrounding transaction, so two concurrent
	// corrections against the same invoice serialize instead of both
	// passing the status check.
	GetForUpdate(ctx context.Context, id int64) (*entity.Invoice, error)

	// Create inserts the invoice header and all of its items.
	Create(ctx context.Context, invoice *entity.Invoice) error

	// UpdateStatus moves an invoice to a new lifecycle status.
	UpdateStatus(ctx context.Context, id int64, status string) error

	// ListCorrections returns all documents whose CorrectionOf points at
	// the given invoice, items included, for the given tenant.
	ListCorrections(ctx context.Context, tenantID, invoiceID int64) ([]*entity.Invoice, error)

	// ListLegacyCancellations returns documents that reference the invoice
	// only through the legacy cancelled_invoice_id link (CorrectionOf is
	// null on those rows).
	ListLegacyCancellations(ctx context.Context, tenantID, invoiceID int64) ([]*entity.Invoice, error)
}

// NumberAllocator hands out sequential, tenant- and type-scoped document
// numbers. Implementations must be collision-free under concurrency; the
// correction engine calls this inside its transaction and relies on that.
type NumberAllocator interface {
	NextNumber(ctx context.Context, tenantID int64, invoiceType string) (string, error)
}

// TransactionManager runs a function inside a database transaction. Nested
// calls reuse the outer transaction.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
