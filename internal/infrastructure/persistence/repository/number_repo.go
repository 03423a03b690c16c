package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/nordwind/parkoffice/internal/application/port"
	"github.com/nordwind/parkoffice/internal/domain/entity"
	"github.com/nordwind/parkoffice/internal/infrastructure/persistence/sqlite"
)

// NumberAllocator hands out sequential document numbers from a per-tenant,
// per-type, per-year counter table. Increment and read are one UPSERT with
// RETURNING, so concurrent allocations cannot observe the same sequence
// value even outside a surrounding transaction.
type NumberAllocator struct {
	db     *sql.DB
	logger *zap.Logger
	now    func() time.Time
}

// NewNumberAllocator creates a new number allocator
func NewNumberAllocator(db *sql.DB, logger *zap.Logger) *NumberAllocator {
	return &NumberAllocator{db: db, logger: logger, now: time.Now}
}

// NextNumber allocates the next document number. Invoices are numbered
// RE-<year>-<seq>, credit notes GS-<year>-<seq>, each sequence independent
// and zero-padded to five digits.
func (a *NumberAllocator) NextNumber(ctx context.Context, tenantID int64, invoiceType string) (string, error) {
	var prefix string
	switch invoiceType {
	case entity.InvoiceTypeInvoice:
		prefix = "RE"
	case entity.InvoiceTypeCreditNote:
		prefix = "GS"
	default:
		return "", fmt.Errorf("unknown invoice type %q", invoiceType)
	}

	year := a.now().Year()
	exec := sqlite.ExecutorFrom(ctx, a.db)

	var seq int64
	if err := exec.QueryRowContext(ctx,
		`INSERT INTO invoice_number_sequences (tenant_id, invoice_type, year, last_number)
		 VALUES (?, ?, ?, 1)
		 ON CONFLICT (tenant_id, invoice_type, year)
		 DO UPDATE SET last_number = last_number + 1
		 RETURNING last_number`,
		tenantID, invoiceType, year,
	).Scan(&seq); err != nil {
		a.logger.Error("Failed to advance number sequence",
			zap.Int64("tenant_id", tenantID),
			zap.String("type", invoiceType), zap.Error(err))
		return "", fmt.Errorf("failed to advance number sequence: %w", err)
	}

	return fmt.Sprintf("%s-%d-%05d", prefix, year, seq), nil
}

// Verify interface compliance
var _ port.NumberAllocator = (*NumberAllocator)(nil)
