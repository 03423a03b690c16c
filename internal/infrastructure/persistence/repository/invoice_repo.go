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

const invoiceColumns = `id, tenant_id, type, number, date, due_date,
		recipient_type, recipient_name, recipient_address,
		net_amount, tax_amount, gross_amount, status,
		correction_of, correction_type, correction_reason, corrected_positions,
		cancelled_invoice_id,
		skonto_percent, skonto_days, skonto_deadline, skonto_paid,
		created_at, created_by`

// InvoiceRepository implements port.InvoiceRepository on SQLite.
type InvoiceRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewInvoiceRepository creates a new invoice repository
func NewInvoiceRepository(db *sql.DB, logger *zap.Logger) *InvoiceRepository {
	return &InvoiceRepository{db: db, logger: logger}
}

func (r *InvoiceRepository) executor(ctx context.Context) sqlite.Executor {
	return sqlite.ExecutorFrom(ctx, r.db)
}

// GetByID loads an invoice with its items ordered by position. Returns
// (nil, nil) when no row matches.
func (r *InvoiceRepository) GetByID(ctx context.Context, id int64) (*entity.Invoice, error) {
	query := fmt.Sprintf(`SELECT %s FROM invoices WHERE id = ?`, invoiceColumns)
	row := r.executor(ctx).QueryRowContext(ctx, query, id)

	invoice, err := scanInvoice(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to load invoice", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to load invoice %d: %w", id, err)
	}

	if err := r.loadItems(ctx, invoice); err != nil {
		return nil, err
	}
	return invoice, nil
}

// GetForUpdate locks the invoice row for the surrounding transaction before
// loading it. SQLite has no SELECT ... FOR UPDATE; touching the row with a
// no-op UPDATE acquires the write lock, so two concurrent corrections
// against the same invoice serialize instead of both passing validation.
func (r *InvoiceRepository) GetForUpdate(ctx context.Context, id int64) (*entity.Invoice, error) {
	if _, err := r.executor(ctx).ExecContext(ctx,
		`UPDATE invoices SET id = id WHERE id = ?`, id); err != nil {
		r.logger.Error("Failed to lock invoice", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to lock invoice %d: %w", id, err)
	}
	return r.GetByID(ctx, id)
}

// Create inserts the invoice header and all of its items.
func (r *InvoiceRepository) Create(ctx context.Context, invoice *entity.Invoice) error {
	exec := r.executor(ctx)
	if invoice.CreatedAt.IsZero() {
		invoice.CreatedAt = time.Now()
	}

	result, err := exec.ExecContext(ctx, fmt.Sprintf(
		`INSERT INTO invoices (%s) VALUES (NULL, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		invoiceColumns),
		invoice.TenantID, invoice.Type, invoice.Number, invoice.Date, invoice.DueDate,
		invoice.RecipientType, invoice.RecipientName, invoice.RecipientAddress,
		invoice.NetAmount, invoice.TaxAmount, invoice.GrossAmount, invoice.Status,
		invoice.CorrectionOf, nullableString(invoice.CorrectionType),
		nullableString(invoice.CorrectionReason), nullableString(invoice.CorrectedPositions),
		invoice.CancelledInvoiceID,
		invoice.SkontoPercent, invoice.SkontoDays, invoice.SkontoDeadline, invoice.SkontoPaid,
		invoice.CreatedAt, invoice.CreatedBy,
	)
	if err != nil {
		r.logger.Error("Failed to insert invoice",
			zap.String("number", invoice.Number), zap.Error(err))
		return fmt.Errorf("failed to insert invoice %s: %w", invoice.Number, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get invoice id: %w", err)
	}
	invoice.ID = id

	for _, item := range invoice.Items {
		item.InvoiceID = id
		itemResult, err := exec.ExecContext(ctx,
			`INSERT INTO invoice_items
				(invoice_id, position, description, quantity, unit_price, tax_type,
				 net_amount, tax_amount, gross_amount, plot_reference, cost_center)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			item.InvoiceID, item.Position, item.Description, item.Quantity,
			item.UnitPrice, item.TaxType,
			item.NetAmount, item.TaxAmount, item.GrossAmount,
			nullableString(item.PlotReference), nullableString(item.CostCenter),
		)
		if err != nil {
			r.logger.Error("Failed to insert invoice item",
				zap.String("number", invoice.Number),
				zap.Int("position", item.Position), zap.Error(err))
			return fmt.Errorf("failed to insert item %d of invoice %s: %w",
				item.Position, invoice.Number, err)
		}
		itemID, err := itemResult.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get item id: %w", err)
		}
		item.ID = itemID
	}

	r.logger.Info("Invoice created",
		zap.Int64("id", id),
		zap.String("number", invoice.Number),
		zap.String("type", invoice.Type),
		zap.Int("items", len(invoice.Items)))
	return nil
}

// UpdateStatus moves an invoice to a new lifecycle status.
func (r *InvoiceRepository) UpdateStatus(ctx context.Context, id int64, status string) error {
	result, err := r.executor(ctx).ExecContext(ctx,
		`UPDATE invoices SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		r.logger.Error("Failed to update invoice status",
			zap.Int64("id", id), zap.String("status", status), zap.Error(err))
		return fmt.Errorf("failed to update status of invoice %d: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check status update: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("invoice %d not found for status update", id)
	}
	return nil
}

// ListCorrections returns all documents of the tenant whose correction_of
// points at the given invoice, ordered by creation time.
func (r *InvoiceRepository) ListCorrections(ctx context.Context, tenantID, invoiceID int64) ([]*entity.Invoice, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM invoices
		 WHERE tenant_id = ? AND correction_of = ?
		 ORDER BY created_at, id`, invoiceColumns)
	return r.list(ctx, query, tenantID, invoiceID)
}

// ListLegacyCancellations returns documents that reference the invoice only
// through the legacy cancelled_invoice_id link.
func (r *InvoiceRepository) ListLegacyCancellations(ctx context.Context, tenantID, invoiceID int64) ([]*entity.Invoice, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM invoices
		 WHERE tenant_id = ? AND cancelled_invoice_id = ? AND correction_of IS NULL
		 ORDER BY created_at, id`, invoiceColumns)
	return r.list(ctx, query, tenantID, invoiceID)
}

func (r *InvoiceRepository) list(ctx context.Context, query string, args ...interface{}) ([]*entity.Invoice, error) {
	rows, err := r.executor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list invoices", zap.Error(err))
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	defer rows.Close()

	var invoices []*entity.Invoice
	for rows.Next() {
		invoice, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}
		invoices = append(invoices, invoice)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate invoices: %w", err)
	}

	for _, invoice := range invoices {
		if err := r.loadItems(ctx, invoice); err != nil {
			return nil, err
		}
	}
	return invoices, nil
}

func (r *InvoiceRepository) loadItems(ctx context.Context, invoice *entity.Invoice) error {
	rows, err := r.executor(ctx).QueryContext(ctx,
		`SELECT id, invoice_id, position, description, quantity, unit_price, tax_type,
		        net_amount, tax_amount, gross_amount, plot_reference, cost_center
		 FROM invoice_items WHERE invoice_id = ? ORDER BY position`, invoice.ID)
	if err != nil {
		r.logger.Error("Failed to load invoice items",
			zap.Int64("invoice_id", invoice.ID), zap.Error(err))
		return fmt.Errorf("failed to load items of invoice %d: %w", invoice.ID, err)
	}
	defer rows.Close()

	for rows.Next() {
		item := &entity.InvoiceItem{}
		var plotRef, costCenter sql.NullString
		if err := rows.Scan(
			&item.ID, &item.InvoiceID, &item.Position, &item.Description,
			&item.Quantity, &item.UnitPrice, &item.TaxType,
			&item.NetAmount, &item.TaxAmount, &item.GrossAmount,
			&plotRef, &costCenter,
		); err != nil {
			return fmt.Errorf("failed to scan invoice item: %w", err)
		}
		item.PlotReference = plotRef.String
		item.CostCenter = costCenter.String
		invoice.Items = append(invoice.Items, item)
	}
	return rows.Err()
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanInvoice(row rowScanner) (*entity.Invoice, error) {
	invoice := &entity.Invoice{}
	var (
		dueDate            sql.NullTime
		correctionOf       sql.NullInt64
		correctionType     sql.NullString
		correctionReason   sql.NullString
		correctedPositions sql.NullString
		cancelledInvoiceID sql.NullInt64
		skontoDeadline     sql.NullTime
	)
	err := row.Scan(
		&invoice.ID, &invoice.TenantID, &invoice.Type, &invoice.Number,
		&invoice.Date, &dueDate,
		&invoice.RecipientType, &invoice.RecipientName, &invoice.RecipientAddress,
		&invoice.NetAmount, &invoice.TaxAmount, &invoice.GrossAmount, &invoice.Status,
		&correctionOf, &correctionType, &correctionReason, &correctedPositions,
		&cancelledInvoiceID,
		&invoice.SkontoPercent, &invoice.SkontoDays, &skontoDeadline, &invoice.SkontoPaid,
		&invoice.CreatedAt, &invoice.CreatedBy,
	)
	if err != nil {
		return nil, err
	}

	if dueDate.Valid {
		invoice.DueDate = &dueDate.Time
	}
	if correctionOf.Valid {
		invoice.CorrectionOf = &correctionOf.Int64
	}
	invoice.CorrectionType = correctionType.String
	invoice.CorrectionReason = correctionReason.String
	invoice.CorrectedPositions = correctedPositions.String
	if cancelledInvoiceID.Valid {
		invoice.CancelledInvoiceID = &cancelledInvoiceID.Int64
	}
	if skontoDeadline.Valid {
		invoice.SkontoDeadline = &skontoDeadline.Time
	}
	return invoice, nil
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// Verify interface compliance
var _ port.InvoiceRepository = (*InvoiceRepository)(nil)
