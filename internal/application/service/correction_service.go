package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/nordwind/parkoffice/internal/application/port"
	"github.com/nordwind/parkoffice/internal/billing"
	"github.com/nordwind/parkoffice/internal/domain/entity"
)

const (
	partialCancelPrefix = "TEILSTORNO: "
	fullCancelPrefix    = "STORNO: "
)

// CancelPosition selects one line of the source invoice for partial
// cancellation. A nil CancelQuantity cancels the full original quantity.
type CancelPosition struct {
	OriginalIndex  int      `json:"original_index"`
	CancelQuantity *float64 `json:"cancel_quantity,omitempty"`
}

// PartialCancellationInput describes a Teilstorno request.
type PartialCancellationInput struct {
	InvoiceID int64
	TenantID  int64
	Positions []CancelPosition
	Reason    string
	UserID    int64
}

// CorrectionPosition describes the replacement values for one wrong line.
// Nil fields keep the original value; at least one field must actually
// differ from the original.
type CorrectionPosition struct {
	OriginalIndex  int      `json:"original_index"`
	NewDescription *string  `json:"new_description,omitempty"`
	NewQuantity    *float64 `json:"new_quantity,omitempty"`
	NewUnitPrice   *float64 `json:"new_unit_price,omitempty"`
	NewTaxType     *string  `json:"new_tax_type,omitempty"`
}

// CorrectionInput describes a Rechnungskorrektur request.
type CorrectionInput struct {
	InvoiceID int64
	TenantID  int64
	Positions []CorrectionPosition
	Reason    string
	UserID    int64
}

// FullCancellationInput describes a Vollstorno request.
type FullCancellationInput struct {
	InvoiceID int64
	TenantID  int64
	Reason    string
	UserID    int64
}

// CorrectionResult pairs the two documents a full correction produces.
type CorrectionResult struct {
	CreditNote        *entity.Invoice `json:"credit_note"`
	CorrectionInvoice *entity.Invoice `json:"correction_invoice"`
}

// CorrectionService implements the invoice correction engine. Corrections
// never mutate an issued document; they append linked credit notes and
// replacement invoices instead, so the ledger stays append-only.
type CorrectionService interface {
	CreatePartialCancellation(ctx context.Context, in PartialCancellationInput) (*entity.Invoice, error)
	CreateCorrectionInvoice(ctx context.Context, in CorrectionInput) (*CorrectionResult, error)
	CreateFullCancellation(ctx context.Context, in FullCancellationInput) (*entity.Invoice, error)
}

type correctionServiceImpl struct {
	invoices  port.InvoiceRepository
	numbers   port.NumberAllocator
	taxRates  billing.TaxRateResolver
	txManager port.TransactionManager
	logger    *zap.Logger
}

// NewCorrectionService creates the correction engine.
func NewCorrectionService(
	invoices port.InvoiceRepository,
	numbers port.NumberAllocator,
	taxRates billing.TaxRateResolver,
	txManager port.TransactionManager,
	logger *zap.Logger,
) CorrectionService {
	return &correctionServiceImpl{
		invoices:  invoices,
		numbers:   numbers,
		taxRates:  taxRates,
		txManager: txManager,
		logger:    logger,
	}
}

// loadCorrectable loads the source invoice under a row lock and verifies
// tenant ownership and status. Validation runs inside the caller's
// transaction so a concurrent correction cannot slip past the status check.
func (s *correctionServiceImpl) loadCorrectable(ctx context.Context, tenantID, invoiceID int64) (*entity.Invoice, error) {
	invoice, err := s.invoices.GetForUpdate(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("load invoice %d: %w", invoiceID, err)
	}
	if invoice == nil {
		return nil, entity.NewNotFound("Rechnung nicht gefunden")
	}
	if invoice.TenantID != tenantID {
		return nil, entity.NewForbidden("Rechnung gehört zu einem anderen Mandanten")
	}
	if !invoice.IsCorrectable() {
		return nil, entity.NewInvalidState(fmt.Sprintf(
			"Rechnung %s kann im Status %s nicht korrigiert werden (erforderlich: SENT oder PAID)",
			invoice.Number, invoice.Status))
	}
	return invoice, nil
}

// CreatePartialCancellation cancels selected line positions, in whole or in
// part, via a single credit note. The source invoice itself is untouched.
func (s *correctionServiceImpl) CreatePartialCancellation(ctx context.Context, in PartialCancellationInput) (*entity.Invoice, error) {
	var creditNoteID int64

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		original, err := s.loadCorrectable(txCtx, in.TenantID, in.InvoiceID)
		if err != nil {
			return err
		}

		if len(in.Positions) == 0 {
			return entity.NewValidation("Es wurden keine Positionen zum Stornieren angegeben")
		}

		cancelled := make(map[int]float64, len(in.Positions))
		for _, pos := range in.Positions {
			if pos.OriginalIndex < 0 || pos.OriginalIndex >= len(original.Items) {
				return entity.NewPositionValidation(pos.OriginalIndex+1, fmt.Sprintf(
					"Position %d existiert nicht (Rechnung hat %d Positionen)",
					pos.OriginalIndex+1, len(original.Items)))
			}
			item := original.Items[pos.OriginalIndex]
			qty := item.Quantity
			if pos.CancelQuantity != nil {
				qty = *pos.CancelQuantity
				if qty <= 0 {
					return entity.NewPositionValidation(pos.OriginalIndex+1, fmt.Sprintf(
						"Position %d: Stornomenge muss größer als 0 sein", pos.OriginalIndex+1))
				}
				if qty > item.Quantity {
					return entity.NewPositionValidation(pos.OriginalIndex+1, fmt.Sprintf(
						"Position %d: Stornomenge %.2f übersteigt die ursprüngliche Menge %.2f",
						pos.OriginalIndex+1, qty, item.Quantity))
				}
			}
			cancelled[pos.OriginalIndex] += qty
		}

		// Selections may name the same position more than once; the sum
		// must still fit into the original quantity.
		for idx, item := range original.Items {
			if cancelled[idx] > item.Quantity {
				return entity.NewPositionValidation(idx+1, fmt.Sprintf(
					"Position %d: Stornomengen summieren sich auf %.2f und übersteigen die ursprüngliche Menge %.2f",
					idx+1, cancelled[idx], item.Quantity))
			}
		}

		// A selection that fully cancels every single line is a full
		// cancellation in disguise and must be audited as one.
		if isFullCancellation(original.Items, cancelled) {
			return entity.NewValidation(
				"Die Auswahl storniert alle Positionen vollständig, bitte stattdessen das Vollstorno verwenden")
		}

		number, err := s.numbers.NextNumber(txCtx, in.TenantID, entity.InvoiceTypeCreditNote)
		if err != nil {
			return fmt.Errorf("allocate credit note number: %w", err)
		}

		var items []*entity.InvoiceItem
		var audit []entity.PositionAudit
		for _, pos := range in.Positions {
			item := original.Items[pos.OriginalIndex]
			qty := item.Quantity
			if pos.CancelQuantity != nil {
				qty = *pos.CancelQuantity
			}
			// Cancelled amount at the original unit price, negated, over
			// the cancelled quantity only.
			line, err := s.buildItem(len(items)+1, partialCancelPrefix+item.Description,
				qty, -item.UnitPrice, item.TaxType, item)
			if err != nil {
				return err
			}
			items = append(items, line)

			cancelledQty := qty
			audit = append(audit, entity.PositionAudit{
				Kind:                entity.CorrectionTypePartialCancel,
				Position:            item.Position,
				OriginalIndex:       pos.OriginalIndex,
				OriginalDescription: item.Description,
				OriginalQuantity:    item.Quantity,
				OriginalUnitPrice:   item.UnitPrice,
				OriginalTaxType:     item.TaxType,
				CancelledQuantity:   &cancelledQty,
			})
		}

		creditNote, err := s.buildDocument(original, entity.InvoiceTypeCreditNote, number,
			entity.CorrectionTypePartialCancel, in.Reason, in.UserID, items, audit)
		if err != nil {
			return err
		}

		if err := s.invoices.Create(txCtx, creditNote); err != nil {
			return fmt.Errorf("create credit note: %w", err)
		}
		creditNoteID = creditNote.ID
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Partial cancellation created",
		zap.Int64("tenant_id", in.TenantID),
		zap.Int64("invoice_id", in.InvoiceID),
		zap.Int64("credit_note_id", creditNoteID),
		zap.Int("positions", len(in.Positions)))

	return s.invoices.GetByID(ctx, creditNoteID)
}

// CreateCorrectionInvoice reverses wrong positions entirely via a credit
// note and reissues them with corrected values on a fresh invoice of the
// original's type. Both documents are written in one transaction; a credit
// note without its replacement invoice must never exist.
func (s *correctionServiceImpl) CreateCorrectionInvoice(ctx context.Context, in CorrectionInput) (*CorrectionResult, error) {
	var creditNoteID, correctionID int64

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		original, err := s.loadCorrectable(txCtx, in.TenantID, in.InvoiceID)
		if err != nil {
			return err
		}

		if len(in.Positions) == 0 {
			return entity.NewValidation("Es wurden keine Positionen zur Korrektur angegeben")
		}

		for _, pos := range in.Positions {
			if pos.OriginalIndex < 0 || pos.OriginalIndex >= len(original.Items) {
				return entity.NewPositionValidation(pos.OriginalIndex+1, fmt.Sprintf(
					"Position %d existiert nicht (Rechnung hat %d Positionen)",
					pos.OriginalIndex+1, len(original.Items)))
			}
			item := original.Items[pos.OriginalIndex]

			if pos.NewQuantity != nil && *pos.NewQuantity <= 0 {
				return entity.NewPositionValidation(pos.OriginalIndex+1, fmt.Sprintf(
					"Position %d: neue Menge muss größer als 0 sein", pos.OriginalIndex+1))
			}
			if pos.NewUnitPrice != nil && *pos.NewUnitPrice < 0 {
				return entity.NewPositionValidation(pos.OriginalIndex+1, fmt.Sprintf(
					"Position %d: neuer Einzelpreis darf nicht negativ sein", pos.OriginalIndex+1))
			}
			if !hasActualChange(item, pos) {
				return entity.NewPositionValidation(pos.OriginalIndex+1, fmt.Sprintf(
					"Position %d: keine Änderungen erkannt", pos.OriginalIndex+1))
			}
		}

		creditNumber, err := s.numbers.NextNumber(txCtx, in.TenantID, entity.InvoiceTypeCreditNote)
		if err != nil {
			return fmt.Errorf("allocate credit note number: %w", err)
		}
		correctionNumber, err := s.numbers.NextNumber(txCtx, in.TenantID, original.Type)
		if err != nil {
			return fmt.Errorf("allocate correction invoice number: %w", err)
		}

		var creditItems, correctionItems []*entity.InvoiceItem
		var audit []entity.PositionAudit
		for _, pos := range in.Positions {
			item := original.Items[pos.OriginalIndex]

			// The whole wrong position is reversed at its original
			// quantity and price, unlike a partial cancellation.
			creditLine, err := s.buildItem(len(creditItems)+1, fullCancelPrefix+item.Description,
				item.Quantity, -item.UnitPrice, item.TaxType, item)
			if err != nil {
				return err
			}
			creditItems = append(creditItems, creditLine)

			desc := item.Description
			if pos.NewDescription != nil {
				desc = *pos.NewDescription
			}
			qty := item.Quantity
			if pos.NewQuantity != nil {
				qty = *pos.NewQuantity
			}
			price := item.UnitPrice
			if pos.NewUnitPrice != nil {
				price = *pos.NewUnitPrice
			}
			taxType := item.TaxType
			if pos.NewTaxType != nil {
				taxType = *pos.NewTaxType
			}

			correctionLine, err := s.buildItem(len(correctionItems)+1, desc, qty, price, taxType, item)
			if err != nil {
				return err
			}
			correctionItems = append(correctionItems, correctionLine)

			audit = append(audit, entity.PositionAudit{
				Kind:                entity.CorrectionTypeCorrection,
				Position:            item.Position,
				OriginalIndex:       pos.OriginalIndex,
				OriginalDescription: item.Description,
				OriginalQuantity:    item.Quantity,
				OriginalUnitPrice:   item.UnitPrice,
				OriginalTaxType:     item.TaxType,
				NewDescription:      pos.NewDescription,
				NewQuantity:         pos.NewQuantity,
				NewUnitPrice:        pos.NewUnitPrice,
				NewTaxType:          pos.NewTaxType,
			})
		}

		creditNote, err := s.buildDocument(original, entity.InvoiceTypeCreditNote, creditNumber,
			entity.CorrectionTypeCorrection, in.Reason, in.UserID, creditItems, audit)
		if err != nil {
			return err
		}

		correctionInvoice, err := s.buildDocument(original, original.Type, correctionNumber,
			entity.CorrectionTypeCorrection, in.Reason, in.UserID, correctionItems, audit)
		if err != nil {
			return err
		}
		// The replacement invoice keeps the original payment terms.
		correctionInvoice.DueDate = original.DueDate

		if err := s.invoices.Create(txCtx, creditNote); err != nil {
			return fmt.Errorf("create credit note: %w", err)
		}
		if err := s.invoices.Create(txCtx, correctionInvoice); err != nil {
			return fmt.Errorf("create correction invoice: %w", err)
		}
		creditNoteID = creditNote.ID
		correctionID = correctionInvoice.ID
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Correction invoice pair created",
		zap.Int64("tenant_id", in.TenantID),
		zap.Int64("invoice_id", in.InvoiceID),
		zap.Int64("credit_note_id", creditNoteID),
		zap.Int64("correction_invoice_id", correctionID),
		zap.Int("positions", len(in.Positions)))

	creditNote, err := s.invoices.GetByID(ctx, creditNoteID)
	if err != nil {
		return nil, err
	}
	correctionInvoice, err := s.invoices.GetByID(ctx, correctionID)
	if err != nil {
		return nil, err
	}
	return &CorrectionResult{CreditNote: creditNote, CorrectionInvoice: correctionInvoice}, nil
}

// CreateFullCancellation reverses every line of the invoice with one credit
// note and marks the source CANCELLED. The legacy cancelled_invoice_id link
// is set alongside CorrectionOf so older reports keep working.
func (s *correctionServiceImpl) CreateFullCancellation(ctx context.Context, in FullCancellationInput) (*entity.Invoice, error) {
	var creditNoteID int64

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		original, err := s.loadCorrectable(txCtx, in.TenantID, in.InvoiceID)
		if err != nil {
			return err
		}

		number, err := s.numbers.NextNumber(txCtx, in.TenantID, entity.InvoiceTypeCreditNote)
		if err != nil {
			return fmt.Errorf("allocate credit note number: %w", err)
		}

		var items []*entity.InvoiceItem
		var audit []entity.PositionAudit
		for idx, item := range original.Items {
			line, err := s.buildItem(len(items)+1, fullCancelPrefix+item.Description,
				item.Quantity, -item.UnitPrice, item.TaxType, item)
			if err != nil {
				return err
			}
			items = append(items, line)

			cancelledQty := item.Quantity
			audit = append(audit, entity.PositionAudit{
				Kind:                entity.CorrectionTypeFullCancel,
				Position:            item.Position,
				OriginalIndex:       idx,
				OriginalDescription: item.Description,
				OriginalQuantity:    item.Quantity,
				OriginalUnitPrice:   item.UnitPrice,
				OriginalTaxType:     item.TaxType,
				CancelledQuantity:   &cancelledQty,
			})
		}

		creditNote, err := s.buildDocument(original, entity.InvoiceTypeCreditNote, number,
			entity.CorrectionTypeFullCancel, in.Reason, in.UserID, items, audit)
		if err != nil {
			return err
		}
		creditNote.CancelledInvoiceID = &original.ID

		if err := s.invoices.Create(txCtx, creditNote); err != nil {
			return fmt.Errorf("create credit note: %w", err)
		}
		if err := s.invoices.UpdateStatus(txCtx, original.ID, entity.InvoiceStatusCancelled); err != nil {
			return fmt.Errorf("cancel original invoice: %w", err)
		}
		creditNoteID = creditNote.ID
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Full cancellation created",
		zap.Int64("tenant_id", in.TenantID),
		zap.Int64("invoice_id", in.InvoiceID),
		zap.Int64("credit_note_id", creditNoteID))

	return s.invoices.GetByID(ctx, creditNoteID)
}

// buildItem computes amounts for one new line and copies the pass-through
// references from the corrected item.
func (s *correctionServiceImpl) buildItem(position int, description string, quantity, unitPrice float64, taxType string, source *entity.InvoiceItem) (*entity.InvoiceItem, error) {
	amounts, err := billing.CalculateItemAmounts(quantity, unitPrice, taxType, s.taxRates)
	if err != nil {
		return nil, err
	}
	return &entity.InvoiceItem{
		Position:      position,
		Description:   description,
		Quantity:      quantity,
		UnitPrice:     unitPrice,
		TaxType:       taxType,
		NetAmount:     amounts.NetAmount,
		TaxAmount:     amounts.TaxAmount,
		GrossAmount:   amounts.GrossAmount,
		PlotReference: source.PlotReference,
		CostCenter:    source.CostCenter,
	}, nil
}

// buildDocument assembles a correction document header from its lines.
func (s *correctionServiceImpl) buildDocument(original *entity.Invoice, invoiceType, number, correctionType, reason string, userID int64, items []*entity.InvoiceItem, audit []entity.PositionAudit) (*entity.Invoice, error) {
	auditPayload, err := entity.MarshalAudit(audit)
	if err != nil {
		return nil, err
	}
	totals := billing.SumItemAmounts(items)
	return &entity.Invoice{
		TenantID:           original.TenantID,
		Type:               invoiceType,
		Number:             number,
		Date:               time.Now(),
		RecipientType:      original.RecipientType,
		RecipientName:      original.RecipientName,
		RecipientAddress:   original.RecipientAddress,
		NetAmount:          totals.NetAmount,
		TaxAmount:          totals.TaxAmount,
		GrossAmount:        totals.GrossAmount,
		Status:             entity.InvoiceStatusSent,
		CorrectionOf:       &original.ID,
		CorrectionType:     correctionType,
		CorrectionReason:   reason,
		CorrectedPositions: auditPayload,
		CreatedBy:          userID,
		Items:              items,
	}, nil
}

// isFullCancellation reports whether the cancelled quantities cover every
// line of the invoice in full.
func isFullCancellation(items []*entity.InvoiceItem, cancelled map[int]float64) bool {
	if len(cancelled) != len(items) {
		return false
	}
	for idx, item := range items {
		if cancelled[idx] < item.Quantity {
			return false
		}
	}
	return true
}

// hasActualChange reports whether at least one replacement value differs
// from the original line. A field that is set but equal does not count.
func hasActualChange(item *entity.InvoiceItem, pos CorrectionPosition) bool {
	if pos.NewDescription != nil && *pos.NewDescription != item.Description {
		return true
	}
	if pos.NewQuantity != nil && *pos.NewQuantity != item.Quantity {
		return true
	}
	if pos.NewUnitPrice != nil && *pos.NewUnitPrice != item.UnitPrice {
		return true
	}
	if pos.NewTaxType != nil && *pos.NewTaxType != item.TaxType {
		return true
	}
	return false
}
