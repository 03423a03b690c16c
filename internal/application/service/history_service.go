package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/nordwind/parkoffice/internal/application/port"
	"github.com/nordwind/parkoffice/internal/billing"
	"github.com/nordwind/parkoffice/internal/domain/entity"
)

// CorrectionEntry summarizes one correction document for API responses.
type CorrectionEntry struct {
	ID             int64     `json:"id"`
	Type           string    `json:"type"`
	Number         string    `json:"number"`
	CorrectionType string    `json:"correction_type"`
	Reason         string    `json:"reason,omitempty"`
	Date           time.Time `json:"date"`
	CreatedAt      time.Time `json:"created_at"`
	NetAmount      float64   `json:"net_amount"`
	TaxAmount      float64   `json:"tax_amount"`
	GrossAmount    float64   `json:"gross_amount"`
	// Legacy marks documents linked only through cancelled_invoice_id,
	// predating the correction_of column.
	Legacy bool `json:"legacy,omitempty"`
}

// CorrectionHistory is the aggregated correction state of one invoice.
// Correction amounts are signed: pure cancellations are negative, a
// two-document correction contributes both its negative credit note and its
// positive replacement invoice.
type CorrectionHistory struct {
	InvoiceID            int64             `json:"invoice_id"`
	InvoiceNumber        string            `json:"invoice_number"`
	OriginalNet          float64           `json:"original_net"`
	OriginalGross        float64           `json:"original_gross"`
	Corrections          []CorrectionEntry `json:"corrections"`
	TotalCorrectionNet   float64           `json:"total_correction_net"`
	TotalCorrectionGross float64           `json:"total_correction_gross"`
	EffectiveNet         float64           `json:"effective_net"`
	EffectiveGross       float64           `json:"effective_gross"`
}

// HistoryService reconstructs the correction graph of an invoice and its
// cumulative financial effect. Pure read, no side effects.
type HistoryService interface {
	GetCorrectionHistory(ctx context.Context, tenantID, invoiceID int64) (*CorrectionHistory, error)
}

type historyServiceImpl struct {
	invoices port.InvoiceRepository
	logger   *zap.Logger
}

// NewHistoryService creates the history reconstructor.
func NewHistoryService(invoices port.InvoiceRepository, logger *zap.Logger) HistoryService {
	return &historyServiceImpl{invoices: invoices, logger: logger}
}

// GetCorrectionHistory merges CorrectionOf-linked documents with legacy
// cancelled_invoice_id links, sorts them by creation time and computes the
// net effect. With zero corrections the effective amounts equal the
// original amounts exactly.
func (s *historyServiceImpl) GetCorrectionHistory(ctx context.Context, tenantID, invoiceID int64) (*CorrectionHistory, error) {
	original, err := s.invoices.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("load invoice %d: %w", invoiceID, err)
	}
	if original == nil {
		return nil, entity.NewNotFound("Rechnung nicht gefunden")
	}
	if original.TenantID != tenantID {
		return nil, entity.NewForbidden("Rechnung gehört zu einem anderen Mandanten")
	}

	corrections, err := s.invoices.ListCorrections(ctx, tenantID, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("list corrections: %w", err)
	}
	legacy, err := s.invoices.ListLegacyCancellations(ctx, tenantID, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("list legacy cancellations: %w", err)
	}

	entries := make([]CorrectionEntry, 0, len(corrections)+len(legacy))
	for _, doc := range corrections {
		entries = append(entries, toEntry(doc, false))
	}
	for _, doc := range legacy {
		entries = append(entries, toEntry(doc, true))
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})

	var totalNet, totalGross float64
	for _, e := range entries {
		totalNet += e.NetAmount
		totalGross += e.GrossAmount
	}
	totalNet = billing.Round2(totalNet)
	totalGross = billing.Round2(totalGross)

	return &CorrectionHistory{
		InvoiceID:            original.ID,
		InvoiceNumber:        original.Number,
		OriginalNet:          original.NetAmount,
		OriginalGross:        original.GrossAmount,
		Corrections:          entries,
		TotalCorrectionNet:   totalNet,
		TotalCorrectionGross: totalGross,
		EffectiveNet:         billing.Round2(original.NetAmount + totalNet),
		EffectiveGross:       billing.Round2(original.GrossAmount + totalGross),
	}, nil
}

func toEntry(doc *entity.Invoice, legacy bool) CorrectionEntry {
	correctionType := doc.CorrectionType
	if correctionType == "" && legacy {
		correctionType = entity.CorrectionTypeFullCancel
	}
	return CorrectionEntry{
		ID:             doc.ID,
		Type:           doc.Type,
		Number:         doc.Number,
		CorrectionType: correctionType,
		Reason:         doc.CorrectionReason,
		Date:           doc.Date,
		CreatedAt:      doc.CreatedAt,
		NetAmount:      doc.NetAmount,
		TaxAmount:      doc.TaxAmount,
		GrossAmount:    doc.GrossAmount,
		Legacy:         legacy,
	}
}
