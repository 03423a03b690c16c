package service

import (
	"bytes"
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/nordwind/parkoffice/internal/application/port"
	"github.com/nordwind/parkoffice/internal/domain/entity"
)

// ExportService renders correction reports for handover to bookkeeping.
type ExportService interface {
	GenerateCorrectionReport(ctx context.Context, tenantID, invoiceID int64) ([]byte, error)
}

type exportServiceImpl struct {
	invoices port.InvoiceRepository
	history  HistoryService
	logger   *zap.Logger
}

// NewExportService creates the Excel export service.
func NewExportService(invoices port.InvoiceRepository, history HistoryService, logger *zap.Logger) ExportService {
	return &exportServiceImpl{invoices: invoices, history: history, logger: logger}
}

const reportSheet = "Korrekturverlauf"

// GenerateCorrectionReport builds an XLSX workbook listing the original
// document, every correction document and the audit detail of each touched
// position. Returned as bytes for the transport layer to stream.
func (s *exportServiceImpl) GenerateCorrectionReport(ctx context.Context, tenantID, invoiceID int64) ([]byte, error) {
	history, err := s.history.GetCorrectionHistory(ctx, tenantID, invoiceID)
	if err != nil {
		return nil, err
	}
	original, err := s.invoices.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("load invoice %d: %w", invoiceID, err)
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(reportSheet)
	if err != nil {
		return nil, fmt.Errorf("create report sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		s.logger.Warn("Failed to remove default sheet", zap.Error(err))
	}

	s.setCell(f, "A1", "Korrekturbericht")
	s.setCell(f, "A2", fmt.Sprintf("Rechnung %s", history.InvoiceNumber))

	headers := []string{"Belegnummer", "Typ", "Korrekturart", "Datum", "Netto", "Steuer", "Brutto", "Grund"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 4)
		s.setCell(f, cell, h)
	}

	row := 5
	s.writeDocumentRow(f, row, original.Number, original.Type, "", original.Date.Format("2006-01-02"),
		original.NetAmount, original.TaxAmount, original.GrossAmount, "")
	row++

	for _, corr := range history.Corrections {
		s.writeDocumentRow(f, row, corr.Number, corr.Type, corr.CorrectionType,
			corr.Date.Format("2006-01-02"), corr.NetAmount, corr.TaxAmount,
			corr.GrossAmount, corr.Reason)
		row++
	}

	row++
	s.setCell(f, fmt.Sprintf("A%d", row), "Korrektursumme netto")
	s.setNumberCell(f, fmt.Sprintf("E%d", row), history.TotalCorrectionNet)
	s.setNumberCell(f, fmt.Sprintf("G%d", row), history.TotalCorrectionGross)
	row++
	s.setCell(f, fmt.Sprintf("A%d", row), "Effektiver Betrag")
	s.setNumberCell(f, fmt.Sprintf("E%d", row), history.EffectiveNet)
	s.setNumberCell(f, fmt.Sprintf("G%d", row), history.EffectiveGross)
	row += 2

	// Audit detail per correction document
	for _, corr := range history.Corrections {
		doc, err := s.invoices.GetByID(ctx, corr.ID)
		if err != nil || doc == nil {
			continue
		}
		audit, err := entity.UnmarshalAudit(doc.CorrectedPositions)
		if err != nil {
			s.logger.Warn("Skipping unreadable audit payload",
				zap.Int64("invoice_id", doc.ID), zap.Error(err))
			continue
		}
		if len(audit) == 0 {
			continue
		}
		s.setCell(f, fmt.Sprintf("A%d", row), fmt.Sprintf("Korrigierte Positionen (%s)", doc.Number))
		row++
		for _, a := range audit {
			s.setCell(f, fmt.Sprintf("A%d", row), fmt.Sprintf("Position %d", a.Position))
			s.setCell(f, fmt.Sprintf("B%d", row), a.OriginalDescription)
			s.setCell(f, fmt.Sprintf("C%d", row), describeChange(a))
			row++
		}
		row++
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}

	s.logger.Info("Correction report generated",
		zap.Int64("tenant_id", tenantID),
		zap.Int64("invoice_id", invoiceID),
		zap.Int("corrections", len(history.Corrections)))

	return buf.Bytes(), nil
}

func (s *exportServiceImpl) writeDocumentRow(f *excelize.File, row int, number, docType, correctionType, date string, net, tax, gross float64, reason string) {
	s.setCell(f, fmt.Sprintf("A%d", row), number)
	s.setCell(f, fmt.Sprintf("B%d", row), docType)
	s.setCell(f, fmt.Sprintf("C%d", row), correctionType)
	s.setCell(f, fmt.Sprintf("D%d", row), date)
	s.setNumberCell(f, fmt.Sprintf("E%d", row), net)
	s.setNumberCell(f, fmt.Sprintf("F%d", row), tax)
	s.setNumberCell(f, fmt.Sprintf("G%d", row), gross)
	s.setCell(f, fmt.Sprintf("H%d", row), reason)
}

func (s *exportServiceImpl) setCell(f *excelize.File, cell string, value interface{}) {
	if err := f.SetCellValue(reportSheet, cell, value); err != nil {
		s.logger.Warn("Failed to set cell value",
			zap.String("cell", cell),
			zap.Error(err))
	}
}

func (s *exportServiceImpl) setNumberCell(f *excelize.File, cell string, value float64) {
	s.setCell(f, cell, value)
}

func describeChange(a entity.PositionAudit) string {
	switch a.Kind {
	case entity.CorrectionTypePartialCancel:
		if a.CancelledQuantity != nil {
			return fmt.Sprintf("Teilstorno über %.2f von %.2f", *a.CancelledQuantity, a.OriginalQuantity)
		}
		return "Teilstorno"
	case entity.CorrectionTypeFullCancel:
		return "Vollstorno"
	case entity.CorrectionTypeCorrection:
		out := ""
		if a.NewDescription != nil {
			out += fmt.Sprintf("Bezeichnung: %q statt %q; ", *a.NewDescription, a.OriginalDescription)
		}
		if a.NewQuantity != nil {
			out += fmt.Sprintf("Menge: %.2f statt %.2f; ", *a.NewQuantity, a.OriginalQuantity)
		}
		if a.NewUnitPrice != nil {
			out += fmt.Sprintf("Einzelpreis: %.2f statt %.2f; ", *a.NewUnitPrice, a.OriginalUnitPrice)
		}
		if a.NewTaxType != nil {
			out += fmt.Sprintf("Steuerkategorie: %s statt %s; ", *a.NewTaxType, a.OriginalTaxType)
		}
		return out
	}
	return ""
}
