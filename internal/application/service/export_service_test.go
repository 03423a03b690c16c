package service

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/nordwind/parkoffice/internal/domain/entity"
)

func TestGenerateCorrectionReport(t *testing.T) {
	repo := newMockInvoiceRepo()
	original := sentInvoice(repo)
	corrections := newTestService(repo)
	history := NewHistoryService(repo, zap.NewNop())
	export := NewExportService(repo, history, zap.NewNop())
	ctx := context.Background()

	creditNote, err := corrections.CreatePartialCancellation(ctx, PartialCancellationInput{
		InvoiceID: original.ID,
		TenantID:  1,
		Positions: []CancelPosition{{OriginalIndex: 1, CancelQuantity: ptr(4.0)}},
		Reason:    "Weg nicht genutzt",
	})
	require.NoError(t, err)

	report, err := export.GenerateCorrectionReport(ctx, 1, original.ID)
	require.NoError(t, err)
	require.NotEmpty(t, report)

	f, err := excelize.OpenReader(bytes.NewReader(report))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Korrekturverlauf")
	require.NoError(t, err)
	require.NotEmpty(t, rows)

	flat := ""
	for _, row := range rows {
		for _, cell := range row {
			flat += cell + "|"
		}
	}
	assert.Contains(t, flat, "Korrekturbericht")
	assert.Contains(t, flat, "Belegnummer")
	assert.Contains(t, flat, original.Number)
	assert.Contains(t, flat, creditNote.Number)
	assert.Contains(t, flat, "Weg nicht genutzt")
	assert.Contains(t, flat, "Teilstorno")
}

func TestGenerateCorrectionReportGuards(t *testing.T) {
	repo := newMockInvoiceRepo()
	original := sentInvoice(repo)
	history := NewHistoryService(repo, zap.NewNop())
	export := NewExportService(repo, history, zap.NewNop())
	ctx := context.Background()

	_, err := export.GenerateCorrectionReport(ctx, 1, 999)
	assert.True(t, entity.IsKind(err, entity.ErrKindNotFound))

	_, err = export.GenerateCorrectionReport(ctx, 2, original.ID)
	assert.True(t, entity.IsKind(err, entity.ErrKindForbidden))
}
