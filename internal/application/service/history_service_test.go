package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nordwind/parkoffice/internal/domain/entity"
)

func TestGetCorrectionHistoryWithoutCorrections(t *testing.T) {
	repo := newMockInvoiceRepo()
	original := sentInvoice(repo)
	svc := NewHistoryService(repo, zap.NewNop())

	history, err := svc.GetCorrectionHistory(context.Background(), 1, original.ID)
	require.NoError(t, err)

	assert.Equal(t, original.ID, history.InvoiceID)
	assert.Equal(t, "RE-2026-00001", history.InvoiceNumber)
	assert.Empty(t, history.Corrections)
	assert.Equal(t, 0.0, history.TotalCorrectionNet)
	assert.Equal(t, 0.0, history.TotalCorrectionGross)

	// effective amounts equal the original amounts exactly
	assert.Equal(t, original.NetAmount, history.EffectiveNet)
	assert.Equal(t, original.GrossAmount, history.EffectiveGross)
}

func TestGetCorrectionHistoryAggregates(t *testing.T) {
	repo := newMockInvoiceRepo()
	original := sentInvoice(repo)
	svc := newTestService(repo)
	historySvc := NewHistoryService(repo, zap.NewNop())
	ctx := context.Background()

	// partial cancellation: -238.00 gross
	_, err := svc.CreatePartialCancellation(ctx, PartialCancellationInput{
		InvoiceID: original.ID,
		TenantID:  1,
		Positions: []CancelPosition{{OriginalIndex: 1, CancelQuantity: ptr(4.0)}},
	})
	require.NoError(t, err)

	// correction pair: -595.00 and +714.00 gross
	_, err = svc.CreateCorrectionInvoice(ctx, CorrectionInput{
		InvoiceID: original.ID,
		TenantID:  1,
		Positions: []CorrectionPosition{{OriginalIndex: 0, NewUnitPrice: ptr(600.0)}},
	})
	require.NoError(t, err)

	history, err := historySvc.GetCorrectionHistory(ctx, 1, original.ID)
	require.NoError(t, err)

	require.Len(t, history.Corrections, 3)
	// each entry carries the stored tax amount, not a gross-net difference
	taxes := make([]float64, 0, len(history.Corrections))
	for _, e := range history.Corrections {
		taxes = append(taxes, e.TaxAmount)
	}
	assert.ElementsMatch(t, []float64{-38.0, -95.0, 114.0}, taxes)
	assert.Equal(t, -200.0-500.0+600.0, history.TotalCorrectionNet)
	assert.Equal(t, -238.0-595.0+714.0, history.TotalCorrectionGross)
	assert.Equal(t, 1000.0-100.0, history.EffectiveNet)
	assert.Equal(t, 1190.0-119.0, history.EffectiveGross)
}

func TestGetCorrectionHistoryMergesLegacyCancellations(t *testing.T) {
	repo := newMockInvoiceRepo()
	original := sentInvoice(repo)

	// an old cancellation document links only via cancelled_invoice_id and
	// predates the correction_type column
	legacy := &entity.Invoice{
		TenantID:           1,
		Type:               entity.InvoiceTypeCreditNote,
		Number:             "GS-2020-00007",
		Date:               time.Date(2020, 5, 1, 0, 0, 0, 0, time.UTC),
		CreatedAt:          time.Date(2020, 5, 1, 9, 0, 0, 0, time.UTC),
		Status:             entity.InvoiceStatusSent,
		NetAmount:          -1000.0,
		TaxAmount:          -190.0,
		GrossAmount:        -1190.0,
		CancelledInvoiceID: &original.ID,
	}
	require.NoError(t, repo.Create(context.Background(), legacy))

	svc := NewHistoryService(repo, zap.NewNop())
	history, err := svc.GetCorrectionHistory(context.Background(), 1, original.ID)
	require.NoError(t, err)

	require.Len(t, history.Corrections, 1)
	entry := history.Corrections[0]
	assert.True(t, entry.Legacy)
	assert.Equal(t, "GS-2020-00007", entry.Number)
	// missing correction type is presented as a full cancellation
	assert.Equal(t, entity.CorrectionTypeFullCancel, entry.CorrectionType)
	assert.Equal(t, 0.0, history.EffectiveNet)
	assert.Equal(t, 0.0, history.EffectiveGross)
}

func TestGetCorrectionHistoryOrdering(t *testing.T) {
	repo := newMockInvoiceRepo()
	original := sentInvoice(repo)

	newDoc := func(number string, createdAt time.Time) {
		require.NoError(t, repo.Create(context.Background(), &entity.Invoice{
			TenantID:     1,
			Type:         entity.InvoiceTypeCreditNote,
			Number:       number,
			Status:       entity.InvoiceStatusSent,
			CreatedAt:    createdAt,
			CorrectionOf: &original.ID,
		}))
	}
	newDoc("GS-2026-00002", time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	newDoc("GS-2026-00001", time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC))
	newDoc("GS-2026-00003", time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC))

	svc := NewHistoryService(repo, zap.NewNop())
	history, err := svc.GetCorrectionHistory(context.Background(), 1, original.ID)
	require.NoError(t, err)

	require.Len(t, history.Corrections, 3)
	assert.Equal(t, "GS-2026-00001", history.Corrections[0].Number)
	assert.Equal(t, "GS-2026-00002", history.Corrections[1].Number)
	assert.Equal(t, "GS-2026-00003", history.Corrections[2].Number)
}

func TestGetCorrectionHistoryGuards(t *testing.T) {
	repo := newMockInvoiceRepo()
	original := sentInvoice(repo)
	svc := NewHistoryService(repo, zap.NewNop())
	ctx := context.Background()

	_, err := svc.GetCorrectionHistory(ctx, 1, 999)
	assert.True(t, entity.IsKind(err, entity.ErrKindNotFound))

	_, err = svc.GetCorrectionHistory(ctx, 2, original.ID)
	assert.True(t, entity.IsKind(err, entity.ErrKindForbidden))
}
