package repository

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nordwind/parkoffice/internal/domain/entity"
	"github.com/nordwind/parkoffice/internal/infrastructure/persistence/sqlite"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", "file::memory:?_foreign_keys=on")
	require.NoError(t, err)
	// a second pool connection would see a fresh empty in-memory database
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	schema, err := os.ReadFile("../../../../migrations/001_initial_schema.sql")
	require.NoError(t, err)
	_, err = db.Exec(string(schema))
	require.NoError(t, err)
	return db
}

func testInvoice(number string) *entity.Invoice {
	due := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	return &entity.Invoice{
		TenantID:         1,
		Type:             entity.InvoiceTypeInvoice,
		Number:           number,
		Date:             time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		DueDate:          &due,
		RecipientType:    "PERSON",
		RecipientName:    "Hans Schmidt",
		RecipientAddress: "Dorfstraße 1",
		NetAmount:        500.0,
		TaxAmount:        95.0,
		GrossAmount:      595.0,
		Status:           entity.InvoiceStatusSent,
		SkontoPercent:    2.0,
		SkontoDays:       14,
		Items: []*entity.InvoiceItem{
			{
				Position: 1, Description: "Pachtzahlung",
				Quantity: 1, UnitPrice: 500.0, TaxType: entity.TaxTypeStandard,
				NetAmount: 500.0, TaxAmount: 95.0, GrossAmount: 595.0,
				PlotReference: "Flur 3, Flst. 12/1",
			},
		},
	}
}

func TestInvoiceRepositoryCreateAndGet(t *testing.T) {
	db := testDB(t)
	repo := NewInvoiceRepository(db, zap.NewNop())
	ctx := context.Background()

	invoice := testInvoice("RE-2026-00001")
	require.NoError(t, repo.Create(ctx, invoice))
	require.NotZero(t, invoice.ID)

	loaded, err := repo.GetByID(ctx, invoice.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded)

	assert.Equal(t, "RE-2026-00001", loaded.Number)
	assert.Equal(t, int64(1), loaded.TenantID)
	assert.Equal(t, 595.0, loaded.GrossAmount)
	assert.Equal(t, entity.InvoiceStatusSent, loaded.Status)
	require.NotNil(t, loaded.DueDate)
	assert.Equal(t, 2.0, loaded.SkontoPercent)
	assert.Nil(t, loaded.CorrectionOf)

	require.Len(t, loaded.Items, 1)
	assert.Equal(t, "Pachtzahlung", loaded.Items[0].Description)
	assert.Equal(t, "Flur 3, Flst. 12/1", loaded.Items[0].PlotReference)
	assert.Equal(t, "", loaded.Items[0].CostCenter)
}

func TestInvoiceRepositoryGetMissing(t *testing.T) {
	db := testDB(t)
	repo := NewInvoiceRepository(db, zap.NewNop())

	loaded, err := repo.GetByID(context.Background(), 42)
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestInvoiceRepositoryUpdateStatus(t *testing.T) {
	db := testDB(t)
	repo := NewInvoiceRepository(db, zap.NewNop())
	ctx := context.Background()

	invoice := testInvoice("RE-2026-00001")
	require.NoError(t, repo.Create(ctx, invoice))
	require.NoError(t, repo.UpdateStatus(ctx, invoice.ID, entity.InvoiceStatusCancelled))

	loaded, err := repo.GetByID(ctx, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.InvoiceStatusCancelled, loaded.Status)

	assert.Error(t, repo.UpdateStatus(ctx, 999, entity.InvoiceStatusPaid))
}

func TestInvoiceRepositoryListCorrections(t *testing.T) {
	db := testDB(t)
	repo := NewInvoiceRepository(db, zap.NewNop())
	ctx := context.Background()

	original := testInvoice("RE-2026-00001")
	require.NoError(t, repo.Create(ctx, original))

	correction := testInvoice("GS-2026-00001")
	correction.Type = entity.InvoiceTypeCreditNote
	correction.CorrectionOf = &original.ID
	correction.CorrectionType = entity.CorrectionTypePartialCancel
	correction.Items = nil
	require.NoError(t, repo.Create(ctx, correction))

	legacy := testInvoice("GS-2020-00001")
	legacy.Type = entity.InvoiceTypeCreditNote
	legacy.CancelledInvoiceID = &original.ID
	legacy.Items = nil
	require.NoError(t, repo.Create(ctx, legacy))

	corrections, err := repo.ListCorrections(ctx, 1, original.ID)
	require.NoError(t, err)
	require.Len(t, corrections, 1)
	assert.Equal(t, "GS-2026-00001", corrections[0].Number)

	legacyDocs, err := repo.ListLegacyCancellations(ctx, 1, original.ID)
	require.NoError(t, err)
	require.Len(t, legacyDocs, 1)
	assert.Equal(t, "GS-2020-00001", legacyDocs[0].Number)

	// other tenants see nothing
	corrections, err = repo.ListCorrections(ctx, 2, original.ID)
	require.NoError(t, err)
	assert.Empty(t, corrections)
}

func TestNumberAllocatorSequences(t *testing.T) {
	db := testDB(t)
	allocator := NewNumberAllocator(db, zap.NewNop())
	ctx := context.Background()

	year := time.Now().Year()

	first, err := allocator.NextNumber(ctx, 1, entity.InvoiceTypeInvoice)
	require.NoError(t, err)
	second, err := allocator.NextNumber(ctx, 1, entity.InvoiceTypeInvoice)
	require.NoError(t, err)
	assert.Equal(t, formatNumber("RE", year, 1), first)
	assert.Equal(t, formatNumber("RE", year, 2), second)

	// credit notes and other tenants run their own sequences
	credit, err := allocator.NextNumber(ctx, 1, entity.InvoiceTypeCreditNote)
	require.NoError(t, err)
	assert.Equal(t, formatNumber("GS", year, 1), credit)

	other, err := allocator.NextNumber(ctx, 2, entity.InvoiceTypeInvoice)
	require.NoError(t, err)
	assert.Equal(t, formatNumber("RE", year, 1), other)

	_, err = allocator.NextNumber(ctx, 1, "RECEIPT")
	assert.Error(t, err)
}

func TestTransactionRollback(t *testing.T) {
	db := testDB(t)
	logger := zap.NewNop()
	txManager := sqlite.NewDB(db, logger)
	repo := NewInvoiceRepository(db, logger)
	ctx := context.Background()

	err := txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := repo.Create(txCtx, testInvoice("RE-2026-00001")); err != nil {
			return err
		}
		return assert.AnError
	})
	require.Error(t, err)

	// the insert was rolled back
	loaded, err := repo.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func formatNumber(prefix string, year, seq int) string {
	return fmt.Sprintf("%s-%d-%05d", prefix, year, seq)
}
