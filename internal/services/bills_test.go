package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/diewo77/energy-bills/internal/errs"
	"github.com/diewo77/energy-bills/internal/extract"
	"github.com/diewo77/energy-bills/internal/models"
	"github.com/diewo77/energy-bills/internal/repository"
	"github.com/diewo77/energy-bills/internal/storage"
)

const sampleBillText = `Nº DO CLIENTE Nº DA INSTALAÇÃO
7202210726 3001422762
Referente a Vencimento Valor a pagar (R$)
JAN/2024 10/02/2024 107,38
NOTA FISCAL Nº 123456789
Histórico de Consumo kWh
JAN/24 100
ICMS 10,00 18,00 19,32
`

// fakeDecoder returns canned text instead of decoding a real PDF.
type fakeDecoder struct {
	text string
	err  error
}

func (f fakeDecoder) Text(string) (string, error) { return f.text, f.err }

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Client{}, &models.EnergyBill{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func setupService(t *testing.T, db *gorm.DB, dec fakeDecoder) (*BillService, *storage.FileStore) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	files := storage.NewFileStore(t.TempDir(), logger)
	svc := NewBillService(
		repository.NewClientRepository(db, logger),
		repository.NewBillRepository(db, logger),
		files,
		dec,
		extract.Default(),
		logger,
	)
	return svc, files
}

func stagingEntries(t *testing.T, files *storage.FileStore) int {
	t.Helper()
	entries, err := os.ReadDir(files.StagingDir())
	if os.IsNotExist(err) {
		return 0
	}
	require.NoError(t, err)
	return len(entries)
}

func TestIngestHappyPath(t *testing.T) {
	db := setupTestDB(t)
	svc, files := setupService(t, db, fakeDecoder{text: sampleBillText})

	bill, err := svc.Ingest(context.Background(), []byte("%PDF-fake"), "fatura.pdf")
	require.NoError(t, err)
	require.NotNil(t, bill)

	assert.Equal(t, "7202210726", bill.ClientNumber)
	assert.Equal(t, "JAN/2024", bill.ReferenceMonth)
	assert.Equal(t, 100, bill.ConsumptionKwh)
	assert.InDelta(t, 107.38, bill.TotalAmount, 0.001)
	assert.Equal(t, "fatura.pdf", bill.OriginalFilename)
	assert.Equal(t, "7202210726/fatura-JAN-2024.pdf", bill.StoredFilename)
	assert.Equal(t, models.StatusProcessed, bill.ProcessingStatus)
	assert.Equal(t, time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC), bill.DueDate)

	// client created lazily from extracted data
	var client models.Client
	require.NoError(t, db.Where("client_number = ?", "7202210726").First(&client).Error)
	assert.Equal(t, "3001422762", client.InstallationNumber)

	// file committed into the client archive, staging left empty
	content, err := os.ReadFile(files.Resolve(bill.StoredFilename))
	require.NoError(t, err)
	assert.Equal(t, "%PDF-fake", string(content))
	assert.Zero(t, stagingEntries(t, files))
}

func TestIngestDuplicateRejectedOnSecondAttempt(t *testing.T) {
	db := setupTestDB(t)
	svc, files := setupService(t, db, fakeDecoder{text: sampleBillText})

	_, err := svc.Ingest(context.Background(), []byte("a"), "fatura.pdf")
	require.NoError(t, err)

	_, err = svc.Ingest(context.Background(), []byte("a"), "fatura.pdf")
	require.Error(t, err)
	e := errs.Coerce(err)
	assert.Equal(t, errs.KindConflict, e.Kind)
	require.NotNil(t, e.Duplicate)
	assert.Equal(t, "123456789", e.Duplicate.BillNumber)
	assert.Equal(t, "7202210726", e.Duplicate.ClientNumber)
	assert.Equal(t, "JAN/2024", e.Duplicate.ReferenceMonth)

	// exactly one persisted bill, one archived file, no staging leftovers
	var count int64
	require.NoError(t, db.Model(&models.EnergyBill{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
	archive, err := os.ReadDir(filepath.Join(files.Root(), "7202210726"))
	require.NoError(t, err)
	assert.Len(t, archive, 1)
	assert.Zero(t, stagingEntries(t, files))
}

func TestIngestDuplicateByBillNumberAlone(t *testing.T) {
	db := setupTestDB(t)
	svc, _ := setupService(t, db, fakeDecoder{text: sampleBillText})

	// a prior bill sharing only the bill number, nothing else
	require.NoError(t, db.Create(&models.EnergyBill{
		ClientNumber:   "999",
		ReferenceMonth: "DEZ/2023",
		TotalAmount:    1.23,
		BillNumber:     "123456789",
	}).Error)

	_, err := svc.Ingest(context.Background(), []byte("a"), "fatura.pdf")
	require.Error(t, err)
	assert.Equal(t, errs.KindConflict, errs.KindOf(err))
}

func TestIngestMissingRequiredFields(t *testing.T) {
	db := setupTestDB(t)
	svc, files := setupService(t, db, fakeDecoder{text: "no anchors in this document"})

	_, err := svc.Ingest(context.Background(), []byte("a"), "fatura.pdf")
	require.Error(t, err)
	e := errs.Coerce(err)
	assert.Equal(t, errs.KindValidation, e.Kind)
	assert.ElementsMatch(t, []string{"clientNumber", "referenceMonth"}, e.MissingFields)

	var count int64
	require.NoError(t, db.Model(&models.EnergyBill{}).Count(&count).Error)
	assert.Zero(t, count)
	assert.Zero(t, stagingEntries(t, files))
}

func TestIngestDecodeFailure(t *testing.T) {
	db := setupTestDB(t)
	svc, files := setupService(t, db, fakeDecoder{err: errors.New("corrupt xref table")})

	_, err := svc.Ingest(context.Background(), []byte("not a pdf"), "fatura.pdf")
	require.Error(t, err)
	e := errs.Coerce(err)
	assert.Equal(t, errs.KindPDFProcessing, e.Kind)
	assert.ErrorContains(t, e.Cause, "corrupt xref table")
	assert.Zero(t, stagingEntries(t, files))
}

func TestIngestErrorsAreAlwaysClassified(t *testing.T) {
	db := setupTestDB(t)
	svc, _ := setupService(t, db, fakeDecoder{err: errors.New("boom")})

	_, err := svc.Ingest(context.Background(), []byte("x"), "f.pdf")
	require.Error(t, err)
	var e *errs.Error
	require.ErrorAs(t, err, &e)
}

func TestGetBillFileRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	svc, _ := setupService(t, db, fakeDecoder{text: sampleBillText})

	bill, err := svc.Ingest(context.Background(), []byte("%PDF-fake"), "fatura.pdf")
	require.NoError(t, err)

	bf, err := svc.GetBillFile(context.Background(), bill.ID)
	require.NoError(t, err)
	assert.Equal(t, "fatura.pdf", bf.Filename)
	_, statErr := os.Stat(bf.FilePath)
	assert.NoError(t, statErr)
}

func TestGetBillFileNotFound(t *testing.T) {
	db := setupTestDB(t)
	svc, _ := setupService(t, db, fakeDecoder{})

	_, err := svc.GetBillFile(context.Background(), 9999)
	require.Error(t, err)
	assert.Equal(t, errs.KindNotFound, errs.KindOf(err))
}

func TestGetBillFileMissingOnDisk(t *testing.T) {
	db := setupTestDB(t)
	svc, files := setupService(t, db, fakeDecoder{text: sampleBillText})

	bill, err := svc.Ingest(context.Background(), []byte("x"), "fatura.pdf")
	require.NoError(t, err)
	require.NoError(t, os.Remove(files.Resolve(bill.StoredFilename)))

	_, err = svc.GetBillFile(context.Background(), bill.ID)
	require.Error(t, err)
	assert.Equal(t, errs.KindNotFound, errs.KindOf(err))
}

func seedBills(t *testing.T, db *gorm.DB, n int, clientNumber, referenceMonth string) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, db.Create(&models.EnergyBill{
			ClientNumber:   clientNumber,
			ReferenceMonth: referenceMonth,
			TotalAmount:    float64(i) + 0.5,
			ConsumptionKwh: 10,
		}).Error)
	}
}

func TestListPaginationBoundaries(t *testing.T) {
	db := setupTestDB(t)
	svc, _ := setupService(t, db, fakeDecoder{})
	seedBills(t, db, 25, "100", "JAN/2024")

	page1, err := svc.List(context.Background(), ListBillsParams{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, page1.Data, 10)
	assert.EqualValues(t, 25, page1.Meta.Total)
	assert.Equal(t, 3, page1.Meta.TotalPages)

	page4, err := svc.List(context.Background(), ListBillsParams{Page: 4, Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, page4.Data)
	assert.EqualValues(t, 25, page4.Meta.Total)
}

func TestListFilters(t *testing.T) {
	db := setupTestDB(t)
	svc, _ := setupService(t, db, fakeDecoder{})
	seedBills(t, db, 3, "100", "JAN/2024")
	seedBills(t, db, 2, "200", "FEV/2024")

	byClient, err := svc.List(context.Background(), ListBillsParams{Page: 1, Limit: 10, ClientNumber: "200"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, byClient.Meta.Total)

	byMonth, err := svc.List(context.Background(), ListBillsParams{Page: 1, Limit: 10, ReferenceMonth: "JAN/2024"})
	require.NoError(t, err)
	assert.EqualValues(t, 3, byMonth.Meta.Total)
}

func TestMonthlyStatisticsZeroFilled(t *testing.T) {
	db := setupTestDB(t)
	svc, _ := setupService(t, db, fakeDecoder{})

	stats, err := svc.MonthlyStatistics(context.Background(), StatisticsParams{Year: 2024})
	require.NoError(t, err)
	require.Len(t, stats, 12)
	for _, month := range []string{"jan", "fev", "mar", "abr", "mai", "jun", "jul", "ago", "set", "out", "nov", "dez"} {
		entry, ok := stats[month+"/2024"]
		require.True(t, ok, "missing month %s", month)
		assert.Zero(t, entry.Consumo.Total)
		assert.Zero(t, entry.Consumo.Compensado)
		assert.Zero(t, entry.Valor.ValorSemGD)
		assert.Zero(t, entry.Valor.EconomiaGD)
	}
}

func TestMonthlyStatisticsAggregates(t *testing.T) {
	db := setupTestDB(t)
	svc, _ := setupService(t, db, fakeDecoder{})

	require.NoError(t, db.Create(&models.EnergyBill{ClientNumber: "100", ReferenceMonth: "JAN/2024", ConsumptionKwh: 100, TotalAmount: 200}).Error)
	require.NoError(t, db.Create(&models.EnergyBill{ClientNumber: "100", ReferenceMonth: "JAN/2024", ConsumptionKwh: 50, TotalAmount: 100}).Error)
	require.NoError(t, db.Create(&models.EnergyBill{ClientNumber: "200", ReferenceMonth: "FEV/2024", ConsumptionKwh: 80, TotalAmount: 160}).Error)
	// outside the requested year
	require.NoError(t, db.Create(&models.EnergyBill{ClientNumber: "100", ReferenceMonth: "JAN/2023", ConsumptionKwh: 999, TotalAmount: 999}).Error)

	stats, err := svc.MonthlyStatistics(context.Background(), StatisticsParams{Year: 2024})
	require.NoError(t, err)
	require.Len(t, stats, 12)

	jan := stats["jan/2024"]
	assert.InDelta(t, 150, jan.Consumo.Total, 0.001)
	assert.InDelta(t, 45, jan.Consumo.Compensado, 0.001)
	assert.InDelta(t, 300, jan.Valor.ValorSemGD, 0.001)
	assert.InDelta(t, 150, jan.Valor.EconomiaGD, 0.001)

	fev := stats["fev/2024"]
	assert.InDelta(t, 80, fev.Consumo.Total, 0.001)

	// narrowed to one client
	byClient, err := svc.MonthlyStatistics(context.Background(), StatisticsParams{Year: 2024, ClientNumber: "200"})
	require.NoError(t, err)
	assert.Zero(t, byClient["jan/2024"].Consumo.Total)
	assert.InDelta(t, 80, byClient["fev/2024"].Consumo.Total, 0.001)
}

func TestMonthlyStatisticsDefaultYear(t *testing.T) {
	db := setupTestDB(t)
	svc, _ := setupService(t, db, fakeDecoder{})

	stats, err := svc.MonthlyStatistics(context.Background(), StatisticsParams{})
	require.NoError(t, err)
	_, ok := stats["jan/2024"]
	assert.True(t, ok)
}
