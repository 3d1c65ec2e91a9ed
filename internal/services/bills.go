package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/diewo77/energy-bills/internal/errs"
	"github.com/diewo77/energy-bills/internal/extract"
	"github.com/diewo77/energy-bills/internal/models"
	"github.com/diewo77/energy-bills/internal/pdftext"
	"github.com/diewo77/energy-bills/internal/repository"
	"github.com/diewo77/energy-bills/internal/storage"
)

// BillService sequences the ingestion pipeline: stage the upload, extract
// fields from its text, validate, reject duplicates, resolve the client,
// commit the file into the archive and persist the bill. It also serves the
// read side (listing, file resolution, monthly statistics).
type BillService struct {
	clients   repository.ClientRepository
	bills     repository.BillRepository
	files     *storage.FileStore
	decoder   pdftext.Decoder
	extractor extract.Extractor
	logger    *slog.Logger
}

func NewBillService(
	clients repository.ClientRepository,
	bills repository.BillRepository,
	files *storage.FileStore,
	decoder pdftext.Decoder,
	extractor extract.Extractor,
	logger *slog.Logger,
) *BillService {
	return &BillService{
		clients:   clients,
		bills:     bills,
		files:     files,
		decoder:   decoder,
		extractor: extractor,
		logger:    logger,
	}
}

// Ingest runs one ingestion attempt over the uploaded bytes. Whatever the
// outcome, the staged temp file never outlives the attempt: the deferred
// cleanup discards it unless it was committed, then sweeps stale leftovers
// from earlier crashed runs.
func (s *BillService) Ingest(ctx context.Context, content []byte, originalName string) (bill *models.EnergyBill, err error) {
	stagedPath, stageErr := s.files.Stage(content, originalName)
	if stageErr != nil {
		return nil, errs.Coerce(stageErr)
	}

	committed := false
	defer func() {
		if !committed {
			s.files.Discard(stagedPath)
		}
		if sweepErr := s.files.SweepExpired(); sweepErr != nil {
			s.logger.Warn("staging sweep failed", "error", sweepErr)
		}
		if err != nil {
			err = errs.Coerce(err)
		}
	}()

	text, decodeErr := s.decoder.Text(stagedPath)
	if decodeErr != nil {
		return nil, errs.PDFProcessing("failed to read bill text", decodeErr)
	}

	data := s.extractor.Extract(text)

	var missing []string
	if data.ClientNumber == "" {
		missing = append(missing, "clientNumber")
	}
	if data.ReferenceMonth == "" {
		missing = append(missing, "referenceMonth")
	}
	if len(missing) > 0 {
		s.logger.Info("rejecting bill with missing fields", "file", originalName, "missing", missing)
		return nil, errs.Validation("essential bill data not found in PDF", missing)
	}

	existing, dupErr := s.bills.FindDuplicate(ctx, data.BillNumber, data.ClientNumber, data.ReferenceMonth, data.TotalAmount)
	if dupErr != nil {
		return nil, errs.Database("duplicate lookup failed", dupErr)
	}
	if existing != nil {
		s.logger.Info("rejecting duplicate bill", "client_number", data.ClientNumber, "reference_month", data.ReferenceMonth)
		return nil, errs.Conflict("this bill has already been ingested", errs.DuplicateInfo{
			BillNumber:     data.BillNumber,
			ClientNumber:   data.ClientNumber,
			ReferenceMonth: data.ReferenceMonth,
		})
	}

	client, clientErr := s.clients.FindByNumber(ctx, data.ClientNumber)
	if clientErr != nil {
		return nil, errs.Database("client lookup failed", clientErr)
	}
	if client == nil {
		client = &models.Client{
			ClientNumber:       data.ClientNumber,
			InstallationNumber: data.InstallationNumber,
			Name:               data.ClientName,
			Address:            data.Address,
		}
		if err := s.clients.Create(ctx, client); err != nil {
			return nil, errs.Database("failed to create client", err)
		}
		s.logger.Info("created client", "client_number", client.ClientNumber)
	}

	now := time.Now().UTC()

	storedName, commitErr := s.files.Commit(stagedPath, data.ClientNumber, data.ReferenceMonth, originalName)
	if commitErr != nil {
		return nil, errs.Coerce(commitErr)
	}
	committed = true

	bill = &models.EnergyBill{
		ClientNumber:     data.ClientNumber,
		ReferenceMonth:   data.ReferenceMonth,
		DueDate:          parseDueDate(data.DueDate, now),
		ConsumptionKwh:   data.ConsumptionKwh,
		TotalAmount:      data.TotalAmount,
		OriginalFilename: originalName,
		StoredFilename:   data.ClientNumber + "/" + storedName,
		Barcode:          data.Barcode,
		BillNumber:       data.BillNumber,
		PreviousReading:  data.PreviousReading,
		CurrentReading:   data.CurrentReading,
		ReadingDate:      now,
		EnergyTax:        data.EnergyTax,
		ProcessingStatus: models.StatusProcessed,
	}
	if persistErr := s.bills.Create(ctx, bill); persistErr != nil {
		return nil, errs.Database("failed to save bill", persistErr)
	}

	s.logger.Info("bill ingested", "id", bill.ID, "client_number", bill.ClientNumber, "reference_month", bill.ReferenceMonth)
	return bill, nil
}

// parseDueDate converts the bill's printed DD/MM/YYYY into a calendar date
// at midnight UTC, falling back to the ingestion timestamp when the field
// is absent or malformed.
func parseDueDate(raw string, fallback time.Time) time.Time {
	if raw == "" {
		return fallback
	}
	t, err := time.Parse("02/01/2006", raw)
	if err != nil {
		return fallback
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ListBillsParams pages and filters a bill listing. Page is 1-indexed.
type ListBillsParams struct {
	Page           int
	Limit          int
	ClientNumber   string
	ReferenceMonth string
}

// ListMeta describes one page of results.
type ListMeta struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"totalPages"`
}

// BillList is a page of bills plus its pagination metadata.
type BillList struct {
	Data []models.EnergyBill `json:"data"`
	Meta ListMeta            `json:"meta"`
}

// List returns one page of bills, optionally filtered by client number and
// reference month.
func (s *BillService) List(ctx context.Context, params ListBillsParams) (*BillList, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.Limit < 1 {
		params.Limit = 10
	}

	bills, total, err := s.bills.List(ctx, repository.ListBillsFilter{
		Page:           params.Page,
		Limit:          params.Limit,
		ClientNumber:   params.ClientNumber,
		ReferenceMonth: params.ReferenceMonth,
	})
	if err != nil {
		return nil, errs.Database("failed to list bills", err)
	}
	if bills == nil {
		bills = []models.EnergyBill{}
	}

	totalPages := int((total + int64(params.Limit) - 1) / int64(params.Limit))
	return &BillList{
		Data: bills,
		Meta: ListMeta{
			Total:      total,
			Page:       params.Page,
			Limit:      params.Limit,
			TotalPages: totalPages,
		},
	}, nil
}

// BillFile locates a bill's archived file on disk together with the
// filename the end user originally uploaded it under.
type BillFile struct {
	FilePath string
	Filename string
}

// GetBillFile resolves the archive path of a bill's source document.
func (s *BillService) GetBillFile(ctx context.Context, id uint) (*BillFile, error) {
	bill, err := s.bills.GetByID(ctx, id)
	if err != nil {
		return nil, errs.Database(fmt.Sprintf("failed to fetch bill with ID %d", id), err)
	}
	if bill == nil {
		return nil, errs.NotFound(fmt.Sprintf("energy bill with ID %d not found", id))
	}

	path := s.files.Resolve(bill.StoredFilename)
	if _, statErr := os.Stat(path); statErr != nil {
		return nil, errs.NotFound(fmt.Sprintf("file for bill with ID %d not found on server", id))
	}
	return &BillFile{FilePath: path, Filename: bill.OriginalFilename}, nil
}

// defaultStatisticsYear is used when a statistics request names no year.
const defaultStatisticsYear = 2024

// ConsumptionStat is the consumption half of a month's rollup, in kWh.
type ConsumptionStat struct {
	Total      float64 `json:"total"`
	Compensado float64 `json:"compensado"`
}

// ValueStat is the monetary half of a month's rollup, in R$.
type ValueStat struct {
	ValorSemGD float64 `json:"Valor Sem GD"`
	EconomiaGD float64 `json:"Economia GD"`
}

// MonthStat is the rollup for one "mon/year" key.
type MonthStat struct {
	Consumo ConsumptionStat `json:"consumo"`
	Valor   ValueStat       `json:"valor"`
}

// StatisticsParams narrows the monthly rollup by year and client.
type StatisticsParams struct {
	Year         int
	ClientNumber string
}

var monthAbbr = [12]string{
	"JAN", "FEV", "MAR", "ABR", "MAI", "JUN",
	"JUL", "AGO", "SET", "OUT", "NOV", "DEZ",
}

// MonthlyStatistics aggregates consumption and value per reference month.
// The result always holds exactly twelve "mon/year" keys for the requested
// year, zero-filled for months without bills. The compensated share is 30%
// of consumption and the GD economy is 50% of the billed value.
func (s *BillService) MonthlyStatistics(ctx context.Context, params StatisticsParams) (map[string]MonthStat, error) {
	year := params.Year
	if year == 0 {
		year = defaultStatisticsYear
	}

	sums, err := s.bills.MonthlySums(ctx, year, params.ClientNumber)
	if err != nil {
		return nil, errs.Database("failed to fetch monthly statistics", err)
	}

	stats := make(map[string]MonthStat, 12)
	for _, sum := range sums {
		key := strings.Replace(strings.ToLower(sum.ReferenceMonth), "-", "/", 1)
		consumption := float64(sum.ConsumptionKwh)
		value := sum.TotalAmount
		stats[key] = MonthStat{
			Consumo: ConsumptionStat{Total: consumption, Compensado: consumption * 0.3},
			Valor:   ValueStat{ValorSemGD: value, EconomiaGD: value * 0.5},
		}
	}

	for _, abbr := range monthAbbr {
		key := fmt.Sprintf("%s/%d", strings.ToLower(abbr), year)
		if _, ok := stats[key]; !ok {
			stats[key] = MonthStat{}
		}
	}
	return stats, nil
}
