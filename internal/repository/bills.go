package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/diewo77/energy-bills/internal/models"
)

// ListBillsFilter narrows and pages a bill listing. Page is 1-indexed.
type ListBillsFilter struct {
	Page           int
	Limit          int
	ClientNumber   string
	ReferenceMonth string
}

// MonthlySum is one reference month's aggregated consumption and value.
type MonthlySum struct {
	ReferenceMonth string
	ConsumptionKwh int64
	TotalAmount    float64
}

// BillRepository persists and queries energy bills.
type BillRepository interface {
	Create(ctx context.Context, bill *models.EnergyBill) error
	// FindDuplicate returns an existing bill matching either the bill number
	// (when non-empty) or the (client number, reference month, total amount)
	// triple, or nil when no such bill exists.
	FindDuplicate(ctx context.Context, billNumber, clientNumber, referenceMonth string, totalAmount float64) (*models.EnergyBill, error)
	List(ctx context.Context, filter ListBillsFilter) ([]models.EnergyBill, int64, error)
	// GetByID returns the bill with its client preloaded, or nil when absent.
	GetByID(ctx context.Context, id uint) (*models.EnergyBill, error)
	// MonthlySums groups bills whose reference month mentions year, optionally
	// narrowed to one client.
	MonthlySums(ctx context.Context, year int, clientNumber string) ([]MonthlySum, error)
}

type billRepository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewBillRepository(db *gorm.DB, logger *slog.Logger) BillRepository {
	return &billRepository{db: db, logger: logger}
}

func (r *billRepository) Create(ctx context.Context, bill *models.EnergyBill) error {
	if err := r.db.WithContext(ctx).Create(bill).Error; err != nil {
		r.logger.Error("failed to create bill", "client_number", bill.ClientNumber, "reference_month", bill.ReferenceMonth, "error", err)
		return err
	}
	return nil
}

func (r *billRepository) FindDuplicate(ctx context.Context, billNumber, clientNumber, referenceMonth string, totalAmount float64) (*models.EnergyBill, error) {
	cond := r.db.Where("client_number = ? AND reference_month = ? AND total_amount = ?",
		clientNumber, referenceMonth, totalAmount)
	if billNumber != "" {
		cond = r.db.Where("bill_number = ?", billNumber).Or(cond)
	}

	var bill models.EnergyBill
	err := r.db.WithContext(ctx).Where(cond).First(&bill).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("duplicate lookup failed", "client_number", clientNumber, "reference_month", referenceMonth, "error", err)
		return nil, err
	}
	return &bill, nil
}

func (r *billRepository) List(ctx context.Context, filter ListBillsFilter) ([]models.EnergyBill, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.EnergyBill{})
	if filter.ClientNumber != "" {
		q = q.Where("client_number = ?", filter.ClientNumber)
	}
	if filter.ReferenceMonth != "" {
		q = q.Where("reference_month = ?", filter.ReferenceMonth)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		r.logger.Error("failed to count bills", "error", err)
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	var bills []models.EnergyBill
	err := q.Preload("Client").Order("id asc").Limit(filter.Limit).Offset(offset).Find(&bills).Error
	if err != nil {
		r.logger.Error("failed to list bills", "error", err)
		return nil, 0, err
	}
	return bills, total, nil
}

func (r *billRepository) GetByID(ctx context.Context, id uint) (*models.EnergyBill, error) {
	var bill models.EnergyBill
	err := r.db.WithContext(ctx).Preload("Client").First(&bill, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("failed to fetch bill", "id", id, "error", err)
		return nil, err
	}
	return &bill, nil
}

func (r *billRepository) MonthlySums(ctx context.Context, year int, clientNumber string) ([]MonthlySum, error) {
	q := r.db.WithContext(ctx).Model(&models.EnergyBill{}).
		Select("reference_month, SUM(consumption_kwh) AS consumption_kwh, SUM(total_amount) AS total_amount").
		Where("reference_month LIKE ?", fmt.Sprintf("%%%d%%", year)).
		Group("reference_month")
	if clientNumber != "" {
		q = q.Where("client_number = ?", clientNumber)
	}

	var sums []MonthlySum
	if err := q.Scan(&sums).Error; err != nil {
		r.logger.Error("failed to aggregate monthly statistics", "year", year, "error", err)
		return nil, err
	}
	return sums, nil
}
