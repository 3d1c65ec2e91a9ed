package repository

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/diewo77/energy-bills/internal/models"
)

func setupRepoTestDB(t *testing.T) *gorm.DB {
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

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFindDuplicateByBillNumber(t *testing.T) {
	db := setupRepoTestDB(t)
	repo := NewBillRepository(db, testLogger())
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.EnergyBill{
		ClientNumber:   "100",
		ReferenceMonth: "JAN/2024",
		TotalAmount:    107.38,
		BillNumber:     "555",
	}))

	// same bill number, completely different triple
	dup, err := repo.FindDuplicate(ctx, "555", "999", "DEZ/1999", 0)
	require.NoError(t, err)
	require.NotNil(t, dup)
	assert.Equal(t, "555", dup.BillNumber)
}

func TestFindDuplicateByTriple(t *testing.T) {
	db := setupRepoTestDB(t)
	repo := NewBillRepository(db, testLogger())
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.EnergyBill{
		ClientNumber:   "100",
		ReferenceMonth: "JAN/2024",
		TotalAmount:    107.38,
	}))

	// no bill number on either side; the triple must match on its own
	dup, err := repo.FindDuplicate(ctx, "", "100", "JAN/2024", 107.38)
	require.NoError(t, err)
	require.NotNil(t, dup)

	// one leg of the triple off -> no duplicate
	dup, err = repo.FindDuplicate(ctx, "", "100", "JAN/2024", 99.99)
	require.NoError(t, err)
	assert.Nil(t, dup)

	dup, err = repo.FindDuplicate(ctx, "", "100", "FEV/2024", 107.38)
	require.NoError(t, err)
	assert.Nil(t, dup)
}

func TestFindDuplicateEmptyBillNumberDoesNotMatchEmpty(t *testing.T) {
	db := setupRepoTestDB(t)
	repo := NewBillRepository(db, testLogger())
	ctx := context.Background()

	// stored bill has no bill number; probing with an empty bill number must
	// not treat "" == "" as a match
	require.NoError(t, repo.Create(ctx, &models.EnergyBill{
		ClientNumber:   "100",
		ReferenceMonth: "JAN/2024",
		TotalAmount:    107.38,
	}))

	dup, err := repo.FindDuplicate(ctx, "", "200", "FEV/2024", 50)
	require.NoError(t, err)
	assert.Nil(t, dup)
}

func TestClientRepositoryFindOrCreate(t *testing.T) {
	db := setupRepoTestDB(t)
	repo := NewClientRepository(db, testLogger())
	ctx := context.Background()

	c, err := repo.FindByNumber(ctx, "7202210726")
	require.NoError(t, err)
	assert.Nil(t, c)

	require.NoError(t, repo.Create(ctx, &models.Client{ClientNumber: "7202210726", Name: "JOSE DA SILVA"}))

	c, err = repo.FindByNumber(ctx, "7202210726")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, "JOSE DA SILVA", c.Name)
}

func TestListOrdersByID(t *testing.T) {
	db := setupRepoTestDB(t)
	repo := NewBillRepository(db, testLogger())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Create(ctx, &models.EnergyBill{
			ClientNumber:   "100",
			ReferenceMonth: fmt.Sprintf("%02d/2024", i+1),
		}))
	}

	bills, total, err := repo.List(ctx, ListBillsFilter{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, bills, 3)
	assert.Less(t, bills[0].ID, bills[1].ID)
	assert.Less(t, bills[1].ID, bills[2].ID)
}

func TestMonthlySumsGroupsByReferenceMonth(t *testing.T) {
	db := setupRepoTestDB(t)
	repo := NewBillRepository(db, testLogger())
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.EnergyBill{ClientNumber: "1", ReferenceMonth: "JAN/2024", ConsumptionKwh: 10, TotalAmount: 20}))
	require.NoError(t, repo.Create(ctx, &models.EnergyBill{ClientNumber: "1", ReferenceMonth: "JAN/2024", ConsumptionKwh: 30, TotalAmount: 40}))
	require.NoError(t, repo.Create(ctx, &models.EnergyBill{ClientNumber: "1", ReferenceMonth: "JAN/2023", ConsumptionKwh: 5, TotalAmount: 5}))

	sums, err := repo.MonthlySums(ctx, 2024, "")
	require.NoError(t, err)
	require.Len(t, sums, 1)
	assert.Equal(t, "JAN/2024", sums[0].ReferenceMonth)
	assert.EqualValues(t, 40, sums[0].ConsumptionKwh)
	assert.InDelta(t, 60, sums[0].TotalAmount, 0.001)
}
