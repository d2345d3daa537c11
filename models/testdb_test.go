package models_test

import (
	"context"
	"testing"

	"github.com/rohtashsarraf/jewelbill_backend/config"
	"github.com/rohtashsarraf/jewelbill_backend/models"
	"github.com/rohtashsarraf/jewelbill_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB wires an in-memory sqlite database into the config global so
// the model layer runs unchanged. One connection, otherwise every pooled
// connection would see its own empty :memory: database.
func setupTestDB(t *testing.T) context.Context {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	config.SetDB(db)
	models.MigrateTable()

	return utils.SetUsernameInContext(context.Background(), "tester")
}

func seedCustomer(t *testing.T, ctx context.Context) *models.Customer {
	t.Helper()
	customer, err := models.CreateCustomer(ctx, &models.NewCustomer{
		Name:  "Ramesh Kumar",
		Phone: "9876543210",
	})
	require.NoError(t, err)
	return customer
}

func seedGoldRate(t *testing.T, ctx context.Context, rate string) *models.RateSnapshot {
	t.Helper()
	snapshot, err := models.SetActiveRate(ctx, models.MetalKindGold, decimal.RequireFromString(rate), "tester")
	require.NoError(t, err)
	return snapshot
}

// standardBill creates the reference bill used across the storage tests:
// one item of 10.000g at 91.60 tunch and rate 7000.00 with no labour,
// taxed at the default 1.50 + 1.50.
func standardBill(t *testing.T, ctx context.Context, cashReceived string) *models.Bill {
	t.Helper()
	customer := seedCustomer(t, ctx)
	bill, err := models.CreateBill(ctx, &models.NewBill{
		CustomerId:   customer.ID,
		GoldRate:     decimal.RequireFromString("7000.00"),
		CashReceived: decimal.RequireFromString(cashReceived),
		Items: []models.NewBillItem{
			{
				Description: "Gold chain",
				NetWeight:   decimal.RequireFromString("10.000"),
				TunchWstg:   decimal.RequireFromString("91.60"),
				Rate:        decimal.RequireFromString("7000.00"),
			},
		},
	})
	require.NoError(t, err)
	return bill
}
