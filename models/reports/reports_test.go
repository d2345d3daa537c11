package reports_test

import (
	"context"
	"testing"
	"time"

	"github.com/rohtashsarraf/jewelbill_backend/config"
	"github.com/rohtashsarraf/jewelbill_backend/models"
	"github.com/rohtashsarraf/jewelbill_backend/models/reports"
	"github.com/rohtashsarraf/jewelbill_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupReportDB(t *testing.T) context.Context {
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

func seedBill(t *testing.T, ctx context.Context, customerId int, cashReceived string) *models.Bill {
	t.Helper()
	bill, err := models.CreateBill(ctx, &models.NewBill{
		CustomerId:   customerId,
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
		Exchanges: []models.NewOldMetalExchange{
			{
				Weight:      decimal.RequireFromString("2.000"),
				RatePerGram: decimal.RequireFromString("6800.00"),
			},
		},
	})
	require.NoError(t, err)
	return bill
}

func TestGetDashboard(t *testing.T) {
	ctx := setupReportDB(t)
	customer, err := models.CreateCustomer(ctx, &models.NewCustomer{Name: "Ramesh Kumar", Phone: "9876543210"})
	require.NoError(t, err)

	first := seedBill(t, ctx, customer.ID, "0.00")
	second := seedBill(t, ctx, customer.ID, "10000.00")

	dashboard, err := reports.GetDashboard(ctx, time.Now())
	require.NoError(t, err)

	expectedSales := first.NetPayable.Add(second.NetPayable)
	assert.True(t, dashboard.TodaySales.Equal(expectedSales),
		"today sales %s want %s", dashboard.TodaySales, expectedSales)
	assert.Equal(t, "10000.00", dashboard.TodayCashReceived.StringFixed(2))
	assert.Equal(t, "4.000", dashboard.TodayOldMetalWeight.StringFixed(3))
	assert.Equal(t, int64(2), dashboard.OutstandingCount)
	expectedOutstanding := first.Balance.Add(second.Balance)
	assert.True(t, dashboard.OutstandingBalance.Equal(expectedOutstanding))
}

func TestGetBillSummary(t *testing.T) {
	ctx := setupReportDB(t)
	customer, err := models.CreateCustomer(ctx, &models.NewCustomer{Name: "Ramesh Kumar", Phone: "9876543210"})
	require.NoError(t, err)

	bill := seedBill(t, ctx, customer.ID, "5000.00")

	now := time.Now()
	summary, err := reports.GetBillSummary(ctx, now, now)
	require.NoError(t, err)

	assert.Equal(t, int64(1), summary.BillCount)
	assert.True(t, summary.TotalSales.Equal(bill.NetPayable))
	assert.Equal(t, "5000.00", summary.TotalCash.StringFixed(2))
	assert.True(t, summary.TotalOutstanding.Equal(bill.Balance))

	// a range before the bill sees nothing
	past := now.AddDate(0, 0, -10)
	empty, err := reports.GetBillSummary(ctx, past, past)
	require.NoError(t, err)
	assert.Equal(t, int64(0), empty.BillCount)
	assert.Equal(t, "0.00", empty.TotalSales.StringFixed(2))
}

func TestExportBillsExcel(t *testing.T) {
	ctx := setupReportDB(t)
	customer, err := models.CreateCustomer(ctx, &models.NewCustomer{Name: "Ramesh Kumar", Phone: "9876543210"})
	require.NoError(t, err)

	bill := seedBill(t, ctx, customer.ID, "0.00")

	now := time.Now()
	f, err := reports.ExportBillsExcel(ctx, now, now)
	require.NoError(t, err)
	defer f.Close()

	sheet := f.GetSheetName(0)
	billNumber, err := f.GetCellValue(sheet, "A2")
	require.NoError(t, err)
	assert.Equal(t, bill.BillNumber, billNumber)
	name, err := f.GetCellValue(sheet, "B2")
	require.NoError(t, err)
	assert.Equal(t, "Ramesh Kumar", name)

	// amounts reach the sheet as exact decimals, never via float64
	totalAmount, err := f.GetCellValue(sheet, "D2")
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString(totalAmount).Equal(bill.TotalAmount),
		"total amount cell %s want %s", totalAmount, bill.TotalAmount)
	netPayable, err := f.GetCellValue(sheet, "G2")
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString(netPayable).Equal(bill.NetPayable))
}
