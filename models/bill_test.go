package models_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rohtashsarraf/jewelbill_backend/config"
	"github.com/rohtashsarraf/jewelbill_backend/models"
	"github.com/rohtashsarraf/jewelbill_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func referenceBill() *models.Bill {
	item := models.BillItem{
		NetWeight: decimal.RequireFromString("10.000"),
		TunchWstg: decimal.RequireFromString("91.60"),
		Rate:      decimal.RequireFromString("7000.00"),
	}
	item.Recalculate()
	return &models.Bill{
		CgstPercent: decimal.RequireFromString("1.50"),
		SgstPercent: decimal.RequireFromString("1.50"),
		Items:       []models.BillItem{item},
	}
}

func TestCalculateTotalsReferenceScenario(t *testing.T) {
	bill := referenceBill()
	bill.CalculateTotals()

	assert.Equal(t, "9.160", bill.TotalFineWeight.StringFixed(3))
	assert.Equal(t, "64120.00", bill.TotalAmount.StringFixed(2))
	assert.Equal(t, "961.80", bill.CgstAmount.StringFixed(2))
	assert.Equal(t, "961.80", bill.SgstAmount.StringFixed(2))
	assert.Equal(t, "66043.60", bill.NetPayable.StringFixed(2))
	assert.Equal(t, "66043.60", bill.Balance.StringFixed(2))
	assert.Equal(t, models.BillStatusUnpaid, bill.Status)
}

func TestCalculateTotalsPartialPayment(t *testing.T) {
	bill := referenceBill()
	bill.CashReceived = decimal.RequireFromString("30000.00")
	bill.CalculateTotals()

	assert.Equal(t, "36043.60", bill.Balance.StringFixed(2))
	assert.Equal(t, models.BillStatusPartial, bill.Status)
}

func TestCalculateTotalsStatus(t *testing.T) {
	cases := []struct {
		cash string
		want models.BillStatus
	}{
		{"0.00", models.BillStatusUnpaid},
		{"0.01", models.BillStatusPartial},
		{"66043.59", models.BillStatusPartial},
		{"66043.60", models.BillStatusPaid},
	}
	for _, c := range cases {
		bill := referenceBill()
		bill.CashReceived = decimal.RequireFromString(c.cash)
		bill.CalculateTotals()
		assert.Equal(t, c.want, bill.Status, "cash %s", c.cash)
	}
}

func TestCalculateTotalsOldMetalOffset(t *testing.T) {
	bill := referenceBill()
	exchange := models.OldMetalExchange{
		Weight:      decimal.RequireFromString("5.000"),
		RatePerGram: decimal.RequireFromString("6800.00"),
	}
	exchange.CalculateValue()
	bill.OldMetalExchanges = []models.OldMetalExchange{exchange}
	bill.CalculateTotals()

	assert.Equal(t, "5.000", bill.OldMetalWeight.StringFixed(3))
	assert.Equal(t, "34000.00", bill.OldMetalValue.StringFixed(2))
	// taxable = 64120.00 - 34000.00 = 30120.00, 1.5% each side = 451.80
	assert.Equal(t, "451.80", bill.CgstAmount.StringFixed(2))
	assert.Equal(t, "451.80", bill.SgstAmount.StringFixed(2))
	// 64120.00 + 451.80 + 451.80 - 34000.00
	assert.Equal(t, "31023.60", bill.NetPayable.StringFixed(2))
}

// Old metal may exceed the bill's own value. The negative flows through
// taxes and net payable unclamped and the shop owes the customer.
func TestCalculateTotalsNegativeTaxable(t *testing.T) {
	bill := referenceBill()
	exchange := models.OldMetalExchange{
		Weight:      decimal.RequireFromString("15.000"),
		RatePerGram: decimal.RequireFromString("7000.00"),
	}
	exchange.CalculateValue()
	bill.OldMetalExchanges = []models.OldMetalExchange{exchange}
	bill.CalculateTotals()

	// taxable = 64120.00 - 105000.00 = -40880.00
	assert.Equal(t, "-613.20", bill.CgstAmount.StringFixed(2))
	assert.Equal(t, "-613.20", bill.SgstAmount.StringFixed(2))
	assert.Equal(t, "-42106.40", bill.NetPayable.StringFixed(2))
	assert.Equal(t, models.BillStatusPaid, bill.Status)
}

func TestCalculateTotalsIdempotent(t *testing.T) {
	bill := referenceBill()
	bill.CashReceived = decimal.RequireFromString("30000.00")
	bill.CalculateTotals()
	first := *bill
	bill.CalculateTotals()

	assert.True(t, first.TotalFineWeight.Equal(bill.TotalFineWeight))
	assert.True(t, first.TotalAmount.Equal(bill.TotalAmount))
	assert.True(t, first.CgstAmount.Equal(bill.CgstAmount))
	assert.True(t, first.SgstAmount.Equal(bill.SgstAmount))
	assert.True(t, first.NetPayable.Equal(bill.NetPayable))
	assert.True(t, first.Balance.Equal(bill.Balance))
	assert.Equal(t, first.Status, bill.Status)
}

func TestCreateBillPersistsTotals(t *testing.T) {
	ctx := setupTestDB(t)
	bill := standardBill(t, ctx, "0.00")

	expectedPrefix := "JB" + time.Now().Format("20060102")
	assert.Equal(t, expectedPrefix+"-001", bill.BillNumber)

	stored, err := models.GetBill(ctx, bill.ID)
	require.NoError(t, err)
	assert.Equal(t, "64120.00", stored.TotalAmount.StringFixed(2))
	assert.Equal(t, "66043.60", stored.NetPayable.StringFixed(2))
	assert.Equal(t, models.BillStatusUnpaid, stored.Status)
	require.Len(t, stored.Items, 1)
	assert.Equal(t, "9.160", stored.Items[0].GFine.StringFixed(3))
}

func TestCreateBillRejectsOverpayment(t *testing.T) {
	ctx := setupTestDB(t)
	customer := seedCustomer(t, ctx)

	_, err := models.CreateBill(ctx, &models.NewBill{
		CustomerId:   customer.ID,
		GoldRate:     decimal.RequireFromString("7000.00"),
		CashReceived: decimal.RequireFromString("100000.00"),
		Items: []models.NewBillItem{
			{
				Description: "Gold chain",
				NetWeight:   decimal.RequireFromString("10.000"),
				TunchWstg:   decimal.RequireFromString("91.60"),
				Rate:        decimal.RequireFromString("7000.00"),
			},
		},
	})
	require.Error(t, err)
	var overpayment *utils.OverpaymentError
	require.True(t, errors.As(err, &overpayment))
	assert.Equal(t, "100000.00", overpayment.Attempted.StringFixed(2))
	assert.Equal(t, "66043.60", overpayment.Remaining.StringFixed(2))

	// nothing was written
	bills, err := models.GetBills(ctx, models.BillFilter{})
	require.NoError(t, err)
	assert.Empty(t, bills)
}

func TestCreateBillMissingRateRegistry(t *testing.T) {
	ctx := setupTestDB(t)
	customer := seedCustomer(t, ctx)

	_, err := models.CreateBill(ctx, &models.NewBill{
		CustomerId: customer.ID,
		Items: []models.NewBillItem{
			{
				Description: "Gold chain",
				NetWeight:   decimal.RequireFromString("10.000"),
				TunchWstg:   decimal.RequireFromString("91.60"),
			},
		},
	})
	require.Error(t, err)
	var rateNotSet *utils.RateNotSetError
	require.True(t, errors.As(err, &rateNotSet))
	assert.Equal(t, "gold", rateNotSet.Kind)
}

func TestUpdateBillReplacesItems(t *testing.T) {
	ctx := setupTestDB(t)
	bill := standardBill(t, ctx, "0.00")

	updated, err := models.UpdateBill(ctx, bill.ID, &models.NewBill{
		CustomerId: bill.CustomerId,
		Items: []models.NewBillItem{
			{
				Description: "Gold ring",
				NetWeight:   decimal.RequireFromString("5.000"),
				TunchWstg:   decimal.RequireFromString("92.00"),
				Rate:        decimal.RequireFromString("7000.00"),
			},
		},
	})
	require.NoError(t, err)

	require.Len(t, updated.Items, 1)
	assert.Equal(t, "Gold ring", updated.Items[0].Description)
	// 5.000 * 92 / 100 = 4.600, * 7000 = 32200.00
	assert.Equal(t, "32200.00", updated.TotalAmount.StringFixed(2))
	assert.Equal(t, "33166.00", updated.NetPayable.StringFixed(2))
	// the number never changes after creation
	assert.Equal(t, bill.BillNumber, updated.BillNumber)

	stored, err := models.GetBill(ctx, bill.ID)
	require.NoError(t, err)
	require.Len(t, stored.Items, 1)
	assert.Equal(t, "33166.00", stored.NetPayable.StringFixed(2))
}

func TestReplaceOldMetalExchangesRecomputes(t *testing.T) {
	ctx := setupTestDB(t)
	bill := standardBill(t, ctx, "0.00")

	updated, err := models.ReplaceOldMetalExchanges(ctx, bill.ID, []models.NewOldMetalExchange{
		{
			Weight:      decimal.RequireFromString("5.000"),
			RatePerGram: decimal.RequireFromString("6800.00"),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "34000.00", updated.OldMetalValue.StringFixed(2))
	assert.Equal(t, "31023.60", updated.NetPayable.StringFixed(2))
}

func TestRecomputeBillRepairsStaleTotals(t *testing.T) {
	ctx := setupTestDB(t)
	bill := standardBill(t, ctx, "0.00")

	// corrupt the stored aggregates the way a manual data fix would
	db := config.GetDB()
	require.NoError(t, db.Model(&models.Bill{ID: bill.ID}).Updates(map[string]interface{}{
		"NetPayable":  decimal.Zero,
		"TotalAmount": decimal.Zero,
		"Status":      models.BillStatusPaid,
	}).Error)

	repaired, err := models.RecomputeBill(ctx, bill.ID)
	require.NoError(t, err)
	assert.Equal(t, "64120.00", repaired.TotalAmount.StringFixed(2))
	assert.Equal(t, "66043.60", repaired.NetPayable.StringFixed(2))
	assert.Equal(t, models.BillStatusUnpaid, repaired.Status)

	again, err := models.RecomputeBill(ctx, bill.ID)
	require.NoError(t, err)
	assert.True(t, repaired.NetPayable.Equal(again.NetPayable))
	assert.Equal(t, repaired.Status, again.Status)
}

func TestBillNumbersAreSequentialPerDay(t *testing.T) {
	ctx := setupTestDB(t)
	customer := seedCustomer(t, ctx)

	for i := 1; i <= 3; i++ {
		bill, err := models.CreateBill(ctx, &models.NewBill{
			CustomerId: customer.ID,
			GoldRate:   decimal.RequireFromString("7000.00"),
			Items: []models.NewBillItem{
				{
					Description: "Gold chain",
					NetWeight:   decimal.RequireFromString("1.000"),
					TunchWstg:   decimal.RequireFromString("91.60"),
					Rate:        decimal.RequireFromString("7000.00"),
				},
			},
		})
		require.NoError(t, err)
		want := fmt.Sprintf("JB%s-%03d", time.Now().Format("20060102"), i)
		assert.Equal(t, want, bill.BillNumber)
	}
}
