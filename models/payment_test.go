package models_test

import (
	"errors"
	"testing"

	"github.com/rohtashsarraf/jewelbill_backend/models"
	"github.com/rohtashsarraf/jewelbill_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatePaymentUpdatesBill(t *testing.T) {
	ctx := setupTestDB(t)
	bill := standardBill(t, ctx, "0.00")

	updated, err := models.CreatePayment(ctx, bill.ID, &models.NewPayment{
		Amount: decimal.RequireFromString("30000.00"),
		Method: models.PaymentMethodUpi,
	})
	require.NoError(t, err)

	assert.Equal(t, "30000.00", updated.CashReceived.StringFixed(2))
	assert.Equal(t, "36043.60", updated.Balance.StringFixed(2))
	assert.Equal(t, models.BillStatusPartial, updated.Status)

	payments, err := models.GetPayments(ctx, bill.ID)
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, models.PaymentMethodUpi, payments[0].Method)
	assert.Equal(t, "tester", payments[0].CreatedBy)
}

func TestCashReceivedIsLedgerSum(t *testing.T) {
	ctx := setupTestDB(t)
	bill := standardBill(t, ctx, "0.00")

	amounts := []string{"10000.00", "20000.00", "6043.60"}
	var updated *models.Bill
	var err error
	for _, amount := range amounts {
		updated, err = models.CreatePayment(ctx, bill.ID, &models.NewPayment{
			Amount: decimal.RequireFromString(amount),
		})
		require.NoError(t, err)
	}

	assert.Equal(t, "36043.60", updated.CashReceived.StringFixed(2))
	assert.Equal(t, "30000.00", updated.Balance.StringFixed(2))

	payments, err := models.GetPayments(ctx, bill.ID)
	require.NoError(t, err)
	sum := decimal.Zero
	for _, p := range payments {
		sum = sum.Add(p.Amount)
	}
	assert.True(t, sum.Equal(updated.CashReceived))
}

func TestCreatePaymentSettlesBill(t *testing.T) {
	ctx := setupTestDB(t)
	bill := standardBill(t, ctx, "0.00")

	updated, err := models.CreatePayment(ctx, bill.ID, &models.NewPayment{
		Amount: decimal.RequireFromString("66043.60"),
	})
	require.NoError(t, err)

	assert.Equal(t, "0.00", updated.Balance.StringFixed(2))
	assert.Equal(t, models.BillStatusPaid, updated.Status)
}

func TestCreatePaymentRejectsOverpayment(t *testing.T) {
	ctx := setupTestDB(t)
	bill := standardBill(t, ctx, "30000.00")

	_, err := models.CreatePayment(ctx, bill.ID, &models.NewPayment{
		Amount: decimal.RequireFromString("100000.00"),
	})
	require.Error(t, err)
	var overpayment *utils.OverpaymentError
	require.True(t, errors.As(err, &overpayment))
	assert.Equal(t, "100000.00", overpayment.Attempted.StringFixed(2))
	assert.Equal(t, "36043.60", overpayment.Remaining.StringFixed(2))

	// the bill and its ledger are untouched
	stored, err := models.GetBill(ctx, bill.ID)
	require.NoError(t, err)
	assert.Equal(t, "30000.00", stored.CashReceived.StringFixed(2))
	assert.Equal(t, "36043.60", stored.Balance.StringFixed(2))
	assert.Equal(t, models.BillStatusPartial, stored.Status)
	assert.Empty(t, stored.Payments)
}

func TestCreatePaymentValidation(t *testing.T) {
	ctx := setupTestDB(t)
	bill := standardBill(t, ctx, "0.00")

	_, err := models.CreatePayment(ctx, bill.ID, &models.NewPayment{
		Amount: decimal.Zero,
	})
	require.Error(t, err)
	var validationErr *utils.ValidationError
	require.True(t, errors.As(err, &validationErr))
	assert.Equal(t, "amount", validationErr.Field)

	_, err = models.CreatePayment(ctx, bill.ID, &models.NewPayment{
		Amount: decimal.RequireFromString("100.00"),
		Method: "barter",
	})
	require.Error(t, err)
	require.True(t, errors.As(err, &validationErr))
	assert.Equal(t, "method", validationErr.Field)
}

func TestCreatePaymentUnknownBill(t *testing.T) {
	ctx := setupTestDB(t)

	_, err := models.CreatePayment(ctx, 999, &models.NewPayment{
		Amount: decimal.RequireFromString("100.00"),
	})
	require.ErrorIs(t, err, utils.ErrorRecordNotFound)
}
