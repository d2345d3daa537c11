package models

import (
	"context"
	"time"

	"github.com/rohtashsarraf/jewelbill_backend/config"
	"github.com/rohtashsarraf/jewelbill_backend/utils"
	"github.com/shopspring/decimal"
)

// Payment is an append-only ledger entry. Corrections are new payments,
// never edits; no update or delete operation exists for this model.
type Payment struct {
	ID          int             `gorm:"primary_key" json:"id"`
	BillId      int             `gorm:"index;not null" json:"bill_id"`
	Amount      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	Method      PaymentMethod   `gorm:"size:20;default:'cash'" json:"method"`
	PaymentDate time.Time       `gorm:"not null" json:"payment_date"`
	Notes       string          `gorm:"type:text" json:"notes"`
	CreatedBy   string          `gorm:"size:100" json:"created_by"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

type NewPayment struct {
	Amount decimal.Decimal `json:"amount" binding:"required"`
	Method PaymentMethod   `json:"method"`
	Notes  string          `json:"notes"`
}

func (input *NewPayment) validate() error {
	if !input.Amount.IsPositive() {
		return utils.NewValidationError("amount", "amount must be positive")
	}
	if input.Method != "" && !input.Method.IsValid() {
		return utils.NewValidationError("method", "unknown payment method")
	}
	return nil
}

// CreatePayment appends a ledger entry under the bill's row lock, re-derives
// cash received as the exact sum of all payments and re-runs the aggregator.
// A payment larger than the remaining balance fails with OverpaymentError
// and leaves the bill untouched.
func CreatePayment(ctx context.Context, billId int, input *NewPayment) (*Bill, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	actor, _ := utils.GetUsernameFromContext(ctx)

	db := config.GetDB()
	tx := db.Begin()

	bill, err := lockBill(tx, ctx, billId)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	remaining := bill.NetPayable.Sub(bill.CashReceived)
	if input.Amount.GreaterThan(remaining) {
		tx.Rollback()
		return nil, &utils.OverpaymentError{Attempted: input.Amount, Remaining: remaining}
	}

	method := input.Method
	if method == "" {
		method = PaymentMethodCash
	}
	payment := Payment{
		BillId:      bill.ID,
		Amount:      utils.RoundMoney(input.Amount),
		Method:      method,
		PaymentDate: time.Now(),
		Notes:       input.Notes,
		CreatedBy:   actor,
	}
	if err := tx.WithContext(ctx).Create(&payment).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := loadBillCollections(tx, ctx, bill); err != nil {
		tx.Rollback()
		return nil, err
	}
	bill.refreshCashReceived()
	bill.CalculateTotals()

	if err := tx.WithContext(ctx).Model(&Bill{ID: bill.ID}).Updates(bill.totalsUpdateMap()).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return bill, nil
}

func GetPayments(ctx context.Context, billId int) ([]*Payment, error) {
	db := config.GetDB()
	var results []*Payment
	if err := db.WithContext(ctx).
		Where("bill_id = ?", billId).
		Order("payment_date DESC, id DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
