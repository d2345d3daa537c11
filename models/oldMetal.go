package models

import (
	"time"

	"github.com/rohtashsarraf/jewelbill_backend/utils"
	"github.com/shopspring/decimal"
)

// OldMetalExchange is old metal taken in against a bill. Its value offsets
// the taxable amount and the net payable of the owning bill.
type OldMetalExchange struct {
	ID          int             `gorm:"primary_key" json:"id"`
	BillId      int             `gorm:"index;not null" json:"bill_id"`
	Weight      decimal.Decimal `gorm:"type:decimal(10,3);not null" json:"weight"`
	RatePerGram decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"rate_per_gram"`
	Value       decimal.Decimal `gorm:"type:decimal(12,2);default:0" json:"value"`
	Description string          `gorm:"size:200" json:"description"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

type NewOldMetalExchange struct {
	Weight      decimal.Decimal `json:"weight" binding:"required"`
	RatePerGram decimal.Decimal `json:"rate_per_gram"`
	Description string          `json:"description"`
}

func (input *NewOldMetalExchange) validate() error {
	if !input.Weight.IsPositive() {
		return utils.NewValidationError("weight", "weight must be positive")
	}
	if input.RatePerGram.IsNegative() {
		return utils.NewValidationError("rate_per_gram", "rate cannot be negative")
	}
	return nil
}

// CalculateValue derives Value = weight × rate at currency precision.
func (ex *OldMetalExchange) CalculateValue() decimal.Decimal {
	ex.Value = utils.RoundMoney(ex.Weight.Mul(ex.RatePerGram))
	return ex.Value
}

func mapOldMetalExchanges(input []NewOldMetalExchange, defaultRate decimal.Decimal) ([]OldMetalExchange, error) {
	exchanges := make([]OldMetalExchange, 0, len(input))
	for _, in := range input {
		if err := in.validate(); err != nil {
			return nil, err
		}
		rate := in.RatePerGram
		if rate.IsZero() {
			rate = defaultRate
		}
		ex := OldMetalExchange{
			Weight:      utils.RoundWeight(in.Weight),
			RatePerGram: utils.RoundMoney(rate),
			Description: in.Description,
		}
		ex.CalculateValue()
		exchanges = append(exchanges, ex)
	}
	return exchanges, nil
}
