package models

import (
	"time"

	"github.com/rohtashsarraf/jewelbill_backend/utils"
	"github.com/shopspring/decimal"
)

type BillItem struct {
	ID           int             `gorm:"primary_key" json:"id"`
	BillId       int             `gorm:"index;not null" json:"bill_id"`
	ItemType     ItemType        `gorm:"size:10;default:'S'" json:"item_type"`
	MaterialType MetalKind       `gorm:"size:20;default:'gold'" json:"material_type"`
	Description  string          `gorm:"size:200" json:"description"`
	ItemCode     string          `gorm:"size:50" json:"item_code"`
	ItemNumber   string          `gorm:"size:20" json:"item_number"`
	NetWeight    decimal.Decimal `gorm:"type:decimal(10,3);not null" json:"net_weight"`
	TunchWstg    decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"tunch_wstg"`
	Rate         decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"rate"`
	Labour       decimal.Decimal `gorm:"type:decimal(12,2);default:0" json:"labour"`
	SFine        decimal.Decimal `gorm:"type:decimal(10,3);default:0" json:"s_fine"`
	GFine        decimal.Decimal `gorm:"type:decimal(10,3);default:0" json:"g_fine"`
	Amount       decimal.Decimal `gorm:"type:decimal(12,2);default:0" json:"amount"`
	DisplayOrder int             `gorm:"default:0" json:"display_order"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewBillItem struct {
	ItemType     ItemType        `json:"item_type"`
	MaterialType MetalKind       `json:"material_type"`
	Description  string          `json:"description" binding:"required"`
	ItemCode     string          `json:"item_code"`
	ItemNumber   string          `json:"item_number"`
	NetWeight    decimal.Decimal `json:"net_weight" binding:"required"`
	TunchWstg    decimal.Decimal `json:"tunch_wstg" binding:"required"`
	Rate         decimal.Decimal `json:"rate"`
	Labour       decimal.Decimal `json:"labour"`
}

func (input *NewBillItem) validate() error {
	if !input.NetWeight.IsPositive() {
		return utils.NewValidationError("net_weight", "net weight must be positive")
	}
	if !input.TunchWstg.IsPositive() || input.TunchWstg.GreaterThan(decimal.NewFromInt(100)) {
		return utils.NewValidationError("tunch_wstg", "tunch/wastage percent must be in (0, 100]")
	}
	if !input.Rate.IsPositive() {
		return utils.NewValidationError("rate", "rate must be positive")
	}
	if input.Labour.IsNegative() {
		return utils.NewValidationError("labour", "labour cannot be negative")
	}
	if input.ItemType != "" && input.ItemType != ItemTypeSale && input.ItemType != ItemTypeReceived {
		return utils.NewValidationError("item_type", "unknown item type")
	}
	if input.MaterialType != "" && !input.MaterialType.IsValid() {
		return utils.NewValidationError("material_type", "unknown material type")
	}
	return nil
}

// CalculateFines derives GFine = net weight × tunch / 100 at weight
// precision. SFine mirrors GFine until a separate silver-fineness formula
// is decided.
func (item *BillItem) CalculateFines() decimal.Decimal {
	item.GFine = utils.ApplyPercentWeight(item.NetWeight, item.TunchWstg)
	item.SFine = item.GFine
	return item.GFine
}

// CalculateAmount derives Amount = GFine × rate + labour at currency
// precision. Call CalculateFines first; both are idempotent.
func (item *BillItem) CalculateAmount() decimal.Decimal {
	item.Amount = utils.RoundMoney(item.GFine.Mul(item.Rate).Add(item.Labour))
	return item.Amount
}

// Recalculate derives both fines and amount from the current inputs.
func (item *BillItem) Recalculate() {
	item.CalculateFines()
	item.CalculateAmount()
}

func mapBillItems(input []NewBillItem) ([]BillItem, error) {
	items := make([]BillItem, 0, len(input))
	for idx, in := range input {
		if err := in.validate(); err != nil {
			return nil, err
		}
		itemType := in.ItemType
		if itemType == "" {
			itemType = ItemTypeSale
		}
		materialType := in.MaterialType
		if materialType == "" {
			materialType = MetalKindGold
		}
		item := BillItem{
			ItemType:     itemType,
			MaterialType: materialType,
			Description:  in.Description,
			ItemCode:     in.ItemCode,
			ItemNumber:   in.ItemNumber,
			NetWeight:    utils.RoundWeight(in.NetWeight),
			TunchWstg:    utils.RoundPercent(in.TunchWstg),
			Rate:         utils.RoundMoney(in.Rate),
			Labour:       utils.RoundMoney(in.Labour),
			DisplayOrder: idx,
		}
		item.Recalculate()
		items = append(items, item)
	}
	return items, nil
}
