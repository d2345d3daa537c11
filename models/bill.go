package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/rohtashsarraf/jewelbill_backend/config"
	"github.com/rohtashsarraf/jewelbill_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var defaultTaxPercent = decimal.NewFromFloat(1.50)

type Bill struct {
	ID         int       `gorm:"primary_key" json:"id"`
	BillNumber string    `gorm:"size:50;uniqueIndex;not null" json:"bill_number"`
	CustomerId int       `gorm:"index;not null" json:"customer_id" binding:"required"`
	BillDate   time.Time `gorm:"not null" json:"bill_date"`

	// gold rate per gram captured at creation time, immutable historically
	GoldRate decimal.Decimal `gorm:"type:decimal(10,2);default:0" json:"gold_rate"`

	ShopName    string `gorm:"size:200;default:'ROHTASH SARRAF'" json:"shop_name"`
	ShopAddress string `gorm:"type:text" json:"shop_address"`
	ShopGstin   string `gorm:"size:15" json:"shop_gstin"`

	CiBalanceGold decimal.Decimal `gorm:"type:decimal(10,3);default:0" json:"ci_balance_gold"`
	CiBalanceDr   decimal.Decimal `gorm:"type:decimal(12,2);default:0" json:"ci_balance_dr"`
	CiBalanceCr   decimal.Decimal `gorm:"type:decimal(12,2);default:0" json:"ci_balance_cr"`

	TotalFineWeight decimal.Decimal `gorm:"type:decimal(10,3);default:0" json:"total_fine_weight"`
	TotalAmount     decimal.Decimal `gorm:"type:decimal(12,2);default:0" json:"total_amount"`

	OldMetalWeight decimal.Decimal `gorm:"type:decimal(10,3);default:0" json:"old_metal_weight"`
	OldMetalValue  decimal.Decimal `gorm:"type:decimal(12,2);default:0" json:"old_metal_value"`

	CgstPercent decimal.Decimal `gorm:"type:decimal(5,2);default:1.50" json:"cgst_percent"`
	SgstPercent decimal.Decimal `gorm:"type:decimal(5,2);default:1.50" json:"sgst_percent"`
	CgstAmount  decimal.Decimal `gorm:"type:decimal(12,2);default:0" json:"cgst_amount"`
	SgstAmount  decimal.Decimal `gorm:"type:decimal(12,2);default:0" json:"sgst_amount"`

	NetPayable   decimal.Decimal `gorm:"type:decimal(12,2);default:0" json:"net_payable"`
	CashReceived decimal.Decimal `gorm:"type:decimal(12,2);default:0" json:"cash_received"`
	Balance      decimal.Decimal `gorm:"type:decimal(12,2);default:0" json:"balance"`

	Status    BillStatus `gorm:"size:20;default:'draft'" json:"status"`
	Notes     string     `gorm:"type:text" json:"notes"`
	CreatedBy string     `gorm:"size:100" json:"created_by"`
	UpdatedBy string     `gorm:"size:100" json:"updated_by"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	Customer          *Customer          `json:"customer"`
	Items             []BillItem         `gorm:"foreignKey:BillId;constraint:OnDelete:CASCADE" json:"items"`
	OldMetalExchanges []OldMetalExchange `gorm:"foreignKey:BillId;constraint:OnDelete:CASCADE" json:"old_metal_exchanges"`
	Payments          []Payment          `gorm:"foreignKey:BillId;constraint:OnDelete:CASCADE" json:"payments"`
}

type NewBill struct {
	CustomerId   int                   `json:"customer_id" binding:"required"`
	GoldRate     decimal.Decimal       `json:"gold_rate"`
	CgstPercent  *decimal.Decimal      `json:"cgst_percent"`
	SgstPercent  *decimal.Decimal      `json:"sgst_percent"`
	CashReceived decimal.Decimal       `json:"cash_received"`
	Notes        string                `json:"notes"`
	ShopAddress  string                `json:"shop_address"`
	ShopGstin    string                `json:"shop_gstin"`
	Items        []NewBillItem         `json:"items"`
	Exchanges    []NewOldMetalExchange `json:"old_metal_exchanges"`
}

// validate input for both create & update. (id = 0 for create)
func (input *NewBill) validate(ctx context.Context, _ int) error {
	if err := utils.ValidateResourceId[Customer](ctx, input.CustomerId); err != nil {
		return utils.NewValidationError("customer_id", "customer not found")
	}
	if input.CgstPercent != nil && input.CgstPercent.IsNegative() {
		return utils.NewValidationError("cgst_percent", "tax percent cannot be negative")
	}
	if input.SgstPercent != nil && input.SgstPercent.IsNegative() {
		return utils.NewValidationError("sgst_percent", "tax percent cannot be negative")
	}
	if input.CashReceived.IsNegative() {
		return utils.NewValidationError("cash_received", "cash received cannot be negative")
	}
	return nil
}

// CalculateTotals derives the full bill state from the loaded items,
// exchanges, tax percents and cash received. It touches no storage and is
// idempotent; every mutation path must run it before persisting.
//
// The step order is fixed: item sums, old metal sums, taxable amount
// (never clamped), each tax independently rounded, net payable, balance,
// status. Only the exact decimal additions may be reordered.
func (b *Bill) CalculateTotals() {
	totalFine := decimal.Zero
	totalAmount := decimal.Zero
	for i := range b.Items {
		totalFine = totalFine.Add(b.Items[i].GFine)
		totalAmount = totalAmount.Add(b.Items[i].Amount)
	}
	b.TotalFineWeight = utils.RoundWeight(totalFine)
	b.TotalAmount = utils.RoundMoney(totalAmount)

	oldWeight := decimal.Zero
	oldValue := decimal.Zero
	for i := range b.OldMetalExchanges {
		oldWeight = oldWeight.Add(b.OldMetalExchanges[i].Weight)
		oldValue = oldValue.Add(b.OldMetalExchanges[i].Value)
	}
	b.OldMetalWeight = utils.RoundWeight(oldWeight)
	b.OldMetalValue = utils.RoundMoney(oldValue)

	taxableAmount := b.TotalAmount.Sub(b.OldMetalValue)
	b.CgstAmount = utils.ApplyPercent(taxableAmount, b.CgstPercent)
	b.SgstAmount = utils.ApplyPercent(taxableAmount, b.SgstPercent)

	b.NetPayable = b.TotalAmount.Add(b.CgstAmount).Add(b.SgstAmount).Sub(b.OldMetalValue)
	b.Balance = b.NetPayable.Sub(b.CashReceived)

	if b.Balance.LessThanOrEqual(decimal.Zero) {
		b.Status = BillStatusPaid
	} else if b.CashReceived.IsPositive() {
		b.Status = BillStatusPartial
	} else {
		b.Status = BillStatusUnpaid
	}
}

// derived columns written back after CalculateTotals
func (b *Bill) totalsUpdateMap() map[string]interface{} {
	return map[string]interface{}{
		"TotalFineWeight": b.TotalFineWeight,
		"TotalAmount":     b.TotalAmount,
		"OldMetalWeight":  b.OldMetalWeight,
		"OldMetalValue":   b.OldMetalValue,
		"CgstAmount":      b.CgstAmount,
		"SgstAmount":      b.SgstAmount,
		"NetPayable":      b.NetPayable,
		"CashReceived":    b.CashReceived,
		"Balance":         b.Balance,
		"Status":          b.Status,
	}
}

// lockBill fetches the bill row FOR UPDATE (mysql) inside tx so concurrent
// writers to the same bill serialize. Associations are loaded separately.
func lockBill(tx *gorm.DB, ctx context.Context, billId int) (*Bill, error) {
	dbCtx := tx.WithContext(ctx)
	if tx.Dialector.Name() == "mysql" {
		dbCtx = dbCtx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var bill Bill
	if err := dbCtx.First(&bill, billId).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &bill, nil
}

func loadBillCollections(tx *gorm.DB, ctx context.Context, bill *Bill) error {
	if err := tx.WithContext(ctx).
		Where("bill_id = ?", bill.ID).
		Order("display_order, id").
		Find(&bill.Items).Error; err != nil {
		return err
	}
	if err := tx.WithContext(ctx).
		Where("bill_id = ?", bill.ID).
		Order("id").
		Find(&bill.OldMetalExchanges).Error; err != nil {
		return err
	}
	return tx.WithContext(ctx).
		Where("bill_id = ?", bill.ID).
		Order("payment_date, id").
		Find(&bill.Payments).Error
}

// refreshCashReceived re-derives cash received from the payment ledger.
// When any payment exists the ledger is the only source of truth; an
// explicitly set value survives only on bills with no payments yet.
func (b *Bill) refreshCashReceived() {
	if len(b.Payments) == 0 {
		return
	}
	sum := decimal.Zero
	for i := range b.Payments {
		sum = sum.Add(b.Payments[i].Amount)
	}
	b.CashReceived = utils.RoundMoney(sum)
}

// fill zero item rates from the active rate of the item's material, the way
// the billing desk expects (enter weight + tunch, rate comes from the board)
func fillDefaultItemRates(ctx context.Context, items []NewBillItem) error {
	rateByKind := make(map[MetalKind]decimal.Decimal)
	for i := range items {
		if !items[i].Rate.IsZero() {
			continue
		}
		kind := items[i].MaterialType
		if kind == "" {
			kind = MetalKindGold
		}
		rate, ok := rateByKind[kind]
		if !ok {
			snapshot, err := CurrentRate(ctx, kind)
			if err != nil {
				return err
			}
			rate = snapshot.RatePerGram
			rateByKind[kind] = rate
		}
		items[i].Rate = rate
	}
	return nil
}

// CreateBill assigns a fresh number, stores the bill with its items and
// exchanges, recomputes totals and enforces the overpayment admission
// check, all in one transaction.
func CreateBill(ctx context.Context, input *NewBill) (*Bill, error) {
	if err := input.validate(ctx, 0); err != nil {
		return nil, err
	}

	// gold rate snapshot: explicit value wins, otherwise the registry
	goldRate := input.GoldRate
	if goldRate.IsZero() {
		snapshot, err := CurrentRate(ctx, MetalKindGold)
		if err != nil {
			return nil, err
		}
		goldRate = snapshot.RatePerGram
	}
	if goldRate.IsNegative() {
		return nil, utils.NewValidationError("gold_rate", "rate cannot be negative")
	}

	if err := fillDefaultItemRates(ctx, input.Items); err != nil {
		return nil, err
	}
	items, err := mapBillItems(input.Items)
	if err != nil {
		return nil, err
	}
	exchanges, err := mapOldMetalExchanges(input.Exchanges, goldRate)
	if err != nil {
		return nil, err
	}

	cgst := defaultTaxPercent
	if input.CgstPercent != nil {
		cgst = utils.RoundPercent(*input.CgstPercent)
	}
	sgst := defaultTaxPercent
	if input.SgstPercent != nil {
		sgst = utils.RoundPercent(*input.SgstPercent)
	}

	actor, _ := utils.GetUsernameFromContext(ctx)
	now := time.Now()

	bill := Bill{
		CustomerId:        input.CustomerId,
		BillDate:          now,
		GoldRate:          utils.RoundMoney(goldRate),
		ShopAddress:       input.ShopAddress,
		ShopGstin:         input.ShopGstin,
		CgstPercent:       cgst,
		SgstPercent:       sgst,
		CashReceived:      utils.RoundMoney(input.CashReceived),
		Notes:             input.Notes,
		Status:            BillStatusDraft,
		CreatedBy:         actor,
		UpdatedBy:         actor,
		Items:             items,
		OldMetalExchanges: exchanges,
	}

	bill.CalculateTotals()
	if bill.CashReceived.GreaterThan(bill.NetPayable) {
		return nil, &utils.OverpaymentError{Attempted: bill.CashReceived, Remaining: bill.NetPayable}
	}

	release := obtainBillNumberLock(now)
	defer release()

	db := config.GetDB()
	tx := db.Begin()

	number, err := nextBillNumber(tx, ctx, now)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	bill.BillNumber = number

	if err := tx.WithContext(ctx).Create(&bill).Error; err != nil {
		tx.Rollback()
		if isDuplicateKeyError(tx, err) {
			return nil, &utils.ConcurrencyError{Op: "bill number allocation"}
		}
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	return &bill, nil
}

// UpdateBill replaces the full item and exchange sets (the edit screen
// posts the whole bill) and recomputes. Once payments exist the ledger
// overrides any cash_received sent by the form.
func UpdateBill(ctx context.Context, billId int, input *NewBill) (*Bill, error) {
	if err := input.validate(ctx, billId); err != nil {
		return nil, err
	}
	if err := fillDefaultItemRates(ctx, input.Items); err != nil {
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

	items, err := mapBillItems(input.Items)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	exchanges, err := mapOldMetalExchanges(input.Exchanges, bill.GoldRate)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	// wholesale replacement of both collections
	if err := tx.WithContext(ctx).Where("bill_id = ?", bill.ID).Delete(&BillItem{}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.WithContext(ctx).Where("bill_id = ?", bill.ID).Delete(&OldMetalExchange{}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	for i := range items {
		items[i].BillId = bill.ID
	}
	for i := range exchanges {
		exchanges[i].BillId = bill.ID
	}
	if len(items) > 0 {
		if err := tx.WithContext(ctx).Create(&items).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
	}
	if len(exchanges) > 0 {
		if err := tx.WithContext(ctx).Create(&exchanges).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	bill.CustomerId = input.CustomerId
	if input.CgstPercent != nil {
		bill.CgstPercent = utils.RoundPercent(*input.CgstPercent)
	}
	if input.SgstPercent != nil {
		bill.SgstPercent = utils.RoundPercent(*input.SgstPercent)
	}
	bill.Notes = input.Notes
	bill.ShopAddress = input.ShopAddress
	bill.ShopGstin = input.ShopGstin
	bill.UpdatedBy = actor
	bill.Items = items
	bill.OldMetalExchanges = exchanges
	if err := tx.WithContext(ctx).
		Where("bill_id = ?", bill.ID).
		Order("payment_date, id").
		Find(&bill.Payments).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	bill.CashReceived = utils.RoundMoney(input.CashReceived)
	bill.refreshCashReceived()
	bill.CalculateTotals()
	if bill.CashReceived.GreaterThan(bill.NetPayable) {
		// roll everything back, not just the header update
		tx.Rollback()
		return nil, &utils.OverpaymentError{Attempted: bill.CashReceived, Remaining: bill.NetPayable}
	}

	updates := bill.totalsUpdateMap()
	updates["CustomerId"] = bill.CustomerId
	updates["CgstPercent"] = bill.CgstPercent
	updates["SgstPercent"] = bill.SgstPercent
	updates["Notes"] = bill.Notes
	updates["ShopAddress"] = bill.ShopAddress
	updates["ShopGstin"] = bill.ShopGstin
	updates["UpdatedBy"] = bill.UpdatedBy
	if err := tx.WithContext(ctx).Model(&Bill{ID: bill.ID}).Updates(updates).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return bill, nil
}

// ReplaceBillItems swaps the item set only and recomputes.
func ReplaceBillItems(ctx context.Context, billId int, input []NewBillItem) (*Bill, error) {
	if err := fillDefaultItemRates(ctx, input); err != nil {
		return nil, err
	}
	return replaceCollection(ctx, billId, func(tx *gorm.DB, bill *Bill) error {
		items, err := mapBillItems(input)
		if err != nil {
			return err
		}
		if err := tx.WithContext(ctx).Where("bill_id = ?", bill.ID).Delete(&BillItem{}).Error; err != nil {
			return err
		}
		for i := range items {
			items[i].BillId = bill.ID
		}
		if len(items) > 0 {
			if err := tx.WithContext(ctx).Create(&items).Error; err != nil {
				return err
			}
		}
		bill.Items = items
		return nil
	})
}

// ReplaceOldMetalExchanges swaps the exchange set only and recomputes.
func ReplaceOldMetalExchanges(ctx context.Context, billId int, input []NewOldMetalExchange) (*Bill, error) {
	return replaceCollection(ctx, billId, func(tx *gorm.DB, bill *Bill) error {
		exchanges, err := mapOldMetalExchanges(input, bill.GoldRate)
		if err != nil {
			return err
		}
		if err := tx.WithContext(ctx).Where("bill_id = ?", bill.ID).Delete(&OldMetalExchange{}).Error; err != nil {
			return err
		}
		for i := range exchanges {
			exchanges[i].BillId = bill.ID
		}
		if len(exchanges) > 0 {
			if err := tx.WithContext(ctx).Create(&exchanges).Error; err != nil {
				return err
			}
		}
		bill.OldMetalExchanges = exchanges
		return nil
	})
}

// replaceCollection runs mutate under the bill's row lock, reloads whatever
// the mutation did not replace, recomputes and persists. The overpayment
// admission check rolls the whole operation back on failure.
func replaceCollection(ctx context.Context, billId int, mutate func(tx *gorm.DB, bill *Bill) error) (*Bill, error) {
	db := config.GetDB()
	tx := db.Begin()

	bill, err := lockBill(tx, ctx, billId)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := mutate(tx, bill); err != nil {
		tx.Rollback()
		return nil, err
	}
	if bill.Items == nil {
		if err := tx.WithContext(ctx).Where("bill_id = ?", bill.ID).Order("display_order, id").Find(&bill.Items).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
	}
	if bill.OldMetalExchanges == nil {
		if err := tx.WithContext(ctx).Where("bill_id = ?", bill.ID).Order("id").Find(&bill.OldMetalExchanges).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
	}
	if err := tx.WithContext(ctx).Where("bill_id = ?", bill.ID).Order("payment_date, id").Find(&bill.Payments).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	bill.refreshCashReceived()
	bill.CalculateTotals()
	if bill.CashReceived.GreaterThan(bill.NetPayable) {
		tx.Rollback()
		return nil, &utils.OverpaymentError{Attempted: bill.CashReceived, Remaining: bill.NetPayable}
	}

	if err := tx.WithContext(ctx).Model(&Bill{ID: bill.ID}).Updates(bill.totalsUpdateMap()).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return bill, nil
}

// RecomputeBill re-derives every total from current state. Safe to call
// whenever stored totals may be stale; running it twice changes nothing.
func RecomputeBill(ctx context.Context, billId int) (*Bill, error) {
	db := config.GetDB()
	tx := db.Begin()

	bill, err := lockBill(tx, ctx, billId)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := loadBillCollections(tx, ctx, bill); err != nil {
		tx.Rollback()
		return nil, err
	}

	// repair items persisted before fine/amount derivation existed
	for i := range bill.Items {
		item := &bill.Items[i]
		recalced := *item
		recalced.Recalculate()
		if !recalced.GFine.Equal(item.GFine) || !recalced.SFine.Equal(item.SFine) || !recalced.Amount.Equal(item.Amount) {
			if err := tx.WithContext(ctx).Model(&BillItem{ID: item.ID}).
				Updates(map[string]interface{}{
					"GFine":  recalced.GFine,
					"SFine":  recalced.SFine,
					"Amount": recalced.Amount,
				}).Error; err != nil {
				tx.Rollback()
				return nil, err
			}
			*item = recalced
		}
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

func GetBill(ctx context.Context, billId int) (*Bill, error) {
	db := config.GetDB()
	var bill Bill
	err := db.WithContext(ctx).
		Preload("Customer").
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("display_order, id") }).
		Preload("OldMetalExchanges").
		Preload("Payments", func(db *gorm.DB) *gorm.DB { return db.Order("payment_date, id") }).
		First(&bill, billId).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &bill, nil
}

type BillFilter struct {
	Search   string
	Status   BillStatus
	DateFrom *time.Time
	DateTo   *time.Time
	Limit    int
	Offset   int
}

func GetBills(ctx context.Context, filter BillFilter) ([]*Bill, error) {
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Model(&Bill{}).Preload("Customer")

	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		dbCtx = dbCtx.
			Joins("LEFT JOIN customers ON customers.id = bills.customer_id").
			Where("bills.bill_number LIKE ? OR customers.name LIKE ?", like, like)
	}
	if filter.Status != "" {
		dbCtx = dbCtx.Where("bills.status = ?", filter.Status)
	}
	if filter.DateFrom != nil {
		dbCtx = dbCtx.Where("bills.bill_date >= ?", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		dbCtx = dbCtx.Where("bills.bill_date < ?", filter.DateTo.AddDate(0, 0, 1))
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = config.SearchLimit
	}

	var results []*Bill
	if err := dbCtx.Order("bills.created_at DESC").Limit(limit).Offset(filter.Offset).Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func DeleteBill(ctx context.Context, billId int) (*Bill, error) {
	db := config.GetDB()
	tx := db.Begin()

	bill, err := lockBill(tx, ctx, billId)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	for _, owned := range []interface{}{&BillItem{}, &OldMetalExchange{}, &Payment{}} {
		if err := tx.WithContext(ctx).Where("bill_id = ?", bill.ID).Delete(owned).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
	}
	if err := tx.WithContext(ctx).Delete(&Bill{}, bill.ID).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return bill, nil
}

func isDuplicateKeyError(db *gorm.DB, err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
		return true
	}
	// sqlite reports unique violations as plain errors; mysql stays on the
	// typed checks above
	if db.Dialector.Name() == "sqlite" {
		return strings.Contains(strings.ToLower(err.Error()), "unique constraint")
	}
	return false
}
