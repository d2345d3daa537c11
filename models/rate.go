package models

import (
	"context"
	"time"

	"github.com/rohtashsarraf/jewelbill_backend/config"
	"github.com/rohtashsarraf/jewelbill_backend/utils"
	"github.com/shopspring/decimal"
)

// RateSnapshot is one entry in the per-kind rate history. At most one
// snapshot per kind is active at any time; activation is append-only and
// deactivation of prior rows happens in the same transaction.
type RateSnapshot struct {
	ID          int             `gorm:"primary_key" json:"id"`
	Kind        MetalKind       `gorm:"size:20;index;not null" json:"kind"`
	RatePerGram decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"rate_per_gram"`
	IsActive    bool            `gorm:"index;default:true" json:"is_active"`
	UpdatedBy   string          `gorm:"size:100" json:"updated_by"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func rateCacheKey(kind MetalKind) string {
	return "currentRate:" + string(kind)
}

// SetActiveRate atomically deactivates all existing snapshots for kind and
// inserts a new active one. Readers never observe zero or two active rows.
func SetActiveRate(ctx context.Context, kind MetalKind, rate decimal.Decimal, actor string) (*RateSnapshot, error) {
	if !kind.IsValid() {
		return nil, utils.NewValidationError("kind", "unknown metal kind")
	}
	if !rate.IsPositive() {
		return nil, utils.NewValidationError("rate_per_gram", "rate must be positive")
	}

	snapshot := RateSnapshot{
		Kind:        kind,
		RatePerGram: utils.RoundMoney(rate),
		IsActive:    true,
		UpdatedBy:   actor,
	}

	db := config.GetDB()
	tx := db.Begin()
	if err := tx.WithContext(ctx).Model(&RateSnapshot{}).
		Where("kind = ? AND is_active = ?", kind, true).
		Update("is_active", false).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.WithContext(ctx).Create(&snapshot).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	// cache invalidation is best-effort
	if err := config.DeleteRedisKeys(rateCacheKey(kind)); err != nil {
		config.LogError(config.GetLogger(), "rate.go", "SetActiveRate", "DeleteRedisKeys", kind, err)
	}

	return &snapshot, nil
}

// CurrentRate returns the single active snapshot for kind, redis first, db
// as source of truth. Returns RateNotSetError when the kind was never set.
func CurrentRate(ctx context.Context, kind MetalKind) (*RateSnapshot, error) {
	if !kind.IsValid() {
		return nil, utils.NewValidationError("kind", "unknown metal kind")
	}

	var cached RateSnapshot
	exists, err := config.GetRedisObject(rateCacheKey(kind), &cached)
	if err == nil && exists {
		return &cached, nil
	}

	db := config.GetDB()
	var snapshot RateSnapshot
	result := db.WithContext(ctx).
		Where("kind = ? AND is_active = ?", kind, true).
		Order("updated_at DESC").
		Limit(1).
		Find(&snapshot)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, &utils.RateNotSetError{Kind: string(kind)}
	}

	if err := config.SetRedisObject(rateCacheKey(kind), &snapshot, 0); err != nil {
		config.LogError(config.GetLogger(), "rate.go", "CurrentRate", "SetRedisObject", kind, err)
	}

	return &snapshot, nil
}

// GetRateHistory lists the snapshot series for kind, newest first.
func GetRateHistory(ctx context.Context, kind MetalKind, limit int) ([]*RateSnapshot, error) {
	if !kind.IsValid() {
		return nil, utils.NewValidationError("kind", "unknown metal kind")
	}
	if limit <= 0 {
		limit = config.SearchLimit
	}

	db := config.GetDB()
	var results []*RateSnapshot
	if err := db.WithContext(ctx).
		Where("kind = ?", kind).
		Order("updated_at DESC").
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
