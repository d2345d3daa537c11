package models_test

import (
	"errors"
	"testing"

	"github.com/rohtashsarraf/jewelbill_backend/config"
	"github.com/rohtashsarraf/jewelbill_backend/models"
	"github.com/rohtashsarraf/jewelbill_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetActiveRateRoundtrip(t *testing.T) {
	ctx := setupTestDB(t)

	snapshot, err := models.SetActiveRate(ctx, models.MetalKindGold, decimal.RequireFromString("7123.45"), "tester")
	require.NoError(t, err)
	assert.True(t, snapshot.IsActive)
	assert.Equal(t, "tester", snapshot.UpdatedBy)

	current, err := models.CurrentRate(ctx, models.MetalKindGold)
	require.NoError(t, err)
	assert.Equal(t, "7123.45", current.RatePerGram.StringFixed(2))
}

func TestSetActiveRateKeepsOneActive(t *testing.T) {
	ctx := setupTestDB(t)

	for _, rate := range []string{"7000.00", "7100.00", "7200.00"} {
		_, err := models.SetActiveRate(ctx, models.MetalKindGold, decimal.RequireFromString(rate), "tester")
		require.NoError(t, err)
	}

	var active int64
	require.NoError(t, config.GetDB().Model(&models.RateSnapshot{}).
		Where("kind = ? AND is_active = ?", models.MetalKindGold, true).
		Count(&active).Error)
	assert.Equal(t, int64(1), active)

	current, err := models.CurrentRate(ctx, models.MetalKindGold)
	require.NoError(t, err)
	assert.Equal(t, "7200.00", current.RatePerGram.StringFixed(2))
}

func TestRatesArePerKind(t *testing.T) {
	ctx := setupTestDB(t)

	_, err := models.SetActiveRate(ctx, models.MetalKindGold, decimal.RequireFromString("7000.00"), "tester")
	require.NoError(t, err)
	_, err = models.SetActiveRate(ctx, models.MetalKindSilver, decimal.RequireFromString("85.50"), "tester")
	require.NoError(t, err)

	gold, err := models.CurrentRate(ctx, models.MetalKindGold)
	require.NoError(t, err)
	silver, err := models.CurrentRate(ctx, models.MetalKindSilver)
	require.NoError(t, err)
	assert.Equal(t, "7000.00", gold.RatePerGram.StringFixed(2))
	assert.Equal(t, "85.50", silver.RatePerGram.StringFixed(2))
}

func TestSetActiveRateValidation(t *testing.T) {
	ctx := setupTestDB(t)

	var validationErr *utils.ValidationError

	_, err := models.SetActiveRate(ctx, "platinum", decimal.RequireFromString("100.00"), "tester")
	require.Error(t, err)
	require.True(t, errors.As(err, &validationErr))
	assert.Equal(t, "kind", validationErr.Field)

	_, err = models.SetActiveRate(ctx, models.MetalKindGold, decimal.Zero, "tester")
	require.Error(t, err)
	require.True(t, errors.As(err, &validationErr))
	assert.Equal(t, "rate_per_gram", validationErr.Field)

	_, err = models.SetActiveRate(ctx, models.MetalKindGold, decimal.RequireFromString("-10"), "tester")
	require.Error(t, err)
	require.True(t, errors.As(err, &validationErr))
}

func TestCurrentRateNotSet(t *testing.T) {
	ctx := setupTestDB(t)

	_, err := models.CurrentRate(ctx, models.MetalKindBar)
	require.Error(t, err)
	var rateNotSet *utils.RateNotSetError
	require.True(t, errors.As(err, &rateNotSet))
	assert.Equal(t, "bar", rateNotSet.Kind)
}

func TestGetRateHistoryNewestFirst(t *testing.T) {
	ctx := setupTestDB(t)

	for _, rate := range []string{"7000.00", "7100.00"} {
		_, err := models.SetActiveRate(ctx, models.MetalKindGold, decimal.RequireFromString(rate), "tester")
		require.NoError(t, err)
	}

	history, err := models.GetRateHistory(ctx, models.MetalKindGold, 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "7100.00", history[0].RatePerGram.StringFixed(2))
	assert.True(t, history[0].IsActive)
	assert.False(t, history[1].IsActive)
}
