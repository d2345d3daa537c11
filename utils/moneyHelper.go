package utils

import "github.com/shopspring/decimal"

// Currency amounts carry 2 decimal places, weights 3, percentages 2.
// All arithmetic is exact decimal. Rounding is half away from zero
// (decimal.Round / DivRound semantics), which equals round-half-up for the
// non-negative magnitudes handled here. Tests pin this choice.

const (
	MoneyPlaces   int32 = 2
	WeightPlaces  int32 = 3
	PercentPlaces int32 = 2
)

var decimalOneHundred = decimal.NewFromInt(100)

func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

func RoundWeight(d decimal.Decimal) decimal.Decimal {
	return d.Round(WeightPlaces)
}

func RoundPercent(d decimal.Decimal) decimal.Decimal {
	return d.Round(PercentPlaces)
}

// ApplyPercent returns amount × percent / 100 at currency precision.
func ApplyPercent(amount decimal.Decimal, percent decimal.Decimal) decimal.Decimal {
	return amount.Mul(percent).DivRound(decimalOneHundred, MoneyPlaces)
}

// ApplyPercentWeight returns weight × percent / 100 at weight precision.
func ApplyPercentWeight(weight decimal.Decimal, percent decimal.Decimal) decimal.Decimal {
	return weight.Mul(percent).DivRound(decimalOneHundred, WeightPlaces)
}
