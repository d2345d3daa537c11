package reports

import (
	"context"
	"time"

	"github.com/rohtashsarraf/jewelbill_backend/config"
	"github.com/shopspring/decimal"
)

type DashboardResponse struct {
	TodaySales          decimal.Decimal `json:"today_sales"`
	TodayCashReceived   decimal.Decimal `json:"today_cash_received"`
	CashReceivedPercent decimal.Decimal `json:"cash_received_percent"`
	TodayOldMetalWeight decimal.Decimal `json:"today_old_metal_weight"`
	OutstandingBalance  decimal.Decimal `json:"outstanding_balance"`
	OutstandingCount    int64           `json:"outstanding_count"`
	SalesGrowthPercent  decimal.Decimal `json:"sales_growth_percent"`
}

type billDayTotals struct {
	TotalSales decimal.Decimal
	TotalCash  decimal.Decimal
	BillCount  int64
}

func dayRange(day time.Time) (time.Time, time.Time) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	return start, start.AddDate(0, 0, 1)
}

func getBillTotalsBetween(ctx context.Context, from time.Time, to time.Time) (*billDayTotals, error) {
	sql := `
SELECT
	COALESCE(SUM(net_payable), 0) AS total_sales,
	COALESCE(SUM(cash_received), 0) AS total_cash,
	COUNT(id) AS bill_count
FROM
	bills
WHERE
	bill_date >= ? AND bill_date < ?
`
	var totals billDayTotals
	db := config.GetDB()
	if err := db.WithContext(ctx).Raw(sql, from, to).Scan(&totals).Error; err != nil {
		return nil, err
	}
	return &totals, nil
}

// GetDashboard aggregates today's trade: sales, cash collection rate, old
// metal taken in, outstanding balances and growth against yesterday.
func GetDashboard(ctx context.Context, now time.Time) (*DashboardResponse, error) {
	todayStart, todayEnd := dayRange(now)
	yesterdayStart, yesterdayEnd := dayRange(now.AddDate(0, 0, -1))

	today, err := getBillTotalsBetween(ctx, todayStart, todayEnd)
	if err != nil {
		return nil, err
	}
	yesterday, err := getBillTotalsBetween(ctx, yesterdayStart, yesterdayEnd)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()

	var oldMetalWeight decimal.Decimal
	oldMetalSQL := `
SELECT
	COALESCE(SUM(o.weight), 0)
FROM
	old_metal_exchanges o
	JOIN bills b ON o.bill_id = b.id
WHERE
	b.bill_date >= ? AND b.bill_date < ?
`
	if err := db.WithContext(ctx).Raw(oldMetalSQL, todayStart, todayEnd).Scan(&oldMetalWeight).Error; err != nil {
		return nil, err
	}

	var outstanding struct {
		Total decimal.Decimal
		Count int64
	}
	outstandingSQL := `
SELECT
	COALESCE(SUM(balance), 0) AS total,
	COUNT(id) AS count
FROM
	bills
WHERE
	status IN ('unpaid', 'partial')
`
	if err := db.WithContext(ctx).Raw(outstandingSQL).Scan(&outstanding).Error; err != nil {
		return nil, err
	}

	response := DashboardResponse{
		TodaySales:          today.TotalSales,
		TodayCashReceived:   today.TotalCash,
		TodayOldMetalWeight: oldMetalWeight,
		OutstandingBalance:  outstanding.Total,
		OutstandingCount:    outstanding.Count,
	}
	if today.TotalSales.IsPositive() {
		response.CashReceivedPercent = today.TotalCash.Mul(decimal.NewFromInt(100)).DivRound(today.TotalSales, 1)
	}
	if yesterday.TotalSales.IsPositive() {
		response.SalesGrowthPercent = today.TotalSales.Sub(yesterday.TotalSales).
			Mul(decimal.NewFromInt(100)).DivRound(yesterday.TotalSales, 1)
	}

	return &response, nil
}

type BillSummaryResponse struct {
	TotalSales       decimal.Decimal `json:"total_sales"`
	TotalCash        decimal.Decimal `json:"total_cash"`
	TotalOutstanding decimal.Decimal `json:"total_outstanding"`
	BillCount        int64           `json:"bill_count"`
}

// GetBillSummary totals the range [from, to] inclusive of both days.
func GetBillSummary(ctx context.Context, from time.Time, to time.Time) (*BillSummaryResponse, error) {
	fromStart, _ := dayRange(from)
	_, toEnd := dayRange(to)

	totals, err := getBillTotalsBetween(ctx, fromStart, toEnd)
	if err != nil {
		return nil, err
	}

	var outstanding decimal.Decimal
	sql := `
SELECT
	COALESCE(SUM(balance), 0)
FROM
	bills
WHERE
	bill_date >= ? AND bill_date < ?
	AND status IN ('unpaid', 'partial')
`
	db := config.GetDB()
	if err := db.WithContext(ctx).Raw(sql, fromStart, toEnd).Scan(&outstanding).Error; err != nil {
		return nil, err
	}

	return &BillSummaryResponse{
		TotalSales:       totals.TotalSales,
		TotalCash:        totals.TotalCash,
		TotalOutstanding: outstanding,
		BillCount:        totals.BillCount,
	}, nil
}
