package reports

import (
	"time"

	"github.com/shopspring/decimal"

	"shopalytics/internal/aggregate"
	"shopalytics/internal/timeframe"
)

// trailingWindow is the moving-average frame of the net revenue series:
// the current month plus up to two preceding ones.
const trailingWindow = 3

// BuildSalesSummary materializes the monthly financial KPI mart. The month
// axis is contiguous over the snapshot's covered range, so months without
// activity still get a row and the windowed series never skip a bucket.
// Sessions bucket by their own month, orders and refunds by the order's
// month.
func BuildSalesSummary(data *Dataset) []SalesSummary {
	months := data.Months()
	if len(months) == 0 {
		return nil
	}

	type monthTotals struct {
		sessions int64
		orders   int64
		gross    decimal.Decimal
		profit   decimal.Decimal
		refunds  decimal.Decimal
	}

	totals := make(map[time.Time]*monthTotals, len(months))
	for _, month := range months {
		totals[month] = &monthTotals{}
	}

	for _, session := range data.Sessions {
		totals[timeframe.TruncateToMonth(session.CreatedAt)].sessions++
	}
	for _, order := range data.Orders {
		month := totals[timeframe.TruncateToMonth(order.CreatedAt)]
		month.orders++
		month.gross = month.gross.Add(order.Price)
		month.profit = month.profit.Add(order.GrossProfit)
		month.refunds = month.refunds.Add(data.OrderRefunds(order.ID))
	}

	rows := make([]SalesSummary, len(months))
	netSeries := make([]decimal.Decimal, len(months))
	for i, month := range months {
		t := totals[month]
		netRevenue := t.gross.Sub(t.refunds)
		netProfit := t.profit.Sub(t.refunds)
		netSeries[i] = netRevenue

		rows[i] = SalesSummary{
			Month:             month,
			TotalSessions:     t.sessions,
			TotalOrders:       t.orders,
			GrossRevenue:      t.gross,
			TotalRefunds:      t.refunds,
			NetRevenue:        netRevenue,
			GrossProfit:       t.profit,
			NetProfit:         netProfit,
			ConversionRate:    aggregate.PercentOfCounts(t.orders, t.sessions),
			AverageOrderValue: aggregate.PerCount(t.gross, t.orders),
			RevenuePerSession: aggregate.PerCount(t.gross, t.sessions),
			RefundRatePct:     aggregate.Percent(t.refunds, t.gross),
			NetMarginPct:      aggregate.Percent(netProfit, netRevenue),
		}
	}

	running := aggregate.RunningTotal(netSeries)
	trailing := aggregate.TrailingMovingAverage(netSeries, trailingWindow)
	for i := range rows {
		rows[i].RunningNetRevenue = running[i]
		rows[i].NetRevenueTrailingAvg = trailing[i]

		if i == 0 {
			rows[i].RevenueGrowthPct = aggregate.Undefined()
			rows[i].OrderGrowthPct = aggregate.Undefined()
			continue
		}
		rows[i].RevenueGrowthPct = aggregate.PercentChange(netSeries[i], netSeries[i-1])
		rows[i].OrderGrowthPct = aggregate.CountPercentChange(rows[i].TotalOrders, rows[i-1].TotalOrders)
	}

	return rows
}
