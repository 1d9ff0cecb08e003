package reports

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"shopalytics/internal/aggregate"
	"shopalytics/internal/timeframe"
)

// BuildProductPerformance materializes per-product monthly economics from
// order items, with refunds pre-aggregated per item. Revenue and profit
// shares are computed within each month partition, so a product's share
// always refers to the month it sold in.
func BuildProductPerformance(data *Dataset) []ProductPerformance {
	type productKey struct {
		month     time.Time
		productID int64
	}
	type productTotals struct {
		orders  map[int64]struct{}
		items   int64
		gross   decimal.Decimal
		profit  decimal.Decimal
		refunds decimal.Decimal
	}

	totals := make(map[productKey]*productTotals)
	for _, item := range data.Items {
		key := productKey{
			month:     timeframe.TruncateToMonth(item.CreatedAt),
			productID: item.ProductID,
		}
		t, ok := totals[key]
		if !ok {
			t = &productTotals{orders: make(map[int64]struct{})}
			totals[key] = t
		}
		t.orders[item.OrderID] = struct{}{}
		t.items++
		t.gross = t.gross.Add(item.Price)
		t.profit = t.profit.Add(item.Price.Sub(item.Cogs))
		t.refunds = t.refunds.Add(data.ItemRefunds(item.ID))
	}

	keys := make([]productKey, 0, len(totals))
	for key := range totals {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if !keys[i].month.Equal(keys[j].month) {
			return keys[i].month.Before(keys[j].month)
		}
		return keys[i].productID < keys[j].productID
	})

	rows := make([]ProductPerformance, len(keys))
	for i, key := range keys {
		t := totals[key]
		netRevenue := t.gross.Sub(t.refunds)
		rows[i] = ProductPerformance{
			Month:         key.month,
			ProductID:     key.productID,
			ProductName:   data.ProductName(key.productID),
			Orders:        int64(len(t.orders)),
			ItemsSold:     t.items,
			GrossRevenue:  t.gross,
			GrossProfit:   t.profit,
			TotalRefunds:  t.refunds,
			NetRevenue:    netRevenue,
			NetProfit:     t.profit.Sub(t.refunds),
			RefundRatePct: aggregate.Percent(t.refunds, t.gross),
		}
	}

	// Shares are partitioned per month: rows are month-major, so each
	// month is one contiguous run.
	for start := 0; start < len(rows); {
		end := start
		for end < len(rows) && rows[end].Month.Equal(rows[start].Month) {
			end++
		}

		nets := make([]decimal.Decimal, end-start)
		profits := make([]decimal.Decimal, end-start)
		for i := start; i < end; i++ {
			nets[i-start] = rows[i].NetRevenue
			profits[i-start] = rows[i].NetProfit
		}
		revenueShares := aggregate.ShareOfTotal(nets)
		profitShares := aggregate.ShareOfTotal(profits)
		for i := start; i < end; i++ {
			rows[i].RevenueSharePct = revenueShares[i-start]
			rows[i].ProfitSharePct = profitShares[i-start]
		}
		start = end
	}

	return rows
}
