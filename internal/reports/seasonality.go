package reports

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"shopalytics/internal/aggregate"
	"shopalytics/internal/attribution"
	"shopalytics/internal/timeframe"
)

// BuildSeasonality crosses month with the order's day of week and the
// originating session's source, carrying order volume and average order
// value. Orders with no resolvable session count under the unknown source.
func BuildSeasonality(data *Dataset) []Seasonality {
	type seasonKey struct {
		month   time.Time
		weekday time.Weekday
		source  string
	}
	type seasonTotals struct {
		orders int64
		gross  decimal.Decimal
	}

	totals := make(map[seasonKey]*seasonTotals)
	for _, order := range data.Orders {
		source := attribution.Unknown
		if session, ok := data.SessionForOrder(order); ok {
			source = session.Source
		}
		key := seasonKey{
			month:   timeframe.TruncateToMonth(order.CreatedAt),
			weekday: order.CreatedAt.Weekday(),
			source:  source,
		}
		t, ok := totals[key]
		if !ok {
			t = &seasonTotals{}
			totals[key] = t
		}
		t.orders++
		t.gross = t.gross.Add(order.Price)
	}

	keys := make([]seasonKey, 0, len(totals))
	for key := range totals {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if !a.month.Equal(b.month) {
			return a.month.Before(b.month)
		}
		if a.weekday != b.weekday {
			return a.weekday < b.weekday
		}
		return a.source < b.source
	})

	rows := make([]Seasonality, len(keys))
	for i, key := range keys {
		t := totals[key]
		rows[i] = Seasonality{
			Month:             key.month,
			Weekday:           int(key.weekday),
			WeekdayName:       key.weekday.String(),
			Source:            key.source,
			Orders:            t.orders,
			GrossRevenue:      t.gross,
			AverageOrderValue: aggregate.PerCount(t.gross, t.orders),
		}
	}
	return rows
}
