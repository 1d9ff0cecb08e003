package reports

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"shopalytics/internal/aggregate"
	"shopalytics/internal/timeframe"
)

// BuildLandingPageTrend tracks monthly session, order and revenue volume
// per landing page. A session's landing page is its first entry-set
// pageview; sessions that never hit an entry URL are excluded, along with
// their orders.
func BuildLandingPageTrend(data *Dataset) []LandingPageTrend {
	type landingKey struct {
		month time.Time
		page  string
	}
	type landingTotals struct {
		sessions int64
		orders   int64
		gross    decimal.Decimal
		refunds  decimal.Decimal
	}

	cfg := data.Funnel()
	totals := make(map[landingKey]*landingTotals)
	landedSessions := make(map[int64]landingKey)

	for _, session := range data.Sessions {
		page, ok := cfg.LandingPage(data.PageviewsFor(session.ID))
		if !ok {
			continue
		}
		key := landingKey{
			month: timeframe.TruncateToMonth(session.CreatedAt),
			page:  page,
		}
		landedSessions[session.ID] = key

		t, found := totals[key]
		if !found {
			t = &landingTotals{}
			totals[key] = t
		}
		t.sessions++
	}

	for _, order := range data.Orders {
		if order.SessionID == nil {
			continue
		}
		key, ok := landedSessions[*order.SessionID]
		if !ok {
			continue
		}
		t := totals[key]
		t.orders++
		t.gross = t.gross.Add(order.Price)
		t.refunds = t.refunds.Add(data.OrderRefunds(order.ID))
	}

	keys := make([]landingKey, 0, len(totals))
	for key := range totals {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if !keys[i].month.Equal(keys[j].month) {
			return keys[i].month.Before(keys[j].month)
		}
		return keys[i].page < keys[j].page
	})

	rows := make([]LandingPageTrend, len(keys))
	for i, key := range keys {
		t := totals[key]
		rows[i] = LandingPageTrend{
			Month:             key.month,
			LandingPage:       key.page,
			Sessions:          t.sessions,
			Orders:            t.orders,
			GrossRevenue:      t.gross,
			NetRevenue:        t.gross.Sub(t.refunds),
			ConversionRate:    aggregate.PercentOfCounts(t.orders, t.sessions),
			RevenuePerSession: aggregate.PerCount(t.gross, t.sessions),
		}
	}
	return rows
}
