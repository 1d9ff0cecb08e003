package reports

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"shopalytics/internal/aggregate"
	"shopalytics/internal/attribution"
	"shopalytics/internal/timeframe"
	"shopalytics/internal/traffic"
)

// BuildCustomerSegmentation splits each month between new and repeat
// sessions. Orders follow their session's month and segment; orders with
// no resolvable session land in the unknown segment under the order's own
// month.
func BuildCustomerSegmentation(data *Dataset) []CustomerSegmentation {
	type segmentKey struct {
		month   time.Time
		segment string
	}
	type segmentTotals struct {
		sessions int64
		orders   int64
		gross    decimal.Decimal
		refunds  decimal.Decimal
	}

	totals := make(map[segmentKey]*segmentTotals)
	get := func(key segmentKey) *segmentTotals {
		t, ok := totals[key]
		if !ok {
			t = &segmentTotals{}
			totals[key] = t
		}
		return t
	}

	for _, session := range data.Sessions {
		key := segmentKey{
			month:   timeframe.TruncateToMonth(session.CreatedAt),
			segment: sessionSegment(session),
		}
		get(key).sessions++
	}

	for _, order := range data.Orders {
		key := segmentKey{
			month:   timeframe.TruncateToMonth(order.CreatedAt),
			segment: attribution.Unknown,
		}
		if session, ok := data.SessionForOrder(order); ok {
			key = segmentKey{
				month:   timeframe.TruncateToMonth(session.CreatedAt),
				segment: sessionSegment(session),
			}
		}
		t := get(key)
		t.orders++
		t.gross = t.gross.Add(order.Price)
		t.refunds = t.refunds.Add(data.OrderRefunds(order.ID))
	}

	keys := make([]segmentKey, 0, len(totals))
	sessionsPerMonth := make(map[time.Time]int64)
	for key, t := range totals {
		keys = append(keys, key)
		sessionsPerMonth[key.month] += t.sessions
	}
	sort.Slice(keys, func(i, j int) bool {
		if !keys[i].month.Equal(keys[j].month) {
			return keys[i].month.Before(keys[j].month)
		}
		return keys[i].segment < keys[j].segment
	})

	rows := make([]CustomerSegmentation, len(keys))
	for i, key := range keys {
		t := totals[key]
		rows[i] = CustomerSegmentation{
			Month:             key.month,
			Segment:           key.segment,
			Sessions:          t.sessions,
			Orders:            t.orders,
			GrossRevenue:      t.gross,
			NetRevenue:        t.gross.Sub(t.refunds),
			ConversionRate:    aggregate.PercentOfCounts(t.orders, t.sessions),
			RevenuePerSession: aggregate.PerCount(t.gross, t.sessions),
			SessionSharePct:   aggregate.PercentOfCounts(t.sessions, sessionsPerMonth[key.month]),
		}
	}
	return rows
}

func sessionSegment(session traffic.Session) string {
	if session.IsRepeat {
		return SegmentRepeat
	}
	return SegmentNew
}
