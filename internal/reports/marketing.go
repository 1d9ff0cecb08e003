package reports

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"shopalytics/internal/aggregate"
	"shopalytics/internal/attribution"
	"shopalytics/internal/timeframe"
)

// BuildMarketingOverview crosses month with source, campaign, ad content
// and device type. Sessions bucket by their own month; orders follow their
// session's month and dimensions. Orders with no resolvable session count
// under unknown dimensions in the order's own month.
func BuildMarketingOverview(data *Dataset) []MarketingOverview {
	type marketingKey struct {
		month      time.Time
		source     string
		campaign   string
		adContent  string
		deviceType string
	}
	type marketingTotals struct {
		sessions int64
		orders   int64
		gross    decimal.Decimal
		refunds  decimal.Decimal
	}

	totals := make(map[marketingKey]*marketingTotals)
	get := func(key marketingKey) *marketingTotals {
		t, ok := totals[key]
		if !ok {
			t = &marketingTotals{}
			totals[key] = t
		}
		return t
	}

	for _, session := range data.Sessions {
		key := marketingKey{
			month:      timeframe.TruncateToMonth(session.CreatedAt),
			source:     session.Source,
			campaign:   session.Campaign,
			adContent:  session.AdContent,
			deviceType: session.DeviceType,
		}
		get(key).sessions++
	}

	for _, order := range data.Orders {
		key := marketingKey{
			month:      timeframe.TruncateToMonth(order.CreatedAt),
			source:     attribution.Unknown,
			campaign:   attribution.Unknown,
			adContent:  attribution.Unknown,
			deviceType: attribution.Unknown,
		}
		if session, ok := data.SessionForOrder(order); ok {
			key = marketingKey{
				month:      timeframe.TruncateToMonth(session.CreatedAt),
				source:     session.Source,
				campaign:   session.Campaign,
				adContent:  session.AdContent,
				deviceType: session.DeviceType,
			}
		}
		t := get(key)
		t.orders++
		t.gross = t.gross.Add(order.Price)
		t.refunds = t.refunds.Add(data.OrderRefunds(order.ID))
	}

	keys := make([]marketingKey, 0, len(totals))
	for key := range totals {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if !a.month.Equal(b.month) {
			return a.month.Before(b.month)
		}
		if a.source != b.source {
			return a.source < b.source
		}
		if a.campaign != b.campaign {
			return a.campaign < b.campaign
		}
		if a.adContent != b.adContent {
			return a.adContent < b.adContent
		}
		return a.deviceType < b.deviceType
	})

	rows := make([]MarketingOverview, len(keys))
	for i, key := range keys {
		t := totals[key]
		rows[i] = MarketingOverview{
			Month:             key.month,
			Source:            key.source,
			Campaign:          key.campaign,
			AdContent:         key.adContent,
			DeviceType:        key.deviceType,
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
