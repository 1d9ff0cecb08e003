package reports

import (
	"sort"
	"time"

	"shopalytics/internal/aggregate"
	"shopalytics/internal/attribution"
	"shopalytics/internal/timeframe"
)

// BuildTrafficTrend counts monthly sessions per channel group, tags each
// row with its coarse paid/organic/direct/other bucket, and carries the
// channel's share of the month's sessions.
func BuildTrafficTrend(data *Dataset) []TrafficTrend {
	type trendKey struct {
		month   time.Time
		channel string
	}
	type trendTotals struct {
		sessions int64
		orders   int64
	}

	totals := make(map[trendKey]*trendTotals)
	get := func(key trendKey) *trendTotals {
		t, ok := totals[key]
		if !ok {
			t = &trendTotals{}
			totals[key] = t
		}
		return t
	}

	for _, session := range data.Sessions {
		key := trendKey{
			month:   timeframe.TruncateToMonth(session.CreatedAt),
			channel: session.ChannelGroup,
		}
		get(key).sessions++
	}

	for _, order := range data.Orders {
		key := trendKey{
			month:   timeframe.TruncateToMonth(order.CreatedAt),
			channel: attribution.Unknown,
		}
		if session, ok := data.SessionForOrder(order); ok {
			key = trendKey{
				month:   timeframe.TruncateToMonth(session.CreatedAt),
				channel: session.ChannelGroup,
			}
		}
		get(key).orders++
	}

	keys := make([]trendKey, 0, len(totals))
	sessionsPerMonth := make(map[time.Time]int64)
	for key, t := range totals {
		keys = append(keys, key)
		sessionsPerMonth[key.month] += t.sessions
	}
	sort.Slice(keys, func(i, j int) bool {
		if !keys[i].month.Equal(keys[j].month) {
			return keys[i].month.Before(keys[j].month)
		}
		return keys[i].channel < keys[j].channel
	})

	rows := make([]TrafficTrend, len(keys))
	for i, key := range keys {
		t := totals[key]
		rows[i] = TrafficTrend{
			Month:           key.month,
			ChannelGroup:    key.channel,
			Bucket:          attribution.Bucket(key.channel),
			Sessions:        t.sessions,
			Orders:          t.orders,
			ConversionRate:  aggregate.PercentOfCounts(t.orders, t.sessions),
			SessionSharePct: aggregate.PercentOfCounts(t.sessions, sessionsPerMonth[key.month]),
		}
	}
	return rows
}
