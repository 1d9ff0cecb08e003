package reports_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopalytics/internal/reports"
	"shopalytics/internal/sales"
	"shopalytics/internal/traffic"
)

func TestBuildABTestResult(t *testing.T) {
	inside := at(2012, time.October, 1, 12)
	f := fixture{}

	// Control: 100 sessions, 40 orders, $4000 revenue.
	for i := int64(1); i <= 100; i++ {
		f.sessions = append(f.sessions, session(i, inside))
		f.pageviews = append(f.pageviews, pageview(i, i, inside.Add(time.Minute), "/billing"))
		if i <= 40 {
			f.orders = append(f.orders, order(i, i, inside.Add(2*time.Minute), "100.00", "40.00"))
		}
	}

	// Variant: 100 sessions, 60 orders, $6800 revenue.
	for i := int64(101); i <= 200; i++ {
		f.sessions = append(f.sessions, session(i, inside))
		f.pageviews = append(f.pageviews, pageview(i, i, inside.Add(time.Minute), "/billing-2"))
		if i <= 160 {
			price := "100.00"
			if i <= 110 {
				price = "180.00"
			}
			f.orders = append(f.orders, order(i, i, inside.Add(2*time.Minute), price, "40.00"))
		}
	}

	rows := reports.BuildABTestResult(f.dataset(t))
	require.Len(t, rows, 2)

	control := rows[0]
	assert.Equal(t, "/billing", control.Variant)
	assert.Equal(t, reports.RoleControl, control.Role)
	assert.Equal(t, int64(100), control.Sessions)
	assert.Equal(t, int64(40), control.Orders)
	assert.Equal(t, "4000.00", control.GrossRevenue.StringFixed(2))
	require.True(t, control.ConversionRate.Valid)
	assert.Equal(t, "40.00", control.ConversionRate.Decimal.StringFixed(2))
	require.True(t, control.RevenuePerSession.Valid)
	assert.Equal(t, "40.00", control.RevenuePerSession.Decimal.StringFixed(2))
	assert.False(t, control.ConversionRateLift.Valid)
	assert.False(t, control.RevenuePerSessionLift.Valid)

	variant := rows[1]
	assert.Equal(t, "/billing-2", variant.Variant)
	assert.Equal(t, reports.RoleVariant, variant.Role)
	assert.Equal(t, int64(100), variant.Sessions)
	assert.Equal(t, int64(60), variant.Orders)
	assert.Equal(t, "6800.00", variant.GrossRevenue.StringFixed(2))
	require.True(t, variant.ConversionRate.Valid)
	assert.Equal(t, "60.00", variant.ConversionRate.Decimal.StringFixed(2))
	require.True(t, variant.RevenuePerSession.Valid)
	assert.Equal(t, "68.00", variant.RevenuePerSession.Decimal.StringFixed(2))

	require.True(t, variant.ConversionRateLift.Valid)
	assert.Equal(t, "20.00", variant.ConversionRateLift.Decimal.StringFixed(2))
	require.True(t, variant.RevenuePerSessionLift.Valid)
	assert.Equal(t, "28.00", variant.RevenuePerSessionLift.Decimal.StringFixed(2))
}

func TestBuildABTestResultRespectsWindow(t *testing.T) {
	inside := at(2012, time.October, 1, 12)
	before := at(2012, time.September, 9, 12)
	after := at(2012, time.December, 1, 12)

	rows := reports.BuildABTestResult(fixture{
		sessions: []traffic.Session{
			// Saw billing before the window opened: never bucketed.
			session(1, before),
			// Bucketed, but its order falls after the window closed.
			session(2, inside),
		},
		pageviews: []traffic.Pageview{
			pageview(1, 1, before, "/billing"),
			pageview(2, 2, inside, "/billing"),
		},
		orders: []sales.Order{
			order(1, 1, before.Add(time.Minute), "100.00", "40.00"),
			order(2, 2, after, "100.00", "40.00"),
		},
	}.dataset(t))
	require.Len(t, rows, 2)

	control := rows[0]
	assert.Equal(t, int64(1), control.Sessions)
	assert.Equal(t, int64(0), control.Orders)
	require.True(t, control.ConversionRate.Valid)
	assert.Equal(t, "0.00", control.ConversionRate.Decimal.StringFixed(2))

	variant := rows[1]
	assert.Equal(t, int64(0), variant.Sessions)
	assert.False(t, variant.ConversionRate.Valid)
	assert.False(t, variant.ConversionRateLift.Valid)
	assert.False(t, variant.RevenuePerSessionLift.Valid)
}

func TestBuildABTestResultEmptySnapshot(t *testing.T) {
	rows := reports.BuildABTestResult(fixture{}.dataset(t))
	require.Len(t, rows, 2)

	for _, row := range rows {
		assert.Equal(t, int64(0), row.Sessions)
		assert.Equal(t, int64(0), row.Orders)
		assert.False(t, row.ConversionRate.Valid)
		assert.False(t, row.RevenuePerSession.Valid)
	}
	assert.Equal(t, at(2012, time.September, 10, 0), rows[0].WindowFrom)
	assert.Equal(t, at(2012, time.November, 10, 0), rows[0].WindowTo)
}
