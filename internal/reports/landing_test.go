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

func TestBuildLandingPageTrend(t *testing.T) {
	base := at(2012, time.July, 9, 13)

	orphan := order(3, 0, base, "25.00", "10.00")
	orphan.SessionID = nil

	rows := reports.BuildLandingPageTrend(fixture{
		sessions: []traffic.Session{
			session(1, base),
			session(2, base.Add(time.Hour)),
			session(3, base.Add(2*time.Hour)),
		},
		pageviews: []traffic.Pageview{
			// Session 1 hits a non-entry URL first; the landing page is
			// still its first entry-set match.
			pageview(1, 1, base, "/cart"),
			pageview(2, 1, base, "/home"),
			pageview(3, 2, base.Add(time.Hour), "/lander-1"),
			// Session 3 never hits an entry URL and is excluded.
			pageview(4, 3, base.Add(2*time.Hour), "/products"),
		},
		orders: []sales.Order{
			order(1, 1, base.Add(30*time.Minute), "100.00", "40.00"),
			order(2, 3, base.Add(3*time.Hour), "50.00", "20.00"),
			orphan,
		},
		refunds: []sales.Refund{
			{ID: 1, CreatedAt: base.Add(48 * time.Hour), OrderItemID: 1, OrderID: 1, Amount: dec("20.00")},
		},
	}.dataset(t))
	require.Len(t, rows, 2)

	home := rows[0]
	assert.Equal(t, "/home", home.LandingPage)
	assert.Equal(t, int64(1), home.Sessions)
	assert.Equal(t, int64(1), home.Orders)
	assert.Equal(t, "100.00", home.GrossRevenue.StringFixed(2))
	assert.Equal(t, "80.00", home.NetRevenue.StringFixed(2))
	require.True(t, home.ConversionRate.Valid)
	assert.Equal(t, "100.00", home.ConversionRate.Decimal.StringFixed(2))
	require.True(t, home.RevenuePerSession.Valid)
	assert.Equal(t, "100.00", home.RevenuePerSession.Decimal.StringFixed(2))

	lander := rows[1]
	assert.Equal(t, "/lander-1", lander.LandingPage)
	assert.Equal(t, int64(1), lander.Sessions)
	assert.Equal(t, int64(0), lander.Orders)
	require.True(t, lander.ConversionRate.Valid)
	assert.Equal(t, "0.00", lander.ConversionRate.Decimal.StringFixed(2))
}

func TestBuildLandingPageTrendTieBreaksByID(t *testing.T) {
	base := at(2012, time.July, 9, 13)

	// Two entry pageviews share a timestamp; the lower id wins.
	rows := reports.BuildLandingPageTrend(fixture{
		sessions: []traffic.Session{session(1, base)},
		pageviews: []traffic.Pageview{
			pageview(8, 1, base, "/lander-2"),
			pageview(7, 1, base, "/home"),
		},
	}.dataset(t))
	require.Len(t, rows, 1)

	assert.Equal(t, "/home", rows[0].LandingPage)
}

func TestBuildLandingPageTrendGroupsBySessionMonth(t *testing.T) {
	january := at(2012, time.January, 31, 23)

	rows := reports.BuildLandingPageTrend(fixture{
		sessions:  []traffic.Session{session(1, january)},
		pageviews: []traffic.Pageview{pageview(1, 1, january, "/home")},
		// The order lands in February, but follows its session's month.
		orders: []sales.Order{order(1, 1, at(2012, time.February, 1, 0), "60.00", "25.00")},
	}.dataset(t))
	require.Len(t, rows, 1)

	assert.Equal(t, month(2012, time.January), rows[0].Month)
	assert.Equal(t, int64(1), rows[0].Orders)
}
