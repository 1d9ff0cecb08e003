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

// journey appends one pageview per URL, a minute apart.
func journey(views []traffic.Pageview, sessionID int64, start time.Time, urls ...string) []traffic.Pageview {
	nextID := int64(len(views) + 1)
	for i, url := range urls {
		views = append(views, pageview(nextID+int64(i), sessionID, start.Add(time.Duration(i)*time.Minute), url))
	}
	return views
}

func TestBuildConversionFunnel(t *testing.T) {
	base := at(2012, time.September, 20, 10)

	var views []traffic.Pageview
	views = journey(views, 1, base,
		"/home", "/products", "/the-original-mr-fuzzy", "/cart")
	views = journey(views, 2, base.Add(time.Hour),
		"/home", "/products", "/the-original-mr-fuzzy", "/cart",
		"/shipping", "/billing", "/thank-you-for-your-order")

	rows := reports.BuildConversionFunnel(fixture{
		sessions: []traffic.Session{
			session(1, base),
			session(2, base.Add(time.Hour)),
		},
		pageviews: views,
	}.dataset(t))
	require.Len(t, rows, 7)

	wantSessions := []int64{2, 2, 2, 2, 1, 1, 1}
	wantStages := []string{"entry", "product_list", "product_detail", "cart", "shipping", "billing", "confirmation"}
	for i, row := range rows {
		assert.Equal(t, month(2012, time.September), row.Month)
		assert.Equal(t, i, row.StageIndex)
		assert.Equal(t, wantStages[i], row.Stage)
		assert.Equal(t, wantSessions[i], row.Sessions, "stage %s", row.Stage)
	}

	// The first stage has no predecessor.
	assert.False(t, rows[0].ClickThroughPct.Valid)
	assert.False(t, rows[0].DropOffPct.Valid)

	// Both sessions moved through to cart, then half dropped at shipping.
	require.True(t, rows[3].ClickThroughPct.Valid)
	assert.Equal(t, "100.00", rows[3].ClickThroughPct.Decimal.StringFixed(2))
	require.True(t, rows[3].DropOffPct.Valid)
	assert.Equal(t, "0.00", rows[3].DropOffPct.Decimal.StringFixed(2))

	require.True(t, rows[4].ClickThroughPct.Valid)
	assert.Equal(t, "50.00", rows[4].ClickThroughPct.Decimal.StringFixed(2))
	require.True(t, rows[4].DropOffPct.Valid)
	assert.Equal(t, "50.00", rows[4].DropOffPct.Decimal.StringFixed(2))

	require.True(t, rows[6].ClickThroughPct.Valid)
	assert.Equal(t, "100.00", rows[6].ClickThroughPct.Decimal.StringFixed(2))
}

func TestBuildConversionFunnelEmptyMonthsStayUndefined(t *testing.T) {
	// A session in January and an order in February stretch the axis to
	// two months; February has no sessions, so every rate is undefined.
	rows := reports.BuildConversionFunnel(fixture{
		sessions:  []traffic.Session{session(1, at(2012, time.January, 5, 9))},
		pageviews: journey(nil, 1, at(2012, time.January, 5, 9), "/home"),
		orders:    []sales.Order{order(1, 1, at(2012, time.February, 2, 9), "10.00", "5.00")},
	}.dataset(t))
	require.Len(t, rows, 14)

	assert.Equal(t, month(2012, time.January), rows[0].Month)
	assert.Equal(t, int64(1), rows[0].Sessions)

	for _, row := range rows[7:] {
		assert.Equal(t, month(2012, time.February), row.Month)
		assert.Equal(t, int64(0), row.Sessions)
		assert.False(t, row.ClickThroughPct.Valid)
		assert.False(t, row.DropOffPct.Valid)
	}
}
