package reports_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopalytics/internal/attribution"
	"shopalytics/internal/reports"
	"shopalytics/internal/sales"
	"shopalytics/internal/traffic"
)

func TestBuildCustomerSegmentation(t *testing.T) {
	base := at(2012, time.May, 7, 9)

	repeat := session(4, base)
	repeat.IsRepeat = true

	orphan := order(3, 0, base, "70.00", "30.00")
	orphan.SessionID = nil

	rows := reports.BuildCustomerSegmentation(fixture{
		sessions: []traffic.Session{
			session(1, base),
			session(2, base.Add(time.Hour)),
			session(3, base.Add(2*time.Hour)),
			repeat,
		},
		orders: []sales.Order{
			order(1, 1, base.Add(10*time.Minute), "100.00", "40.00"),
			order(2, 4, base.Add(time.Hour), "50.00", "20.00"),
			orphan,
		},
		refunds: []sales.Refund{
			{ID: 1, CreatedAt: base.Add(24 * time.Hour), OrderItemID: 9, OrderID: 2, Amount: dec("20.00")},
		},
	}.dataset(t))
	require.Len(t, rows, 3)

	unknown := rows[0]
	assert.Equal(t, attribution.Unknown, unknown.Segment)
	assert.Equal(t, int64(0), unknown.Sessions)
	assert.Equal(t, int64(1), unknown.Orders)
	assert.Equal(t, "70.00", unknown.GrossRevenue.StringFixed(2))
	assert.False(t, unknown.ConversionRate.Valid)
	require.True(t, unknown.SessionSharePct.Valid)
	assert.Equal(t, "0.00", unknown.SessionSharePct.Decimal.StringFixed(2))

	newSegment := rows[1]
	assert.Equal(t, reports.SegmentNew, newSegment.Segment)
	assert.Equal(t, int64(3), newSegment.Sessions)
	assert.Equal(t, int64(1), newSegment.Orders)
	require.True(t, newSegment.ConversionRate.Valid)
	assert.Equal(t, "33.33", newSegment.ConversionRate.Decimal.StringFixed(2))
	require.True(t, newSegment.SessionSharePct.Valid)
	assert.Equal(t, "75.00", newSegment.SessionSharePct.Decimal.StringFixed(2))
	require.True(t, newSegment.RevenuePerSession.Valid)
	assert.Equal(t, "33.33", newSegment.RevenuePerSession.Decimal.StringFixed(2))

	repeatSegment := rows[2]
	assert.Equal(t, reports.SegmentRepeat, repeatSegment.Segment)
	assert.Equal(t, int64(1), repeatSegment.Sessions)
	assert.Equal(t, "50.00", repeatSegment.GrossRevenue.StringFixed(2))
	assert.Equal(t, "30.00", repeatSegment.NetRevenue.StringFixed(2))
	require.True(t, repeatSegment.ConversionRate.Valid)
	assert.Equal(t, "100.00", repeatSegment.ConversionRate.Decimal.StringFixed(2))
	require.True(t, repeatSegment.SessionSharePct.Valid)
	assert.Equal(t, "25.00", repeatSegment.SessionSharePct.Decimal.StringFixed(2))
}

func TestBuildCustomerSegmentationFollowsSessionMonth(t *testing.T) {
	// A repeat session in January converting in February counts the order
	// under January's repeat row.
	repeat := session(1, at(2012, time.January, 30, 22))
	repeat.IsRepeat = true

	rows := reports.BuildCustomerSegmentation(fixture{
		sessions: []traffic.Session{repeat},
		orders:   []sales.Order{order(1, 1, at(2012, time.February, 1, 1), "80.00", "30.00")},
	}.dataset(t))
	require.Len(t, rows, 1)

	assert.Equal(t, month(2012, time.January), rows[0].Month)
	assert.Equal(t, reports.SegmentRepeat, rows[0].Segment)
	assert.Equal(t, int64(1), rows[0].Orders)
}
