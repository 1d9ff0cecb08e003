package reports_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"shopalytics/internal/attribution"
	"shopalytics/internal/catalog"
	"shopalytics/internal/funnel"
	"shopalytics/internal/reports"
	"shopalytics/internal/sales"
	"shopalytics/internal/traffic"
)

func month(year int, m time.Month) time.Time {
	return time.Date(year, m, 1, 0, 0, 0, 0, time.UTC)
}

func at(year int, m time.Month, day, hour int) time.Time {
	return time.Date(year, m, day, hour, 0, 0, 0, time.UTC)
}

func dec(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func ptr(v int64) *int64 {
	return &v
}

func defaultFunnel(t *testing.T) *funnel.Config {
	t.Helper()
	cfg, err := funnel.Default()
	require.NoError(t, err)
	return cfg
}

// session builds a direct type-in desktop session; tests that care about
// dimensions override the fields they need.
func session(id int64, createdAt time.Time) traffic.Session {
	return traffic.Session{
		ID:           id,
		CreatedAt:    createdAt,
		UserID:       id,
		DeviceType:   "desktop",
		ChannelGroup: attribution.ChannelDirectTypeIn,
		Source:       attribution.SourceOther,
		Campaign:     attribution.CampaignOrganicNonPaid,
		AdContent:    attribution.AdContentOrganic,
	}
}

func order(id, sessionID int64, createdAt time.Time, price, cogs string) sales.Order {
	p, c := dec(price), dec(cogs)
	return sales.Order{
		ID:               id,
		CreatedAt:        createdAt,
		SessionID:        ptr(sessionID),
		UserID:           id,
		PrimaryProductID: 1,
		ItemsPurchased:   1,
		Price:            p,
		Cogs:             c,
		GrossProfit:      p.Sub(c),
	}
}

func pageview(id, sessionID int64, createdAt time.Time, url string) traffic.Pageview {
	return traffic.Pageview{ID: id, SessionID: sessionID, CreatedAt: createdAt, URL: url}
}

// fixture assembles a Dataset from entity slices, defaulting the funnel
// configuration to the embedded one.
type fixture struct {
	products  []catalog.Product
	sessions  []traffic.Session
	pageviews []traffic.Pageview
	orders    []sales.Order
	items     []sales.OrderItem
	refunds   []sales.Refund
}

func (f fixture) dataset(t *testing.T) *reports.Dataset {
	t.Helper()
	data, err := reports.NewDataset(f.products, f.sessions, f.pageviews, f.orders, f.items, f.refunds, defaultFunnel(t))
	require.NoError(t, err)
	return data
}
