package reports

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"shopalytics/internal/attribution"
	"shopalytics/internal/catalog"
	"shopalytics/internal/funnel"
	"shopalytics/internal/sales"
	"shopalytics/internal/timeframe"
	"shopalytics/internal/traffic"
)

// Dataset wraps one run's normalized snapshot together with the lookup
// indexes the builders share: pageviews grouped per session, refunds
// pre-aggregated per order and per order item, and entity lookups by id.
// Indexes are computed once; builders never mutate the snapshot.
type Dataset struct {
	Products  []catalog.Product
	Sessions  []traffic.Session
	Pageviews []traffic.Pageview
	Orders    []sales.Order
	Items     []sales.OrderItem
	Refunds   []sales.Refund

	funnelCfg *funnel.Config

	sessionsByID       map[int64]int
	pageviewsBySession map[int64][]traffic.Pageview
	refundsByOrder     map[int64]decimal.Decimal
	refundsByItem      map[int64]decimal.Decimal
	productNames       map[int64]string
	months             []time.Time
}

// NewDataset indexes a snapshot for mart building. It fails when the
// sessions and orders span more months than the system supports, which
// points at corrupt timestamps in the raw input.
func NewDataset(
	products []catalog.Product,
	sessions []traffic.Session,
	pageviews []traffic.Pageview,
	orders []sales.Order,
	items []sales.OrderItem,
	refunds []sales.Refund,
	funnelCfg *funnel.Config,
) (*Dataset, error) {
	data := &Dataset{
		Products:  products,
		Sessions:  sessions,
		Pageviews: pageviews,
		Orders:    orders,
		Items:     items,
		Refunds:   refunds,
		funnelCfg: funnelCfg,

		sessionsByID:       make(map[int64]int, len(sessions)),
		pageviewsBySession: traffic.BySession(pageviews),
		refundsByOrder:     sales.RefundsByOrder(refunds),
		refundsByItem:      sales.RefundsByOrderItem(refunds),
		productNames:       catalog.NamesByID(products),
	}

	for i, session := range sessions {
		data.sessionsByID[session.ID] = i
	}

	months := make([]time.Time, 0, len(sessions)+len(orders))
	for _, session := range sessions {
		months = append(months, timeframe.TruncateToMonth(session.CreatedAt))
	}
	for _, order := range orders {
		months = append(months, timeframe.TruncateToMonth(order.CreatedAt))
	}
	if from, to, ok := timeframe.MonthSpan(months); ok {
		series, err := timeframe.MonthRange(from, to)
		if err != nil {
			return nil, fmt.Errorf("month axis: %w", err)
		}
		data.months = series
	}

	return data, nil
}

// Funnel returns the funnel stage configuration for this run.
func (d *Dataset) Funnel() *funnel.Config {
	return d.funnelCfg
}

// Months returns the contiguous month series covering all sessions and
// orders, including months with no activity. Empty when the snapshot has
// neither sessions nor orders.
func (d *Dataset) Months() []time.Time {
	return d.months
}

// Session looks a session up by id.
func (d *Dataset) Session(id int64) (traffic.Session, bool) {
	i, ok := d.sessionsByID[id]
	if !ok {
		return traffic.Session{}, false
	}
	return d.Sessions[i], true
}

// SessionForOrder resolves an order's session. ok is false when the order
// carries no session id or references a session the snapshot does not
// have; such orders aggregate under attribution.Unknown dimensions.
func (d *Dataset) SessionForOrder(order sales.Order) (traffic.Session, bool) {
	if order.SessionID == nil {
		return traffic.Session{}, false
	}
	return d.Session(*order.SessionID)
}

// PageviewsFor returns a session's pageviews ordered by time, then id.
func (d *Dataset) PageviewsFor(sessionID int64) []traffic.Pageview {
	return d.pageviewsBySession[sessionID]
}

// OrderRefunds returns the summed refund amount against an order, zero
// when it has none.
func (d *Dataset) OrderRefunds(orderID int64) decimal.Decimal {
	return d.refundsByOrder[orderID]
}

// ItemRefunds returns the summed refund amount against an order item, zero
// when it has none.
func (d *Dataset) ItemRefunds(itemID int64) decimal.Decimal {
	return d.refundsByItem[itemID]
}

// ProductName resolves a product name, falling back to the unknown label
// for ids the catalog does not carry.
func (d *Dataset) ProductName(id int64) string {
	if name, ok := d.productNames[id]; ok {
		return name
	}
	return attribution.Unknown
}
