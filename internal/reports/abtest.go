package reports

import (
	"github.com/shopspring/decimal"

	"shopalytics/internal/aggregate"
)

// BuildABTestResult compares the two billing page variants over the
// configured test window. Sessions bucket by the first variant URL they
// saw inside the window; their orders count only when the order also falls
// inside the window. Lift columns are filled on the variant row, relative
// to control, and stay undefined when either side's rate is undefined.
func BuildABTestResult(data *Dataset) []ABTestResult {
	type variantTotals struct {
		sessions int64
		orders   int64
		gross    decimal.Decimal
	}

	cfg := data.Funnel()
	control, variant := cfg.BillingVariants()
	windowFrom, windowTo := cfg.TestWindow()

	totals := map[string]*variantTotals{
		control: {},
		variant: {},
	}
	bucketed := make(map[int64]string)

	for _, session := range data.Sessions {
		url, ok := cfg.BillingVariantSeen(data.PageviewsFor(session.ID))
		if !ok {
			continue
		}
		bucketed[session.ID] = url
		totals[url].sessions++
	}

	for _, order := range data.Orders {
		if order.SessionID == nil {
			continue
		}
		url, ok := bucketed[*order.SessionID]
		if !ok || !cfg.InTestWindow(order.CreatedAt) {
			continue
		}
		t := totals[url]
		t.orders++
		t.gross = t.gross.Add(order.Price)
	}

	row := func(url, role string) ABTestResult {
		t := totals[url]
		return ABTestResult{
			Variant:           url,
			Role:              role,
			WindowFrom:        windowFrom,
			WindowTo:          windowTo,
			Sessions:          t.sessions,
			Orders:            t.orders,
			GrossRevenue:      t.gross,
			ConversionRate:    aggregate.PercentOfCounts(t.orders, t.sessions),
			RevenuePerSession: aggregate.PerCount(t.gross, t.sessions),
		}
	}

	controlRow := row(control, RoleControl)
	variantRow := row(variant, RoleVariant)
	variantRow.ConversionRateLift = lift(variantRow.ConversionRate, controlRow.ConversionRate)
	variantRow.RevenuePerSessionLift = lift(variantRow.RevenuePerSession, controlRow.RevenuePerSession)

	return []ABTestResult{controlRow, variantRow}
}

// lift is the plain difference between two defined rates, undefined when
// either side is.
func lift(variant, control decimal.NullDecimal) decimal.NullDecimal {
	if !variant.Valid || !control.Valid {
		return aggregate.Undefined()
	}
	return aggregate.Defined(variant.Decimal.Sub(control.Decimal))
}
