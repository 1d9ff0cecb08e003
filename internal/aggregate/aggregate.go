// Package aggregate is the arithmetic core shared by every mart builder:
// guarded ratio helpers that resolve division by zero to an explicit
// undefined value (never an error, never a silent zero), and two-pass
// window calculations over month-ordered series. All money math is exact
// fixed-point decimal; ratios round to two decimal places on output.
package aggregate

import "github.com/shopspring/decimal"

var oneHundred = decimal.NewFromInt(100)

// Undefined is the explicit marker for a ratio whose denominator was not
// positive. It is distinguishable from a computed zero.
func Undefined() decimal.NullDecimal {
	return decimal.NullDecimal{}
}

// Defined wraps a computed value.
func Defined(value decimal.Decimal) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: value, Valid: true}
}

// Ratio returns numerator/denominator rounded to two decimals, undefined
// when the denominator is not positive.
func Ratio(numerator, denominator decimal.Decimal) decimal.NullDecimal {
	if !denominator.IsPositive() {
		return Undefined()
	}
	return Defined(numerator.Div(denominator).Round(2))
}

// Percent returns numerator/denominator x 100 rounded to two decimals,
// undefined when the denominator is not positive.
func Percent(numerator, denominator decimal.Decimal) decimal.NullDecimal {
	if !denominator.IsPositive() {
		return Undefined()
	}
	return Defined(numerator.Div(denominator).Mul(oneHundred).Round(2))
}

// PercentOfCounts is Percent over integer counts: the conversion-rate
// building block. Zero orders with positive sessions is a defined 0.00;
// zero sessions is undefined.
func PercentOfCounts(numerator, denominator int64) decimal.NullDecimal {
	return Percent(decimal.NewFromInt(numerator), decimal.NewFromInt(denominator))
}

// PerCount returns amount/count rounded to two decimals, undefined when
// count is not positive. Used for revenue-per-session and average order
// value.
func PerCount(amount decimal.Decimal, count int64) decimal.NullDecimal {
	return Ratio(amount, decimal.NewFromInt(count))
}

// PercentChange returns the period-over-period change of a value,
// ((current-previous)/previous) x 100 rounded to two decimals, undefined
// when the previous value is not positive.
func PercentChange(current, previous decimal.Decimal) decimal.NullDecimal {
	if !previous.IsPositive() {
		return Undefined()
	}
	return Defined(current.Sub(previous).Div(previous).Mul(oneHundred).Round(2))
}

// CountPercentChange is PercentChange over integer counts.
func CountPercentChange(current, previous int64) decimal.NullDecimal {
	return PercentChange(decimal.NewFromInt(current), decimal.NewFromInt(previous))
}

// RunningTotal returns the cumulative sum at each position of a series
// (unbounded preceding frame). Sums are exact; no rounding is applied.
func RunningTotal(series []decimal.Decimal) []decimal.Decimal {
	totals := make([]decimal.Decimal, len(series))
	total := decimal.Zero
	for i, value := range series {
		total = total.Add(value)
		totals[i] = total
	}
	return totals
}

// TrailingMovingAverage returns, for each position, the average of the
// current value and up to window-1 preceding values, rounded to two
// decimals. Positions near the start of the series average only the values
// that exist; the frame is never padded with zeros.
func TrailingMovingAverage(series []decimal.Decimal, window int) []decimal.Decimal {
	if window < 1 {
		window = 1
	}

	averages := make([]decimal.Decimal, len(series))
	for i := range series {
		start := i - window + 1
		if start < 0 {
			start = 0
		}

		frame := decimal.Zero
		for _, value := range series[start : i+1] {
			frame = frame.Add(value)
		}
		averages[i] = frame.Div(decimal.NewFromInt(int64(i + 1 - start))).Round(2)
	}
	return averages
}

// ShareOfTotal returns each value's percentage of the partition total,
// rounded to two decimals. When the total is not positive every share in
// the partition is undefined, mirroring the guarded-ratio contract.
func ShareOfTotal(values []decimal.Decimal) []decimal.NullDecimal {
	total := decimal.Zero
	for _, value := range values {
		total = total.Add(value)
	}

	shares := make([]decimal.NullDecimal, len(values))
	for i, value := range values {
		shares[i] = Percent(value, total)
	}
	return shares
}
