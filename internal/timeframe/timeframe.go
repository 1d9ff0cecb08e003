package timeframe

import (
	"errors"
	"fmt"
	"time"
)

// maxMonths caps generated series; a span past it (50 years of monthly
// buckets) means corrupt timestamps in the input, not a real dataset.
const maxMonths = 600

// ErrSpanTooLarge reports a from..to span wider than maxMonths.
var ErrSpanTooLarge = errors.New("month span too large")

// TruncateToMonth truncates a timestamp to its month boundary (first day of
// the month, midnight UTC). Every monthly bucket in the system is derived
// through this single function so year-boundary handling lives in one place.
func TruncateToMonth(t time.Time) time.Time {
	utc := t.UTC()
	return time.Date(utc.Year(), utc.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// NextMonth returns the month boundary immediately following month.
func NextMonth(month time.Time) time.Time {
	return TruncateToMonth(month).AddDate(0, 1, 0)
}

// MonthKey formats a month boundary as its canonical YYYY-MM label.
func MonthKey(month time.Time) string {
	return month.UTC().Format("2006-01")
}

// ParseMonthKey parses a YYYY-MM label back into a month boundary.
func ParseMonthKey(key string) (time.Time, error) {
	t, err := time.Parse("2006-01", key)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid month key %q: %w", key, err)
	}
	return t.UTC(), nil
}

// MonthRange returns the contiguous, ascending series of month boundaries
// covering from..to inclusive. Gap months are materialized so window
// calculations downstream always see an unbroken series. Returns an empty
// slice when from is after to, and ErrSpanTooLarge when the span exceeds
// maxMonths.
func MonthRange(from, to time.Time) ([]time.Time, error) {
	start := TruncateToMonth(from)
	end := TruncateToMonth(to)
	if start.After(end) {
		return []time.Time{}, nil
	}

	span := (end.Year()-start.Year())*12 + int(end.Month()) - int(start.Month()) + 1
	if span > maxMonths {
		return nil, fmt.Errorf("%s..%s covers %d months, at most %d supported: %w",
			MonthKey(start), MonthKey(end), span, maxMonths, ErrSpanTooLarge)
	}

	months := make([]time.Time, 0, span)
	for current := start; !current.After(end); current = current.AddDate(0, 1, 0) {
		months = append(months, current)
	}
	return months, nil
}

// MonthSpan returns the earliest and latest month boundaries present in the
// given set. ok is false for an empty set.
func MonthSpan(months []time.Time) (from, to time.Time, ok bool) {
	if len(months) == 0 {
		return time.Time{}, time.Time{}, false
	}

	from = TruncateToMonth(months[0])
	to = from
	for _, m := range months[1:] {
		bucket := TruncateToMonth(m)
		if bucket.Before(from) {
			from = bucket
		}
		if bucket.After(to) {
			to = bucket
		}
	}
	return from, to, true
}
