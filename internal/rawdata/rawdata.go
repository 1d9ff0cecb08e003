// Package rawdata reads the loosely-typed tabular files the pipeline
// consumes, one CSV file per entity, and provides the coercion helpers the
// normalizers build typed entities with. Any structural or type failure in
// here resolves to ErrMalformedInput: raw data that cannot be typed is a
// batch-level data-quality failure, never something to skip past.
package rawdata

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrMalformedInput marks raw input that failed to parse into the typed
// model. The pipeline aborts the whole run on it; downstream aggregates
// cannot assume partially-typed data.
var ErrMalformedInput = errors.New("malformed raw input")

// DatetimeLayout is the only accepted raw timestamp format. All raw
// timestamps are interpreted as UTC.
const DatetimeLayout = "2006-01-02 15:04:05"

// Raw entity file names (without the .csv extension).
const (
	EntityProducts   = "products"
	EntitySessions   = "website_sessions"
	EntityPageviews  = "website_pageviews"
	EntityOrders     = "orders"
	EntityOrderItems = "order_items"
	EntityRefunds    = "order_item_refunds"
)

// Row is one data row of a raw entity file, addressable by column name.
type Row struct {
	Entity string
	Number int // 1-based data row number, header excluded

	header map[string]int
	values []string
}

// ReadEntity loads <dir>/<entity>.csv fully into memory. The first row must
// be a header; data rows are returned in file order. A file that cannot be
// opened is an I/O error, a file that cannot be parsed is ErrMalformedInput.
func ReadEntity(dir, entity string) ([]Row, error) {
	path := filepath.Join(dir, entity+".csv")
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open raw source %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	headerRecord, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%s: missing header row: %w", entity, ErrMalformedInput)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: read header: %w (%v)", entity, ErrMalformedInput, err)
	}

	header := make(map[string]int, len(headerRecord))
	for i, name := range headerRecord {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		header[name] = i
	}

	rows := []Row{}
	for number := 1; ; number++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w (%v)", entity, number, ErrMalformedInput, err)
		}
		rows = append(rows, Row{Entity: entity, Number: number, header: header, values: record})
	}
	return rows, nil
}

// Get returns the trimmed value of a column, with the common NULL sentinels
// (empty, NULL, \N) collapsed to the empty string. Unknown columns read as
// empty; use Has to distinguish.
func (r Row) Get(column string) string {
	idx, ok := r.header[column]
	if !ok || idx >= len(r.values) {
		return ""
	}
	value := strings.TrimSpace(r.values[idx])
	if value == `\N` || strings.EqualFold(value, "NULL") {
		return ""
	}
	return value
}

// Has reports whether the entity file declared the column at all.
func (r Row) Has(column string) bool {
	_, ok := r.header[column]
	return ok
}

// ID parses a required positive integer identifier.
func (r Row) ID(column string) (int64, error) {
	value := r.Get(column)
	if value == "" {
		return 0, r.fail(column, "missing identifier")
	}
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil || id <= 0 {
		return 0, r.fail(column, fmt.Sprintf("invalid identifier %q", value))
	}
	return id, nil
}

// OptionalID parses a nullable integer identifier; absent values return nil.
func (r Row) OptionalID(column string) (*int64, error) {
	if r.Get(column) == "" {
		return nil, nil
	}
	id, err := r.ID(column)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// Time parses a required datetime in DatetimeLayout, interpreted as UTC.
func (r Row) Time(column string) (time.Time, error) {
	value := r.Get(column)
	if value == "" {
		return time.Time{}, r.fail(column, "missing datetime")
	}
	t, err := time.ParseInLocation(DatetimeLayout, value, time.UTC)
	if err != nil {
		return time.Time{}, r.fail(column, fmt.Sprintf("invalid datetime %q", value))
	}
	return t, nil
}

// Money parses a required monetary amount into a two-decimal fixed-point
// value. Negative amounts are rejected as a data-quality failure rather than
// clamped.
func (r Row) Money(column string) (decimal.Decimal, error) {
	value := r.Get(column)
	if value == "" {
		return decimal.Zero, r.fail(column, "missing amount")
	}
	amount, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, r.fail(column, fmt.Sprintf("invalid amount %q", value))
	}
	if amount.IsNegative() {
		return decimal.Zero, r.fail(column, fmt.Sprintf("negative amount %q", value))
	}
	return amount.Round(2), nil
}

// Count parses a required non-negative integer count.
func (r Row) Count(column string) (int64, error) {
	value := r.Get(column)
	if value == "" {
		return 0, r.fail(column, "missing count")
	}
	count, err := strconv.ParseInt(value, 10, 64)
	if err != nil || count < 0 {
		return 0, r.fail(column, fmt.Sprintf("invalid count %q", value))
	}
	return count, nil
}

// Flag parses a required 0/1 boolean flag.
func (r Row) Flag(column string) (bool, error) {
	switch r.Get(column) {
	case "0":
		return false, nil
	case "1":
		return true, nil
	default:
		return false, r.fail(column, fmt.Sprintf("invalid flag %q", r.Get(column)))
	}
}

func (r Row) fail(column, detail string) error {
	return fmt.Errorf("%s row %d: column %s: %s: %w", r.Entity, r.Number, column, detail, ErrMalformedInput)
}
