package rawdata_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopalytics/internal/rawdata"
)

func writeRawFile(t *testing.T, dir, entity, content string) {
	t.Helper()
	err := os.WriteFile(filepath.Join(dir, entity+".csv"), []byte(content), 0o644)
	require.NoError(t, err)
}

func TestReadEntity(t *testing.T) {
	dir := t.TempDir()
	writeRawFile(t, dir, rawdata.EntityProducts,
		"product_id,created_at,product_name\n"+
			"1,2012-03-19 08:00:00,The Original Mr. Fuzzy\n"+
			"2,2013-01-06 13:00:00,The Forever Love Bear\n")

	rows, err := rawdata.ReadEntity(dir, rawdata.EntityProducts)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, rawdata.EntityProducts, rows[0].Entity)
	assert.Equal(t, 1, rows[0].Number)
	assert.Equal(t, "The Original Mr. Fuzzy", rows[0].Get("product_name"))
	assert.Equal(t, 2, rows[1].Number)
	assert.Equal(t, "2", rows[1].Get("product_id"))
	assert.True(t, rows[0].Has("created_at"))
	assert.False(t, rows[0].Has("price_usd"))
}

func TestReadEntityCollapsesNullSentinels(t *testing.T) {
	dir := t.TempDir()
	writeRawFile(t, dir, rawdata.EntitySessions,
		"website_session_id,utm_source,utm_campaign,http_referer\n"+
			`10,NULL,\N,   `+"\n")

	rows, err := rawdata.ReadEntity(dir, rawdata.EntitySessions)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	assert.Equal(t, "", rows[0].Get("utm_source"))
	assert.Equal(t, "", rows[0].Get("utm_campaign"))
	assert.Equal(t, "", rows[0].Get("http_referer"))
	assert.Equal(t, "10", rows[0].Get("website_session_id"))
}

func TestReadEntityStripsHeaderBOM(t *testing.T) {
	dir := t.TempDir()
	writeRawFile(t, dir, rawdata.EntityProducts,
		"\ufeffproduct_id,created_at,product_name\n"+
			"1,2012-03-19 08:00:00,The Original Mr. Fuzzy\n")

	rows, err := rawdata.ReadEntity(dir, rawdata.EntityProducts)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	assert.True(t, rows[0].Has("product_id"))
	assert.Equal(t, "1", rows[0].Get("product_id"))
}

func TestReadEntityMissingFile(t *testing.T) {
	_, err := rawdata.ReadEntity(t.TempDir(), rawdata.EntityOrders)
	require.Error(t, err)
	assert.NotErrorIs(t, err, rawdata.ErrMalformedInput)
}

func TestReadEntityEmptyFileIsMalformed(t *testing.T) {
	dir := t.TempDir()
	writeRawFile(t, dir, rawdata.EntityOrders, "")

	_, err := rawdata.ReadEntity(dir, rawdata.EntityOrders)
	assert.ErrorIs(t, err, rawdata.ErrMalformedInput)
}

func TestReadEntityRaggedRowIsMalformed(t *testing.T) {
	dir := t.TempDir()
	writeRawFile(t, dir, rawdata.EntityOrders,
		"order_id,created_at\n"+
			"1,2012-03-19 08:00:00,unexpected\n")

	_, err := rawdata.ReadEntity(dir, rawdata.EntityOrders)
	assert.ErrorIs(t, err, rawdata.ErrMalformedInput)
}

func TestReadEntityHeaderOnlyYieldsNoRows(t *testing.T) {
	dir := t.TempDir()
	writeRawFile(t, dir, rawdata.EntityRefunds, "order_item_refund_id,refund_amount_usd\n")

	rows, err := rawdata.ReadEntity(dir, rawdata.EntityRefunds)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func readSingleRow(t *testing.T, header, data string) rawdata.Row {
	t.Helper()
	dir := t.TempDir()
	writeRawFile(t, dir, rawdata.EntityOrders, header+"\n"+data+"\n")
	rows, err := rawdata.ReadEntity(dir, rawdata.EntityOrders)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	return rows[0]
}

func TestRowID(t *testing.T) {
	row := readSingleRow(t, "order_id,bad_id,zero_id", "42,abc,0")

	id, err := row.ID("order_id")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	_, err = row.ID("bad_id")
	assert.ErrorIs(t, err, rawdata.ErrMalformedInput)

	_, err = row.ID("zero_id")
	assert.ErrorIs(t, err, rawdata.ErrMalformedInput)

	_, err = row.ID("not_a_column")
	assert.ErrorIs(t, err, rawdata.ErrMalformedInput)
}

func TestRowOptionalID(t *testing.T) {
	row := readSingleRow(t, "website_session_id,missing_fk,bad_fk", `913,NULL,x7`)

	id, err := row.OptionalID("website_session_id")
	require.NoError(t, err)
	require.NotNil(t, id)
	assert.Equal(t, int64(913), *id)

	id, err = row.OptionalID("missing_fk")
	require.NoError(t, err)
	assert.Nil(t, id)

	_, err = row.OptionalID("bad_fk")
	assert.ErrorIs(t, err, rawdata.ErrMalformedInput)
}

func TestRowTime(t *testing.T) {
	row := readSingleRow(t, "created_at,sloppy", "2012-03-19 08:04:16,19/03/2012")

	ts, err := row.Time("created_at")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2012, 3, 19, 8, 4, 16, 0, time.UTC), ts)

	_, err = row.Time("sloppy")
	assert.ErrorIs(t, err, rawdata.ErrMalformedInput)

	_, err = row.Time("not_a_column")
	assert.ErrorIs(t, err, rawdata.ErrMalformedInput)
}

func TestRowMoney(t *testing.T) {
	row := readSingleRow(t, "price_usd,long_tail,negative,garbage", "49.99,104.056,-1.00,4x.00")

	price, err := row.Money("price_usd")
	require.NoError(t, err)
	assert.Equal(t, "49.99", price.StringFixed(2))

	coerced, err := row.Money("long_tail")
	require.NoError(t, err)
	assert.Equal(t, "104.06", coerced.StringFixed(2))

	_, err = row.Money("negative")
	assert.ErrorIs(t, err, rawdata.ErrMalformedInput)

	_, err = row.Money("garbage")
	assert.ErrorIs(t, err, rawdata.ErrMalformedInput)
}

func TestRowCountAndFlag(t *testing.T) {
	row := readSingleRow(t, "items_purchased,negative_count,is_repeat_session,odd_flag", "2,-3,1,yes")

	count, err := row.Count("items_purchased")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	_, err = row.Count("negative_count")
	assert.ErrorIs(t, err, rawdata.ErrMalformedInput)

	repeat, err := row.Flag("is_repeat_session")
	require.NoError(t, err)
	assert.True(t, repeat)

	_, err = row.Flag("odd_flag")
	assert.ErrorIs(t, err, rawdata.ErrMalformedInput)
}
