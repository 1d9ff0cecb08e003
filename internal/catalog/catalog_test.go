package catalog_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopalytics/internal/catalog"
	"shopalytics/internal/rawdata"
)

func writeProducts(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	err := os.WriteFile(filepath.Join(dir, "products.csv"), []byte(content), 0o644)
	require.NoError(t, err)
	return dir
}

func TestLoadProducts(t *testing.T) {
	dir := writeProducts(t,
		"product_id,created_at,product_name\n"+
			"1,2012-03-19 08:00:00,The Original Mr. Fuzzy\n"+
			"2,2013-01-06 13:00:00,The Forever Love Bear\n")

	products, err := catalog.LoadProducts(dir)
	require.NoError(t, err)

	assert.Equal(t, []catalog.Product{
		{ID: 1, CreatedAt: time.Date(2012, 3, 19, 8, 0, 0, 0, time.UTC), Name: "The Original Mr. Fuzzy"},
		{ID: 2, CreatedAt: time.Date(2013, 1, 6, 13, 0, 0, 0, time.UTC), Name: "The Forever Love Bear"},
	}, products)
}

func TestLoadProductsAbortsOnMissingName(t *testing.T) {
	dir := writeProducts(t,
		"product_id,created_at,product_name\n"+
			"1,2012-03-19 08:00:00,The Original Mr. Fuzzy\n"+
			"2,2013-01-06 13:00:00,NULL\n")

	_, err := catalog.LoadProducts(dir)
	assert.ErrorIs(t, err, rawdata.ErrMalformedInput)
}

func TestLoadProductsAbortsOnBadDate(t *testing.T) {
	dir := writeProducts(t,
		"product_id,created_at,product_name\n"+
			"1,03/19/2012,The Original Mr. Fuzzy\n")

	_, err := catalog.LoadProducts(dir)
	assert.ErrorIs(t, err, rawdata.ErrMalformedInput)
}

func TestNamesByID(t *testing.T) {
	products := []catalog.Product{
		{ID: 1, Name: "The Original Mr. Fuzzy"},
		{ID: 4, Name: "The Hudson River Mini Bear"},
	}

	names := catalog.NamesByID(products)
	assert.Equal(t, map[int64]string{1: "The Original Mr. Fuzzy", 4: "The Hudson River Mini Bear"}, names)
}
