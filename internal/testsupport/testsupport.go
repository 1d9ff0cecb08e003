// Package testsupport provides the shared test database, a quiet test
// logger, and raw CSV fixtures for pipeline-level tests.
package testsupport

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"shopalytics/internal/catalog"
	"shopalytics/internal/config"
	"shopalytics/internal/pipeline"
	"shopalytics/internal/rawdata"
	"shopalytics/internal/reports"
	"shopalytics/internal/sales"
	"shopalytics/internal/traffic"
)

// testDBCache caches test databases by test name to allow multiple calls
// within the same test to share the same database
var testDBCache = make(map[string]*gorm.DB)
var testDBCacheMu sync.Mutex

// allModels returns all shopalytics models for migration
func allModels() []any {
	models := []any{
		&catalog.Product{},
		&traffic.Session{},
		&traffic.Pageview{},
		&sales.Order{},
		&sales.OrderItem{},
		&sales.Refund{},
		&pipeline.Run{},
	}
	return append(models, reports.Models()...)
}

// SetupTestDB creates a test database with all shopalytics models migrated.
// Uses a named in-memory database with cache=shared to allow multiple connections
// to share the same database within a test. Caches the database by test name
// so multiple calls within the same test return the same database.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	testName := t.Name()

	// Use root test name for caching to handle closure issues where
	// setup functions capture the outer t while t.Run has subtest t
	rootName := testName
	if idx := strings.Index(testName, "/"); idx > 0 {
		rootName = testName[:idx]
	}

	// Check cache first
	testDBCacheMu.Lock()
	if db, exists := testDBCache[rootName]; exists {
		testDBCacheMu.Unlock()
		return db
	}
	testDBCacheMu.Unlock()

	// Create a unique named in-memory database for each test
	// cache=shared allows multiple connections to the same database
	sanitizedName := strings.ReplaceAll(rootName, "/", "_")
	dsn := fmt.Sprintf("file:test_%s_%d?mode=memory&cache=shared", sanitizedName, time.Now().UnixNano())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("testsupport: failed to open test database: %v", err)
	}

	// Apply SQLite pragmas
	db.Exec("PRAGMA foreign_keys = ON")
	db.Exec("PRAGMA journal_mode = WAL")

	// Auto-migrate models
	if err := db.AutoMigrate(allModels()...); err != nil {
		t.Fatalf("testsupport: failed to migrate models: %v", err)
	}

	// Cache the database
	testDBCacheMu.Lock()
	testDBCache[rootName] = db
	testDBCacheMu.Unlock()

	// Register cleanup
	t.Cleanup(func() {
		testDBCacheMu.Lock()
		delete(testDBCache, rootName)
		testDBCacheMu.Unlock()
		sqlDB, err := db.DB()
		if err == nil {
			sqlDB.Close()
		}
	})

	return db
}

// GetLogger returns a test logger
func GetLogger() *slog.Logger {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError})
	return slog.New(handler)
}

// TestConfig returns a config for tests without reading the process
// environment.
func TestConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		AppName:              "shopalytics",
		Environment:          config.Test,
		LogLevel:             config.LogLevelError,
		DataDirectory:        t.TempDir(),
		DatabasePath:         t.TempDir(),
		LogsDirectory:        t.TempDir(),
		LogsMaxSizeInMb:      1,
		LogsMaxBackups:       1,
		LogsMaxAgeInDays:     1,
		DatabaseType:         config.SQLiteDatabase,
		RunStaleAfterMinutes: 60,
		SeedSessions:         50,
		SeedMonths:           3,
	}
}

// RawFixture maps raw entity names to complete CSV file contents.
type RawFixture map[string]string

// WriteRawFixture materializes a fixture as <entity>.csv files under dir.
func WriteRawFixture(t *testing.T, dir string, fixture RawFixture) {
	t.Helper()
	for entity, content := range fixture {
		err := os.WriteFile(filepath.Join(dir, entity+".csv"), []byte(content), 0o644)
		require.NoError(t, err)
	}
}

// DefaultRawFixture returns a small coherent raw dataset spanning March and
// April 2012: two products, three sessions with pageviews, two orders with
// their items, and one partial refund against the first order.
func DefaultRawFixture() RawFixture {
	return RawFixture{
		rawdata.EntityProducts: `product_id,created_at,product_name
1,2012-01-01 00:00:00,The Original Mr. Fuzzy
2,2012-02-01 00:00:00,The Forever Love Bear
`,
		rawdata.EntitySessions: `website_session_id,created_at,user_id,is_repeat_session,utm_source,utm_campaign,utm_content,device_type,http_referer
1,2012-03-05 10:00:00,101,0,gsearch,nonbrand,g_ad_1,desktop,https://www.gsearch.com
2,2012-03-10 11:00:00,102,0,,,,mobile,
3,2012-04-02 09:30:00,101,1,,,,desktop,https://www.gsearch.com
`,
		rawdata.EntityPageviews: `website_pageview_id,created_at,website_session_id,pageview_url
1,2012-03-05 10:00:00,1,/home
2,2012-03-05 10:05:00,1,/products
3,2012-03-05 10:10:00,1,/cart
4,2012-03-10 11:00:00,2,/home
5,2012-04-02 09:30:00,3,/lander-1
6,2012-04-02 09:40:00,3,/products
`,
		rawdata.EntityOrders: `order_id,created_at,website_session_id,user_id,primary_product_id,items_purchased,price_usd,cogs_usd
1,2012-03-05 10:20:00,1,101,1,1,49.99,19.49
2,2012-04-02 09:50:00,3,101,1,2,99.98,38.98
`,
		rawdata.EntityOrderItems: `order_item_id,created_at,order_id,product_id,is_primary_item,price_usd,cogs_usd
1,2012-03-05 10:20:00,1,1,1,49.99,19.49
2,2012-04-02 09:50:00,2,1,1,49.99,19.49
3,2012-04-02 09:50:00,2,2,0,49.99,19.49
`,
		rawdata.EntityRefunds: `order_item_refund_id,created_at,order_item_id,order_id,refund_amount_usd
1,2012-03-20 08:00:00,1,1,10.00
`,
	}
}

// WriteDefaultRawData writes the default fixture into a fresh temp dir and
// returns the dir.
func WriteDefaultRawData(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	WriteRawFixture(t, dir, DefaultRawFixture())
	return dir
}
