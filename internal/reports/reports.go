// Package reports builds the nine analytical marts out of a normalized
// relational snapshot. Every mart is recomputed from scratch on each run
// and written as a full replacement, so building twice over the same
// snapshot yields identical rows.
//
// The package is organized into focused modules:
//   - reports.go: mart table models and the builder registry
//   - dataset.go: the snapshot wrapper with shared lookup indexes
//   - sales.go: monthly financial and growth KPIs
//   - segmentation.go: new versus repeat customer breakdown
//   - products.go: per-product revenue and profit shares
//   - marketing.go: source x campaign x ad content x device overview
//   - traffic.go: channel bucket session trends
//   - seasonality.go: day-of-week order patterns
//   - funnel.go: funnel step counts and click-through rates
//   - landing.go: landing page performance trends
//   - abtest.go: billing variant comparison
package reports

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"
)

// Mart table names, in build order.
const (
	MartSalesSummary         = "sales_summary"
	MartCustomerSegmentation = "customer_segmentation"
	MartProductPerformance   = "product_performance"
	MartMarketingOverview    = "marketing_overview"
	MartTrafficTrend         = "traffic_trend"
	MartSeasonality          = "seasonality"
	MartConversionFunnel     = "conversion_funnel"
	MartLandingPageTrend     = "landing_page_trend"
	MartABTestResult         = "ab_test_result"
)

// Customer segments for the segmentation mart.
const (
	SegmentNew    = "new"
	SegmentRepeat = "repeat"
)

// Variant roles for the A/B test mart.
const (
	RoleControl = "control"
	RoleVariant = "variant"
)

const insertBatchSize = 500

// ===== Mart Table Definitions =====

// SalesSummary holds one row per month with the financial KPIs, their
// month-over-month growth, and the windowed net revenue series.
type SalesSummary struct {
	ID                    uint                `gorm:"primaryKey;autoIncrement"`
	Month                 time.Time           `gorm:"uniqueIndex;type:datetime;not null"`
	TotalSessions         int64               `gorm:"not null;default:0"`
	TotalOrders           int64               `gorm:"not null;default:0"`
	GrossRevenue          decimal.Decimal     `gorm:"type:decimal(12,2);not null"`
	TotalRefunds          decimal.Decimal     `gorm:"type:decimal(12,2);not null"`
	NetRevenue            decimal.Decimal     `gorm:"type:decimal(12,2);not null"`
	GrossProfit           decimal.Decimal     `gorm:"type:decimal(12,2);not null"`
	NetProfit             decimal.Decimal     `gorm:"type:decimal(12,2);not null"`
	ConversionRate        decimal.NullDecimal `gorm:"type:decimal(8,2)"`
	AverageOrderValue     decimal.NullDecimal `gorm:"type:decimal(10,2)"`
	RevenuePerSession     decimal.NullDecimal `gorm:"type:decimal(10,2)"`
	RefundRatePct         decimal.NullDecimal `gorm:"type:decimal(8,2)"`
	NetMarginPct          decimal.NullDecimal `gorm:"type:decimal(8,2)"`
	RunningNetRevenue     decimal.Decimal     `gorm:"type:decimal(14,2);not null"`
	NetRevenueTrailingAvg decimal.Decimal     `gorm:"type:decimal(12,2);not null"`
	RevenueGrowthPct      decimal.NullDecimal `gorm:"type:decimal(8,2)"`
	OrderGrowthPct        decimal.NullDecimal `gorm:"type:decimal(8,2)"`
	CreatedAt             time.Time
}

// TableName specifies the table name for GORM
func (SalesSummary) TableName() string {
	return MartSalesSummary
}

// CustomerSegmentation splits each month between new and repeat sessions.
type CustomerSegmentation struct {
	ID                uint                `gorm:"primaryKey;autoIncrement"`
	Month             time.Time           `gorm:"uniqueIndex:idx_segmentation_unique;type:datetime;not null"`
	Segment           string              `gorm:"uniqueIndex:idx_segmentation_unique;not null"`
	Sessions          int64               `gorm:"not null;default:0"`
	Orders            int64               `gorm:"not null;default:0"`
	GrossRevenue      decimal.Decimal     `gorm:"type:decimal(12,2);not null"`
	NetRevenue        decimal.Decimal     `gorm:"type:decimal(12,2);not null"`
	ConversionRate    decimal.NullDecimal `gorm:"type:decimal(8,2)"`
	RevenuePerSession decimal.NullDecimal `gorm:"type:decimal(10,2)"`
	SessionSharePct   decimal.NullDecimal `gorm:"type:decimal(8,2)"`
	CreatedAt         time.Time
}

func (CustomerSegmentation) TableName() string {
	return MartCustomerSegmentation
}

// ProductPerformance holds per-product monthly economics, including each
// product's share of the month's net revenue and net profit.
type ProductPerformance struct {
	ID              uint                `gorm:"primaryKey;autoIncrement"`
	Month           time.Time           `gorm:"uniqueIndex:idx_product_perf_unique;type:datetime;not null"`
	ProductID       int64               `gorm:"uniqueIndex:idx_product_perf_unique;not null"`
	ProductName     string              `gorm:"not null"`
	Orders          int64               `gorm:"not null;default:0"`
	ItemsSold       int64               `gorm:"not null;default:0"`
	GrossRevenue    decimal.Decimal     `gorm:"type:decimal(12,2);not null"`
	GrossProfit     decimal.Decimal     `gorm:"type:decimal(12,2);not null"`
	TotalRefunds    decimal.Decimal     `gorm:"type:decimal(12,2);not null"`
	NetRevenue      decimal.Decimal     `gorm:"type:decimal(12,2);not null"`
	NetProfit       decimal.Decimal     `gorm:"type:decimal(12,2);not null"`
	RefundRatePct   decimal.NullDecimal `gorm:"type:decimal(8,2)"`
	RevenueSharePct decimal.NullDecimal `gorm:"type:decimal(8,2)"`
	ProfitSharePct  decimal.NullDecimal `gorm:"type:decimal(8,2)"`
	CreatedAt       time.Time
}

func (ProductPerformance) TableName() string {
	return MartProductPerformance
}

// MarketingOverview crosses month with the four session-level marketing
// dimensions.
type MarketingOverview struct {
	ID                uint                `gorm:"primaryKey;autoIncrement"`
	Month             time.Time           `gorm:"uniqueIndex:idx_marketing_unique;type:datetime;not null"`
	Source            string              `gorm:"uniqueIndex:idx_marketing_unique;not null"`
	Campaign          string              `gorm:"uniqueIndex:idx_marketing_unique;not null"`
	AdContent         string              `gorm:"uniqueIndex:idx_marketing_unique;not null"`
	DeviceType        string              `gorm:"uniqueIndex:idx_marketing_unique;not null"`
	Sessions          int64               `gorm:"not null;default:0"`
	Orders            int64               `gorm:"not null;default:0"`
	GrossRevenue      decimal.Decimal     `gorm:"type:decimal(12,2);not null"`
	NetRevenue        decimal.Decimal     `gorm:"type:decimal(12,2);not null"`
	ConversionRate    decimal.NullDecimal `gorm:"type:decimal(8,2)"`
	RevenuePerSession decimal.NullDecimal `gorm:"type:decimal(10,2)"`
	CreatedAt         time.Time
}

func (MarketingOverview) TableName() string {
	return MartMarketingOverview
}

// TrafficTrend holds monthly session volume per channel group together
// with the coarse paid/organic/direct/other bucket and the channel's share
// of the month's sessions.
type TrafficTrend struct {
	ID              uint                `gorm:"primaryKey;autoIncrement"`
	Month           time.Time           `gorm:"uniqueIndex:idx_traffic_trend_unique;type:datetime;not null"`
	ChannelGroup    string              `gorm:"uniqueIndex:idx_traffic_trend_unique;not null"`
	Bucket          string              `gorm:"index;not null"`
	Sessions        int64               `gorm:"not null;default:0"`
	Orders          int64               `gorm:"not null;default:0"`
	ConversionRate  decimal.NullDecimal `gorm:"type:decimal(8,2)"`
	SessionSharePct decimal.NullDecimal `gorm:"type:decimal(8,2)"`
	CreatedAt       time.Time
}

func (TrafficTrend) TableName() string {
	return MartTrafficTrend
}

// Seasonality crosses month with day-of-week and traffic source, carrying
// order volume and average order value.
type Seasonality struct {
	ID                uint                `gorm:"primaryKey;autoIncrement"`
	Month             time.Time           `gorm:"uniqueIndex:idx_seasonality_unique;type:datetime;not null"`
	Weekday           int                 `gorm:"uniqueIndex:idx_seasonality_unique;not null"`
	WeekdayName       string              `gorm:"not null"`
	Source            string              `gorm:"uniqueIndex:idx_seasonality_unique;not null"`
	Orders            int64               `gorm:"not null;default:0"`
	GrossRevenue      decimal.Decimal     `gorm:"type:decimal(12,2);not null"`
	AverageOrderValue decimal.NullDecimal `gorm:"type:decimal(10,2)"`
	CreatedAt         time.Time
}

func (Seasonality) TableName() string {
	return MartSeasonality
}

// ConversionFunnel holds one row per month and funnel stage with the
// session count that reached the stage and the click-through rate from the
// preceding stage.
type ConversionFunnel struct {
	ID              uint                `gorm:"primaryKey;autoIncrement"`
	Month           time.Time           `gorm:"uniqueIndex:idx_funnel_unique;type:datetime;not null"`
	StageIndex      int                 `gorm:"uniqueIndex:idx_funnel_unique;not null"`
	Stage           string              `gorm:"not null"`
	Sessions        int64               `gorm:"not null;default:0"`
	ClickThroughPct decimal.NullDecimal `gorm:"type:decimal(8,2)"`
	DropOffPct      decimal.NullDecimal `gorm:"type:decimal(8,2)"`
	CreatedAt       time.Time
}

func (ConversionFunnel) TableName() string {
	return MartConversionFunnel
}

// LandingPageTrend holds monthly performance per landing page. Sessions
// that never hit an entry URL have no landing page and are not counted
// here.
type LandingPageTrend struct {
	ID                uint                `gorm:"primaryKey;autoIncrement"`
	Month             time.Time           `gorm:"uniqueIndex:idx_landing_unique;type:datetime;not null"`
	LandingPage       string              `gorm:"uniqueIndex:idx_landing_unique;not null"`
	Sessions          int64               `gorm:"not null;default:0"`
	Orders            int64               `gorm:"not null;default:0"`
	GrossRevenue      decimal.Decimal     `gorm:"type:decimal(12,2);not null"`
	NetRevenue        decimal.Decimal     `gorm:"type:decimal(12,2);not null"`
	ConversionRate    decimal.NullDecimal `gorm:"type:decimal(8,2)"`
	RevenuePerSession decimal.NullDecimal `gorm:"type:decimal(10,2)"`
	CreatedAt         time.Time
}

func (LandingPageTrend) TableName() string {
	return MartLandingPageTrend
}

// ABTestResult holds one row per billing variant over the test window. The
// lift columns are populated on the variant row only, relative to control.
type ABTestResult struct {
	ID                    uint                `gorm:"primaryKey;autoIncrement"`
	Variant               string              `gorm:"uniqueIndex;not null"`
	Role                  string              `gorm:"not null"`
	WindowFrom            time.Time           `gorm:"type:datetime;not null"`
	WindowTo              time.Time           `gorm:"type:datetime;not null"`
	Sessions              int64               `gorm:"not null;default:0"`
	Orders                int64               `gorm:"not null;default:0"`
	GrossRevenue          decimal.Decimal     `gorm:"type:decimal(12,2);not null"`
	ConversionRate        decimal.NullDecimal `gorm:"type:decimal(8,2)"`
	RevenuePerSession     decimal.NullDecimal `gorm:"type:decimal(10,2)"`
	ConversionRateLift    decimal.NullDecimal `gorm:"type:decimal(8,2)"`
	RevenuePerSessionLift decimal.NullDecimal `gorm:"type:decimal(10,2)"`
	CreatedAt             time.Time
}

func (ABTestResult) TableName() string {
	return MartABTestResult
}

// ===== Builder Registry =====

// Builder couples a mart's name, its table model, and the write step that
// materializes its rows inside the caller's transaction.
type Builder struct {
	Name  string
	Model any
	Write func(tx *gorm.DB, data *Dataset) (int64, error)
}

// writer adapts a pure build function into a batched insert step.
func writer[T any](build func(*Dataset) []T) func(*gorm.DB, *Dataset) (int64, error) {
	return func(tx *gorm.DB, data *Dataset) (int64, error) {
		rows := build(data)
		if len(rows) == 0 {
			return 0, nil
		}
		if err := tx.CreateInBatches(rows, insertBatchSize).Error; err != nil {
			return 0, err
		}
		return int64(len(rows)), nil
	}
}

// Registry returns the nine mart builders in build order.
func Registry() []Builder {
	return []Builder{
		{Name: MartSalesSummary, Model: &SalesSummary{}, Write: writer(BuildSalesSummary)},
		{Name: MartCustomerSegmentation, Model: &CustomerSegmentation{}, Write: writer(BuildCustomerSegmentation)},
		{Name: MartProductPerformance, Model: &ProductPerformance{}, Write: writer(BuildProductPerformance)},
		{Name: MartMarketingOverview, Model: &MarketingOverview{}, Write: writer(BuildMarketingOverview)},
		{Name: MartTrafficTrend, Model: &TrafficTrend{}, Write: writer(BuildTrafficTrend)},
		{Name: MartSeasonality, Model: &Seasonality{}, Write: writer(BuildSeasonality)},
		{Name: MartConversionFunnel, Model: &ConversionFunnel{}, Write: writer(BuildConversionFunnel)},
		{Name: MartLandingPageTrend, Model: &LandingPageTrend{}, Write: writer(BuildLandingPageTrend)},
		{Name: MartABTestResult, Model: &ABTestResult{}, Write: writer(BuildABTestResult)},
	}
}

// Find returns the builder registered under name.
func Find(name string) (Builder, bool) {
	for _, builder := range Registry() {
		if builder.Name == name {
			return builder, true
		}
	}
	return Builder{}, false
}

// Models lists the mart table models for migration.
func Models() []any {
	builders := Registry()
	models := make([]any, len(builders))
	for i, builder := range builders {
		models[i] = builder.Model
	}
	return models
}

var (
	displayCaser = cases.Title(language.English)

	displayOverrides = map[string]string{
		MartABTestResult: "A/B Test Result",
	}
)

// DisplayName returns the human-readable name of a mart for CLI listings.
func DisplayName(name string) string {
	if override, ok := displayOverrides[name]; ok {
		return override
	}
	return displayCaser.String(strings.ReplaceAll(name, "_", " "))
}
