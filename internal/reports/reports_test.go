package reports_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopalytics/internal/reports"
)

func TestRegistryOrder(t *testing.T) {
	builders := reports.Registry()
	require.Len(t, builders, 9)

	names := make([]string, len(builders))
	for i, builder := range builders {
		names[i] = builder.Name
		assert.NotNil(t, builder.Model, "%s model", builder.Name)
		assert.NotNil(t, builder.Write, "%s write", builder.Name)
	}

	assert.Equal(t, []string{
		reports.MartSalesSummary,
		reports.MartCustomerSegmentation,
		reports.MartProductPerformance,
		reports.MartMarketingOverview,
		reports.MartTrafficTrend,
		reports.MartSeasonality,
		reports.MartConversionFunnel,
		reports.MartLandingPageTrend,
		reports.MartABTestResult,
	}, names)
}

func TestFind(t *testing.T) {
	builder, ok := reports.Find(reports.MartSalesSummary)
	require.True(t, ok)
	assert.Equal(t, reports.MartSalesSummary, builder.Name)

	_, ok = reports.Find("nonexistent")
	assert.False(t, ok)
}

func TestModels(t *testing.T) {
	assert.Len(t, reports.Models(), 9)
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Sales Summary", reports.DisplayName(reports.MartSalesSummary))
	assert.Equal(t, "Landing Page Trend", reports.DisplayName(reports.MartLandingPageTrend))
	assert.Equal(t, "A/B Test Result", reports.DisplayName(reports.MartABTestResult))
}
