// Package funnel maps each session's pageviews onto the configured funnel:
// one boolean flag per stage, landing-page attribution restricted to the
// entry URL set, step-through rates, and the time-boxed billing variant
// bucketing. Stage definitions live in an embedded YAML document, so the
// funnel shape is data, not code.
package funnel

import (
	"github.com/shopspring/decimal"

	"shopalytics/internal/aggregate"
	"shopalytics/internal/traffic"
)

// Flags computes one boolean per configured stage for a session's
// pageviews. Flags are independent: a session can reach cart without
// shipping. Monotonicity is an aggregate assumption, not a per-session one.
func (c *Config) Flags(pageviews []traffic.Pageview) []bool {
	flags := make([]bool, len(c.stages))
	for i, stage := range c.stages {
		for _, pageview := range pageviews {
			if stage.Matches(pageview.URL) {
				flags[i] = true
				break
			}
		}
	}
	return flags
}

// LandingPage resolves a session's landing page: the URL of its first
// entry-set pageview in chronological order (callers pass pageviews already
// ordered by time with id as tie-breaker, as traffic.BySession yields).
// ok is false when no pageview matches the entry set.
func (c *Config) LandingPage(orderedPageviews []traffic.Pageview) (string, bool) {
	for _, pageview := range orderedPageviews {
		if c.IsEntryURL(pageview.URL) {
			return pageview.URL, true
		}
	}
	return "", false
}

// BillingVariantSeen buckets a session by the first billing variant URL it
// hit inside the test window. ok is false for sessions that saw neither
// variant in the window.
func (c *Config) BillingVariantSeen(orderedPageviews []traffic.Pageview) (string, bool) {
	for _, pageview := range orderedPageviews {
		if !c.InTestWindow(pageview.CreatedAt) {
			continue
		}
		if pageview.URL == c.abControl || pageview.URL == c.abVariant {
			return pageview.URL, true
		}
	}
	return "", false
}

// StepCounts sums, per stage, how many flag sets have that stage reached.
// Every flag set must come from Flags on the same Config.
func (c *Config) StepCounts(flagSets [][]bool) []int64 {
	counts := make([]int64, len(c.stages))
	for _, flags := range flagSets {
		for i := range counts {
			if i < len(flags) && flags[i] {
				counts[i]++
			}
		}
	}
	return counts
}

// StepRates derives the click-through rate per step from per-stage session
// counts: rate N = count N / count N-1 x 100. The first stage has no
// predecessor, so its rate is undefined; so is any step whose predecessor
// count is zero.
func StepRates(counts []int64) []decimal.NullDecimal {
	rates := make([]decimal.NullDecimal, len(counts))
	for i := range counts {
		if i == 0 {
			rates[i] = aggregate.Undefined()
			continue
		}
		rates[i] = aggregate.PercentOfCounts(counts[i], counts[i-1])
	}
	return rates
}
