// Package seeder generates a synthetic raw dataset as the six entity CSV
// files the pipeline consumes, with coherent journeys: sessions carry
// classified-looking marketing fields, pageviews walk the funnel URLs, and
// a share of journeys convert into orders, items and refunds.
package seeder

import (
	"context"
	"encoding/csv"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"log/slog"

	"github.com/shopspring/decimal"

	"shopalytics/internal/rawdata"
)

// datasetEnd anchors the generated period so it always overlaps the
// configured billing test window.
var datasetEnd = time.Date(2012, time.December, 1, 0, 0, 0, 0, time.UTC)

// Seeder handles the raw dataset generation process.
type Seeder struct {
	Logger   *slog.Logger
	Sessions int
	Months   int
}

// NewSeeder creates a new seeder instance
func NewSeeder(logger *slog.Logger, sessions, months int) *Seeder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Seeder{
		Logger:   logger,
		Sessions: sessions,
		Months:   months,
	}
}

// catalogProduct is one seeded product with its fixed unit economics.
type catalogProduct struct {
	id        int64
	name      string
	launched  time.Time
	price     decimal.Decimal
	cogs      decimal.Decimal
	pagePath  string
	primaryWt int
}

func seedProducts() []catalogProduct {
	return []catalogProduct{
		{1, "The Original Mr. Fuzzy", time.Date(2011, time.December, 1, 0, 0, 0, 0, time.UTC), dec("49.99"), dec("19.49"), "/the-original-mr-fuzzy", 5},
		{2, "The Forever Love Bear", time.Date(2012, time.January, 6, 0, 0, 0, 0, time.UTC), dec("59.99"), dec("23.49"), "/the-forever-love-bear", 2},
		{3, "The Birthday Sugar Panda", time.Date(2012, time.February, 5, 0, 0, 0, 0, time.UTC), dec("64.99"), dec("27.49"), "/the-birthday-sugar-panda", 2},
		{4, "The Hudson River Mini bear", time.Date(2012, time.March, 10, 0, 0, 0, 0, time.UTC), dec("29.99"), dec("12.49"), "/the-hudson-river-mini-bear", 1},
	}
}

func dec(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

// trafficProfile couples the raw marketing fields a seeded session carries.
type trafficProfile struct {
	weight    int
	utmSource string
	campaign  string
	contents  []string
	referer   string
	landers   []string
}

func trafficProfiles() []trafficProfile {
	return []trafficProfile{
		{weight: 30, utmSource: "gsearch", campaign: "nonbrand", contents: []string{"g_ad_1", "g_ad_2"}, referer: "https://www.gsearch.com", landers: []string{"/lander-1", "/lander-2", "/home"}},
		{weight: 8, utmSource: "gsearch", campaign: "brand", contents: []string{"g_ad_1"}, referer: "https://www.gsearch.com", landers: []string{"/home"}},
		{weight: 12, utmSource: "bsearch", campaign: "nonbrand", contents: []string{"b_ad_1", "b_ad_2"}, referer: "https://www.bsearch.com", landers: []string{"/lander-3", "/home"}},
		{weight: 6, utmSource: "socialbook", campaign: "desktop_targeted", contents: []string{"social_ad_1", "social_ad_2", "n/a"}, referer: "https://www.socialbook.com", landers: []string{"/lander-4", "/lander-5"}},
		{weight: 14, utmSource: "", campaign: "", contents: []string{""}, referer: "https://www.gsearch.com", landers: []string{"/home"}},
		{weight: 5, utmSource: "", campaign: "", contents: []string{""}, referer: "https://www.bsearch.com", landers: []string{"/home"}},
		{weight: 25, utmSource: "", campaign: "", contents: []string{""}, referer: "", landers: []string{"/home"}},
	}
}

func pickProfile(profiles []trafficProfile) trafficProfile {
	total := 0
	for _, profile := range profiles {
		total += profile.weight
	}
	n := rand.Intn(total)
	for _, profile := range profiles {
		n -= profile.weight
		if n < 0 {
			return profile
		}
	}
	return profiles[len(profiles)-1]
}

// journey depths, weighted. Each step deepens the funnel; reaching the
// confirmation page is what converts a session into an order.
const (
	journeyBounce = iota
	journeyBrowse
	journeyDetail
	journeyCart
	journeyShipping
	journeyBilling
	journeyPurchase
)

func pickJourney() int {
	n := rand.Intn(100)
	switch {
	case n < 35:
		return journeyBounce
	case n < 55:
		return journeyBrowse
	case n < 70:
		return journeyDetail
	case n < 80:
		return journeyCart
	case n < 86:
		return journeyShipping
	case n < 92:
		return journeyBilling
	default:
		return journeyPurchase
	}
}

// Run generates the dataset and writes the six CSV files under dir.
func (s *Seeder) Run(ctx context.Context, dir string) error {
	start := time.Now()
	s.Logger.Info("Starting raw dataset generation...",
		slog.Int("sessions", s.Sessions),
		slog.Int("months", s.Months),
		slog.String("dir", dir))

	if s.Sessions <= 0 || s.Months <= 0 {
		return fmt.Errorf("seeder: sessions and months must be positive (%d, %d)", s.Sessions, s.Months)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("seeder: create output dir: %w", err)
	}

	products := seedProducts()
	profiles := trafficProfiles()
	periodStart := datasetEnd.AddDate(0, -s.Months, 0)

	var (
		sessionRows  [][]string
		pageviewRows [][]string
		orderRows    [][]string
		itemRows     [][]string
		refundRows   [][]string
	)

	var (
		sessionID  int64
		pageviewID int64
		orderID    int64
		itemID     int64
		refundID   int64
		nextUserID int64 = 1000
	)
	var userPool []int64

	perMonth := s.Sessions / s.Months
	for month := 0; month < s.Months; month++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		monthStart := periodStart.AddDate(0, month, 0)
		monthSeconds := int(monthStart.AddDate(0, 1, 0).Sub(monthStart) / time.Second)

		count := perMonth
		if month == s.Months-1 {
			count = s.Sessions - perMonth*(s.Months-1)
		}

		for i := 0; i < count; i++ {
			sessionID++
			startedAt := monthStart.Add(time.Duration(rand.Intn(monthSeconds)) * time.Second)

			// Returning visitors reuse a previously seen user id.
			userID := nextUserID
			isRepeat := "0"
			if len(userPool) > 0 && rand.Intn(4) == 0 {
				userID = userPool[rand.Intn(len(userPool))]
				isRepeat = "1"
			} else {
				nextUserID++
				userPool = append(userPool, userID)
			}

			profile := pickProfile(profiles)
			device := "desktop"
			if rand.Intn(10) < 4 {
				device = "mobile"
			}

			sessionRows = append(sessionRows, []string{
				strconv.FormatInt(sessionID, 10),
				startedAt.Format(rawdata.DatetimeLayout),
				strconv.FormatInt(userID, 10),
				isRepeat,
				profile.utmSource,
				profile.campaign,
				profile.contents[rand.Intn(len(profile.contents))],
				device,
				profile.referer,
			})

			// Walk the journey, one pageview per funnel step reached.
			journey := pickJourney()
			product := pickPrimary(products)
			urls := []string{profile.landers[rand.Intn(len(profile.landers))]}
			if journey >= journeyBrowse {
				urls = append(urls, "/products")
			}
			if journey >= journeyDetail {
				urls = append(urls, product.pagePath)
			}
			if journey >= journeyCart {
				urls = append(urls, "/cart")
			}
			if journey >= journeyShipping {
				urls = append(urls, "/shipping")
			}
			if journey >= journeyBilling {
				urls = append(urls, billingPage(startedAt))
			}
			if journey >= journeyPurchase {
				urls = append(urls, "/thank-you-for-your-order")
			}

			viewedAt := startedAt
			for step, url := range urls {
				if step > 0 {
					viewedAt = viewedAt.Add(time.Duration(rand.Intn(110)+10) * time.Second)
				}
				pageviewID++
				pageviewRows = append(pageviewRows, []string{
					strconv.FormatInt(pageviewID, 10),
					viewedAt.Format(rawdata.DatetimeLayout),
					strconv.FormatInt(sessionID, 10),
					url,
				})
			}

			if journey < journeyPurchase {
				continue
			}

			// Purchase: the primary item, with an occasional cross-sell.
			orderID++
			orderedAt := viewedAt.Add(time.Duration(rand.Intn(50)+10) * time.Second)
			price := product.price
			cogs := product.cogs
			items := int64(1)

			itemID++
			itemRows = append(itemRows, itemRow(itemID, orderedAt, orderID, product, true))
			refundID, refundRows = maybeRefund(refundID, refundRows, itemID, orderID, orderedAt, product)

			if rand.Intn(5) == 0 {
				second := products[rand.Intn(len(products))]
				itemID++
				itemRows = append(itemRows, itemRow(itemID, orderedAt, orderID, second, false))
				refundID, refundRows = maybeRefund(refundID, refundRows, itemID, orderID, orderedAt, second)
				price = price.Add(second.price)
				cogs = cogs.Add(second.cogs)
				items = 2
			}

			// A small share of orders arrive without a session reference.
			sessionField := strconv.FormatInt(sessionID, 10)
			if rand.Intn(50) == 0 {
				sessionField = ""
			}

			orderRows = append(orderRows, []string{
				strconv.FormatInt(orderID, 10),
				orderedAt.Format(rawdata.DatetimeLayout),
				sessionField,
				strconv.FormatInt(userID, 10),
				strconv.FormatInt(product.id, 10),
				strconv.FormatInt(items, 10),
				price.StringFixed(2),
				cogs.StringFixed(2),
			})
		}
	}

	productRows := make([][]string, 0, len(products))
	for _, product := range products {
		productRows = append(productRows, []string{
			strconv.FormatInt(product.id, 10),
			product.launched.Format(rawdata.DatetimeLayout),
			product.name,
		})
	}

	files := []struct {
		entity string
		header []string
		rows   [][]string
	}{
		{rawdata.EntityProducts, []string{"product_id", "created_at", "product_name"}, productRows},
		{rawdata.EntitySessions, []string{"website_session_id", "created_at", "user_id", "is_repeat_session", "utm_source", "utm_campaign", "utm_content", "device_type", "http_referer"}, sessionRows},
		{rawdata.EntityPageviews, []string{"website_pageview_id", "created_at", "website_session_id", "pageview_url"}, pageviewRows},
		{rawdata.EntityOrders, []string{"order_id", "created_at", "website_session_id", "user_id", "primary_product_id", "items_purchased", "price_usd", "cogs_usd"}, orderRows},
		{rawdata.EntityOrderItems, []string{"order_item_id", "created_at", "order_id", "product_id", "is_primary_item", "price_usd", "cogs_usd"}, itemRows},
		{rawdata.EntityRefunds, []string{"order_item_refund_id", "created_at", "order_item_id", "order_id", "refund_amount_usd"}, refundRows},
	}
	for _, file := range files {
		if err := writeCSV(dir, file.entity, file.header, file.rows); err != nil {
			return err
		}
	}

	s.Logger.Info("Raw dataset generated",
		slog.Int("sessions", len(sessionRows)),
		slog.Int("pageviews", len(pageviewRows)),
		slog.Int("orders", len(orderRows)),
		slog.Int("order_items", len(itemRows)),
		slog.Int("refunds", len(refundRows)),
		slog.Duration("elapsed", time.Since(start)))
	return nil
}

func pickPrimary(products []catalogProduct) catalogProduct {
	total := 0
	for _, product := range products {
		total += product.primaryWt
	}
	n := rand.Intn(total)
	for _, product := range products {
		n -= product.primaryWt
		if n < 0 {
			return product
		}
	}
	return products[0]
}

// billingPage splits billing traffic across the two variants inside the
// test window; outside it, everyone sees the original page.
func billingPage(at time.Time) string {
	windowFrom := time.Date(2012, time.September, 10, 0, 0, 0, 0, time.UTC)
	windowTo := time.Date(2012, time.November, 10, 0, 0, 0, 0, time.UTC)
	if !at.Before(windowFrom) && at.Before(windowTo) && rand.Intn(2) == 0 {
		return "/billing-2"
	}
	return "/billing"
}

func itemRow(id int64, at time.Time, orderID int64, product catalogProduct, primary bool) []string {
	primaryFlag := "0"
	if primary {
		primaryFlag = "1"
	}
	return []string{
		strconv.FormatInt(id, 10),
		at.Format(rawdata.DatetimeLayout),
		strconv.FormatInt(orderID, 10),
		strconv.FormatInt(product.id, 10),
		primaryFlag,
		product.price.StringFixed(2),
		product.cogs.StringFixed(2),
	}
}

// maybeRefund refunds about six percent of items in full, a few days after
// the purchase.
func maybeRefund(refundID int64, rows [][]string, itemID, orderID int64, orderedAt time.Time, product catalogProduct) (int64, [][]string) {
	if rand.Intn(100) >= 6 {
		return refundID, rows
	}
	refundID++
	refundedAt := orderedAt.AddDate(0, 0, rand.Intn(15)+3)
	rows = append(rows, []string{
		strconv.FormatInt(refundID, 10),
		refundedAt.Format(rawdata.DatetimeLayout),
		strconv.FormatInt(itemID, 10),
		strconv.FormatInt(orderID, 10),
		product.price.StringFixed(2),
	})
	return refundID, rows
}

func writeCSV(dir, entity string, header []string, rows [][]string) error {
	path := filepath.Join(dir, entity+".csv")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("seeder: create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("seeder: write %s header: %w", entity, err)
	}
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("seeder: write %s rows: %w", entity, err)
	}
	return nil
}
