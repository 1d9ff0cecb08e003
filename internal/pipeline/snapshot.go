package pipeline

import (
	"fmt"
	"strings"

	"gorm.io/gorm"

	"shopalytics/internal/catalog"
	"shopalytics/internal/funnel"
	"shopalytics/internal/rawdata"
	"shopalytics/internal/reports"
	"shopalytics/internal/sales"
	"shopalytics/internal/traffic"
)

const insertBatchSize = 500

// Snapshot is the fully-typed relational image of one raw dataset.
type Snapshot struct {
	Products  []catalog.Product
	Sessions  []traffic.Session
	Pageviews []traffic.Pageview
	Orders    []sales.Order
	Items     []sales.OrderItem
	Refunds   []sales.Refund
}

// LoadSnapshot normalizes every raw entity file under dir. The first
// malformed row aborts the load; a snapshot is either complete or absent.
func LoadSnapshot(dir string) (*Snapshot, error) {
	products, err := catalog.LoadProducts(dir)
	if err != nil {
		return nil, err
	}
	sessions, err := traffic.LoadSessions(dir)
	if err != nil {
		return nil, err
	}
	pageviews, err := traffic.LoadPageviews(dir)
	if err != nil {
		return nil, err
	}
	orders, err := sales.LoadOrders(dir)
	if err != nil {
		return nil, err
	}
	items, err := sales.LoadOrderItems(dir)
	if err != nil {
		return nil, err
	}
	refunds, err := sales.LoadRefunds(dir)
	if err != nil {
		return nil, err
	}

	return &Snapshot{
		Products:  products,
		Sessions:  sessions,
		Pageviews: pageviews,
		Orders:    orders,
		Items:     items,
		Refunds:   refunds,
	}, nil
}

// Dataset indexes the snapshot for mart building with the embedded funnel
// configuration.
func (s *Snapshot) Dataset() (*reports.Dataset, error) {
	cfg, err := funnel.Default()
	if err != nil {
		return nil, err
	}
	return reports.NewDataset(s.Products, s.Sessions, s.Pageviews, s.Orders, s.Items, s.Refunds, cfg)
}

// entityTables lists the snapshot tables in write order. Table names match
// the raw entity file names.
func entityTables() []string {
	return []string{
		rawdata.EntityProducts,
		rawdata.EntitySessions,
		rawdata.EntityPageviews,
		rawdata.EntityOrders,
		rawdata.EntityOrderItems,
		rawdata.EntityRefunds,
	}
}

// clearTables empties the given tables and resets their autoincrement
// counters inside the caller's transaction.
func clearTables(tx *gorm.DB, tables []string) error {
	for _, table := range tables {
		if err := tx.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
		// sqlite_sequence only exists once an AUTOINCREMENT table has
		// been written to, so a missing table is not an error here.
		if err := tx.Exec("DELETE FROM sqlite_sequence WHERE name = ?", table).Error; err != nil {
			if !strings.Contains(err.Error(), "no such table") {
				return fmt.Errorf("reset sequence for %s: %w", table, err)
			}
		}
	}
	return nil
}

// persistSnapshot writes all six entity tables inside the caller's
// transaction. Tables must already be empty.
func persistSnapshot(tx *gorm.DB, snap *Snapshot) error {
	if len(snap.Products) > 0 {
		if err := tx.CreateInBatches(snap.Products, insertBatchSize).Error; err != nil {
			return fmt.Errorf("persist products: %w", err)
		}
	}
	if len(snap.Sessions) > 0 {
		if err := tx.CreateInBatches(snap.Sessions, insertBatchSize).Error; err != nil {
			return fmt.Errorf("persist sessions: %w", err)
		}
	}
	if len(snap.Pageviews) > 0 {
		if err := tx.CreateInBatches(snap.Pageviews, insertBatchSize).Error; err != nil {
			return fmt.Errorf("persist pageviews: %w", err)
		}
	}
	if len(snap.Orders) > 0 {
		if err := tx.CreateInBatches(snap.Orders, insertBatchSize).Error; err != nil {
			return fmt.Errorf("persist orders: %w", err)
		}
	}
	if len(snap.Items) > 0 {
		if err := tx.CreateInBatches(snap.Items, insertBatchSize).Error; err != nil {
			return fmt.Errorf("persist order items: %w", err)
		}
	}
	if len(snap.Refunds) > 0 {
		if err := tx.CreateInBatches(snap.Refunds, insertBatchSize).Error; err != nil {
			return fmt.Errorf("persist refunds: %w", err)
		}
	}
	return nil
}
