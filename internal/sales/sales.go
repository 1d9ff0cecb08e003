// Package sales holds the order, order item and refund entities of the
// relational snapshot, plus the refund pre-aggregation every revenue metric
// joins through. Refunds are a one-to-many child of order items; summing
// them per order (or per item) before any join is what keeps net revenue
// from fanning out when an order has several refunded items.
package sales

import (
	"time"

	"github.com/shopspring/decimal"

	"shopalytics/internal/rawdata"
)

// Order is one purchase with its order-level money totals. SessionID is an
// optional link: raw data may reference a session the snapshot does not
// have, and some orders arrive with no session at all.
type Order struct {
	ID               int64           `gorm:"primaryKey"`
	CreatedAt        time.Time       `gorm:"index;type:datetime;not null"`
	SessionID        *int64          `gorm:"index"`
	UserID           int64           `gorm:"index;not null"`
	PrimaryProductID int64           `gorm:"index;not null"`
	ItemsPurchased   int64           `gorm:"not null"`
	Price            decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Cogs             decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	GrossProfit      decimal.Decimal `gorm:"type:decimal(10,2);not null"`
}

// OrderItem is one line of an order.
type OrderItem struct {
	ID        int64           `gorm:"primaryKey"`
	CreatedAt time.Time       `gorm:"type:datetime;not null"`
	OrderID   int64           `gorm:"index;not null"`
	ProductID int64           `gorm:"index;not null"`
	IsPrimary bool            `gorm:"not null"`
	Price     decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Cogs      decimal.Decimal `gorm:"type:decimal(10,2);not null"`
}

// Refund is one refund against an order item.
type Refund struct {
	ID          int64           `gorm:"primaryKey"`
	CreatedAt   time.Time       `gorm:"index;type:datetime;not null"`
	OrderItemID int64           `gorm:"index;not null"`
	OrderID     int64           `gorm:"index;not null"`
	Amount      decimal.Decimal `gorm:"type:decimal(10,2);not null"`
}

// TableName specifies the table name for GORM
func (Refund) TableName() string {
	return rawdata.EntityRefunds
}

// OrderFromRaw normalizes one raw order row. Gross profit is computed here,
// once, and never recomputed downstream.
func OrderFromRaw(row rawdata.Row) (Order, error) {
	id, err := row.ID("order_id")
	if err != nil {
		return Order{}, err
	}
	createdAt, err := row.Time("created_at")
	if err != nil {
		return Order{}, err
	}
	sessionID, err := row.OptionalID("website_session_id")
	if err != nil {
		return Order{}, err
	}
	userID, err := row.ID("user_id")
	if err != nil {
		return Order{}, err
	}
	primaryProductID, err := row.ID("primary_product_id")
	if err != nil {
		return Order{}, err
	}
	itemsPurchased, err := row.Count("items_purchased")
	if err != nil {
		return Order{}, err
	}
	price, err := row.Money("price_usd")
	if err != nil {
		return Order{}, err
	}
	cogs, err := row.Money("cogs_usd")
	if err != nil {
		return Order{}, err
	}

	return Order{
		ID:               id,
		CreatedAt:        createdAt,
		SessionID:        sessionID,
		UserID:           userID,
		PrimaryProductID: primaryProductID,
		ItemsPurchased:   itemsPurchased,
		Price:            price,
		Cogs:             cogs,
		GrossProfit:      price.Sub(cogs),
	}, nil
}

// OrderItemFromRaw normalizes one raw order item row.
func OrderItemFromRaw(row rawdata.Row) (OrderItem, error) {
	id, err := row.ID("order_item_id")
	if err != nil {
		return OrderItem{}, err
	}
	createdAt, err := row.Time("created_at")
	if err != nil {
		return OrderItem{}, err
	}
	orderID, err := row.ID("order_id")
	if err != nil {
		return OrderItem{}, err
	}
	productID, err := row.ID("product_id")
	if err != nil {
		return OrderItem{}, err
	}
	isPrimary, err := row.Flag("is_primary_item")
	if err != nil {
		return OrderItem{}, err
	}
	price, err := row.Money("price_usd")
	if err != nil {
		return OrderItem{}, err
	}
	cogs, err := row.Money("cogs_usd")
	if err != nil {
		return OrderItem{}, err
	}

	return OrderItem{
		ID:        id,
		CreatedAt: createdAt,
		OrderID:   orderID,
		ProductID: productID,
		IsPrimary: isPrimary,
		Price:     price,
		Cogs:      cogs,
	}, nil
}

// RefundFromRaw normalizes one raw refund row.
func RefundFromRaw(row rawdata.Row) (Refund, error) {
	id, err := row.ID("order_item_refund_id")
	if err != nil {
		return Refund{}, err
	}
	createdAt, err := row.Time("created_at")
	if err != nil {
		return Refund{}, err
	}
	orderItemID, err := row.ID("order_item_id")
	if err != nil {
		return Refund{}, err
	}
	orderID, err := row.ID("order_id")
	if err != nil {
		return Refund{}, err
	}
	amount, err := row.Money("refund_amount_usd")
	if err != nil {
		return Refund{}, err
	}

	return Refund{
		ID:          id,
		CreatedAt:   createdAt,
		OrderItemID: orderItemID,
		OrderID:     orderID,
		Amount:      amount,
	}, nil
}

// LoadOrders reads and normalizes the raw order file, failing on the first
// malformed row.
func LoadOrders(dir string) ([]Order, error) {
	rows, err := rawdata.ReadEntity(dir, rawdata.EntityOrders)
	if err != nil {
		return nil, err
	}

	orders := make([]Order, 0, len(rows))
	for _, row := range rows {
		order, err := OrderFromRaw(row)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, nil
}

// LoadOrderItems reads and normalizes the raw order item file, failing on
// the first malformed row.
func LoadOrderItems(dir string) ([]OrderItem, error) {
	rows, err := rawdata.ReadEntity(dir, rawdata.EntityOrderItems)
	if err != nil {
		return nil, err
	}

	items := make([]OrderItem, 0, len(rows))
	for _, row := range rows {
		item, err := OrderItemFromRaw(row)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// LoadRefunds reads and normalizes the raw refund file, failing on the
// first malformed row.
func LoadRefunds(dir string) ([]Refund, error) {
	rows, err := rawdata.ReadEntity(dir, rawdata.EntityRefunds)
	if err != nil {
		return nil, err
	}

	refunds := make([]Refund, 0, len(rows))
	for _, row := range rows {
		refund, err := RefundFromRaw(row)
		if err != nil {
			return nil, err
		}
		refunds = append(refunds, refund)
	}
	return refunds, nil
}

// RefundsByOrder sums refund amounts per order id. Join revenue facts
// against this map, never against the refund rows themselves.
func RefundsByOrder(refunds []Refund) map[int64]decimal.Decimal {
	totals := make(map[int64]decimal.Decimal)
	for _, refund := range refunds {
		totals[refund.OrderID] = totals[refund.OrderID].Add(refund.Amount)
	}
	return totals
}

// RefundsByOrderItem sums refund amounts per order item id, for
// product-level net revenue.
func RefundsByOrderItem(refunds []Refund) map[int64]decimal.Decimal {
	totals := make(map[int64]decimal.Decimal)
	for _, refund := range refunds {
		totals[refund.OrderItemID] = totals[refund.OrderItemID].Add(refund.Amount)
	}
	return totals
}
