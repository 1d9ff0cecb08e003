// Package catalog holds the product dimension of the relational snapshot.
package catalog

import (
	"fmt"
	"time"

	"shopalytics/internal/rawdata"
)

// Product is one sellable item. Order items reference it by id.
type Product struct {
	ID        int64     `gorm:"primaryKey"`
	CreatedAt time.Time `gorm:"type:datetime;not null"`
	Name      string    `gorm:"not null"`
}

// ProductFromRaw normalizes one raw product row.
func ProductFromRaw(row rawdata.Row) (Product, error) {
	id, err := row.ID("product_id")
	if err != nil {
		return Product{}, err
	}
	createdAt, err := row.Time("created_at")
	if err != nil {
		return Product{}, err
	}
	name := row.Get("product_name")
	if name == "" {
		return Product{}, fmt.Errorf("%s row %d: missing product_name: %w", row.Entity, row.Number, rawdata.ErrMalformedInput)
	}

	return Product{ID: id, CreatedAt: createdAt, Name: name}, nil
}

// LoadProducts reads and normalizes the raw product file, failing on the
// first malformed row.
func LoadProducts(dir string) ([]Product, error) {
	rows, err := rawdata.ReadEntity(dir, rawdata.EntityProducts)
	if err != nil {
		return nil, err
	}

	products := make([]Product, 0, len(rows))
	for _, row := range rows {
		product, err := ProductFromRaw(row)
		if err != nil {
			return nil, err
		}
		products = append(products, product)
	}
	return products, nil
}

// NamesByID indexes product display names for report building.
func NamesByID(products []Product) map[int64]string {
	names := make(map[int64]string, len(products))
	for _, product := range products {
		names[product.ID] = product.Name
	}
	return names
}
