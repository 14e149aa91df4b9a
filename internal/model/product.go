package model

import (
	"math"
	"time"
)

// Product represents an inventory product owned by a user.
//
// IsLowStock and TotalValue are derived, not stored; Derive fills them
// after a row is scanned.
type Product struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	SKU         string    `json:"sku"`
	Price       float64   `json:"price"`
	Quantity    int       `json:"quantity"`
	ImageURL    string    `json:"image_url,omitempty"`
	Category    string    `json:"category,omitempty"`
	MinStock    int       `json:"min_stock"`
	UserID      int64     `json:"user_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	IsLowStock bool    `json:"is_low_stock"`
	TotalValue float64 `json:"total_value"`
}

// Derive computes the low-stock flag and total value from the stored
// fields.
func (p *Product) Derive() {
	p.IsLowStock = p.Quantity <= p.MinStock
	p.TotalValue = Round2(p.Price * float64(p.Quantity))
}

// Round2 rounds a monetary value to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
