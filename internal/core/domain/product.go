package domain

import "time"

type Product struct {
	ID            string
	Name          string
	Price         float64
	StockQuantity int
	Version       int // optimistic locking
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ProductUpdate carries a partial update; nil fields are left unchanged.
type ProductUpdate struct {
	Name          *string
	Price         *float64
	StockQuantity *int
}
