package domain

import "time"

type Order struct {
	ID        string
	CreatedAt time.Time
	Paid      bool
	Version   int // optimistic locking on the paid flag
	Items     []LineItem
}

// LineItem references a product by id only; name and price are resolved
// through the product at presentation time, never stored on the order.
type LineItem struct {
	ProductID string
	Quantity  int
}
