package port

import (
	"context"
	"time"

	"github.com/rl1809/storefront/internal/core/domain"
)

type OrderStore interface {
	// GetOrder retrieves an order with its line items, domain.ErrOrderNotFound if absent
	GetOrder(ctx context.Context, orderID string) (domain.Order, error)

	// SaveOrder creates the order (assigning a generated ID) when ID is empty,
	// otherwise updates the paid flag with version check for optimistic locking
	SaveOrder(ctx context.Context, order domain.Order) (domain.Order, error)

	// DeleteOrder removes the order and its line items
	DeleteOrder(ctx context.Context, orderID string) error

	ListOrders(ctx context.Context) ([]domain.Order, error)

	FindByPaid(ctx context.Context, paid bool) ([]domain.Order, error)

	// FindUnpaidCreatedBefore returns unpaid orders older than cutoff
	FindUnpaidCreatedBefore(ctx context.Context, cutoff time.Time) ([]domain.Order, error)

	// ReferencesProduct reports whether any stored line item references the product
	ReferencesProduct(ctx context.Context, productID string) (bool, error)
}
