package port

import (
	"context"

	"github.com/rl1809/storefront/internal/core/domain"
)

type InventoryStore interface {
	// GetProduct retrieves a product by ID, domain.ErrProductNotFound if absent
	GetProduct(ctx context.Context, productID string) (domain.Product, error)

	// CompareAndSetStock writes newStock iff the stored version still equals
	// expectedVersion, advancing the version. Returns domain.ErrVersionConflict
	// when another writer got there first. Callers must check newStock >= 0
	// before invoking; the store never clamps.
	CompareAndSetStock(ctx context.Context, productID string, expectedVersion, newStock int) error

	// CreateProduct persists a new product, assigning a generated ID
	CreateProduct(ctx context.Context, product domain.Product) (domain.Product, error)

	// UpdateProduct replaces the product with version check for optimistic locking
	UpdateProduct(ctx context.Context, product domain.Product) (domain.Product, error)

	// DeleteProduct removes a product, domain.ErrProductNotFound if absent
	DeleteProduct(ctx context.Context, productID string) error

	ListProducts(ctx context.Context) ([]domain.Product, error)
}
