package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/port"
)

// releaseMaxAttempts bounds the per-product retry during release so that
// returned stock is not silently dropped on a version conflict.
const releaseMaxAttempts = 3

// ReservationEngine decrements and restores product stock through the
// inventory store's compare-and-swap entry point. All calls operate on a
// caller-supplied unit of work, so a failure anywhere in a batch rolls back
// the whole batch.
type ReservationEngine struct {
	log *slog.Logger
}

func NewReservationEngine(log *slog.Logger) *ReservationEngine {
	return &ReservationEngine{log: log}
}

// Reserve decrements stock for each item, sequentially and in the given
// order. A missing product or insufficient stock aborts the whole
// reservation; a version conflict is propagated unchanged so the caller's
// retry layer can restart the entire unit of work with fresh reads.
func (e *ReservationEngine) Reserve(ctx context.Context, uow port.UnitOfWork, items []domain.LineItem) ([]domain.LineItem, error) {
	reserved := make([]domain.LineItem, 0, len(items))

	for _, item := range items {
		product, err := uow.Inventory().GetProduct(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, domain.ErrProductNotFound) {
				e.log.Warn("product not found, order cannot be created", "product_id", item.ProductID)
				return nil, fmt.Errorf("%w: %s", domain.ErrProductNotFound, item.ProductID)
			}
			return nil, err
		}

		if product.StockQuantity < item.Quantity {
			e.log.Warn("out of stock", "product", product.Name, "available", product.StockQuantity, "requested", item.Quantity)
			return nil, fmt.Errorf("%w: %s", domain.ErrInsufficientStock, product.Name)
		}

		e.log.Info("reserving item", "product", product.Name, "quantity", item.Quantity)
		if err := uow.Inventory().CompareAndSetStock(ctx, product.ID, product.Version, product.StockQuantity-item.Quantity); err != nil {
			return nil, err
		}

		reserved = append(reserved, domain.LineItem{ProductID: product.ID, Quantity: item.Quantity})
	}

	return reserved, nil
}

// Release adds each item's quantity back to its product's stock. Conflicts
// on a single product are re-read and retried up to releaseMaxAttempts;
// exhaustion surfaces the conflict to the caller.
func (e *ReservationEngine) Release(ctx context.Context, uow port.UnitOfWork, items []domain.LineItem) error {
	for _, item := range items {
		if err := e.releaseOne(ctx, uow, item); err != nil {
			return err
		}
	}
	return nil
}

// releaseOne re-reads and retries inside the caller's unit of work. Under
// repeatable-read isolation the re-read sees the transaction's snapshot, so
// a conflicting concurrent write still surfaces as ErrVersionConflict after
// the loop; the callers treat that as a failed release and keep the unit of
// work's rollback semantics instead of retrying across transactions.
func (e *ReservationEngine) releaseOne(ctx context.Context, uow port.UnitOfWork, item domain.LineItem) error {
	var err error
	for attempt := 0; attempt < releaseMaxAttempts; attempt++ {
		var product domain.Product
		product, err = uow.Inventory().GetProduct(ctx, item.ProductID)
		if err != nil {
			return err
		}

		e.log.Info("returning goods", "product", product.Name, "quantity", item.Quantity)
		err = uow.Inventory().CompareAndSetStock(ctx, product.ID, product.Version, product.StockQuantity+item.Quantity)
		if err == nil {
			return nil
		}
		if !errors.Is(err, domain.ErrVersionConflict) {
			return err
		}
	}
	return err
}
