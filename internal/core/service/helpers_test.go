package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rl1809/storefront/internal/adapter/storage"
	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/port"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestOrderService(tx port.TxManager) *OrderService {
	log := testLogger()
	return NewOrderService(log, tx, NewReservationEngine(log), RetryConfig{
		MaxAttempts: 3,
		Backoff:     time.Millisecond,
	})
}

func newTestStore() *storage.MemoryStore {
	return storage.NewMemoryStore()
}

func seedProduct(t *testing.T, tx port.TxManager, name string, stock int) domain.Product {
	t.Helper()
	var created domain.Product
	err := tx.WithinTx(context.Background(), func(uow port.UnitOfWork) error {
		var err error
		created, err = uow.Inventory().CreateProduct(context.Background(), domain.Product{
			Name:          name,
			Price:         9.99,
			StockQuantity: stock,
		})
		return err
	})
	require.NoError(t, err)
	return created
}

func currentStock(t *testing.T, tx port.TxManager, productID string) int {
	t.Helper()
	var stock int
	err := tx.WithinTx(context.Background(), func(uow port.UnitOfWork) error {
		p, err := uow.Inventory().GetProduct(context.Background(), productID)
		stock = p.StockQuantity
		return err
	})
	require.NoError(t, err)
	return stock
}

func items(productID string, quantity int) []domain.LineItem {
	return []domain.LineItem{{ProductID: productID, Quantity: quantity}}
}

// hookTx wraps a TxManager and runs a callback after each completed
// transaction, carrying the 1-based count of transactions so far.
type hookTx struct {
	inner port.TxManager
	after func(n int)
	count int
}

func (h *hookTx) WithinTx(ctx context.Context, fn func(uow port.UnitOfWork) error) error {
	err := h.inner.WithinTx(ctx, fn)
	h.count++
	if h.after != nil {
		h.after(h.count)
	}
	return err
}

// conflictTx wraps a TxManager and injects version conflicts into
// CompareAndSetStock calls, optionally scoped to one product.
type conflictTx struct {
	inner     port.TxManager
	productID string // empty matches every product
	remaining int    // conflicts left to inject; negative means forever
	casCalls  int
}

func (c *conflictTx) WithinTx(ctx context.Context, fn func(uow port.UnitOfWork) error) error {
	return c.inner.WithinTx(ctx, func(uow port.UnitOfWork) error {
		return fn(&conflictUow{UnitOfWork: uow, tx: c})
	})
}

type conflictUow struct {
	port.UnitOfWork
	tx *conflictTx
}

func (u *conflictUow) Inventory() port.InventoryStore {
	return &conflictInventory{InventoryStore: u.UnitOfWork.Inventory(), tx: u.tx}
}

type conflictInventory struct {
	port.InventoryStore
	tx *conflictTx
}

func (s *conflictInventory) CompareAndSetStock(ctx context.Context, productID string, expectedVersion, newStock int) error {
	if s.tx.productID == "" || s.tx.productID == productID {
		s.tx.casCalls++
		if s.tx.remaining != 0 {
			if s.tx.remaining > 0 {
				s.tx.remaining--
			}
			return domain.ErrVersionConflict
		}
	}
	return s.InventoryStore.CompareAndSetStock(ctx, productID, expectedVersion, newStock)
}
