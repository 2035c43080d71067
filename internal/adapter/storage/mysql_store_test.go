package storage

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/port"
)

func newMockStore(t *testing.T) (*MySQLStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewMySQLStore(db), mock
}

func productColumns() []string {
	return []string{"id", "name", "price", "stock_quantity", "version", "created_at", "updated_at"}
}

func TestMySQLStore_GetProduct(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, name, price, stock_quantity, version, created_at, updated_at").
		WithArgs("p1").
		WillReturnRows(sqlmock.NewRows(productColumns()).
			AddRow("p1", "Apple", 1.5, 10, 3, now, now))
	mock.ExpectCommit()

	err := store.WithinTx(context.Background(), func(uow port.UnitOfWork) error {
		p, err := uow.Inventory().GetProduct(context.Background(), "p1")
		if err != nil {
			return err
		}
		assert.Equal(t, "Apple", p.Name)
		assert.Equal(t, 10, p.StockQuantity)
		assert.Equal(t, 3, p.Version)
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLStore_GetProduct_NotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, name, price, stock_quantity, version, created_at, updated_at").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(productColumns()))
	mock.ExpectRollback()

	err := store.WithinTx(context.Background(), func(uow port.UnitOfWork) error {
		_, err := uow.Inventory().GetProduct(context.Background(), "missing")
		return err
	})
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLStore_CompareAndSetStock(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE products").
		WithArgs(7, "p1", 3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.WithinTx(context.Background(), func(uow port.UnitOfWork) error {
		return uow.Inventory().CompareAndSetStock(context.Background(), "p1", 3, 7)
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLStore_CompareAndSetStock_Conflict(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE products").
		WithArgs(7, "p1", 3).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("p1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	err := store.WithinTx(context.Background(), func(uow port.UnitOfWork) error {
		return uow.Inventory().CompareAndSetStock(context.Background(), "p1", 3, 7)
	})
	assert.ErrorIs(t, err, domain.ErrVersionConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLStore_CompareAndSetStock_MissingProduct(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE products").
		WithArgs(7, "gone", 3).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("gone").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectRollback()

	err := store.WithinTx(context.Background(), func(uow port.UnitOfWork) error {
		return uow.Inventory().CompareAndSetStock(context.Background(), "gone", 3, 7)
	})
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLStore_SaveOrder_InsertAssignsID(t *testing.T) {
	store, mock := newMockStore(t)
	createdAt := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO orders").
		WithArgs(sqlmock.AnyArg(), createdAt, false, 0).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO order_items").
		WithArgs(sqlmock.AnyArg(), 0, "p1", 2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO order_items").
		WithArgs(sqlmock.AnyArg(), 1, "p2", 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	var saved domain.Order
	err := store.WithinTx(context.Background(), func(uow port.UnitOfWork) error {
		var err error
		saved, err = uow.Orders().SaveOrder(context.Background(), domain.Order{
			CreatedAt: createdAt,
			Items: []domain.LineItem{
				{ProductID: "p1", Quantity: 2},
				{ProductID: "p2", Quantity: 1},
			},
		})
		return err
	})
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)
	assert.Equal(t, 0, saved.Version)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLStore_SaveOrder_PaidUpdateConflict(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE orders").
		WithArgs(true, "o1", 0).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("o1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	err := store.WithinTx(context.Background(), func(uow port.UnitOfWork) error {
		_, err := uow.Orders().SaveOrder(context.Background(), domain.Order{
			ID:   "o1",
			Paid: true,
		})
		return err
	})
	assert.ErrorIs(t, err, domain.ErrVersionConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLStore_FindUnpaidCreatedBefore(t *testing.T) {
	store, mock := newMockStore(t)
	cutoff := time.Date(2025, 1, 1, 11, 30, 0, 0, time.UTC)
	createdAt := cutoff.Add(-10 * time.Minute)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, created_at, paid, version FROM orders").
		WithArgs(cutoff).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "paid", "version"}).
			AddRow("o1", createdAt, false, 0))
	mock.ExpectQuery("SELECT product_id, quantity FROM order_items").
		WithArgs("o1").
		WillReturnRows(sqlmock.NewRows([]string{"product_id", "quantity"}).
			AddRow("p1", 3))
	mock.ExpectCommit()

	err := store.WithinTx(context.Background(), func(uow port.UnitOfWork) error {
		orders, err := uow.Orders().FindUnpaidCreatedBefore(context.Background(), cutoff)
		if err != nil {
			return err
		}
		require.Len(t, orders, 1)
		assert.Equal(t, "o1", orders[0].ID)
		require.Len(t, orders[0].Items, 1)
		assert.Equal(t, "p1", orders[0].Items[0].ProductID)
		assert.Equal(t, 3, orders[0].Items[0].Quantity)
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLStore_DeleteOrder_CascadesItems(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM order_items").
		WithArgs("o1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("DELETE FROM orders").
		WithArgs("o1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.WithinTx(context.Background(), func(uow port.UnitOfWork) error {
		return uow.Orders().DeleteOrder(context.Background(), "o1")
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLStore_ReferencesProduct(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("p1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectCommit()

	err := store.WithinTx(context.Background(), func(uow port.UnitOfWork) error {
		referenced, err := uow.Orders().ReferencesProduct(context.Background(), "p1")
		if err != nil {
			return err
		}
		assert.True(t, referenced)
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLStore_RollbackOnError(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE products").
		WithArgs(4, "p1", 0).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	err := store.WithinTx(context.Background(), func(uow port.UnitOfWork) error {
		if err := uow.Inventory().CompareAndSetStock(context.Background(), "p1", 0, 4); err != nil {
			return err
		}
		return domain.ErrInsufficientStock
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	require.NoError(t, mock.ExpectationsWereMet())
}
