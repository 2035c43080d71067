package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/port"
)

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// MySQLStore implements port.TxManager over MySQL. Optimistic locking uses
// a version column with a rows-affected check, mirrored on products and on
// the orders paid flag.
type MySQLStore struct {
	db *sql.DB
}

func NewMySQLStore(db *sql.DB) *MySQLStore {
	return &MySQLStore{db: db}
}

func (m *MySQLStore) WithinTx(ctx context.Context, fn func(uow port.UnitOfWork) error) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	uow := &mysqlUnitOfWork{
		inventory: &mysqlInventoryStore{q: tx},
		orders:    &mysqlOrderStore{q: tx},
	}
	if err := fn(uow); err != nil {
		return err
	}
	return tx.Commit()
}

type mysqlUnitOfWork struct {
	inventory *mysqlInventoryStore
	orders    *mysqlOrderStore
}

func (u *mysqlUnitOfWork) Inventory() port.InventoryStore { return u.inventory }
func (u *mysqlUnitOfWork) Orders() port.OrderStore        { return u.orders }

type mysqlInventoryStore struct {
	q querier
}

func (s *mysqlInventoryStore) GetProduct(ctx context.Context, productID string) (domain.Product, error) {
	var p domain.Product
	err := s.q.QueryRowContext(ctx, `
		SELECT id, name, price, stock_quantity, version, created_at, updated_at
		FROM products WHERE id = ?`, productID,
	).Scan(&p.ID, &p.Name, &p.Price, &p.StockQuantity, &p.Version, &p.CreatedAt, &p.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return domain.Product{}, domain.ErrProductNotFound
	}
	if err != nil {
		return domain.Product{}, fmt.Errorf("query product: %w", err)
	}
	return p, nil
}

func (s *mysqlInventoryStore) CompareAndSetStock(ctx context.Context, productID string, expectedVersion, newStock int) error {
	result, err := s.q.ExecContext(ctx, `
		UPDATE products
		SET stock_quantity = ?, version = version + 1, updated_at = NOW()
		WHERE id = ? AND version = ?`,
		newStock, productID, expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("update stock: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return s.conflictOrMissing(ctx, productID)
	}
	return nil
}

func (s *mysqlInventoryStore) conflictOrMissing(ctx context.Context, productID string) error {
	var exists bool
	err := s.q.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM products WHERE id = ?)`, productID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check product: %w", err)
	}
	if !exists {
		return domain.ErrProductNotFound
	}
	return domain.ErrVersionConflict
}

func (s *mysqlInventoryStore) CreateProduct(ctx context.Context, p domain.Product) (domain.Product, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	p.Version = 0
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO products (id, name, price, stock_quantity, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Price, p.StockQuantity, p.Version, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return domain.Product{}, fmt.Errorf("insert product: %w", err)
	}
	return p, nil
}

func (s *mysqlInventoryStore) UpdateProduct(ctx context.Context, p domain.Product) (domain.Product, error) {
	result, err := s.q.ExecContext(ctx, `
		UPDATE products
		SET name = ?, price = ?, stock_quantity = ?, version = version + 1, updated_at = NOW()
		WHERE id = ? AND version = ?`,
		p.Name, p.Price, p.StockQuantity, p.ID, p.Version,
	)
	if err != nil {
		return domain.Product{}, fmt.Errorf("update product: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.Product{}, s.conflictOrMissing(ctx, p.ID)
	}
	p.Version++
	return p, nil
}

func (s *mysqlInventoryStore) DeleteProduct(ctx context.Context, productID string) error {
	result, err := s.q.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, productID)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

func (s *mysqlInventoryStore) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, name, price, stock_quantity, version, created_at, updated_at
		FROM products ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	products := []domain.Product{}
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.StockQuantity, &p.Version, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

type mysqlOrderStore struct {
	q querier
}

func (s *mysqlOrderStore) GetOrder(ctx context.Context, orderID string) (domain.Order, error) {
	var o domain.Order
	err := s.q.QueryRowContext(ctx,
		`SELECT id, created_at, paid, version FROM orders WHERE id = ?`, orderID,
	).Scan(&o.ID, &o.CreatedAt, &o.Paid, &o.Version)

	if errors.Is(err, sql.ErrNoRows) {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	if err != nil {
		return domain.Order{}, fmt.Errorf("query order: %w", err)
	}

	o.Items, err = s.itemsFor(ctx, o.ID)
	if err != nil {
		return domain.Order{}, err
	}
	return o, nil
}

func (s *mysqlOrderStore) itemsFor(ctx context.Context, orderID string) ([]domain.LineItem, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT product_id, quantity FROM order_items
		WHERE order_id = ? ORDER BY position`, orderID)
	if err != nil {
		return nil, fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	items := []domain.LineItem{}
	for rows.Next() {
		var item domain.LineItem
		if err := rows.Scan(&item.ProductID, &item.Quantity); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *mysqlOrderStore) SaveOrder(ctx context.Context, o domain.Order) (domain.Order, error) {
	if o.ID == "" {
		return s.insertOrder(ctx, o)
	}

	// Only the paid flag changes after creation; items are fixed.
	result, err := s.q.ExecContext(ctx, `
		UPDATE orders SET paid = ?, version = version + 1
		WHERE id = ? AND version = ?`,
		o.Paid, o.ID, o.Version,
	)
	if err != nil {
		return domain.Order{}, fmt.Errorf("update order: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		var exists bool
		err := s.q.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM orders WHERE id = ?)`, o.ID,
		).Scan(&exists)
		if err != nil {
			return domain.Order{}, fmt.Errorf("check order: %w", err)
		}
		if !exists {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, domain.ErrVersionConflict
	}

	o.Version++
	return o, nil
}

func (s *mysqlOrderStore) insertOrder(ctx context.Context, o domain.Order) (domain.Order, error) {
	o.ID = uuid.NewString()
	o.Version = 0
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO orders (id, created_at, paid, version) VALUES (?, ?, ?, ?)`,
		o.ID, o.CreatedAt, o.Paid, o.Version,
	)
	if err != nil {
		return domain.Order{}, fmt.Errorf("insert order: %w", err)
	}

	for i, item := range o.Items {
		_, err := s.q.ExecContext(ctx, `
			INSERT INTO order_items (order_id, position, product_id, quantity)
			VALUES (?, ?, ?, ?)`,
			o.ID, i, item.ProductID, item.Quantity,
		)
		if err != nil {
			return domain.Order{}, fmt.Errorf("insert order item: %w", err)
		}
	}
	return o, nil
}

func (s *mysqlOrderStore) DeleteOrder(ctx context.Context, orderID string) error {
	if _, err := s.q.ExecContext(ctx, `DELETE FROM order_items WHERE order_id = ?`, orderID); err != nil {
		return fmt.Errorf("delete order items: %w", err)
	}

	result, err := s.q.ExecContext(ctx, `DELETE FROM orders WHERE id = ?`, orderID)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}

func (s *mysqlOrderStore) ListOrders(ctx context.Context) ([]domain.Order, error) {
	return s.listWhere(ctx, ``)
}

func (s *mysqlOrderStore) FindByPaid(ctx context.Context, paid bool) ([]domain.Order, error) {
	return s.listWhere(ctx, `WHERE paid = ?`, paid)
}

func (s *mysqlOrderStore) FindUnpaidCreatedBefore(ctx context.Context, cutoff time.Time) ([]domain.Order, error) {
	return s.listWhere(ctx, `WHERE paid = FALSE AND created_at < ?`, cutoff)
}

func (s *mysqlOrderStore) listWhere(ctx context.Context, where string, args ...any) ([]domain.Order, error) {
	query := `SELECT id, created_at, paid, version FROM orders ` + where + ` ORDER BY created_at, id`
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	orders := []domain.Order{}
	for rows.Next() {
		var o domain.Order
		if err := rows.Scan(&o.ID, &o.CreatedAt, &o.Paid, &o.Version); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range orders {
		orders[i].Items, err = s.itemsFor(ctx, orders[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return orders, nil
}

func (s *mysqlOrderStore) ReferencesProduct(ctx context.Context, productID string) (bool, error) {
	var referenced bool
	err := s.q.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM order_items WHERE product_id = ?)`, productID,
	).Scan(&referenced)
	if err != nil {
		return false, fmt.Errorf("check order items: %w", err)
	}
	return referenced, nil
}
