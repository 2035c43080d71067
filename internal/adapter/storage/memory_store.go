package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/port"
)

// MemoryStore implements port.TxManager with snapshot transactions: each
// unit of work runs against a copy of the state and only a successful return
// swaps the copy in. The mutex serializes transactions, so within a
// transaction reads are consistent and nothing partial is ever visible.
type MemoryStore struct {
	mu       sync.Mutex
	products map[string]domain.Product
	orders   map[string]domain.Order
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		products: make(map[string]domain.Product),
		orders:   make(map[string]domain.Order),
	}
}

func (m *MemoryStore) WithinTx(ctx context.Context, fn func(uow port.UnitOfWork) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	uow := &memUnitOfWork{
		products: cloneProducts(m.products),
		orders:   cloneOrders(m.orders),
	}
	if err := fn(uow); err != nil {
		return err
	}

	m.products = uow.products
	m.orders = uow.orders
	return nil
}

func cloneProducts(src map[string]domain.Product) map[string]domain.Product {
	dst := make(map[string]domain.Product, len(src))
	for id, p := range src {
		dst[id] = p
	}
	return dst
}

func cloneOrders(src map[string]domain.Order) map[string]domain.Order {
	dst := make(map[string]domain.Order, len(src))
	for id, o := range src {
		o.Items = append([]domain.LineItem(nil), o.Items...)
		dst[id] = o
	}
	return dst
}

type memUnitOfWork struct {
	products map[string]domain.Product
	orders   map[string]domain.Order
}

func (u *memUnitOfWork) Inventory() port.InventoryStore { return &memInventoryStore{u} }
func (u *memUnitOfWork) Orders() port.OrderStore        { return &memOrderStore{u} }

type memInventoryStore struct {
	uow *memUnitOfWork
}

func (s *memInventoryStore) GetProduct(ctx context.Context, productID string) (domain.Product, error) {
	p, ok := s.uow.products[productID]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return p, nil
}

func (s *memInventoryStore) CompareAndSetStock(ctx context.Context, productID string, expectedVersion, newStock int) error {
	p, ok := s.uow.products[productID]
	if !ok {
		return domain.ErrProductNotFound
	}
	if p.Version != expectedVersion {
		return domain.ErrVersionConflict
	}
	p.StockQuantity = newStock
	p.Version++
	p.UpdatedAt = time.Now().UTC()
	s.uow.products[productID] = p
	return nil
}

func (s *memInventoryStore) CreateProduct(ctx context.Context, p domain.Product) (domain.Product, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	p.Version = 0
	p.CreatedAt = now
	p.UpdatedAt = now
	s.uow.products[p.ID] = p
	return p, nil
}

func (s *memInventoryStore) UpdateProduct(ctx context.Context, p domain.Product) (domain.Product, error) {
	stored, ok := s.uow.products[p.ID]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	if stored.Version != p.Version {
		return domain.Product{}, domain.ErrVersionConflict
	}
	p.Version++
	p.CreatedAt = stored.CreatedAt
	p.UpdatedAt = time.Now().UTC()
	s.uow.products[p.ID] = p
	return p, nil
}

func (s *memInventoryStore) DeleteProduct(ctx context.Context, productID string) error {
	if _, ok := s.uow.products[productID]; !ok {
		return domain.ErrProductNotFound
	}
	delete(s.uow.products, productID)
	return nil
}

func (s *memInventoryStore) ListProducts(ctx context.Context) ([]domain.Product, error) {
	products := make([]domain.Product, 0, len(s.uow.products))
	for _, p := range s.uow.products {
		products = append(products, p)
	}
	sort.Slice(products, func(i, j int) bool { return products[i].ID < products[j].ID })
	return products, nil
}

type memOrderStore struct {
	uow *memUnitOfWork
}

func (s *memOrderStore) GetOrder(ctx context.Context, orderID string) (domain.Order, error) {
	o, ok := s.uow.orders[orderID]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	o.Items = append([]domain.LineItem(nil), o.Items...)
	return o, nil
}

func (s *memOrderStore) SaveOrder(ctx context.Context, o domain.Order) (domain.Order, error) {
	if o.ID == "" {
		o.ID = uuid.NewString()
		o.Version = 0
		if o.CreatedAt.IsZero() {
			o.CreatedAt = time.Now().UTC()
		}
		o.Items = append([]domain.LineItem(nil), o.Items...)
		s.uow.orders[o.ID] = o
		return o, nil
	}

	stored, ok := s.uow.orders[o.ID]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	if stored.Version != o.Version {
		return domain.Order{}, domain.ErrVersionConflict
	}
	stored.Paid = o.Paid
	stored.Version++
	s.uow.orders[o.ID] = stored
	return stored, nil
}

func (s *memOrderStore) DeleteOrder(ctx context.Context, orderID string) error {
	if _, ok := s.uow.orders[orderID]; !ok {
		return domain.ErrOrderNotFound
	}
	delete(s.uow.orders, orderID)
	return nil
}

func (s *memOrderStore) ListOrders(ctx context.Context) ([]domain.Order, error) {
	return s.collect(func(domain.Order) bool { return true }), nil
}

func (s *memOrderStore) FindByPaid(ctx context.Context, paid bool) ([]domain.Order, error) {
	return s.collect(func(o domain.Order) bool { return o.Paid == paid }), nil
}

func (s *memOrderStore) FindUnpaidCreatedBefore(ctx context.Context, cutoff time.Time) ([]domain.Order, error) {
	return s.collect(func(o domain.Order) bool {
		return !o.Paid && o.CreatedAt.Before(cutoff)
	}), nil
}

func (s *memOrderStore) collect(match func(domain.Order) bool) []domain.Order {
	orders := []domain.Order{}
	for _, o := range s.uow.orders {
		if match(o) {
			o.Items = append([]domain.LineItem(nil), o.Items...)
			orders = append(orders, o)
		}
	}
	sort.Slice(orders, func(i, j int) bool {
		if !orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].CreatedAt.Before(orders[j].CreatedAt)
		}
		return orders[i].ID < orders[j].ID
	})
	return orders
}

func (s *memOrderStore) ReferencesProduct(ctx context.Context, productID string) (bool, error) {
	for _, o := range s.uow.orders {
		for _, item := range o.Items {
			if item.ProductID == productID {
				return true, nil
			}
		}
	}
	return false, nil
}
