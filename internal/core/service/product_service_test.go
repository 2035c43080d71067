package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/storefront/internal/core/domain"
)

func TestProductService_CreateAndGet(t *testing.T) {
	store := newTestStore()
	svc := NewProductService(testLogger(), store)

	created, err := svc.CreateProduct(context.Background(), domain.Product{
		Name:          "Apple",
		Price:         1.5,
		StockQuantity: 10,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, 0, created.Version)

	got, err := svc.GetProduct(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Apple", got.Name)
	assert.Equal(t, 1.5, got.Price)
	assert.Equal(t, 10, got.StockQuantity)
}

func TestProductService_GetNotFound(t *testing.T) {
	svc := NewProductService(testLogger(), newTestStore())

	_, err := svc.GetProduct(context.Background(), "missing")

	assert.ErrorIs(t, err, domain.ErrProductNotFound)
}

func TestProductService_UpdatePartial(t *testing.T) {
	store := newTestStore()
	svc := NewProductService(testLogger(), store)
	created, err := svc.CreateProduct(context.Background(), domain.Product{
		Name:          "Apple",
		Price:         1.5,
		StockQuantity: 10,
	})
	require.NoError(t, err)

	newPrice := 2.0
	updated, err := svc.UpdateProduct(context.Background(), created.ID, domain.ProductUpdate{
		Price: &newPrice,
	})

	require.NoError(t, err)
	assert.Equal(t, "Apple", updated.Name, "unset fields stay unchanged")
	assert.Equal(t, 2.0, updated.Price)
	assert.Equal(t, 10, updated.StockQuantity)
	assert.Equal(t, 1, updated.Version)
}

func TestProductService_UpdateNotFound(t *testing.T) {
	svc := NewProductService(testLogger(), newTestStore())

	name := "Apple"
	_, err := svc.UpdateProduct(context.Background(), "missing", domain.ProductUpdate{Name: &name})

	assert.ErrorIs(t, err, domain.ErrProductNotFound)
}

func TestProductService_Delete(t *testing.T) {
	store := newTestStore()
	svc := NewProductService(testLogger(), store)
	created, err := svc.CreateProduct(context.Background(), domain.Product{Name: "Apple", StockQuantity: 1})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteProduct(context.Background(), created.ID))

	_, err = svc.GetProduct(context.Background(), created.ID)
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
}

func TestProductService_DeleteNotFound(t *testing.T) {
	svc := NewProductService(testLogger(), newTestStore())

	err := svc.DeleteProduct(context.Background(), "missing")

	assert.ErrorIs(t, err, domain.ErrProductNotFound)
}

func TestProductService_DeleteReferencedByOrder(t *testing.T) {
	store := newTestStore()
	products := NewProductService(testLogger(), store)
	orders := newTestOrderService(store)
	created, err := products.CreateProduct(context.Background(), domain.Product{Name: "Apple", StockQuantity: 10})
	require.NoError(t, err)

	order, err := orders.CreateOrder(context.Background(), items(created.ID, 2))
	require.NoError(t, err)

	err = products.DeleteProduct(context.Background(), created.ID)
	assert.ErrorIs(t, err, domain.ErrProductInUse)

	// once the order is gone the product can be deleted
	require.NoError(t, orders.CancelOrder(context.Background(), order.ID))
	assert.NoError(t, products.DeleteProduct(context.Background(), created.ID))
}

func TestProductService_List(t *testing.T) {
	store := newTestStore()
	svc := NewProductService(testLogger(), store)
	_, err := svc.CreateProduct(context.Background(), domain.Product{Name: "Apple", StockQuantity: 1})
	require.NoError(t, err)
	_, err = svc.CreateProduct(context.Background(), domain.Product{Name: "Banana", StockQuantity: 2})
	require.NoError(t, err)

	products, err := svc.ListProducts(context.Background())
	require.NoError(t, err)
	assert.Len(t, products, 2)
}
