package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/port"
)

// ProductService is the CRUD passthrough to the inventory store. Stock
// mutation for reservations never goes through here; that is the
// ReservationEngine's compare-and-swap path.
type ProductService struct {
	log *slog.Logger
	tx  port.TxManager
}

func NewProductService(log *slog.Logger, tx port.TxManager) *ProductService {
	return &ProductService{log: log, tx: tx}
}

func (s *ProductService) CreateProduct(ctx context.Context, product domain.Product) (domain.Product, error) {
	s.log.Info("creating product", "name", product.Name)

	var created domain.Product
	err := s.tx.WithinTx(ctx, func(uow port.UnitOfWork) error {
		var err error
		created, err = uow.Inventory().CreateProduct(ctx, product)
		return err
	})
	return created, err
}

// UpdateProduct applies the non-nil fields of upd to the stored product.
func (s *ProductService) UpdateProduct(ctx context.Context, productID string, upd domain.ProductUpdate) (domain.Product, error) {
	s.log.Info("updating product", "product_id", productID)

	var updated domain.Product
	err := s.tx.WithinTx(ctx, func(uow port.UnitOfWork) error {
		product, err := uow.Inventory().GetProduct(ctx, productID)
		if err != nil {
			return err
		}

		if upd.Name != nil {
			product.Name = *upd.Name
		}
		if upd.Price != nil {
			product.Price = *upd.Price
		}
		if upd.StockQuantity != nil {
			product.StockQuantity = *upd.StockQuantity
		}

		updated, err = uow.Inventory().UpdateProduct(ctx, product)
		return err
	})
	if err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			s.log.Warn("product not found, update failed", "product_id", productID)
		}
		return domain.Product{}, err
	}
	return updated, nil
}

// DeleteProduct removes a product unless any stored line item references it.
func (s *ProductService) DeleteProduct(ctx context.Context, productID string) error {
	err := s.tx.WithinTx(ctx, func(uow port.UnitOfWork) error {
		referenced, err := uow.Orders().ReferencesProduct(ctx, productID)
		if err != nil {
			return err
		}
		if referenced {
			return domain.ErrProductInUse
		}
		return uow.Inventory().DeleteProduct(ctx, productID)
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrProductInUse):
			s.log.Warn("attempting to delete a product associated with existing orders", "product_id", productID)
		case errors.Is(err, domain.ErrProductNotFound):
			s.log.Warn("attempting to delete a non-existent product", "product_id", productID)
		}
		return err
	}

	s.log.Info("product deleted", "product_id", productID)
	return nil
}

func (s *ProductService) GetProduct(ctx context.Context, productID string) (domain.Product, error) {
	var product domain.Product
	err := s.tx.WithinTx(ctx, func(uow port.UnitOfWork) error {
		var err error
		product, err = uow.Inventory().GetProduct(ctx, productID)
		return err
	})
	return product, err
}

func (s *ProductService) ListProducts(ctx context.Context) ([]domain.Product, error) {
	var products []domain.Product
	err := s.tx.WithinTx(ctx, func(uow port.UnitOfWork) error {
		var err error
		products, err = uow.Inventory().ListProducts(ctx)
		return err
	})
	return products, err
}
