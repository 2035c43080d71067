package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/port"
)

// RetryConfig bounds the create-order conflict retry.
type RetryConfig struct {
	MaxAttempts int
	Backoff     time.Duration
}

// OrderService drives the order lifecycle: creation with atomic stock
// reservation, payment, cancellation with stock restitution, and the
// expired-order sweep. Every operation runs in its own unit of work.
type OrderService struct {
	log    *slog.Logger
	tx     port.TxManager
	engine *ReservationEngine
	retry  RetryConfig
	now    func() time.Time
}

func NewOrderService(log *slog.Logger, tx port.TxManager, engine *ReservationEngine, retry RetryConfig) *OrderService {
	if retry.MaxAttempts <= 0 {
		retry.MaxAttempts = 3
	}
	if retry.Backoff <= 0 {
		retry.Backoff = 200 * time.Millisecond
	}
	return &OrderService{
		log:    log,
		tx:     tx,
		engine: engine,
		retry:  retry,
		now:    time.Now,
	}
}

// CreateOrder reserves stock for every item and saves the order in one unit
// of work. Version conflicts restart the whole unit of work with fresh
// reads, up to the configured bound; not-found and insufficient-stock errors
// pass through untouched since retrying them would repeat the same failure.
func (s *OrderService) CreateOrder(ctx context.Context, items []domain.LineItem) (domain.Order, error) {
	return RunWithRetry(ctx, s.retry.MaxAttempts, s.retry.Backoff, domain.ErrVersionConflict,
		func() (domain.Order, error) {
			return s.createOnce(ctx, items)
		},
		domain.ErrProductNotFound, domain.ErrInsufficientStock,
	)
}

func (s *OrderService) createOnce(ctx context.Context, items []domain.LineItem) (domain.Order, error) {
	s.log.Info("creating a new order")

	var created domain.Order
	err := s.tx.WithinTx(ctx, func(uow port.UnitOfWork) error {
		reserved, err := s.engine.Reserve(ctx, uow, items)
		if err != nil {
			return err
		}

		created, err = uow.Orders().SaveOrder(ctx, domain.Order{
			CreatedAt: s.now(),
			Paid:      false,
			Items:     reserved,
		})
		return err
	})
	if err != nil {
		return domain.Order{}, err
	}

	s.log.Info("order created", "order_id", created.ID)
	return created, nil
}

// PayOrder flips the paid flag exactly once. A second payment fails with
// domain.ErrOrderAlreadyPaid. No stock change.
func (s *OrderService) PayOrder(ctx context.Context, orderID string) (domain.Order, error) {
	s.log.Info("paying for order", "order_id", orderID)

	var paid domain.Order
	err := s.tx.WithinTx(ctx, func(uow port.UnitOfWork) error {
		order, err := uow.Orders().GetOrder(ctx, orderID)
		if err != nil {
			if errors.Is(err, domain.ErrOrderNotFound) {
				s.log.Warn("attempting to pay for a non-existent order", "order_id", orderID)
			}
			return err
		}

		if order.Paid {
			return fmt.Errorf("%w: %s", domain.ErrOrderAlreadyPaid, orderID)
		}

		order.Paid = true
		paid, err = uow.Orders().SaveOrder(ctx, order)
		return err
	})
	if err != nil {
		return domain.Order{}, err
	}

	s.log.Info("order paid", "order_id", orderID)
	return paid, nil
}

// CancelOrder returns every line item's stock and deletes the order row in
// one unit of work. If restitution exhausts its conflict retries the
// cancellation fails and the order is left standing.
func (s *OrderService) CancelOrder(ctx context.Context, orderID string) error {
	s.log.Info("canceling order", "order_id", orderID)

	err := s.tx.WithinTx(ctx, func(uow port.UnitOfWork) error {
		return s.releaseAndDelete(ctx, uow, orderID)
	})
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			s.log.Warn("attempting to cancel a non-existent order", "order_id", orderID)
		}
		return err
	}

	s.log.Info("order canceled", "order_id", orderID)
	return nil
}

func (s *OrderService) releaseAndDelete(ctx context.Context, uow port.UnitOfWork, orderID string) error {
	order, err := uow.Orders().GetOrder(ctx, orderID)
	if err != nil {
		return err
	}

	if err := s.engine.Release(ctx, uow, order.Items); err != nil {
		return err
	}

	return uow.Orders().DeleteOrder(ctx, order.ID)
}

// SweepExpired cancels unpaid orders created before now minus olderThan.
// Each order is released and deleted in its own unit of work; a failing
// order is logged and skipped so one bad record does not block the sweep.
// Returns the number of orders swept.
func (s *OrderService) SweepExpired(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := s.now().Add(-olderThan)

	var expired []domain.Order
	err := s.tx.WithinTx(ctx, func(uow port.UnitOfWork) error {
		var err error
		expired, err = uow.Orders().FindUnpaidCreatedBefore(ctx, cutoff)
		return err
	})
	if err != nil {
		return 0, err
	}

	swept := 0
	for _, candidate := range expired {
		canceled := false
		err := s.tx.WithinTx(ctx, func(uow port.UnitOfWork) error {
			// re-read: the order may have been paid or canceled since the find
			order, err := uow.Orders().GetOrder(ctx, candidate.ID)
			if err != nil {
				return err
			}
			if order.Paid {
				return nil
			}

			if err := s.engine.Release(ctx, uow, order.Items); err != nil {
				return err
			}
			if err := uow.Orders().DeleteOrder(ctx, order.ID); err != nil {
				return err
			}
			canceled = true
			return nil
		})
		if err != nil {
			s.log.Error("failed to cancel expired order, skipping", "order_id", candidate.ID, "err", err)
			continue
		}
		if !canceled {
			s.log.Info("order paid since the find, skipping", "order_id", candidate.ID)
			continue
		}
		s.log.Info("canceled expired order", "order_id", candidate.ID)
		swept++
	}
	return swept, nil
}

// GetOrder retrieves an order by ID.
func (s *OrderService) GetOrder(ctx context.Context, orderID string) (domain.Order, error) {
	var order domain.Order
	err := s.tx.WithinTx(ctx, func(uow port.UnitOfWork) error {
		var err error
		order, err = uow.Orders().GetOrder(ctx, orderID)
		return err
	})
	return order, err
}

// ListOrders returns all orders.
func (s *OrderService) ListOrders(ctx context.Context) ([]domain.Order, error) {
	var orders []domain.Order
	err := s.tx.WithinTx(ctx, func(uow port.UnitOfWork) error {
		var err error
		orders, err = uow.Orders().ListOrders(ctx)
		return err
	})
	return orders, err
}

// ListOrdersByPaid returns orders filtered by paid status.
func (s *OrderService) ListOrdersByPaid(ctx context.Context, paid bool) ([]domain.Order, error) {
	var orders []domain.Order
	err := s.tx.WithinTx(ctx, func(uow port.UnitOfWork) error {
		var err error
		orders, err = uow.Orders().FindByPaid(ctx, paid)
		return err
	})
	return orders, err
}
