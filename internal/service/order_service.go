package service

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/domain"
	"storefront/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrShippingAddressRequired = errors.New("shipping address is required")
	ErrInvalidStatusTransition = errors.New("invalid order status transition")
	ErrNotOrderOwner           = errors.New("order belongs to another user")
)

// OrderService defines the interface for order business logic
type OrderService interface {
	// Checkout converts the user's cart into an order and attempts
	// payment. The cart snapshot and the payment are the atomic unit
	// described by the cart routes: an empty cart or an out-of-stock
	// line aborts with nothing written.
	Checkout(ctx context.Context, userID uuid.UUID, shippingAddress string) (*domain.Order, error)

	GetOrder(ctx context.Context, userID uuid.UUID, orderID uuid.UUID, isAdmin bool) (*domain.Order, error)
	ListUserOrders(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error)
	ListAllOrders(ctx context.Context, page, pageSize int) ([]*domain.Order, int, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, status domain.OrderStatus) (*domain.Order, error)
}

type orderService struct {
	orderRepo repository.OrderRepository
	payments  PaymentProcessor
	logger    *zap.Logger
}

// NewOrderService creates a new instance of OrderService
func NewOrderService(
	orderRepo repository.OrderRepository,
	payments PaymentProcessor,
	logger *zap.Logger,
) OrderService {
	return &orderService{
		orderRepo: orderRepo,
		payments:  payments,
		logger:    logger,
	}
}

// Checkout places an order from the user's cart
func (s *orderService) Checkout(ctx context.Context, userID uuid.UUID, shippingAddress string) (*domain.Order, error) {
	if shippingAddress == "" {
		return nil, ErrShippingAddressRequired
	}

	order, err := s.orderRepo.CreateFromCart(ctx, userID, shippingAddress)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Order placed",
		zap.String("order_id", order.ID.String()),
		zap.String("user_id", userID.String()),
		zap.Float64("total", order.TotalAmount),
	)

	ref, charged, err := s.payments.Charge(ctx, order)
	if err != nil {
		// The order exists and the cart is gone; payment can be
		// retried out of band, so surface the failure but keep the
		// order pending rather than unwinding stock.
		s.logger.Error("Payment failed, order left pending",
			zap.String("order_id", order.ID.String()),
			zap.Error(err),
		)
		return order, nil
	}

	if charged {
		if err := s.orderRepo.UpdateStatus(ctx, order.ID, domain.OrderStatusPaid); err != nil {
			return nil, fmt.Errorf("failed to mark order paid: %w", err)
		}
		order.Status = domain.OrderStatusPaid
		s.logger.Info("Order paid",
			zap.String("order_id", order.ID.String()),
			zap.String("payment_ref", ref),
		)
	}

	return order, nil
}

// GetOrder returns an order with its items. Non-admin callers only see
// their own orders.
func (s *orderService) GetOrder(ctx context.Context, userID uuid.UUID, orderID uuid.UUID, isAdmin bool) (*domain.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !isAdmin && order.UserID != userID {
		return nil, ErrNotOrderOwner
	}

	return order, nil
}

// ListUserOrders returns the user's orders, newest first
func (s *orderService) ListUserOrders(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error) {
	return s.orderRepo.ListByUser(ctx, userID)
}

// ListAllOrders returns one page of all orders (admin)
func (s *orderService) ListAllOrders(ctx context.Context, page, pageSize int) ([]*domain.Order, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return s.orderRepo.List(ctx, page, pageSize)
}

// UpdateStatus moves an order along its lifecycle. Only transitions
// allowed by the status machine are accepted; order items are never
// touched.
func (s *orderService) UpdateStatus(ctx context.Context, orderID uuid.UUID, status domain.OrderStatus) (*domain.Order, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatusTransition
	}

	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !order.Status.CanTransitionTo(status) {
		return nil, ErrInvalidStatusTransition
	}

	if err := s.orderRepo.UpdateStatus(ctx, orderID, status); err != nil {
		return nil, err
	}

	s.logger.Info("Order status updated",
		zap.String("order_id", orderID.String()),
		zap.String("from", string(order.Status)),
		zap.String("to", string(status)),
	)

	order.Status = status
	return order, nil
}
