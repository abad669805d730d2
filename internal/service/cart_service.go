package service

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/domain"
	"storefront/internal/repository"

	"github.com/google/uuid"
)

var (
	ErrInvalidQuantity   = errors.New("quantity must be positive")
	ErrProductInactive   = errors.New("product is not available")
	ErrStockLimitReached = errors.New("requested quantity exceeds available stock")
)

// Cart is a user's cart with the running total at current prices
type Cart struct {
	Items []*domain.CartItem `json:"items"`
	Total float64            `json:"total"`
}

// CartService defines the interface for cart business logic
type CartService interface {
	GetCart(ctx context.Context, userID uuid.UUID) (*Cart, error)
	AddItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (*domain.CartItem, error)
	UpdateItemQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) error
	RemoveItem(ctx context.Context, userID, itemID uuid.UUID) error
}

type cartService struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
}

// NewCartService creates a new instance of CartService
func NewCartService(
	cartRepo repository.CartRepository,
	productRepo repository.ProductRepository,
) CartService {
	return &cartService{
		cartRepo:    cartRepo,
		productRepo: productRepo,
	}
}

// GetCart returns the user's cart items and total
func (s *cartService) GetCart(ctx context.Context, userID uuid.UUID) (*Cart, error) {
	items, err := s.cartRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}

	cart := &Cart{Items: items}
	for _, item := range items {
		cart.Total += item.Subtotal()
	}

	return cart, nil
}

// AddItem puts quantity units of a product into the cart. If the
// product is already there the existing row's quantity grows instead
// of a second row appearing. The combined quantity may not exceed the
// product's stock.
func (s *cartService) AddItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (*domain.CartItem, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	if !product.Active {
		return nil, ErrProductInactive
	}

	if quantity > product.Stock {
		return nil, ErrStockLimitReached
	}

	item, err := s.cartRepo.Upsert(ctx, userID, productID, quantity)
	if err != nil {
		return nil, err
	}

	// The upsert may have pushed the combined quantity past the stock
	// limit; clamp back down and report the rejection.
	if item.Quantity > product.Stock {
		if err := s.cartRepo.UpdateQuantity(ctx, userID, item.ID, product.Stock); err != nil {
			return nil, err
		}
		return nil, ErrStockLimitReached
	}

	item.Product = product
	return item, nil
}

// UpdateItemQuantity sets a cart line's quantity. Zero or negative
// removes the line, mirroring how storefront quantity steppers behave.
func (s *cartService) UpdateItemQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) error {
	item, err := s.cartRepo.FindByID(ctx, userID, itemID)
	if err != nil {
		return err
	}

	if quantity <= 0 {
		return s.cartRepo.Delete(ctx, userID, itemID)
	}

	if item.Product != nil && quantity > item.Product.Stock {
		return ErrStockLimitReached
	}

	return s.cartRepo.UpdateQuantity(ctx, userID, itemID, quantity)
}

// RemoveItem deletes a cart line
func (s *cartService) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) error {
	return s.cartRepo.Delete(ctx, userID, itemID)
}
