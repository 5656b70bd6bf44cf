package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/avc/referral-shop-backend/internal/domain"
	"github.com/avc/referral-shop-backend/internal/repository/postgres"
)

// CartService реализует работу с корзиной пользователя.
type CartService struct {
	cartRepo    domain.CartRepository
	productRepo domain.ProductRepository
}

// NewCartService создает новый CartService
func NewCartService(cartRepo domain.CartRepository, productRepo domain.ProductRepository) *CartService {
	return &CartService{
		cartRepo:    cartRepo,
		productRepo: productRepo,
	}
}

// GetCart возвращает корзину пользователя
func (s *CartService) GetCart(ctx context.Context, userID int64) (*domain.Cart, error) {
	cart, err := s.cartRepo.GetCart(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("cart service: failed to get cart for user %d: %w", userID, err)
	}
	return cart, nil
}

// AddItem добавляет товар в корзину. Повторное добавление того же товара
// увеличивает количество.
func (s *CartService) AddItem(ctx context.Context, userID, productID int64, quantity int) error {
	if quantity <= 0 {
		return ErrInvalidInput
	}

	// Товар должен существовать в каталоге
	if _, err := s.productRepo.GetProductByID(ctx, productID); err != nil {
		if errors.Is(err, postgres.ErrProductNotFound) {
			return ErrProductNotFound
		}
		return fmt.Errorf("cart service: failed to resolve product %d: %w", productID, err)
	}

	if err := s.cartRepo.AddItem(ctx, userID, productID, quantity); err != nil {
		return fmt.Errorf("cart service: failed to add product %d to cart of user %d: %w", productID, userID, err)
	}
	return nil
}

// UpdateItem меняет количество товара в корзине
func (s *CartService) UpdateItem(ctx context.Context, userID, productID int64, quantity int) error {
	if quantity <= 0 {
		return s.RemoveItem(ctx, userID, productID)
	}

	err := s.cartRepo.UpdateItem(ctx, userID, productID, quantity)
	if err != nil {
		if errors.Is(err, postgres.ErrItemNotFound) {
			return ErrItemNotFound
		}
		return fmt.Errorf("cart service: failed to update product %d in cart of user %d: %w", productID, userID, err)
	}
	return nil
}

// RemoveItem удаляет товар из корзины
func (s *CartService) RemoveItem(ctx context.Context, userID, productID int64) error {
	err := s.cartRepo.RemoveItem(ctx, userID, productID)
	if err != nil {
		if errors.Is(err, postgres.ErrItemNotFound) {
			return ErrItemNotFound
		}
		return fmt.Errorf("cart service: failed to remove product %d from cart of user %d: %w", productID, userID, err)
	}
	return nil
}

// ClearCart очищает корзину пользователя
func (s *CartService) ClearCart(ctx context.Context, userID int64) error {
	if err := s.cartRepo.ClearCart(ctx, userID); err != nil {
		return fmt.Errorf("cart service: failed to clear cart of user %d: %w", userID, err)
	}
	return nil
}
