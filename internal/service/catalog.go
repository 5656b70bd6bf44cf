package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/avc/referral-shop-backend/internal/domain"
	"github.com/avc/referral-shop-backend/internal/repository/postgres"
)

// CatalogService реализует работу с каталогом товаров и отзывами.
type CatalogService struct {
	productRepo domain.ProductRepository
}

// NewCatalogService создает новый CatalogService
func NewCatalogService(productRepo domain.ProductRepository) *CatalogService {
	return &CatalogService{productRepo: productRepo}
}

// CreateProduct добавляет товар в каталог
func (s *CatalogService) CreateProduct(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	if product.Name == "" || product.Price < 0 || product.CommissionCC < 0 {
		return nil, ErrInvalidInput
	}

	created, err := s.productRepo.CreateProduct(ctx, product)
	if err != nil {
		return nil, fmt.Errorf("catalog service: failed to create product %q: %w", product.Name, err)
	}
	return created, nil
}

// GetProduct возвращает товар по идентификатору
func (s *CatalogService) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	product, err := s.productRepo.GetProductByID(ctx, id)
	if err != nil {
		if errors.Is(err, postgres.ErrProductNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("catalog service: failed to get product %d: %w", id, err)
	}
	return product, nil
}

// ListProducts возвращает товары каталога
func (s *CatalogService) ListProducts(ctx context.Context) ([]*domain.Product, error) {
	products, err := s.productRepo.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalog service: failed to list products: %w", err)
	}
	return products, nil
}

// DeleteProduct удаляет товар из каталога
func (s *CatalogService) DeleteProduct(ctx context.Context, id int64) error {
	err := s.productRepo.DeleteProduct(ctx, id)
	if err != nil {
		if errors.Is(err, postgres.ErrProductNotFound) {
			return ErrProductNotFound
		}
		return fmt.Errorf("catalog service: failed to delete product %d: %w", id, err)
	}
	return nil
}

// AddReview добавляет отзыв о товаре. Пользователь может оставить
// только один отзыв на товар.
func (s *CatalogService) AddReview(ctx context.Context, review *domain.Review) error {
	if review.Rating < 1 || review.Rating > 5 {
		return ErrInvalidRating
	}

	err := s.productRepo.AddReview(ctx, review)
	if err != nil {
		switch {
		case errors.Is(err, postgres.ErrReviewExists):
			return ErrReviewExists
		case errors.Is(err, postgres.ErrProductNotFound):
			return ErrProductNotFound
		}
		return fmt.Errorf("catalog service: failed to add review for product %d: %w", review.ProductID, err)
	}
	return nil
}

// ListReviews возвращает отзывы о товаре
func (s *CatalogService) ListReviews(ctx context.Context, productID int64) ([]*domain.Review, error) {
	reviews, err := s.productRepo.ListReviews(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("catalog service: failed to list reviews for product %d: %w", productID, err)
	}
	return reviews, nil
}
