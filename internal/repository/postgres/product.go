package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/avc/referral-shop-backend/internal/domain"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const productColumns = `p.id, p.name, p.description, p.price, p.category, p.subcategory,
	p.bestseller, p.commission_cc, p.created_by,
	COALESCE((SELECT AVG(rating) FROM product_reviews WHERE product_id = p.id), 0),
	p.created_at`

// ProductRepository реализует репозиторий каталога товаров.
type ProductRepository struct {
	db DBTX
}

// NewProductRepository создает новый ProductRepository
func NewProductRepository(db DBTX) *ProductRepository {
	return &ProductRepository{db: db}
}

func scanProduct(row pgx.Row) (*domain.Product, error) {
	p := &domain.Product{}
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.Price, &p.Category, &p.Subcategory,
		&p.Bestseller, &p.CommissionCC, &p.CreatedBy, &p.AverageRating, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// CreateProduct создает новый товар
func (r *ProductRepository) CreateProduct(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	created := &domain.Product{}
	*created = *product

	err := r.db.QueryRow(ctx,
		`INSERT INTO products (name, description, price, category, subcategory,
			bestseller, commission_cc, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, created_at`,
		product.Name, product.Description, product.Price, product.Category,
		product.Subcategory, product.Bestseller, product.CommissionCC, product.CreatedBy,
	).Scan(&created.ID, &created.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to create product %q: %w", product.Name, err)
	}

	return created, nil
}

// GetProductByID получает товар по ID вместе со средним рейтингом
func (r *ProductRepository) GetProductByID(ctx context.Context, id int64) (*domain.Product, error) {
	product, err := scanProduct(r.db.QueryRow(ctx,
		`SELECT `+productColumns+` FROM products p WHERE p.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("repository: failed to get product by id %d: %w", id, err)
	}
	return product, nil
}

// ListProducts возвращает все товары каталога
func (r *ProductRepository) ListProducts(ctx context.Context) ([]*domain.Product, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+productColumns+` FROM products p ORDER BY p.created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to list products: %w", err)
	}
	defer rows.Close()

	var products []*domain.Product
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan product: %w", err)
		}
		products = append(products, product)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating products: %w", err)
	}

	return products, nil
}

// DeleteProduct удаляет товар
func (r *ProductRepository) DeleteProduct(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("repository: failed to delete product %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

// AddReview добавляет отзыв о товаре. Один пользователь может оставить
// не более одного отзыва на товар.
func (r *ProductRepository) AddReview(ctx context.Context, review *domain.Review) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO product_reviews (product_id, user_id, rating, comment)
		 VALUES ($1, $2, $3, $4)`,
		review.ProductID, review.UserID, review.Rating, review.Comment,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case pgerrcode.UniqueViolation:
				return ErrReviewExists
			case pgerrcode.ForeignKeyViolation:
				return ErrProductNotFound
			}
		}
		return fmt.Errorf("repository: failed to add review for product %d: %w", review.ProductID, err)
	}
	return nil
}

// ListReviews возвращает отзывы о товаре
func (r *ProductRepository) ListReviews(ctx context.Context, productID int64) ([]*domain.Review, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, product_id, user_id, rating, comment, created_at
		 FROM product_reviews
		 WHERE product_id = $1
		 ORDER BY created_at DESC`,
		productID,
	)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to list reviews for product %d: %w", productID, err)
	}
	defer rows.Close()

	var reviews []*domain.Review
	for rows.Next() {
		rev := &domain.Review{}
		if err := rows.Scan(&rev.ID, &rev.ProductID, &rev.UserID, &rev.Rating, &rev.Comment, &rev.CreatedAt); err != nil {
			return nil, fmt.Errorf("repository: failed to scan review: %w", err)
		}
		reviews = append(reviews, rev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating reviews: %w", err)
	}

	return reviews, nil
}
