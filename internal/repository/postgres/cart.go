package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/avc/referral-shop-backend/internal/domain"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

// CartRepository реализует репозиторий корзин.
type CartRepository struct {
	db DBTX
}

// NewCartRepository создает новый CartRepository
func NewCartRepository(db DBTX) *CartRepository {
	return &CartRepository{db: db}
}

// GetCart возвращает корзину пользователя. Пустая корзина не является ошибкой.
func (r *CartRepository) GetCart(ctx context.Context, userID int64) (*domain.Cart, error) {
	rows, err := r.db.Query(ctx,
		`SELECT product_id, quantity
		 FROM cart_items
		 WHERE user_id = $1
		 ORDER BY product_id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to get cart for user %d: %w", userID, err)
	}
	defer rows.Close()

	cart := &domain.Cart{UserID: userID, Items: []domain.CartItem{}}
	for rows.Next() {
		var item domain.CartItem
		if err := rows.Scan(&item.ProductID, &item.Quantity); err != nil {
			return nil, fmt.Errorf("repository: failed to scan cart item: %w", err)
		}
		cart.Items = append(cart.Items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating cart items: %w", err)
	}

	return cart, nil
}

// AddItem добавляет товар в корзину или увеличивает количество уже добавленного
func (r *CartRepository) AddItem(ctx context.Context, userID, productID int64, quantity int) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("repository: failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // Rollback после Commit безопасен

	_, err = tx.Exec(ctx,
		`INSERT INTO carts (user_id) VALUES ($1)
		 ON CONFLICT (user_id) DO UPDATE SET updated_at = NOW()`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("repository: failed to ensure cart for user %d: %w", userID, err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO cart_items (user_id, product_id, quantity)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (user_id, product_id)
		 DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity`,
		userID, productID, quantity,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return ErrProductNotFound
		}
		return fmt.Errorf("repository: failed to add item to cart for user %d: %w", userID, err)
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("repository: failed to commit cart update: %w", err)
	}

	return nil
}

// UpdateItem устанавливает количество товара в корзине
func (r *CartRepository) UpdateItem(ctx context.Context, userID, productID int64, quantity int) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE cart_items SET quantity = $3
		 WHERE user_id = $1 AND product_id = $2`,
		userID, productID, quantity,
	)
	if err != nil {
		return fmt.Errorf("repository: failed to update cart item for user %d: %w", userID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrItemNotFound
	}
	return nil
}

// RemoveItem удаляет товар из корзины
func (r *CartRepository) RemoveItem(ctx context.Context, userID, productID int64) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM cart_items WHERE user_id = $1 AND product_id = $2`,
		userID, productID,
	)
	if err != nil {
		return fmt.Errorf("repository: failed to remove cart item for user %d: %w", userID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrItemNotFound
	}
	return nil
}

// ClearCart удаляет все позиции корзины пользователя
func (r *CartRepository) ClearCart(ctx context.Context, userID int64) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM cart_items WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("repository: failed to clear cart for user %d: %w", userID, err)
	}
	return nil
}
