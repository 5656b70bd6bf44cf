package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/avc/referral-shop-backend/internal/domain"
	"github.com/jackc/pgx/v5"
)

const orderColumns = `id, buyer_id, amount, payment_method, gateway_session_ref,
	paid, status, street, city, state, country, zipcode, created_at`

// OrderRepository реализует репозиторий заказов.
type OrderRepository struct {
	db DBTX
}

// NewOrderRepository создает новый OrderRepository
func NewOrderRepository(db DBTX) *OrderRepository {
	return &OrderRepository{db: db}
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	o := &domain.Order{}
	err := row.Scan(
		&o.ID, &o.BuyerID, &o.Amount, &o.PaymentMethod, &o.GatewaySessionRef,
		&o.Paid, &o.Status, &o.Address.Street, &o.Address.City, &o.Address.State,
		&o.Address.Country, &o.Address.Zipcode, &o.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return o, nil
}

// CreateOrder сохраняет заказ, его позиции, историю продаж продавцов и,
// при withTask, outbox-задачу на начисление комиссии — в одной транзакции.
// Там же очищается корзина покупателя: заказ и его побочные записи либо
// появляются все вместе, либо не появляются вовсе.
func (r *OrderRepository) CreateOrder(ctx context.Context, order *domain.Order, withTask bool) (*domain.Order, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // Rollback после Commit безопасен

	created := &domain.Order{}
	*created = *order

	err = tx.QueryRow(ctx,
		`INSERT INTO orders (id, buyer_id, amount, payment_method, gateway_session_ref,
			paid, status, street, city, state, country, zipcode)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 RETURNING created_at`,
		order.ID, order.BuyerID, order.Amount, order.PaymentMethod,
		order.GatewaySessionRef, order.Paid, order.Status,
		order.Address.Street, order.Address.City, order.Address.State,
		order.Address.Country, order.Address.Zipcode,
	).Scan(&created.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to create order %s: %w", order.ID, err)
	}

	for _, item := range order.Items {
		_, err = tx.Exec(ctx,
			`INSERT INTO order_items (order_id, product_id, seller_id, quantity,
				unit_price, unit_commission)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			order.ID, item.ProductID, item.SellerID, item.Quantity,
			item.UnitPrice, item.UnitCommission,
		)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to create order item %d: %w", item.ProductID, err)
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO seller_sales (seller_id, order_id)
			 VALUES ($1, $2)
			 ON CONFLICT DO NOTHING`,
			item.SellerID, order.ID,
		)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to record sale for seller %d: %w", item.SellerID, err)
		}
	}

	if withTask {
		_, err = tx.Exec(ctx,
			`INSERT INTO commission_tasks (order_id) VALUES ($1)
			 ON CONFLICT (order_id) DO NOTHING`,
			order.ID,
		)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to enqueue commission task for order %s: %w", order.ID, err)
		}
	}

	_, err = tx.Exec(ctx,
		`DELETE FROM cart_items WHERE user_id = $1`, order.BuyerID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to clear cart for buyer %d: %w", order.BuyerID, err)
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("repository: failed to commit order %s: %w", order.ID, err)
	}

	return created, nil
}

// GetOrderByID получает заказ по ID вместе с позициями
func (r *OrderRepository) GetOrderByID(ctx context.Context, id string) (*domain.Order, error) {
	order, err := scanOrder(r.db.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("repository: failed to get order %s: %w", id, err)
	}

	rows, err := r.db.Query(ctx,
		`SELECT product_id, seller_id, quantity, unit_price, unit_commission
		 FROM order_items
		 WHERE order_id = $1
		 ORDER BY product_id`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to get items for order %s: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.ProductID, &item.SellerID, &item.Quantity,
			&item.UnitPrice, &item.UnitCommission); err != nil {
			return nil, fmt.Errorf("repository: failed to scan order item: %w", err)
		}
		order.Items = append(order.Items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating order items: %w", err)
	}

	return order, nil
}

// ListOrdersByBuyer возвращает заказы покупателя, новые первыми
func (r *OrderRepository) ListOrdersByBuyer(ctx context.Context, buyerID int64) ([]*domain.Order, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+orderColumns+` FROM orders
		 WHERE buyer_id = $1
		 ORDER BY created_at DESC`,
		buyerID,
	)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to list orders for buyer %d: %w", buyerID, err)
	}
	defer rows.Close()

	return collectOrders(rows)
}

// ListAllOrders возвращает все заказы (для админ-панели)
func (r *OrderRepository) ListAllOrders(ctx context.Context) ([]*domain.Order, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to list orders: %w", err)
	}
	defer rows.Close()

	return collectOrders(rows)
}

func collectOrders(rows pgx.Rows) ([]*domain.Order, error) {
	var orders []*domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating orders: %w", err)
	}

	return orders, nil
}

// UpdateStatus обновляет статус заказа
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE orders SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("repository: failed to update status for order %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// MarkPaid отмечает заказ оплаченным и в той же транзакции ставит
// outbox-задачу на начисление комиссии и очищает корзину покупателя.
// Используется в шлюзовых способах оплаты после подтверждения платежа.
func (r *OrderRepository) MarkPaid(ctx context.Context, id string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("repository: failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // Rollback после Commit безопасен

	var buyerID int64
	err = tx.QueryRow(ctx,
		`UPDATE orders SET paid = TRUE, status = $2
		 WHERE id = $1
		 RETURNING buyer_id`,
		id, domain.OrderStatusPaid,
	).Scan(&buyerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrOrderNotFound
		}
		return fmt.Errorf("repository: failed to mark order %s paid: %w", id, err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO commission_tasks (order_id) VALUES ($1)
		 ON CONFLICT (order_id) DO NOTHING`,
		id,
	)
	if err != nil {
		return fmt.Errorf("repository: failed to enqueue commission task for order %s: %w", id, err)
	}

	_, err = tx.Exec(ctx,
		`DELETE FROM cart_items WHERE user_id = $1`, buyerID)
	if err != nil {
		return fmt.Errorf("repository: failed to clear cart for buyer %d: %w", buyerID, err)
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("repository: failed to commit payment for order %s: %w", id, err)
	}

	return nil
}

// DeleteOrder удаляет заказ. Используется при отклоненном платеже
// и в админ-панели.
func (r *OrderRepository) DeleteOrder(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("repository: failed to delete order %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}
