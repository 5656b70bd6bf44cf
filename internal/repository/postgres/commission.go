package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/avc/referral-shop-backend/internal/domain"
	"github.com/jackc/pgx/v5"
)

// CommissionRepository реализует журнал начислений комиссии и outbox-задачи.
type CommissionRepository struct {
	db DBTX
}

// NewCommissionRepository создает новый CommissionRepository
func NewCommissionRepository(db DBTX) *CommissionRepository {
	return &CommissionRepository{db: db}
}

// Credit применяет одно начисление комиссии. Событие и инкремент cc
// выполняются в одной транзакции: либо событие записано и cc увеличен,
// либо ни того ни другого. Повтор события (тот же заказ, получатель и
// продавец) не начисляет cc второй раз — это делает повторную обработку
// задачи безопасной. Возвращает referred_by получателя для следующего
// шага обхода цепочки.
func (r *CommissionRepository) Credit(ctx context.Context, event domain.CommissionEvent) (*int64, bool, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("repository: failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // Rollback после Commit безопасен

	tag, err := tx.Exec(ctx,
		`INSERT INTO commission_events (order_id, beneficiary_id, seller_id, amount, hop)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (order_id, beneficiary_id, seller_id) DO NOTHING`,
		event.OrderID, event.BeneficiaryID, event.SellerID, event.Amount, event.Hop,
	)
	if err != nil {
		return nil, false, fmt.Errorf("repository: failed to record commission event for user %d: %w", event.BeneficiaryID, err)
	}

	applied := tag.RowsAffected() > 0

	var next *int64
	if applied {
		// Атомарный инкремент на стороне БД, без read-modify-write
		err = tx.QueryRow(ctx,
			`UPDATE users SET cc = cc + $2
			 WHERE id = $1
			 RETURNING referred_by`,
			event.BeneficiaryID, event.Amount,
		).Scan(&next)
	} else {
		err = tx.QueryRow(ctx,
			`SELECT referred_by FROM users WHERE id = $1`,
			event.BeneficiaryID,
		).Scan(&next)
	}
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, ErrUserNotFound
		}
		return nil, false, fmt.Errorf("repository: failed to credit user %d: %w", event.BeneficiaryID, err)
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, false, fmt.Errorf("repository: failed to commit commission credit: %w", err)
	}

	return next, applied, nil
}

// ListEventsByOrder возвращает начисления по заказу
func (r *CommissionRepository) ListEventsByOrder(ctx context.Context, orderID string) ([]*domain.CommissionEvent, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, order_id, beneficiary_id, seller_id, amount, hop, created_at
		 FROM commission_events
		 WHERE order_id = $1
		 ORDER BY seller_id, hop`,
		orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to list commission events for order %s: %w", orderID, err)
	}
	defer rows.Close()

	var events []*domain.CommissionEvent
	for rows.Next() {
		ev := &domain.CommissionEvent{}
		if err := rows.Scan(&ev.ID, &ev.OrderID, &ev.BeneficiaryID, &ev.SellerID,
			&ev.Amount, &ev.Hop, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("repository: failed to scan commission event: %w", err)
		}
		events = append(events, ev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating commission events: %w", err)
	}

	return events, nil
}

// PendingTasks возвращает необработанные outbox-задачи, старые первыми
func (r *CommissionRepository) PendingTasks(ctx context.Context, limit int) ([]*domain.CommissionTask, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, order_id, status, attempts, last_error, created_at, updated_at
		 FROM commission_tasks
		 WHERE status = $1
		 ORDER BY updated_at
		 LIMIT $2`,
		domain.TaskStatusPending, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to list pending commission tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*domain.CommissionTask
	for rows.Next() {
		task := &domain.CommissionTask{}
		if err := rows.Scan(&task.ID, &task.OrderID, &task.Status, &task.Attempts,
			&task.LastError, &task.CreatedAt, &task.UpdatedAt); err != nil {
			return nil, fmt.Errorf("repository: failed to scan commission task: %w", err)
		}
		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating commission tasks: %w", err)
	}

	return tasks, nil
}

// MarkTaskDone отмечает задачу успешно обработанной
func (r *CommissionRepository) MarkTaskDone(ctx context.Context, taskID int64) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE commission_tasks
		 SET status = $2, attempts = attempts + 1, last_error = NULL, updated_at = NOW()
		 WHERE id = $1`,
		taskID, domain.TaskStatusDone,
	)
	if err != nil {
		return fmt.Errorf("repository: failed to mark task %d done: %w", taskID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTaskNotFound
	}
	return nil
}

// MarkTaskFailed отмечает задачу неуспешной, сохраняя последнюю ошибку
// для внеполосной сверки
func (r *CommissionRepository) MarkTaskFailed(ctx context.Context, taskID int64, lastError string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE commission_tasks
		 SET status = $2, attempts = attempts + 1, last_error = $3, updated_at = NOW()
		 WHERE id = $1`,
		taskID, domain.TaskStatusFailed, lastError,
	)
	if err != nil {
		return fmt.Errorf("repository: failed to mark task %d failed: %w", taskID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTaskNotFound
	}
	return nil
}
