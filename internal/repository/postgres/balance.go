package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/avc/referral-shop-backend/internal/domain"
	"github.com/jackc/pgx/v5"
)

// BalanceRepository реализует репозиторий баланса и вывода средств.
type BalanceRepository struct {
	db DBTX
}

// NewBalanceRepository создает новый BalanceRepository
func NewBalanceRepository(db DBTX) *BalanceRepository {
	return &BalanceRepository{db: db}
}

// GetBalance возвращает текущий баланс и сумму выведенных средств
func (r *BalanceRepository) GetBalance(ctx context.Context, userID int64) (*domain.Balance, error) {
	balance := &domain.Balance{}
	err := r.db.QueryRow(ctx,
		`SELECT u.balance,
			COALESCE((SELECT SUM(amount) FROM withdrawals WHERE user_id = u.id), 0)
		 FROM users u
		 WHERE u.id = $1`,
		userID,
	).Scan(&balance.Current, &balance.Withdrawn)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("repository: failed to get balance for user %d: %w", userID, err)
	}
	return balance, nil
}

// WithdrawWithLock списывает средства с баланса с блокировкой по пользователю.
// Advisory lock предотвращает гонку при параллельных списаниях.
func (r *BalanceRepository) WithdrawWithLock(ctx context.Context, userID int64, amount float64) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("repository: failed to begin transaction for user %d: %w", userID, err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // Rollback после Commit безопасен

	_, err = tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, userID)
	if err != nil {
		return fmt.Errorf("repository: failed to acquire lock for user %d: %w", userID, err)
	}

	var balance float64
	err = tx.QueryRow(ctx,
		`SELECT balance FROM users WHERE id = $1`, userID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrUserNotFound
		}
		return fmt.Errorf("repository: failed to get balance for user %d: %w", userID, err)
	}

	if balance < amount {
		return ErrInsufficientFunds
	}

	_, err = tx.Exec(ctx,
		`UPDATE users SET balance = balance - $2 WHERE id = $1`,
		userID, amount,
	)
	if err != nil {
		return fmt.Errorf("repository: failed to debit balance for user %d: %w", userID, err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO withdrawals (user_id, amount) VALUES ($1, $2)`,
		userID, amount,
	)
	if err != nil {
		return fmt.Errorf("repository: failed to insert withdrawal for user %d: %w", userID, err)
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("repository: failed to commit withdrawal: %w", err)
	}

	return nil
}

// ListWithdrawals возвращает историю выводов пользователя
func (r *BalanceRepository) ListWithdrawals(ctx context.Context, userID int64) ([]*domain.Withdrawal, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, user_id, amount, processed_at
		 FROM withdrawals
		 WHERE user_id = $1
		 ORDER BY processed_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to list withdrawals for user %d: %w", userID, err)
	}
	defer rows.Close()

	var withdrawals []*domain.Withdrawal
	for rows.Next() {
		w := &domain.Withdrawal{}
		if err := rows.Scan(&w.ID, &w.UserID, &w.Amount, &w.ProcessedAt); err != nil {
			return nil, fmt.Errorf("repository: failed to scan withdrawal: %w", err)
		}
		withdrawals = append(withdrawals, w)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating withdrawals: %w", err)
	}

	return withdrawals, nil
}
