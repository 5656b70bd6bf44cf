package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/avc/referral-shop-backend/internal/domain"
	"github.com/avc/referral-shop-backend/internal/repository/postgres"
)

// BalanceService реализует работу с балансом и выводом средств.
type BalanceService struct {
	balanceRepo   domain.BalanceRepository
	minWithdrawal float64
}

// NewBalanceService создает новый BalanceService
func NewBalanceService(balanceRepo domain.BalanceRepository, minWithdrawal float64) *BalanceService {
	return &BalanceService{
		balanceRepo:   balanceRepo,
		minWithdrawal: minWithdrawal,
	}
}

// GetBalance возвращает текущий баланс и сумму выведенных средств
func (s *BalanceService) GetBalance(ctx context.Context, userID int64) (*domain.Balance, error) {
	balance, err := s.balanceRepo.GetBalance(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("balance service: failed to get balance for user %d: %w", userID, err)
	}
	return balance, nil
}

// Withdraw выводит средства с баланса. Сумма ниже минимальной отклоняется,
// списание больше доступного баланса невозможно.
func (s *BalanceService) Withdraw(ctx context.Context, userID int64, amount float64) error {
	if amount <= 0 {
		return ErrInvalidInput
	}
	if amount < s.minWithdrawal {
		return fmt.Errorf("%w: minimum is %.2f", ErrBelowMinimumWithdrawal, s.minWithdrawal)
	}

	err := s.balanceRepo.WithdrawWithLock(ctx, userID, amount)
	if err != nil {
		if errors.Is(err, postgres.ErrInsufficientFunds) {
			return ErrInsufficientBalance
		}
		return fmt.Errorf("balance service: failed to withdraw %.2f for user %d: %w", amount, userID, err)
	}
	return nil
}

// ListWithdrawals возвращает историю выводов пользователя
func (s *BalanceService) ListWithdrawals(ctx context.Context, userID int64) ([]*domain.Withdrawal, error) {
	withdrawals, err := s.balanceRepo.ListWithdrawals(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("balance service: failed to list withdrawals for user %d: %w", userID, err)
	}
	return withdrawals, nil
}
