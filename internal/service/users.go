package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/avc/referral-shop-backend/internal/domain"
	"github.com/avc/referral-shop-backend/internal/repository/postgres"
)

// UserService реализует работу с профилем, командой и администрирование пользователей.
type UserService struct {
	userRepo domain.UserRepository
}

// NewUserService создает новый UserService
func NewUserService(userRepo domain.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

// GetProfile возвращает профиль пользователя
func (s *UserService) GetProfile(ctx context.Context, userID int64) (*domain.User, error) {
	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, postgres.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("user service: failed to get user %d: %w", userID, err)
	}
	return user, nil
}

// ListTeam возвращает прямую команду пользователя
func (s *UserService) ListTeam(ctx context.Context, userID int64) ([]*domain.TeamMember, error) {
	team, err := s.userRepo.ListTeam(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("user service: failed to list team of user %d: %w", userID, err)
	}
	return team, nil
}

// GetTeamStats возвращает статистику команды по веткам
func (s *UserService) GetTeamStats(ctx context.Context, userID int64) (*domain.TeamStats, error) {
	stats, err := s.userRepo.GetTeamStats(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("user service: failed to get team stats of user %d: %w", userID, err)
	}
	return stats, nil
}

// ListUsers возвращает всех пользователей (для администратора)
func (s *UserService) ListUsers(ctx context.Context) ([]*domain.User, error) {
	users, err := s.userRepo.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("user service: failed to list users: %w", err)
	}
	return users, nil
}

// UpdateRole меняет роль пользователя
func (s *UserService) UpdateRole(ctx context.Context, userID int64, role domain.Role) error {
	if role != domain.RoleUser && role != domain.RoleAdmin {
		return ErrInvalidInput
	}

	err := s.userRepo.UpdateRole(ctx, userID, role)
	if err != nil {
		if errors.Is(err, postgres.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("user service: failed to update role of user %d: %w", userID, err)
	}
	return nil
}

// SetBlocked блокирует или разблокирует пользователя. Заблокированный
// пользователь не может оформлять заказы и выводить средства, но его
// место в реферальном дереве сохраняется.
func (s *UserService) SetBlocked(ctx context.Context, userID int64, blocked bool) error {
	err := s.userRepo.SetBlocked(ctx, userID, blocked)
	if err != nil {
		if errors.Is(err, postgres.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("user service: failed to set blocked=%t for user %d: %w", blocked, userID, err)
	}
	return nil
}
