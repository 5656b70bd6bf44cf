package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/avc/referral-shop-backend/internal/domain"
	"github.com/avc/referral-shop-backend/internal/repository/postgres"
)

// LevelService проверяет достижение уровней дохода и управляет их настройкой.
type LevelService struct {
	levelRepo domain.LevelRepository
	userRepo  domain.UserRepository
}

// NewLevelService создает новый LevelService
func NewLevelService(levelRepo domain.LevelRepository, userRepo domain.UserRepository) *LevelService {
	return &LevelService{
		levelRepo: levelRepo,
		userRepo:  userRepo,
	}
}

// Evaluate проверяет, какие уровни пользователь достиг по накопленным cc,
// и выдает недостающие. Выдача каждого уровня разовая, повторная проверка
// без изменения cc ничего не меняет. Вознаграждения выданных уровней
// зачисляются на баланс.
func (s *LevelService) Evaluate(ctx context.Context, userID int64) (*domain.UnlockResult, error) {
	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("level service: failed to get user %d: %w", userID, err)
	}

	levels, err := s.levelRepo.ListLevels(ctx)
	if err != nil {
		return nil, fmt.Errorf("level service: failed to list levels: %w", err)
	}

	grants, err := s.levelRepo.ListGrants(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("level service: failed to list grants for user %d: %w", userID, err)
	}

	eligible := eligibleLevels(user.CC, levels, grants)
	if len(eligible) == 0 {
		return &domain.UnlockResult{Granted: []domain.IncomeLevel{}}, nil
	}

	grantedIDs, err := s.levelRepo.ApplyGrants(ctx, userID, eligible)
	if err != nil {
		return nil, fmt.Errorf("level service: failed to apply grants for user %d: %w", userID, err)
	}

	result := &domain.UnlockResult{Granted: []domain.IncomeLevel{}}
	grantedSet := make(map[int64]bool, len(grantedIDs))
	for _, id := range grantedIDs {
		grantedSet[id] = true
	}
	for _, level := range eligible {
		if grantedSet[level.ID] {
			result.Granted = append(result.Granted, level)
			result.RewardTotal += level.Reward
		}
	}

	return result, nil
}

// eligibleLevels возвращает уровни, достигнутые по cc и еще не выданные,
// по возрастанию порога. Порядку хранения не доверяем.
func eligibleLevels(cc float64, levels []*domain.IncomeLevel, grants []*domain.LevelGrant) []domain.IncomeLevel {
	granted := make(map[int64]bool, len(grants))
	for _, g := range grants {
		granted[g.LevelID] = true
	}

	var eligible []domain.IncomeLevel
	for _, level := range levels {
		if granted[level.ID] {
			continue
		}
		if cc >= level.Threshold {
			eligible = append(eligible, *level)
		}
	}

	sort.Slice(eligible, func(i, j int) bool {
		if eligible[i].Threshold != eligible[j].Threshold {
			return eligible[i].Threshold < eligible[j].Threshold
		}
		return eligible[i].ID < eligible[j].ID
	})

	return eligible
}

// CreateLevel создает новый уровень дохода
func (s *LevelService) CreateLevel(ctx context.Context, level *domain.IncomeLevel) (*domain.IncomeLevel, error) {
	if level.Name == "" || level.Threshold < 0 || level.Reward < 0 {
		return nil, ErrInvalidInput
	}

	created, err := s.levelRepo.CreateLevel(ctx, level)
	if err != nil {
		if errors.Is(err, postgres.ErrLevelExists) {
			return nil, ErrLevelExists
		}
		return nil, fmt.Errorf("level service: failed to create level %q: %w", level.Name, err)
	}

	return created, nil
}

// ListLevels возвращает уровни дохода по возрастанию порога
func (s *LevelService) ListLevels(ctx context.Context) ([]*domain.IncomeLevel, error) {
	levels, err := s.levelRepo.ListLevels(ctx)
	if err != nil {
		return nil, fmt.Errorf("level service: failed to list levels: %w", err)
	}

	sort.Slice(levels, func(i, j int) bool { return levels[i].Threshold < levels[j].Threshold })

	return levels, nil
}

// DeleteLevel удаляет уровень дохода
func (s *LevelService) DeleteLevel(ctx context.Context, id int64) error {
	err := s.levelRepo.DeleteLevel(ctx, id)
	if err != nil {
		if errors.Is(err, postgres.ErrLevelNotFound) {
			return ErrLevelNotFound
		}
		return fmt.Errorf("level service: failed to delete level %d: %w", id, err)
	}
	return nil
}
