package service

import (
	"context"
	"errors"
	"testing"

	"github.com/avc/referral-shop-backend/internal/domain"
	"github.com/avc/referral-shop-backend/internal/repository/postgres"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type levelRepoMock struct {
	mock.Mock
}

func (m *levelRepoMock) CreateLevel(ctx context.Context, level *domain.IncomeLevel) (*domain.IncomeLevel, error) {
	args := m.Called(ctx, level)
	if v := args.Get(0); v != nil {
		return v.(*domain.IncomeLevel), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *levelRepoMock) ListLevels(ctx context.Context) ([]*domain.IncomeLevel, error) {
	args := m.Called(ctx)
	if v := args.Get(0); v != nil {
		return v.([]*domain.IncomeLevel), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *levelRepoMock) DeleteLevel(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *levelRepoMock) ListGrants(ctx context.Context, userID int64) ([]*domain.LevelGrant, error) {
	args := m.Called(ctx, userID)
	if v := args.Get(0); v != nil {
		return v.([]*domain.LevelGrant), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *levelRepoMock) ApplyGrants(ctx context.Context, userID int64, levels []domain.IncomeLevel) ([]int64, error) {
	args := m.Called(ctx, userID, levels)
	if v := args.Get(0); v != nil {
		return v.([]int64), args.Error(1)
	}
	return nil, args.Error(1)
}

type userRepoMock struct {
	mock.Mock
}

func (m *userRepoMock) CreateUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	args := m.Called(ctx, user)
	if v := args.Get(0); v != nil {
		return v.(*domain.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *userRepoMock) GetUserByID(ctx context.Context, id int64) (*domain.User, error) {
	args := m.Called(ctx, id)
	if v := args.Get(0); v != nil {
		return v.(*domain.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *userRepoMock) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if v := args.Get(0); v != nil {
		return v.(*domain.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *userRepoMock) GetUserByReferralCode(ctx context.Context, code string) (*domain.User, error) {
	args := m.Called(ctx, code)
	if v := args.Get(0); v != nil {
		return v.(*domain.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *userRepoMock) ListUsers(ctx context.Context) ([]*domain.User, error) {
	args := m.Called(ctx)
	if v := args.Get(0); v != nil {
		return v.([]*domain.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *userRepoMock) UpdateRole(ctx context.Context, id int64, role domain.Role) error {
	return m.Called(ctx, id, role).Error(0)
}

func (m *userRepoMock) SetBlocked(ctx context.Context, id int64, blocked bool) error {
	return m.Called(ctx, id, blocked).Error(0)
}

func (m *userRepoMock) ListTeam(ctx context.Context, referrerID int64) ([]*domain.TeamMember, error) {
	args := m.Called(ctx, referrerID)
	if v := args.Get(0); v != nil {
		return v.([]*domain.TeamMember), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *userRepoMock) GetTeamStats(ctx context.Context, referrerID int64) (*domain.TeamStats, error) {
	args := m.Called(ctx, referrerID)
	if v := args.Get(0); v != nil {
		return v.(*domain.TeamStats), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestLevelService_Evaluate(t *testing.T) {
	ctx := context.Background()

	twoLevels := []*domain.IncomeLevel{
		{ID: 2, Name: "Silver", Threshold: 200, Reward: 30},
		{ID: 1, Name: "Bronze", Threshold: 100, Reward: 20},
	}

	t.Run("First threshold reached grants first level only", func(t *testing.T) {
		levelRepo := &levelRepoMock{}
		userRepo := &userRepoMock{}
		svc := NewLevelService(levelRepo, userRepo)

		userRepo.On("GetUserByID", mock.Anything, int64(7)).Return(&domain.User{ID: 7, CC: 150}, nil).Once()
		levelRepo.On("ListLevels", mock.Anything).Return(twoLevels, nil).Once()
		levelRepo.On("ListGrants", mock.Anything, int64(7)).Return([]*domain.LevelGrant{}, nil).Once()
		levelRepo.On("ApplyGrants", mock.Anything, int64(7),
			[]domain.IncomeLevel{{ID: 1, Name: "Bronze", Threshold: 100, Reward: 20}}).
			Return([]int64{1}, nil).Once()

		result, err := svc.Evaluate(ctx, 7)
		require.NoError(t, err)
		require.Len(t, result.Granted, 1)
		assert.Equal(t, int64(1), result.Granted[0].ID)
		assert.Equal(t, float64(20), result.RewardTotal)
		levelRepo.AssertExpectations(t)
	})

	t.Run("Second threshold grants only missing level", func(t *testing.T) {
		levelRepo := &levelRepoMock{}
		userRepo := &userRepoMock{}
		svc := NewLevelService(levelRepo, userRepo)

		userRepo.On("GetUserByID", mock.Anything, int64(7)).Return(&domain.User{ID: 7, CC: 250}, nil).Once()
		levelRepo.On("ListLevels", mock.Anything).Return(twoLevels, nil).Once()
		levelRepo.On("ListGrants", mock.Anything, int64(7)).
			Return([]*domain.LevelGrant{{LevelID: 1}}, nil).Once()
		levelRepo.On("ApplyGrants", mock.Anything, int64(7),
			[]domain.IncomeLevel{{ID: 2, Name: "Silver", Threshold: 200, Reward: 30}}).
			Return([]int64{2}, nil).Once()

		result, err := svc.Evaluate(ctx, 7)
		require.NoError(t, err)
		require.Len(t, result.Granted, 1)
		assert.Equal(t, int64(2), result.Granted[0].ID)
		assert.Equal(t, float64(30), result.RewardTotal)
		levelRepo.AssertExpectations(t)
	})

	t.Run("Nothing eligible skips apply", func(t *testing.T) {
		levelRepo := &levelRepoMock{}
		userRepo := &userRepoMock{}
		svc := NewLevelService(levelRepo, userRepo)

		userRepo.On("GetUserByID", mock.Anything, int64(7)).Return(&domain.User{ID: 7, CC: 50}, nil).Once()
		levelRepo.On("ListLevels", mock.Anything).Return(twoLevels, nil).Once()
		levelRepo.On("ListGrants", mock.Anything, int64(7)).Return([]*domain.LevelGrant{}, nil).Once()

		result, err := svc.Evaluate(ctx, 7)
		require.NoError(t, err)
		assert.Empty(t, result.Granted)
		assert.Zero(t, result.RewardTotal)
		levelRepo.AssertNotCalled(t, "ApplyGrants", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Concurrent grant loses race, no reward counted", func(t *testing.T) {
		levelRepo := &levelRepoMock{}
		userRepo := &userRepoMock{}
		svc := NewLevelService(levelRepo, userRepo)

		userRepo.On("GetUserByID", mock.Anything, int64(7)).Return(&domain.User{ID: 7, CC: 150}, nil).Once()
		levelRepo.On("ListLevels", mock.Anything).Return(twoLevels, nil).Once()
		levelRepo.On("ListGrants", mock.Anything, int64(7)).Return([]*domain.LevelGrant{}, nil).Once()
		// Параллельная проверка успела выдать уровень первой
		levelRepo.On("ApplyGrants", mock.Anything, int64(7), mock.Anything).Return([]int64{}, nil).Once()

		result, err := svc.Evaluate(ctx, 7)
		require.NoError(t, err)
		assert.Empty(t, result.Granted)
		assert.Zero(t, result.RewardTotal)
	})
}

func TestEligibleLevels(t *testing.T) {
	levels := []*domain.IncomeLevel{
		{ID: 3, Threshold: 300, Reward: 50},
		{ID: 1, Threshold: 100, Reward: 20},
		{ID: 2, Threshold: 200, Reward: 30},
	}

	t.Run("Sorted ascending by threshold", func(t *testing.T) {
		eligible := eligibleLevels(250, levels, nil)
		require.Len(t, eligible, 2)
		assert.Equal(t, int64(1), eligible[0].ID)
		assert.Equal(t, int64(2), eligible[1].ID)
	})

	t.Run("Granted levels excluded", func(t *testing.T) {
		eligible := eligibleLevels(400, levels, []*domain.LevelGrant{{LevelID: 1}, {LevelID: 3}})
		require.Len(t, eligible, 1)
		assert.Equal(t, int64(2), eligible[0].ID)
	})

	t.Run("Exact threshold counts", func(t *testing.T) {
		eligible := eligibleLevels(100, levels, nil)
		require.Len(t, eligible, 1)
		assert.Equal(t, int64(1), eligible[0].ID)
	})
}

func TestLevelService_CreateLevel(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		levelRepo := &levelRepoMock{}
		svc := NewLevelService(levelRepo, &userRepoMock{})

		level := &domain.IncomeLevel{Name: "Bronze", Threshold: 100, Reward: 20}
		levelRepo.On("CreateLevel", mock.Anything, level).
			Return(&domain.IncomeLevel{ID: 1, Name: "Bronze", Threshold: 100, Reward: 20}, nil).Once()

		created, err := svc.CreateLevel(ctx, level)
		require.NoError(t, err)
		assert.Equal(t, int64(1), created.ID)
	})

	t.Run("Duplicate name", func(t *testing.T) {
		levelRepo := &levelRepoMock{}
		svc := NewLevelService(levelRepo, &userRepoMock{})

		level := &domain.IncomeLevel{Name: "Bronze", Threshold: 100, Reward: 20}
		levelRepo.On("CreateLevel", mock.Anything, level).Return(nil, postgres.ErrLevelExists).Once()

		_, err := svc.CreateLevel(ctx, level)
		assert.ErrorIs(t, err, ErrLevelExists)
	})

	t.Run("Invalid input", func(t *testing.T) {
		svc := NewLevelService(&levelRepoMock{}, &userRepoMock{})

		_, err := svc.CreateLevel(ctx, &domain.IncomeLevel{Name: "", Threshold: 100})
		assert.ErrorIs(t, err, ErrInvalidInput)

		_, err = svc.CreateLevel(ctx, &domain.IncomeLevel{Name: "Bad", Threshold: -1})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}

func TestLevelService_DeleteLevel(t *testing.T) {
	ctx := context.Background()

	t.Run("Not found", func(t *testing.T) {
		levelRepo := &levelRepoMock{}
		svc := NewLevelService(levelRepo, &userRepoMock{})

		levelRepo.On("DeleteLevel", mock.Anything, int64(9)).Return(postgres.ErrLevelNotFound).Once()

		err := svc.DeleteLevel(ctx, 9)
		assert.ErrorIs(t, err, ErrLevelNotFound)
	})

	t.Run("Repository error wrapped", func(t *testing.T) {
		levelRepo := &levelRepoMock{}
		svc := NewLevelService(levelRepo, &userRepoMock{})

		levelRepo.On("DeleteLevel", mock.Anything, int64(9)).Return(errors.New("db error")).Once()

		err := svc.DeleteLevel(ctx, 9)
		assert.Error(t, err)
		assert.NotErrorIs(t, err, ErrLevelNotFound)
	})
}
