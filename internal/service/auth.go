package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/avc/referral-shop-backend/internal/domain"
	"github.com/avc/referral-shop-backend/internal/repository/postgres"
	"github.com/avc/referral-shop-backend/internal/utils/jwt"
	"github.com/avc/referral-shop-backend/internal/utils/password"
	"github.com/avc/referral-shop-backend/internal/utils/referral"
	"github.com/go-playground/validator/v10"
)

// RegisterRequest представляет данные регистрации нового пользователя
type RegisterRequest struct {
	Name         string         `json:"name" validate:"required"`
	Email        string         `json:"email" validate:"required,email"`
	Phone        string         `json:"phone" validate:"required,e164"`
	Password     string         `json:"password" validate:"required"`
	ReferralCode string         `json:"referral_code" validate:"omitempty,len=12"`
	Placement    string         `json:"placement" validate:"omitempty,oneof=left right"`
	Address      domain.Address `json:"address"`
}

// AuthServiceConfig содержит настройки аутентификации
type AuthServiceConfig struct {
	MinPasswordLength int
}

// AuthService реализует регистрацию и аутентификацию пользователей
type AuthService struct {
	userRepo       domain.UserRepository
	passwordHasher password.Hasher
	jwtManager     *jwt.Manager
	validate       *validator.Validate
	config         AuthServiceConfig
}

// NewAuthService создает новый AuthService
func NewAuthService(
	userRepo domain.UserRepository,
	passwordHasher password.Hasher,
	jwtManager *jwt.Manager,
	config AuthServiceConfig,
) *AuthService {
	return &AuthService{
		userRepo:       userRepo,
		passwordHasher: passwordHasher,
		jwtManager:     jwtManager,
		validate:       validator.New(),
		config:         config,
	}
}

// Register регистрирует нового пользователя. Если указан реферальный код,
// пользователь привязывается к пригласившему и попадает в его команду
// в выбранную ветку. Привязка фиксируется при регистрации и далее
// не меняется.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (string, *domain.User, error) {
	if err := s.validate.Struct(req); err != nil {
		return "", nil, fmt.Errorf("%w: %s", ErrInvalidInput, err)
	}
	if len(req.Password) < s.config.MinPasswordLength {
		return "", nil, fmt.Errorf("%w: password must be at least %d characters long", ErrInvalidInput, s.config.MinPasswordLength)
	}

	user := &domain.User{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Role:    domain.RoleUser,
		Address: req.Address,
	}

	if req.ReferralCode != "" {
		referrer, err := s.userRepo.GetUserByReferralCode(ctx, req.ReferralCode)
		if err != nil {
			if errors.Is(err, postgres.ErrUserNotFound) {
				return "", nil, ErrInvalidReferral
			}
			return "", nil, fmt.Errorf("auth service: failed to resolve referral code: %w", err)
		}
		user.ReferredBy = &referrer.ID
		if req.Placement != "" {
			placement := domain.Placement(req.Placement)
			user.Placement = &placement
		}
	}

	hash, err := s.passwordHasher.Hash(req.Password)
	if err != nil {
		return "", nil, fmt.Errorf("auth service: failed to hash password for user %q: %w", req.Email, err)
	}
	user.PasswordHash = hash

	code, err := referral.NewCode()
	if err != nil {
		return "", nil, fmt.Errorf("auth service: failed to generate referral code: %w", err)
	}
	user.ReferralCode = code

	created, err := s.userRepo.CreateUser(ctx, user)
	if err != nil {
		// Не оборачиваем sentinel error
		if errors.Is(err, postgres.ErrUserExists) {
			return "", nil, ErrUserExists
		}
		return "", nil, fmt.Errorf("auth service: failed to register user %q: %w", req.Email, err)
	}

	token, err := s.jwtManager.Generate(created.ID, string(created.Role))
	if err != nil {
		return "", nil, fmt.Errorf("auth service: failed to generate token for user %d: %w", created.ID, err)
	}

	return token, created, nil
}

// Login аутентифицирует пользователя по email и паролю
func (s *AuthService) Login(ctx context.Context, email, userPassword string) (string, *domain.User, error) {
	if email == "" || userPassword == "" {
		return "", nil, ErrInvalidInput
	}

	user, err := s.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, postgres.ErrUserNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("auth service: failed to get user %q: %w", email, err)
	}

	if err := s.passwordHasher.Check(user.PasswordHash, userPassword); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.jwtManager.Generate(user.ID, string(user.Role))
	if err != nil {
		return "", nil, fmt.Errorf("auth service: failed to generate token for user %d: %w", user.ID, err)
	}

	return token, user, nil
}

// AdminLogin аутентифицирует администратора. Пользователь без роли admin
// получает отказ в доступе.
func (s *AuthService) AdminLogin(ctx context.Context, email, userPassword string) (string, *domain.User, error) {
	token, user, err := s.Login(ctx, email, userPassword)
	if err != nil {
		return "", nil, err
	}
	if user.Role != domain.RoleAdmin {
		return "", nil, ErrAccessDenied
	}
	return token, user, nil
}
