package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/avc/referral-shop-backend/internal/domain"
	"github.com/avc/referral-shop-backend/internal/service"
	"go.uber.org/zap"
)

// UserService определяет методы работы с профилем и командой.
type UserService interface {
	GetProfile(ctx context.Context, userID int64) (*domain.User, error)
	ListTeam(ctx context.Context, userID int64) ([]*domain.TeamMember, error)
	GetTeamStats(ctx context.Context, userID int64) (*domain.TeamStats, error)
	ListUsers(ctx context.Context) ([]*domain.User, error)
	UpdateRole(ctx context.Context, userID int64, role domain.Role) error
	SetBlocked(ctx context.Context, userID int64, blocked bool) error
}

// LevelEvaluator проверяет достижение уровней дохода пользователем.
type LevelEvaluator interface {
	Evaluate(ctx context.Context, userID int64) (*domain.UnlockResult, error)
}

type UserHandler struct {
	userService    UserService
	levelEvaluator LevelEvaluator
	logger         *zap.Logger
}

func NewUserHandler(userService UserService, levelEvaluator LevelEvaluator, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		userService:    userService,
		levelEvaluator: levelEvaluator,
		logger:         logger,
	}
}

type profileResponse struct {
	User     *domain.User         `json:"user"`
	Unlocked *domain.UnlockResult `json:"unlocked,omitempty"`
}

// Me возвращает профиль пользователя. Попутно проверяются уровни дохода:
// достигнутые, но еще не выданные уровни выдаются прямо здесь.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	unlocked, err := h.levelEvaluator.Evaluate(r.Context(), userID)
	if err != nil {
		// Профиль доступен даже при сбое проверки уровней
		h.logger.Error("failed to evaluate levels", zap.Error(err), zap.Int64("user", userID))
	}

	user, err := h.userService.GetProfile(r.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			http.Error(w, "Not Found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to get profile", zap.Error(err), zap.Int64("user", userID))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, profileResponse{User: user, Unlocked: unlocked}, h.logger)
}

type referralResponse struct {
	ReferralCode string `json:"referral_code"`
}

// Referral возвращает реферальный код пользователя
func (h *UserHandler) Referral(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	user, err := h.userService.GetProfile(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to get profile", zap.Error(err), zap.Int64("user", userID))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, referralResponse{ReferralCode: user.ReferralCode}, h.logger)
}

type teamResponse struct {
	Members []*domain.TeamMember `json:"members"`
	Stats   *domain.TeamStats    `json:"stats"`
}

// Team возвращает прямую команду пользователя и статистику по веткам
func (h *UserHandler) Team(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	members, err := h.userService.ListTeam(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to list team", zap.Error(err), zap.Int64("user", userID))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	stats, err := h.userService.GetTeamStats(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to get team stats", zap.Error(err), zap.Int64("user", userID))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, teamResponse{Members: members, Stats: stats}, h.logger)
}

// ListUsers возвращает всех пользователей (admin)
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.ListUsers(r.Context())
	if err != nil {
		h.logger.Error("failed to list users", zap.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, users, h.logger)
}

type updateRoleRequest struct {
	UserID int64  `json:"user_id"`
	Role   string `json:"role"`
}

// UpdateRole меняет роль пользователя (admin)
func (h *UserHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	var req updateRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	err := h.userService.UpdateRole(r.Context(), req.UserID, domain.Role(req.Role))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			http.Error(w, "Not Found", http.StatusNotFound)
		case errors.Is(err, service.ErrInvalidInput):
			http.Error(w, "Bad Request", http.StatusBadRequest)
		default:
			h.logger.Error("failed to update role", zap.Error(err), zap.Int64("user", req.UserID))
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusOK)
}

type setBlockedRequest struct {
	UserID  int64 `json:"user_id"`
	Blocked bool  `json:"blocked"`
}

// SetBlocked блокирует или разблокирует пользователя (admin)
func (h *UserHandler) SetBlocked(w http.ResponseWriter, r *http.Request) {
	var req setBlockedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	err := h.userService.SetBlocked(r.Context(), req.UserID, req.Blocked)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			http.Error(w, "Not Found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to set blocked", zap.Error(err), zap.Int64("user", req.UserID))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}
