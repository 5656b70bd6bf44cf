package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/avc/referral-shop-backend/internal/domain"
	"github.com/avc/referral-shop-backend/internal/service"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// LevelService определяет методы управления уровнями дохода.
type LevelService interface {
	CreateLevel(ctx context.Context, level *domain.IncomeLevel) (*domain.IncomeLevel, error)
	ListLevels(ctx context.Context) ([]*domain.IncomeLevel, error)
	DeleteLevel(ctx context.Context, id int64) error
}

type LevelHandler struct {
	levelService LevelService
	logger       *zap.Logger
}

func NewLevelHandler(levelService LevelService, logger *zap.Logger) *LevelHandler {
	return &LevelHandler{
		levelService: levelService,
		logger:       logger,
	}
}

// Create добавляет уровень дохода (admin)
func (h *LevelHandler) Create(w http.ResponseWriter, r *http.Request) {
	var level domain.IncomeLevel
	if err := json.NewDecoder(r.Body).Decode(&level); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	created, err := h.levelService.CreateLevel(r.Context(), &level)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrLevelExists):
			http.Error(w, "Conflict", http.StatusConflict)
		case errors.Is(err, service.ErrInvalidInput):
			http.Error(w, "Bad Request", http.StatusBadRequest)
		default:
			h.logger.Error("failed to create level", zap.Error(err), zap.String("level", level.Name))
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusCreated, created, h.logger)
}

// List возвращает уровни дохода по возрастанию порога (admin)
func (h *LevelHandler) List(w http.ResponseWriter, r *http.Request) {
	levels, err := h.levelService.ListLevels(r.Context())
	if err != nil {
		h.logger.Error("failed to list levels", zap.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, levels, h.logger)
}

// Delete удаляет уровень дохода (admin)
func (h *LevelHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	if err := h.levelService.DeleteLevel(r.Context(), id); err != nil {
		if errors.Is(err, service.ErrLevelNotFound) {
			http.Error(w, "Not Found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to delete level", zap.Error(err), zap.Int64("level", id))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}
