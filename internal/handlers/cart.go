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

// CartService определяет методы работы с корзиной.
type CartService interface {
	GetCart(ctx context.Context, userID int64) (*domain.Cart, error)
	AddItem(ctx context.Context, userID, productID int64, quantity int) error
	UpdateItem(ctx context.Context, userID, productID int64, quantity int) error
	RemoveItem(ctx context.Context, userID, productID int64) error
	ClearCart(ctx context.Context, userID int64) error
}

type CartHandler struct {
	cartService CartService
	logger      *zap.Logger
}

func NewCartHandler(cartService CartService, logger *zap.Logger) *CartHandler {
	return &CartHandler{
		cartService: cartService,
		logger:      logger,
	}
}

// Get возвращает корзину пользователя
func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	cart, err := h.cartService.GetCart(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to get cart", zap.Error(err), zap.Int64("user", userID))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, cart, h.logger)
}

type cartItemRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// AddItem добавляет товар в корзину
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	h.mutateItem(w, r, h.cartService.AddItem)
}

// UpdateItem меняет количество товара в корзине
func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	h.mutateItem(w, r, h.cartService.UpdateItem)
}

func (h *CartHandler) mutateItem(
	w http.ResponseWriter,
	r *http.Request,
	mutate func(ctx context.Context, userID, productID int64, quantity int) error,
) {
	userID, ok := GetUserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req cartItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	if err := mutate(r.Context(), userID, req.ProductID, req.Quantity); err != nil {
		switch {
		case errors.Is(err, service.ErrProductNotFound), errors.Is(err, service.ErrItemNotFound):
			http.Error(w, "Not Found", http.StatusNotFound)
		case errors.Is(err, service.ErrInvalidInput):
			http.Error(w, "Bad Request", http.StatusBadRequest)
		default:
			h.logger.Error("failed to mutate cart", zap.Error(err), zap.Int64("user", userID))
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusOK)
}

type cartRemoveRequest struct {
	ProductID int64 `json:"product_id"`
}

// RemoveItem удаляет товар из корзины. Без product_id очищается вся корзина.
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	// Тело опционально: без product_id очищается вся корзина
	var req cartRemoveRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	if req.ProductID == 0 {
		if err := h.cartService.ClearCart(r.Context(), userID); err != nil {
			h.logger.Error("failed to clear cart", zap.Error(err), zap.Int64("user", userID))
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
		return
	}

	if err := h.cartService.RemoveItem(r.Context(), userID, req.ProductID); err != nil {
		if errors.Is(err, service.ErrItemNotFound) {
			http.Error(w, "Not Found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to remove cart item", zap.Error(err), zap.Int64("user", userID))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}
