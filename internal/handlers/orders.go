package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/avc/referral-shop-backend/internal/domain"
	"github.com/avc/referral-shop-backend/internal/service"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// OrderService определяет методы оформления и сопровождения заказов.
type OrderService interface {
	PlaceOrder(ctx context.Context, buyerID int64, req service.PlaceOrderRequest) (*domain.Order, string, error)
	VerifyPayment(ctx context.Context, buyerID int64, orderID string) (*domain.Order, error)
	GetOrder(ctx context.Context, buyerID int64, orderID string) (*domain.Order, error)
	ListOrders(ctx context.Context, buyerID int64) ([]*domain.Order, error)
	ListAllOrders(ctx context.Context) ([]*domain.Order, error)
	UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus) error
	DeleteOrder(ctx context.Context, orderID string) error
}

type OrderHandler struct {
	orderService OrderService
	logger       *zap.Logger
}

func NewOrderHandler(orderService OrderService, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		logger:       logger,
	}
}

type placeOrderResponse struct {
	Order       *domain.Order `json:"order"`
	RedirectURL string        `json:"redirect_url,omitempty"`
}

// PlaceCOD оформляет заказ с оплатой при получении
func (h *OrderHandler) PlaceCOD(w http.ResponseWriter, r *http.Request) {
	h.place(w, r, domain.PaymentMethodCOD)
}

// PlaceStripe оформляет заказ с оплатой через Stripe
func (h *OrderHandler) PlaceStripe(w http.ResponseWriter, r *http.Request) {
	h.place(w, r, domain.PaymentMethodStripe)
}

// PlaceRazorpay оформляет заказ с оплатой через Razorpay
func (h *OrderHandler) PlaceRazorpay(w http.ResponseWriter, r *http.Request) {
	h.place(w, r, domain.PaymentMethodRazorpay)
}

func (h *OrderHandler) place(w http.ResponseWriter, r *http.Request, method domain.PaymentMethod) {
	userID, ok := GetUserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req service.PlaceOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	req.PaymentMethod = method

	order, redirectURL, err := h.orderService.PlaceOrder(r.Context(), userID, req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyOrder),
			errors.Is(err, service.ErrMissingAddress),
			errors.Is(err, service.ErrInvalidInput):
			http.Error(w, "Bad Request", http.StatusBadRequest)
		case errors.Is(err, service.ErrUnresolvedProduct):
			http.Error(w, "Unprocessable Entity", http.StatusUnprocessableEntity)
		case errors.Is(err, service.ErrUnsupportedPayment):
			http.Error(w, "Bad Request", http.StatusBadRequest)
		default:
			h.logger.Error("failed to place order", zap.Error(err), zap.Int64("user", userID))
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusCreated, placeOrderResponse{Order: order, RedirectURL: redirectURL}, h.logger)
}

type verifyPaymentRequest struct {
	OrderID string `json:"order_id"`
}

// VerifyPayment проверяет оплату заказа через платежный шлюз
func (h *OrderHandler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req verifyPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	order, err := h.orderService.VerifyPayment(r.Context(), userID, req.OrderID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			http.Error(w, "Not Found", http.StatusNotFound)
		case errors.Is(err, service.ErrAccessDenied):
			http.Error(w, "Forbidden", http.StatusForbidden)
		case errors.Is(err, service.ErrPaymentFailed):
			http.Error(w, "Payment Required", http.StatusPaymentRequired)
		case errors.Is(err, service.ErrUnsupportedPayment):
			http.Error(w, "Bad Request", http.StatusBadRequest)
		default:
			h.logger.Error("failed to verify payment", zap.Error(err), zap.String("order", req.OrderID))
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusOK, order, h.logger)
}

// List возвращает заказы покупателя
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	orders, err := h.orderService.ListOrders(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to list orders", zap.Error(err), zap.Int64("user", userID))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	if len(orders) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	writeJSON(w, http.StatusOK, orders, h.logger)
}

// Get возвращает заказ покупателя
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	orderID := chi.URLParam(r, "id")

	order, err := h.orderService.GetOrder(r.Context(), userID, orderID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			http.Error(w, "Not Found", http.StatusNotFound)
		case errors.Is(err, service.ErrAccessDenied):
			http.Error(w, "Forbidden", http.StatusForbidden)
		default:
			h.logger.Error("failed to get order", zap.Error(err), zap.String("order", orderID))
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusOK, order, h.logger)
}

// ListAll возвращает все заказы (admin)
func (h *OrderHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orderService.ListAllOrders(r.Context())
	if err != nil {
		h.logger.Error("failed to list all orders", zap.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, orders, h.logger)
}

type updateStatusRequest struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
}

// UpdateStatus меняет статус заказа (admin)
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	err := h.orderService.UpdateStatus(r.Context(), req.OrderID, domain.OrderStatus(req.Status))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			http.Error(w, "Not Found", http.StatusNotFound)
		case errors.Is(err, service.ErrInvalidStatusTransition):
			http.Error(w, "Conflict", http.StatusConflict)
		default:
			h.logger.Error("failed to update order status", zap.Error(err), zap.String("order", req.OrderID))
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusOK)
}

// Delete удаляет заказ (admin)
func (h *OrderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")

	if err := h.orderService.DeleteOrder(r.Context(), orderID); err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			http.Error(w, "Not Found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to delete order", zap.Error(err), zap.String("order", orderID))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}
