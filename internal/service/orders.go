package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/avc/referral-shop-backend/internal/domain"
	"github.com/avc/referral-shop-backend/internal/repository/postgres"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderLine представляет позицию запроса на оформление заказа
type OrderLine struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// PlaceOrderRequest представляет запрос на оформление заказа
type PlaceOrderRequest struct {
	Items         []OrderLine          `json:"items"`
	Address       domain.Address       `json:"address"`
	PaymentMethod domain.PaymentMethod `json:"payment_method"`
}

// OrderService оформляет заказы и управляет их жизненным циклом.
type OrderService struct {
	orderRepo      domain.OrderRepository
	productRepo    domain.ProductRepository
	gateways       map[domain.PaymentMethod]PaymentClient
	logger         *zap.Logger
	deliveryCharge float64
}

// NewOrderService создает новый OrderService
func NewOrderService(
	orderRepo domain.OrderRepository,
	productRepo domain.ProductRepository,
	gateways map[domain.PaymentMethod]PaymentClient,
	logger *zap.Logger,
	deliveryCharge float64,
) *OrderService {
	return &OrderService{
		orderRepo:      orderRepo,
		productRepo:    productRepo,
		gateways:       gateways,
		logger:         logger,
		deliveryCharge: deliveryCharge,
	}
}

// Допустимые переходы статусов заказа
var statusTransitions = map[domain.OrderStatus][]domain.OrderStatus{
	domain.OrderStatusPending: {domain.OrderStatusPaid, domain.OrderStatusCancelled},
	domain.OrderStatusPaid:    {domain.OrderStatusShipped, domain.OrderStatusCancelled},
	domain.OrderStatusShipped: {domain.OrderStatusDelivered},
}

// PlaceOrder оформляет заказ. Позиции проверяются по каталогу: если хотя бы
// один товар не найден, заказ отклоняется целиком. Для COD заказ сохраняется
// вместе с задачей на начисление комиссии в одной транзакции; для платежных
// шлюзов сначала создается сессия оплаты, а комиссия начисляется только после
// подтверждения платежа. Корзина покупателя очищается при сохранении заказа.
// Вторым значением возвращается URL для перехода к оплате, если он есть.
func (s *OrderService) PlaceOrder(ctx context.Context, buyerID int64, req PlaceOrderRequest) (*domain.Order, string, error) {
	if len(req.Items) == 0 {
		return nil, "", ErrEmptyOrder
	}
	if req.Address.Street == "" || req.Address.City == "" {
		return nil, "", ErrMissingAddress
	}

	order := &domain.Order{
		ID:            uuid.New().String(),
		BuyerID:       buyerID,
		Address:       req.Address,
		PaymentMethod: req.PaymentMethod,
		Status:        domain.OrderStatusPending,
	}

	for _, line := range req.Items {
		if line.Quantity <= 0 {
			return nil, "", fmt.Errorf("%w: quantity must be positive for product %d", ErrInvalidInput, line.ProductID)
		}

		product, err := s.productRepo.GetProductByID(ctx, line.ProductID)
		if err != nil {
			if errors.Is(err, postgres.ErrProductNotFound) {
				return nil, "", fmt.Errorf("%w: product %d", ErrUnresolvedProduct, line.ProductID)
			}
			return nil, "", fmt.Errorf("order service: failed to resolve product %d: %w", line.ProductID, err)
		}

		order.Items = append(order.Items, domain.OrderItem{
			ProductID:      product.ID,
			SellerID:       product.CreatedBy,
			Quantity:       line.Quantity,
			UnitPrice:      product.Price,
			UnitCommission: product.CommissionCC,
		})
		order.Amount += product.Price * float64(line.Quantity)
	}
	order.Amount += s.deliveryCharge

	switch req.PaymentMethod {
	case domain.PaymentMethodCOD:
		created, err := s.orderRepo.CreateOrder(ctx, order, true)
		if err != nil {
			return nil, "", fmt.Errorf("order service: failed to create order: %w", err)
		}
		s.logger.Info("order placed",
			zap.String("order", created.ID),
			zap.Int64("buyer", buyerID),
			zap.Float64("amount", created.Amount),
		)
		return created, "", nil

	case domain.PaymentMethodStripe, domain.PaymentMethodRazorpay:
		gateway, ok := s.gateways[req.PaymentMethod]
		if !ok {
			return nil, "", ErrUnsupportedPayment
		}

		session, err := gateway.CreateSession(ctx, order.ID, order.Amount)
		if err != nil {
			return nil, "", fmt.Errorf("order service: failed to create payment session: %w", err)
		}
		order.GatewaySessionRef = &session.Reference

		created, err := s.orderRepo.CreateOrder(ctx, order, false)
		if err != nil {
			return nil, "", fmt.Errorf("order service: failed to create order: %w", err)
		}
		s.logger.Info("order placed, awaiting payment",
			zap.String("order", created.ID),
			zap.Int64("buyer", buyerID),
			zap.String("method", string(req.PaymentMethod)),
		)
		return created, session.RedirectURL, nil

	default:
		return nil, "", ErrUnsupportedPayment
	}
}

// VerifyPayment проверяет платеж по заказу через платежный шлюз.
// Подтвержденный заказ помечается оплаченным, для него создается задача
// на начисление комиссии и очищается корзина. Неподтвержденный заказ
// удаляется, как и заказ без платежной сессии.
func (s *OrderService) VerifyPayment(ctx context.Context, buyerID int64, orderID string) (*domain.Order, error) {
	order, err := s.getOwnOrder(ctx, buyerID, orderID)
	if err != nil {
		return nil, err
	}
	if order.Paid {
		return order, nil
	}

	gateway, ok := s.gateways[order.PaymentMethod]
	if !ok || order.GatewaySessionRef == nil {
		return nil, ErrUnsupportedPayment
	}

	paid, err := gateway.VerifySession(ctx, *order.GatewaySessionRef)
	if err != nil {
		return nil, fmt.Errorf("order service: failed to verify payment for order %s: %w", orderID, err)
	}

	if !paid {
		if err := s.orderRepo.DeleteOrder(ctx, orderID); err != nil {
			return nil, fmt.Errorf("order service: failed to delete unpaid order %s: %w", orderID, err)
		}
		s.logger.Warn("payment not confirmed, order removed", zap.String("order", orderID))
		return nil, ErrPaymentFailed
	}

	if err := s.orderRepo.MarkPaid(ctx, orderID); err != nil {
		return nil, fmt.Errorf("order service: failed to mark order %s paid: %w", orderID, err)
	}
	s.logger.Info("payment confirmed", zap.String("order", orderID))

	return s.orderRepo.GetOrderByID(ctx, orderID)
}

// GetOrder возвращает заказ покупателя. Чужой заказ недоступен.
func (s *OrderService) GetOrder(ctx context.Context, buyerID int64, orderID string) (*domain.Order, error) {
	return s.getOwnOrder(ctx, buyerID, orderID)
}

func (s *OrderService) getOwnOrder(ctx context.Context, buyerID int64, orderID string) (*domain.Order, error) {
	order, err := s.orderRepo.GetOrderByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, postgres.ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("order service: failed to get order %s: %w", orderID, err)
	}
	if order.BuyerID != buyerID {
		return nil, ErrAccessDenied
	}
	return order, nil
}

// ListOrders возвращает заказы покупателя
func (s *OrderService) ListOrders(ctx context.Context, buyerID int64) ([]*domain.Order, error) {
	orders, err := s.orderRepo.ListOrdersByBuyer(ctx, buyerID)
	if err != nil {
		return nil, fmt.Errorf("order service: failed to list orders for user %d: %w", buyerID, err)
	}
	return orders, nil
}

// ListAllOrders возвращает все заказы (для администратора)
func (s *OrderService) ListAllOrders(ctx context.Context) ([]*domain.Order, error) {
	orders, err := s.orderRepo.ListAllOrders(ctx)
	if err != nil {
		return nil, fmt.Errorf("order service: failed to list orders: %w", err)
	}
	return orders, nil
}

// DeleteOrder удаляет заказ (для администратора)
func (s *OrderService) DeleteOrder(ctx context.Context, orderID string) error {
	err := s.orderRepo.DeleteOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, postgres.ErrOrderNotFound) {
			return ErrOrderNotFound
		}
		return fmt.Errorf("order service: failed to delete order %s: %w", orderID, err)
	}
	return nil
}

// UpdateStatus меняет статус заказа с проверкой допустимости перехода
func (s *OrderService) UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus) error {
	order, err := s.orderRepo.GetOrderByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, postgres.ErrOrderNotFound) {
			return ErrOrderNotFound
		}
		return fmt.Errorf("order service: failed to get order %s: %w", orderID, err)
	}

	allowed := false
	for _, next := range statusTransitions[order.Status] {
		if next == status {
			allowed = true
			break
		}
	}
	if !allowed {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, order.Status, status)
	}

	if err := s.orderRepo.UpdateStatus(ctx, orderID, status); err != nil {
		return fmt.Errorf("order service: failed to update status of order %s: %w", orderID, err)
	}
	return nil
}
