package service

import (
	"context"
	"testing"

	"github.com/avc/referral-shop-backend/internal/domain"
	"github.com/avc/referral-shop-backend/internal/repository/postgres"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type orderRepoMock struct {
	mock.Mock
}

func (m *orderRepoMock) CreateOrder(ctx context.Context, order *domain.Order, withTask bool) (*domain.Order, error) {
	args := m.Called(ctx, order, withTask)
	if v := args.Get(0); v != nil {
		return v.(*domain.Order), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *orderRepoMock) GetOrderByID(ctx context.Context, id string) (*domain.Order, error) {
	args := m.Called(ctx, id)
	if v := args.Get(0); v != nil {
		return v.(*domain.Order), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *orderRepoMock) ListOrdersByBuyer(ctx context.Context, buyerID int64) ([]*domain.Order, error) {
	args := m.Called(ctx, buyerID)
	if v := args.Get(0); v != nil {
		return v.([]*domain.Order), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *orderRepoMock) ListAllOrders(ctx context.Context) ([]*domain.Order, error) {
	args := m.Called(ctx)
	if v := args.Get(0); v != nil {
		return v.([]*domain.Order), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *orderRepoMock) UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) error {
	return m.Called(ctx, id, status).Error(0)
}

func (m *orderRepoMock) MarkPaid(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *orderRepoMock) DeleteOrder(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type productRepoMock struct {
	mock.Mock
}

func (m *productRepoMock) CreateProduct(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	args := m.Called(ctx, product)
	if v := args.Get(0); v != nil {
		return v.(*domain.Product), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *productRepoMock) GetProductByID(ctx context.Context, id int64) (*domain.Product, error) {
	args := m.Called(ctx, id)
	if v := args.Get(0); v != nil {
		return v.(*domain.Product), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *productRepoMock) ListProducts(ctx context.Context) ([]*domain.Product, error) {
	args := m.Called(ctx)
	if v := args.Get(0); v != nil {
		return v.([]*domain.Product), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *productRepoMock) DeleteProduct(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *productRepoMock) AddReview(ctx context.Context, review *domain.Review) error {
	return m.Called(ctx, review).Error(0)
}

func (m *productRepoMock) ListReviews(ctx context.Context, productID int64) ([]*domain.Review, error) {
	args := m.Called(ctx, productID)
	if v := args.Get(0); v != nil {
		return v.([]*domain.Review), args.Error(1)
	}
	return nil, args.Error(1)
}

type paymentClientMock struct {
	mock.Mock
}

func (m *paymentClientMock) CreateSession(ctx context.Context, orderID string, amount float64) (*PaymentSession, error) {
	args := m.Called(ctx, orderID, amount)
	if v := args.Get(0); v != nil {
		return v.(*PaymentSession), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *paymentClientMock) VerifySession(ctx context.Context, reference string) (bool, error) {
	args := m.Called(ctx, reference)
	return args.Bool(0), args.Error(1)
}

var testAddress = domain.Address{Street: "Main st. 1", City: "Springfield", Country: "US", Zipcode: "12345"}

func newOrderService(orderRepo *orderRepoMock, productRepo *productRepoMock, gateway *paymentClientMock) *OrderService {
	gateways := map[domain.PaymentMethod]PaymentClient{}
	if gateway != nil {
		gateways[domain.PaymentMethodStripe] = gateway
	}
	return NewOrderService(orderRepo, productRepo, gateways, zap.NewNop(), 10)
}

func TestOrderService_PlaceOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("COD order persisted with commission task", func(t *testing.T) {
		orderRepo := &orderRepoMock{}
		productRepo := &productRepoMock{}
		svc := newOrderService(orderRepo, productRepo, nil)

		productRepo.On("GetProductByID", mock.Anything, int64(1)).
			Return(&domain.Product{ID: 1, Price: 100, CommissionCC: 50, CreatedBy: 10}, nil).Once()

		orderRepo.On("CreateOrder", mock.Anything, mock.MatchedBy(func(o *domain.Order) bool {
			return o.BuyerID == 7 &&
				o.Amount == 210 && // 100*2 + доставка 10
				len(o.Items) == 1 &&
				o.Items[0].SellerID == 10 &&
				o.Items[0].UnitCommission == 50 &&
				o.Status == domain.OrderStatusPending
		}), true).Return(&domain.Order{ID: "created"}, nil).Once()

		req := PlaceOrderRequest{
			Items:         []OrderLine{{ProductID: 1, Quantity: 2}},
			Address:       testAddress,
			PaymentMethod: domain.PaymentMethodCOD,
		}

		order, redirectURL, err := svc.PlaceOrder(ctx, 7, req)
		require.NoError(t, err)
		assert.Equal(t, "created", order.ID)
		assert.Empty(t, redirectURL)
		orderRepo.AssertExpectations(t)
	})

	t.Run("Unknown product rejects whole order", func(t *testing.T) {
		orderRepo := &orderRepoMock{}
		productRepo := &productRepoMock{}
		svc := newOrderService(orderRepo, productRepo, nil)

		productRepo.On("GetProductByID", mock.Anything, int64(1)).
			Return(&domain.Product{ID: 1, Price: 100, CreatedBy: 10}, nil).Once()
		productRepo.On("GetProductByID", mock.Anything, int64(2)).
			Return(nil, postgres.ErrProductNotFound).Once()

		req := PlaceOrderRequest{
			Items: []OrderLine{
				{ProductID: 1, Quantity: 1},
				{ProductID: 2, Quantity: 1},
			},
			Address:       testAddress,
			PaymentMethod: domain.PaymentMethodCOD,
		}

		_, _, err := svc.PlaceOrder(ctx, 7, req)
		assert.ErrorIs(t, err, ErrUnresolvedProduct)
		orderRepo.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Empty order rejected", func(t *testing.T) {
		svc := newOrderService(&orderRepoMock{}, &productRepoMock{}, nil)

		_, _, err := svc.PlaceOrder(ctx, 7, PlaceOrderRequest{Address: testAddress, PaymentMethod: domain.PaymentMethodCOD})
		assert.ErrorIs(t, err, ErrEmptyOrder)
	})

	t.Run("Missing address rejected", func(t *testing.T) {
		svc := newOrderService(&orderRepoMock{}, &productRepoMock{}, nil)

		req := PlaceOrderRequest{
			Items:         []OrderLine{{ProductID: 1, Quantity: 1}},
			PaymentMethod: domain.PaymentMethodCOD,
		}
		_, _, err := svc.PlaceOrder(ctx, 7, req)
		assert.ErrorIs(t, err, ErrMissingAddress)
	})

	t.Run("Non-positive quantity rejected", func(t *testing.T) {
		svc := newOrderService(&orderRepoMock{}, &productRepoMock{}, nil)

		req := PlaceOrderRequest{
			Items:         []OrderLine{{ProductID: 1, Quantity: 0}},
			Address:       testAddress,
			PaymentMethod: domain.PaymentMethodCOD,
		}
		_, _, err := svc.PlaceOrder(ctx, 7, req)
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("Gateway order defers commission task", func(t *testing.T) {
		orderRepo := &orderRepoMock{}
		productRepo := &productRepoMock{}
		gateway := &paymentClientMock{}
		svc := newOrderService(orderRepo, productRepo, gateway)

		productRepo.On("GetProductByID", mock.Anything, int64(1)).
			Return(&domain.Product{ID: 1, Price: 100, CommissionCC: 50, CreatedBy: 10}, nil).Once()
		gateway.On("CreateSession", mock.Anything, mock.Anything, float64(110)).
			Return(&PaymentSession{Reference: "sess-1", RedirectURL: "https://pay.example/sess-1"}, nil).Once()
		orderRepo.On("CreateOrder", mock.Anything, mock.MatchedBy(func(o *domain.Order) bool {
			return o.GatewaySessionRef != nil && *o.GatewaySessionRef == "sess-1"
		}), false).Return(&domain.Order{ID: "created"}, nil).Once()

		req := PlaceOrderRequest{
			Items:         []OrderLine{{ProductID: 1, Quantity: 1}},
			Address:       testAddress,
			PaymentMethod: domain.PaymentMethodStripe,
		}

		_, redirectURL, err := svc.PlaceOrder(ctx, 7, req)
		require.NoError(t, err)
		assert.Equal(t, "https://pay.example/sess-1", redirectURL)
		orderRepo.AssertExpectations(t)
		gateway.AssertExpectations(t)
	})

	t.Run("Unsupported payment method", func(t *testing.T) {
		productRepo := &productRepoMock{}
		productRepo.On("GetProductByID", mock.Anything, int64(1)).
			Return(&domain.Product{ID: 1, Price: 100, CreatedBy: 10}, nil).Once()
		svc := newOrderService(&orderRepoMock{}, productRepo, nil)

		req := PlaceOrderRequest{
			Items:         []OrderLine{{ProductID: 1, Quantity: 1}},
			Address:       testAddress,
			PaymentMethod: domain.PaymentMethod("Barter"),
		}
		_, _, err := svc.PlaceOrder(ctx, 7, req)
		assert.ErrorIs(t, err, ErrUnsupportedPayment)
	})
}

func TestOrderService_VerifyPayment(t *testing.T) {
	ctx := context.Background()
	sessionRef := "sess-1"

	pendingOrder := func() *domain.Order {
		return &domain.Order{
			ID:                "order-1",
			BuyerID:           7,
			PaymentMethod:     domain.PaymentMethodStripe,
			GatewaySessionRef: &sessionRef,
			Status:            domain.OrderStatusPending,
		}
	}

	t.Run("Confirmed payment marks order paid", func(t *testing.T) {
		orderRepo := &orderRepoMock{}
		gateway := &paymentClientMock{}
		svc := newOrderService(orderRepo, &productRepoMock{}, gateway)

		orderRepo.On("GetOrderByID", mock.Anything, "order-1").Return(pendingOrder(), nil).Once()
		gateway.On("VerifySession", mock.Anything, "sess-1").Return(true, nil).Once()
		orderRepo.On("MarkPaid", mock.Anything, "order-1").Return(nil).Once()
		orderRepo.On("GetOrderByID", mock.Anything, "order-1").
			Return(&domain.Order{ID: "order-1", BuyerID: 7, Paid: true, Status: domain.OrderStatusPaid}, nil).Once()

		order, err := svc.VerifyPayment(ctx, 7, "order-1")
		require.NoError(t, err)
		assert.True(t, order.Paid)
		orderRepo.AssertExpectations(t)
	})

	t.Run("Failed payment removes order", func(t *testing.T) {
		orderRepo := &orderRepoMock{}
		gateway := &paymentClientMock{}
		svc := newOrderService(orderRepo, &productRepoMock{}, gateway)

		orderRepo.On("GetOrderByID", mock.Anything, "order-1").Return(pendingOrder(), nil).Once()
		gateway.On("VerifySession", mock.Anything, "sess-1").Return(false, nil).Once()
		orderRepo.On("DeleteOrder", mock.Anything, "order-1").Return(nil).Once()

		_, err := svc.VerifyPayment(ctx, 7, "order-1")
		assert.ErrorIs(t, err, ErrPaymentFailed)
		orderRepo.AssertNotCalled(t, "MarkPaid", mock.Anything, mock.Anything)
	})

	t.Run("Already paid order is a no-op", func(t *testing.T) {
		orderRepo := &orderRepoMock{}
		gateway := &paymentClientMock{}
		svc := newOrderService(orderRepo, &productRepoMock{}, gateway)

		paid := pendingOrder()
		paid.Paid = true
		orderRepo.On("GetOrderByID", mock.Anything, "order-1").Return(paid, nil).Once()

		order, err := svc.VerifyPayment(ctx, 7, "order-1")
		require.NoError(t, err)
		assert.True(t, order.Paid)
		gateway.AssertNotCalled(t, "VerifySession", mock.Anything, mock.Anything)
	})

	t.Run("Foreign order denied", func(t *testing.T) {
		orderRepo := &orderRepoMock{}
		svc := newOrderService(orderRepo, &productRepoMock{}, &paymentClientMock{})

		orderRepo.On("GetOrderByID", mock.Anything, "order-1").Return(pendingOrder(), nil).Once()

		_, err := svc.VerifyPayment(ctx, 99, "order-1")
		assert.ErrorIs(t, err, ErrAccessDenied)
	})
}

func TestOrderService_UpdateStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("Valid transition", func(t *testing.T) {
		orderRepo := &orderRepoMock{}
		svc := newOrderService(orderRepo, &productRepoMock{}, nil)

		orderRepo.On("GetOrderByID", mock.Anything, "order-1").
			Return(&domain.Order{ID: "order-1", Status: domain.OrderStatusPaid}, nil).Once()
		orderRepo.On("UpdateStatus", mock.Anything, "order-1", domain.OrderStatusShipped).Return(nil).Once()

		err := svc.UpdateStatus(ctx, "order-1", domain.OrderStatusShipped)
		require.NoError(t, err)
		orderRepo.AssertExpectations(t)
	})

	t.Run("Invalid transition rejected", func(t *testing.T) {
		orderRepo := &orderRepoMock{}
		svc := newOrderService(orderRepo, &productRepoMock{}, nil)

		orderRepo.On("GetOrderByID", mock.Anything, "order-1").
			Return(&domain.Order{ID: "order-1", Status: domain.OrderStatusPending}, nil).Once()

		err := svc.UpdateStatus(ctx, "order-1", domain.OrderStatusDelivered)
		assert.ErrorIs(t, err, ErrInvalidStatusTransition)
		orderRepo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Order not found", func(t *testing.T) {
		orderRepo := &orderRepoMock{}
		svc := newOrderService(orderRepo, &productRepoMock{}, nil)

		orderRepo.On("GetOrderByID", mock.Anything, "missing").Return(nil, postgres.ErrOrderNotFound).Once()

		err := svc.UpdateStatus(ctx, "missing", domain.OrderStatusPaid)
		assert.ErrorIs(t, err, ErrOrderNotFound)
	})
}
