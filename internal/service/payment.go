package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// PaymentSession представляет созданную сессию оплаты во внешнем шлюзе
type PaymentSession struct {
	Reference   string
	RedirectURL string
}

// PaymentClient определяет методы взаимодействия с платежным шлюзом.
type PaymentClient interface {
	// CreateSession создает сессию оплаты на указанную сумму
	CreateSession(ctx context.Context, orderID string, amount float64) (*PaymentSession, error)
	// VerifySession проверяет, что оплата по сессии прошла
	VerifySession(ctx context.Context, reference string) (bool, error)
}

func newRetryableClient() *http.Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 3
	retryClient.RetryWaitMin = 500 * time.Millisecond
	retryClient.RetryWaitMax = 5 * time.Second
	retryClient.HTTPClient.Timeout = 10 * time.Second
	retryClient.Logger = nil
	return retryClient.StandardClient()
}

// StripeClient реализует PaymentClient поверх Stripe Checkout.
type StripeClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewStripeClient создает новый StripeClient
func NewStripeClient(baseURL, apiKey string) *StripeClient {
	return &StripeClient{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: newRetryableClient(),
	}
}

// CreateSession создает Stripe checkout-сессию
func (c *StripeClient) CreateSession(ctx context.Context, orderID string, amount float64) (*PaymentSession, error) {
	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("client_reference_id", orderID)
	form.Set("line_items[0][price_data][currency]", "usd")
	form.Set("line_items[0][price_data][product_data][name]", "Order "+orderID)
	// Stripe принимает суммы в минимальных единицах валюты
	form.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(int64(amount*100), 10))
	form.Set("line_items[0][quantity]", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/checkout/sessions", bytes.NewBufferString(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("stripe client: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("stripe client: failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("stripe client: unexpected status code: %d", resp.StatusCode)
	}

	var session struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, fmt.Errorf("stripe client: failed to decode response: %w", err)
	}

	return &PaymentSession{Reference: session.ID, RedirectURL: session.URL}, nil
}

// VerifySession проверяет статус оплаты Stripe-сессии
func (c *StripeClient) VerifySession(ctx context.Context, reference string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/v1/checkout/sessions/"+reference, nil)
	if err != nil {
		return false, fmt.Errorf("stripe client: failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("stripe client: failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("stripe client: unexpected status code: %d", resp.StatusCode)
	}

	var session struct {
		PaymentStatus string `json:"payment_status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return false, fmt.Errorf("stripe client: failed to decode response: %w", err)
	}

	return session.PaymentStatus == "paid", nil
}

// RazorpayClient реализует PaymentClient поверх Razorpay Orders API.
type RazorpayClient struct {
	baseURL    string
	keyID      string
	keySecret  string
	httpClient *http.Client
}

// NewRazorpayClient создает новый RazorpayClient
func NewRazorpayClient(baseURL, keyID, keySecret string) *RazorpayClient {
	return &RazorpayClient{
		baseURL:    baseURL,
		keyID:      keyID,
		keySecret:  keySecret,
		httpClient: newRetryableClient(),
	}
}

// CreateSession создает заказ в Razorpay
func (c *RazorpayClient) CreateSession(ctx context.Context, orderID string, amount float64) (*PaymentSession, error) {
	body, err := json.Marshal(map[string]any{
		// Razorpay принимает суммы в минимальных единицах валюты
		"amount":   int64(amount * 100),
		"currency": "INR",
		"receipt":  orderID,
	})
	if err != nil {
		return nil, fmt.Errorf("razorpay client: failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("razorpay client: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.keyID, c.keySecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("razorpay client: failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("razorpay client: unexpected status code: %d", resp.StatusCode)
	}

	var order struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return nil, fmt.Errorf("razorpay client: failed to decode response: %w", err)
	}

	return &PaymentSession{Reference: order.ID}, nil
}

// VerifySession проверяет статус оплаты заказа Razorpay
func (c *RazorpayClient) VerifySession(ctx context.Context, reference string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/v1/orders/"+reference, nil)
	if err != nil {
		return false, fmt.Errorf("razorpay client: failed to create request: %w", err)
	}
	req.SetBasicAuth(c.keyID, c.keySecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("razorpay client: failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("razorpay client: unexpected status code: %d", resp.StatusCode)
	}

	var order struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return false, fmt.Errorf("razorpay client: failed to decode response: %w", err)
	}

	return order.Status == "paid", nil
}
