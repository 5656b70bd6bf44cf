package service

import "errors"

// Ошибки аутентификации и ввода
var (
	ErrUserExists         = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidReferral    = errors.New("referral code not found")
	ErrAccessDenied       = errors.New("access denied")
	ErrOTPInvalid         = errors.New("invalid or expired otp")
)

// Ошибки каталога и корзины
var (
	ErrProductNotFound = errors.New("product not found")
	ErrReviewExists    = errors.New("review already exists for this product")
	ErrInvalidRating   = errors.New("rating must be between 1 and 5")
	ErrItemNotFound    = errors.New("item not found in cart")
)

// Ошибки заказов
var (
	ErrEmptyOrder              = errors.New("order must contain at least one item")
	ErrMissingAddress          = errors.New("delivery address is required")
	ErrUnresolvedProduct       = errors.New("order line references unknown product")
	ErrOrderNotFound           = errors.New("order not found")
	ErrInvalidStatusTransition = errors.New("invalid order status transition")
	ErrPaymentFailed           = errors.New("payment verification failed")
	ErrUnsupportedPayment      = errors.New("unsupported payment method")
)

// Ошибки распространения комиссии
var (
	ErrPartialPropagation = errors.New("commission propagation completed partially")
)

// Ошибки уровней дохода
var (
	ErrLevelExists   = errors.New("income level already exists")
	ErrLevelNotFound = errors.New("income level not found")
)

// Ошибки баланса
var (
	ErrInsufficientBalance    = errors.New("insufficient balance")
	ErrBelowMinimumWithdrawal = errors.New("withdrawal amount below minimum")
)
