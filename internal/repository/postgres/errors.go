package postgres

import "errors"

// Ошибки пользователей
var (
	ErrUserExists   = errors.New("user already exists")
	ErrUserNotFound = errors.New("user not found")
)

// Ошибки каталога
var (
	ErrProductNotFound = errors.New("product not found")
	ErrReviewExists    = errors.New("review already exists for this product")
)

// Ошибки корзины
var (
	ErrCartNotFound = errors.New("cart not found")
	ErrItemNotFound = errors.New("item not found in cart")
)

// Ошибки заказов
var (
	ErrOrderNotFound = errors.New("order not found")
)

// Ошибки уровней дохода
var (
	ErrLevelExists   = errors.New("income level already exists")
	ErrLevelNotFound = errors.New("income level not found")
)

// Ошибки баланса
var (
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// Ошибки OTP
var (
	ErrOTPNotFound = errors.New("otp not found or expired")
)

// Ошибки задач комиссии
var (
	ErrTaskNotFound = errors.New("commission task not found")
)
