package domain

import "context"

// UserRepository определяет методы для работы с пользователями и реферальным деревом
type UserRepository interface {
	CreateUser(ctx context.Context, user *User) (*User, error)
	GetUserByID(ctx context.Context, id int64) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUserByReferralCode(ctx context.Context, code string) (*User, error)
	ListUsers(ctx context.Context) ([]*User, error)
	UpdateRole(ctx context.Context, id int64, role Role) error
	SetBlocked(ctx context.Context, id int64, blocked bool) error
	ListTeam(ctx context.Context, referrerID int64) ([]*TeamMember, error)
	GetTeamStats(ctx context.Context, referrerID int64) (*TeamStats, error)
}

// ProductRepository определяет методы для работы с каталогом товаров
type ProductRepository interface {
	CreateProduct(ctx context.Context, product *Product) (*Product, error)
	GetProductByID(ctx context.Context, id int64) (*Product, error)
	ListProducts(ctx context.Context) ([]*Product, error)
	DeleteProduct(ctx context.Context, id int64) error
	AddReview(ctx context.Context, review *Review) error
	ListReviews(ctx context.Context, productID int64) ([]*Review, error)
}

// CartRepository определяет методы для работы с корзиной
type CartRepository interface {
	GetCart(ctx context.Context, userID int64) (*Cart, error)
	AddItem(ctx context.Context, userID, productID int64, quantity int) error
	UpdateItem(ctx context.Context, userID, productID int64, quantity int) error
	RemoveItem(ctx context.Context, userID, productID int64) error
	ClearCart(ctx context.Context, userID int64) error
}

// OrderRepository определяет методы для работы с заказами.
// CreateOrder в одной транзакции сохраняет заказ, его позиции, историю продаж
// продавцов, задачу outbox на начисление комиссии (для COD) и очищает корзину.
type OrderRepository interface {
	CreateOrder(ctx context.Context, order *Order, withTask bool) (*Order, error)
	GetOrderByID(ctx context.Context, id string) (*Order, error)
	ListOrdersByBuyer(ctx context.Context, buyerID int64) ([]*Order, error)
	ListAllOrders(ctx context.Context) ([]*Order, error)
	UpdateStatus(ctx context.Context, id string, status OrderStatus) error
	MarkPaid(ctx context.Context, id string) error
	DeleteOrder(ctx context.Context, id string) error
}

// CommissionRepository определяет методы журнала комиссий и outbox-задач
type CommissionRepository interface {
	// Credit применяет одно начисление: записывает событие и, если оно новое,
	// атомарно увеличивает cc получателя. Возвращает ссылку на следующего
	// по реферальной цепочке и признак того, что событие применено впервые.
	Credit(ctx context.Context, event CommissionEvent) (next *int64, applied bool, err error)
	ListEventsByOrder(ctx context.Context, orderID string) ([]*CommissionEvent, error)
	PendingTasks(ctx context.Context, limit int) ([]*CommissionTask, error)
	MarkTaskDone(ctx context.Context, taskID int64) error
	MarkTaskFailed(ctx context.Context, taskID int64, lastError string) error
}

// LevelRepository определяет методы для работы с уровнями дохода
type LevelRepository interface {
	CreateLevel(ctx context.Context, level *IncomeLevel) (*IncomeLevel, error)
	ListLevels(ctx context.Context) ([]*IncomeLevel, error)
	DeleteLevel(ctx context.Context, id int64) error
	ListGrants(ctx context.Context, userID int64) ([]*LevelGrant, error)
	// ApplyGrants в одной транзакции под advisory lock выдает уровни и
	// начисляет вознаграждения на баланс. Уже выданные уровни пропускаются.
	// Возвращает идентификаторы фактически выданных уровней.
	ApplyGrants(ctx context.Context, userID int64, levels []IncomeLevel) ([]int64, error)
}

// BalanceRepository определяет методы для работы с балансом и выводом средств
type BalanceRepository interface {
	GetBalance(ctx context.Context, userID int64) (*Balance, error)
	WithdrawWithLock(ctx context.Context, userID int64, amount float64) error
	ListWithdrawals(ctx context.Context, userID int64) ([]*Withdrawal, error)
}

// OTPRepository определяет методы хранения одноразовых кодов
type OTPRepository interface {
	UpsertOTP(ctx context.Context, email, code string) error
	ConsumeOTP(ctx context.Context, email, code string) error
}
