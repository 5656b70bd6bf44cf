package domain

import "time"

// Role представляет роль пользователя
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Placement представляет ветку бинарного дерева, в которую помещен пользователь
type Placement string

const (
	PlacementLeft  Placement = "left"
	PlacementRight Placement = "right"
)

// OrderStatus представляет статус заказа
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "Pending"
	OrderStatusPaid      OrderStatus = "Paid"
	OrderStatusShipped   OrderStatus = "Shipped"
	OrderStatusDelivered OrderStatus = "Delivered"
	OrderStatusCancelled OrderStatus = "Cancelled"
)

// PaymentMethod представляет способ оплаты заказа
type PaymentMethod string

const (
	PaymentMethodCOD      PaymentMethod = "COD"
	PaymentMethodStripe   PaymentMethod = "Stripe"
	PaymentMethodRazorpay PaymentMethod = "Razorpay"
)

// TaskStatus представляет статус задачи начисления комиссии
type TaskStatus string

const (
	TaskStatusPending TaskStatus = "pending"
	TaskStatusDone    TaskStatus = "done"
	TaskStatusFailed  TaskStatus = "failed"
)

// Address представляет адрес доставки пользователя
type Address struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	Country string `json:"country"`
	Zipcode string `json:"zipcode"`
}

// User представляет пользователя системы.
// ReferredBy — обратная ссылка на пригласившего (аплайн);
// цепочка таких ссылок образует реферальное дерево.
type User struct {
	ID           int64      `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	Phone        string     `json:"phone"`
	PasswordHash string     `json:"-"` // Не отправляем хеш в JSON
	Role         Role       `json:"role"`
	ReferralCode string     `json:"referral_code"`
	ReferredBy   *int64     `json:"referred_by,omitempty"`
	Placement    *Placement `json:"placement,omitempty"`
	CC           float64    `json:"cc"`
	Balance      float64    `json:"balance"`
	Blocked      bool       `json:"blocked"`
	Address      Address    `json:"address"`
	CreatedAt    time.Time  `json:"created_at"`
}

// TeamMember представляет участника прямой команды пользователя
type TeamMember struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	Placement *Placement `json:"placement,omitempty"`
	JoinedAt  time.Time  `json:"joined_at"`
}

// TeamStats представляет статистику команды пользователя
type TeamStats struct {
	Total int `json:"total"`
	Left  int `json:"left"`
	Right int `json:"right"`
}

// Product представляет товар каталога.
// CommissionCC — комиссионные кредиты за единицу товара.
type Product struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	Price         float64   `json:"price"`
	Category      string    `json:"category"`
	Subcategory   string    `json:"subcategory"`
	Bestseller    bool      `json:"bestseller"`
	CommissionCC  float64   `json:"cc"`
	CreatedBy     int64     `json:"created_by"`
	AverageRating float64   `json:"average_rating"`
	CreatedAt     time.Time `json:"created_at"`
}

// Review представляет отзыв о товаре
type Review struct {
	ID        int64     `json:"id"`
	ProductID int64     `json:"-"`
	UserID    int64     `json:"user_id"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

// CartItem представляет позицию корзины
type CartItem struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// Cart представляет корзину пользователя
type Cart struct {
	UserID int64      `json:"user_id"`
	Items  []CartItem `json:"items"`
}

// OrderItem представляет позицию заказа с разрешенным продавцом
// и комиссией за единицу товара на момент покупки.
type OrderItem struct {
	ProductID      int64   `json:"product_id"`
	SellerID       int64   `json:"seller_id"`
	Quantity       int     `json:"quantity"`
	UnitPrice      float64 `json:"unit_price"`
	UnitCommission float64 `json:"unit_commission"`
}

// Order представляет заказ пользователя
type Order struct {
	ID                string        `json:"id"`
	BuyerID           int64         `json:"-"`
	Items             []OrderItem   `json:"items"`
	Amount            float64       `json:"amount"`
	Address           Address       `json:"address"`
	PaymentMethod     PaymentMethod `json:"payment_method"`
	GatewaySessionRef *string       `json:"-"`
	Paid              bool          `json:"paid"`
	Status            OrderStatus   `json:"status"`
	CreatedAt         time.Time     `json:"created_at"`
}

/// IncomeLevel представляет уровень дохода: порог по накопленным cc
// и разовое денежное вознаграждение за его достижение.
type IncomeLevel struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	Threshold float64 `json:"threshold"`
	Reward    float64 `json:"reward"`
}

// LevelGrant представляет факт выдачи уровня пользователю
type LevelGrant struct {
	LevelID   int64     `json:"level_id"`
	GrantedAt time.Time `json:"granted_at"`
}

// CommissionEvent представляет одно начисление комиссии.
/// Ключ (OrderID, BeneficiaryID, SellerID) уникален: повторное применение
// того же события не приводит к двойному начислению.
type CommissionEvent struct {
	ID            int64     `json:"id"`
	OrderID       string    `json:"order_id"`
	BeneficiaryID int64     `json:"beneficiary_id"`
	SellerID      int64     `json:"seller_id"`
	Amount        float64   `json:"amount"`
	Hop           int       `json:"hop"`
	CreatedAt     time.Time `json:"created_at"`
}

// CommissionTask представляет задачу outbox на распространение комиссии по заказу
type CommissionTask struct {
	ID        int64      `json:"id"`
	OrderID   string     `json:"order_id"`
	Status    TaskStatus `json:"status"`
	Attempts  int        `json:"attempts"`
	LastError *string    `json:"last_error,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Withdrawal представляет вывод средств с баланса
type Withdrawal struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"-"`
	Amount      float64   `json:"amount"`
	ProcessedAt time.Time `json:"processed_at"`
}

// Balance представляет баланс пользователя
type Balance struct {
	Current   float64 `json:"current"`
	Withdrawn float64 `json:"withdrawn"`
}

// BranchResult представляет итог обхода реферальной цепочки одного продавца
type BranchResult struct {
	SellerID      int64   `json:"seller_id"`
	Credit        float64 `json:"credit"`
	HopsCredited  int     `json:"hops_credited"`
	CycleDetected bool    `json:"cycle_detected"`
	DepthExceeded bool    `json:"depth_exceeded"`
	Error         string  `json:"error,omitempty"`
}

// PropagationResult представляет итог распространения комиссии по заказу
type PropagationResult struct {
	OrderID  string         `json:"order_id"`
	Branches []BranchResult `json:"branches"`
}

// Failed сообщает, была ли хотя бы одна ветка прервана ошибкой или циклом
func (r *PropagationResult) Failed() bool {
	for _, b := range r.Branches {
		if b.Error != "" || b.CycleDetected {
			return true
		}
	}
	return false
}

// UnlockResult представляет итог проверки уровней пользователя
type UnlockResult struct {
	Granted     []IncomeLevel `json:"granted"`
	RewardTotal float64       `json:"reward_total"`
}
