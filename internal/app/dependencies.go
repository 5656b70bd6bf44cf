package app

import (
	"github.com/avc/referral-shop-backend/internal/config"
	"github.com/avc/referral-shop-backend/internal/domain"
	"github.com/avc/referral-shop-backend/internal/handlers"
	"github.com/avc/referral-shop-backend/internal/repository/postgres"
	"github.com/avc/referral-shop-backend/internal/service"
	"github.com/avc/referral-shop-backend/internal/utils/jwt"
	"github.com/avc/referral-shop-backend/internal/utils/password"
	"github.com/avc/referral-shop-backend/internal/worker"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// repositories содержит все репозитории приложения
type repositories struct {
	user       domain.UserRepository
	product    domain.ProductRepository
	cart       domain.CartRepository
	order      domain.OrderRepository
	commission domain.CommissionRepository
	level      domain.LevelRepository
	balance    domain.BalanceRepository
	otp        domain.OTPRepository
}

// services содержит все сервисы приложения
type services struct {
	auth       *service.AuthService
	otp        *service.OTPService
	user       *service.UserService
	catalog    *service.CatalogService
	cart       *service.CartService
	order      *service.OrderService
	commission *service.CommissionService
	level      *service.LevelService
	balance    *service.BalanceService
}

// handlerSet содержит все хендлеры приложения
type handlerSet struct {
	auth     *handlers.AuthHandler
	users    *handlers.UserHandler
	products *handlers.ProductHandler
	cart     *handlers.CartHandler
	orders   *handlers.OrderHandler
	balance  *handlers.BalanceHandler
	levels   *handlers.LevelHandler
	health   *handlers.HealthHandler
}

// dependencies содержит все зависимости приложения
type dependencies struct {
	repos      *repositories
	services   *services
	handlers   *handlerSet
	jwtManager *jwt.Manager
	workerPool *worker.Pool
}

// initDependencies создает все зависимости приложения
func initDependencies(cfg *config.Config, dbPool *pgxpool.Pool, logger *zap.Logger) *dependencies {
	// Создание репозиториев
	repos := &repositories{
		user:       postgres.NewUserRepository(dbPool),
		product:    postgres.NewProductRepository(dbPool),
		cart:       postgres.NewCartRepository(dbPool),
		order:      postgres.NewOrderRepository(dbPool),
		commission: postgres.NewCommissionRepository(dbPool),
		level:      postgres.NewLevelRepository(dbPool),
		balance:    postgres.NewBalanceRepository(dbPool),
		otp:        postgres.NewOTPRepository(dbPool),
	}

	// Создание утилит
	passwordHasher := password.NewBCryptHasher(password.DefaultCost)
	jwtManager := jwt.NewManager(cfg.JWTSecret, cfg.JWTTokenTTL)
	mailer := service.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword)

	// Платежные шлюзы
	gateways := map[domain.PaymentMethod]service.PaymentClient{
		domain.PaymentMethodStripe:   service.NewStripeClient(cfg.StripeAPIURL, cfg.StripeAPIKey),
		domain.PaymentMethodRazorpay: service.NewRazorpayClient(cfg.RazorpayAPIURL, cfg.RazorpayKeyID, cfg.RazorpayKeySecret),
	}

	// Создание сервисов
	authServiceConfig := service.AuthServiceConfig{
		MinPasswordLength: cfg.MinPasswordLength,
	}
	svcs := &services{
		auth:       service.NewAuthService(repos.user, passwordHasher, jwtManager, authServiceConfig),
		otp:        service.NewOTPService(repos.otp, mailer),
		user:       service.NewUserService(repos.user),
		catalog:    service.NewCatalogService(repos.product),
		cart:       service.NewCartService(repos.cart, repos.product),
		order:      service.NewOrderService(repos.order, repos.product, gateways, logger, cfg.DeliveryCharge),
		commission: service.NewCommissionService(repos.commission, logger, cfg.MaxReferralDepth),
		level:      service.NewLevelService(repos.level, repos.user),
		balance:    service.NewBalanceService(repos.balance, cfg.MinWithdrawal),
	}

	// Создание handlers
	hdlrs := &handlerSet{
		auth:     handlers.NewAuthHandler(svcs.auth, svcs.otp, logger),
		users:    handlers.NewUserHandler(svcs.user, svcs.level, logger),
		products: handlers.NewProductHandler(svcs.catalog, logger),
		cart:     handlers.NewCartHandler(svcs.cart, logger),
		orders:   handlers.NewOrderHandler(svcs.order, logger),
		balance:  handlers.NewBalanceHandler(svcs.balance, logger),
		levels:   handlers.NewLevelHandler(svcs.level, logger),
		health:   handlers.NewHealthHandler(dbPool, logger),
	}

	// Создание worker pool
	workerPoolConfig := worker.PoolConfig{
		Workers:      cfg.WorkerPoolSize,
		QueueSize:    cfg.WorkerQueueSize,
		ScanInterval: cfg.WorkerScanInterval,
		MaxAttempts:  cfg.WorkerMaxAttempts,
	}
	workerPool := worker.NewPool(workerPoolConfig, repos.order, repos.commission, svcs.commission, logger)

	return &dependencies{
		repos:      repos,
		services:   svcs,
		handlers:   hdlrs,
		jwtManager: jwtManager,
		workerPool: workerPool,
	}
}
