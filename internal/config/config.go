// Package config содержит логику чтения конфигурации сервиса.
package config

import (
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config содержит конфигурацию приложения
type Config struct {
	RunAddress  string `env:"RUN_ADDRESS" envDefault:":8080"`
	DatabaseURI string `env:"DATABASE_URI"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// JWT
	JWTSecret   string        `env:"JWT_SECRET" envDefault:"default-secret-key-change-in-production"`
	JWTTokenTTL time.Duration `env:"JWT_TOKEN_TTL" envDefault:"168h"`

	// Worker pool обработки outbox-задач комиссии
	WorkerPoolSize     int           `env:"WORKER_POOL_SIZE" envDefault:"3"`
	WorkerQueueSize    int           `env:"WORKER_QUEUE_SIZE" envDefault:"100"`
	WorkerScanInterval time.Duration `env:"WORKER_SCAN_INTERVAL" envDefault:"10s"`
	WorkerMaxAttempts  int           `env:"WORKER_MAX_ATTEMPTS" envDefault:"5"`

	// Бизнес-правила
	MaxReferralDepth  int     `env:"MAX_REFERRAL_DEPTH" envDefault:"100"`
	MinWithdrawal     float64 `env:"MIN_WITHDRAWAL" envDefault:"100"`
	MinPasswordLength int     `env:"MIN_PASSWORD_LENGTH" envDefault:"8"`
	DeliveryCharge    float64 `env:"DELIVERY_CHARGE" envDefault:"10"`

	// SMTP для отправки OTP
	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"465"`
	SMTPUser     string `env:"SMTP_USER"`
	SMTPPassword string `env:"SMTP_PASSWORD"`

	// Платежные шлюзы
	StripeAPIURL      string `env:"STRIPE_API_URL"`
	StripeAPIKey      string `env:"STRIPE_API_KEY"`
	RazorpayAPIURL    string `env:"RAZORPAY_API_URL"`
	RazorpayKeyID     string `env:"RAZORPAY_KEY_ID"`
	RazorpayKeySecret string `env:"RAZORPAY_KEY_SECRET"`
}

// Load загружает конфигурацию из флагов командной строки и переменных окружения.
// Приоритет: env переменные > флаги > дефолтные значения.
func Load() (*Config, error) {
	// .env опционален, его отсутствие не является ошибкой
	_ = godotenv.Load()

	var flagRunAddress, flagDatabaseURI string
	flag.StringVar(&flagRunAddress, "a", "", "address and port to run server")
	flag.StringVar(&flagDatabaseURI, "d", "", "database URI")
	flag.Parse()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: parse env: %w", err)
	}

	if cfg.RunAddress == ":8080" && flagRunAddress != "" {
		cfg.RunAddress = flagRunAddress
	}
	if cfg.DatabaseURI == "" {
		cfg.DatabaseURI = flagDatabaseURI
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseURI == "" {
		return fmt.Errorf("config: database URI is required (use -d flag or DATABASE_URI env)")
	}
	if c.WorkerPoolSize <= 0 {
		return fmt.Errorf("config: worker pool size must be positive")
	}
	if c.MaxReferralDepth <= 0 {
		return fmt.Errorf("config: max referral depth must be positive")
	}
	if c.MinWithdrawal < 0 {
		return fmt.Errorf("config: minimum withdrawal cannot be negative")
	}
	return nil
}
