package postgres

import (
	"context"
	"fmt"
	"time"
)

// Время жизни одноразового кода
const otpTTL = 5 * time.Minute

// OTPRepository реализует хранилище одноразовых кодов.
type OTPRepository struct {
	db DBTX
}

// NewOTPRepository создает новый OTPRepository
func NewOTPRepository(db DBTX) *OTPRepository {
	return &OTPRepository{db: db}
}

// UpsertOTP сохраняет код для email, заменяя предыдущий
func (r *OTPRepository) UpsertOTP(ctx context.Context, email, code string) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO otp_codes (email, code, expires_at)
		 VALUES ($1, $2, NOW() + $3)
		 ON CONFLICT (email) DO UPDATE SET code = EXCLUDED.code, expires_at = EXCLUDED.expires_at`,
		email, code, otpTTL,
	)
	if err != nil {
		return fmt.Errorf("repository: failed to upsert otp for %q: %w", email, err)
	}
	return nil
}

// ConsumeOTP проверяет код и удаляет его. Просроченный или неверный код
// возвращает ErrOTPNotFound.
func (r *OTPRepository) ConsumeOTP(ctx context.Context, email, code string) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM otp_codes
		 WHERE email = $1 AND code = $2 AND expires_at > NOW()`,
		email, code,
	)
	if err != nil {
		return fmt.Errorf("repository: failed to consume otp for %q: %w", email, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrOTPNotFound
	}
	return nil
}
