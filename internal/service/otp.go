package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/avc/referral-shop-backend/internal/domain"
	"github.com/avc/referral-shop-backend/internal/repository/postgres"
	"github.com/avc/referral-shop-backend/internal/utils/referral"
	"gopkg.in/gomail.v2"
)

// Mailer отправляет письма пользователям
type Mailer interface {
	Send(to, subject, body string) error
}

// SMTPMailer реализует Mailer поверх SMTP
type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
}

// NewSMTPMailer создает новый SMTPMailer
func NewSMTPMailer(host string, port int, user, password string) *SMTPMailer {
	return &SMTPMailer{
		dialer: gomail.NewDialer(host, port, user, password),
		from:   user,
	}
}

// Send отправляет письмо
func (m *SMTPMailer) Send(to, subject, body string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("mailer: failed to send email to %q: %w", to, err)
	}
	return nil
}

// OTPService реализует отправку и проверку одноразовых кодов
type OTPService struct {
	otpRepo domain.OTPRepository
	mailer  Mailer
}

// NewOTPService создает новый OTPService
func NewOTPService(otpRepo domain.OTPRepository, mailer Mailer) *OTPService {
	return &OTPService{
		otpRepo: otpRepo,
		mailer:  mailer,
	}
}

// SendOTP генерирует код, сохраняет его и отправляет на email.
// Новый код заменяет предыдущий для того же адреса.
func (s *OTPService) SendOTP(ctx context.Context, email string) error {
	if email == "" {
		return ErrInvalidInput
	}

	code, err := referral.NewOTP()
	if err != nil {
		return fmt.Errorf("otp service: failed to generate code: %w", err)
	}

	if err := s.otpRepo.UpsertOTP(ctx, email, code); err != nil {
		return fmt.Errorf("otp service: failed to store code for %q: %w", email, err)
	}

	body := fmt.Sprintf("Your verification code is %s. It expires in 5 minutes.", code)
	if err := s.mailer.Send(email, "Verification code", body); err != nil {
		return fmt.Errorf("otp service: failed to send code to %q: %w", email, err)
	}

	return nil
}

// VerifyOTP проверяет код. Код одноразовый: успешная проверка удаляет его.
func (s *OTPService) VerifyOTP(ctx context.Context, email, code string) error {
	if email == "" || code == "" {
		return ErrInvalidInput
	}

	err := s.otpRepo.ConsumeOTP(ctx, email, code)
	if err != nil {
		if errors.Is(err, postgres.ErrOTPNotFound) {
			return ErrOTPInvalid
		}
		return fmt.Errorf("otp service: failed to verify code for %q: %w", email, err)
	}
	return nil
}
