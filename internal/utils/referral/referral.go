// Package referral содержит генерацию реферальных и одноразовых кодов.
package referral

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
)

const (
	codeBytes = 6
	otpDigits = 6
)

// NewCode генерирует уникальный 12-символьный реферальный код
func NewCode() (string, error) {
	buf := make([]byte, codeBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate referral code: %w", err)
	}
	return strings.ToUpper(hex.EncodeToString(buf)), nil
}

// NewOTP генерирует одноразовый цифровой код
func NewOTP() (string, error) {
	var sb strings.Builder
	for i := 0; i < otpDigits; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", fmt.Errorf("failed to generate otp: %w", err)
		}
		sb.WriteByte(byte('0' + n.Int64()))
	}
	return sb.String(), nil
}
