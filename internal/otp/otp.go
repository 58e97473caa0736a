// Package otp issues and verifies one-time login passcodes.
//
// Codes are single-use and expire after a fixed TTL. Verification does not
// tell callers whether a code was wrong or expired, and there is no attempt
// lockout before expiry — throttling, when wanted, is layered on the issue
// path by the caller.
package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
)

const (
	// DefaultCodeLength matches the 5-digit codes of the original service.
	DefaultCodeLength = 5
)

// ErrPhoneRequired is returned when Issue is called without a phone number.
var ErrPhoneRequired = errors.New("phone number required")

// Store issues and verifies codes for phone numbers.
type Store interface {
	// Issue creates a fresh code for phone, replacing any current one,
	// and returns it for delivery.
	Issue(ctx context.Context, phone string) (string, error)
	// Verify consumes the code when it matches and is unexpired.
	Verify(ctx context.Context, phone, code string) (bool, error)
}

// GenerateNumericCode returns a fixed-width random digit string.
func GenerateNumericCode(length int) (string, error) {
	if length <= 0 {
		length = DefaultCodeLength
	}
	digits := make([]byte, length)
	for i := range digits {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", fmt.Errorf("generate code digit: %w", err)
		}
		digits[i] = byte('0' + n.Int64())
	}
	return string(digits), nil
}
