// Package sms delivers one-time passcodes to phones. Delivery is
// best-effort from the registry's point of view: a failed send is logged by
// the caller and never invalidates the issued code.
package sms

import (
	"context"
	"log/slog"
)

// Sender delivers a verification code to a phone number.
type Sender interface {
	SendCode(ctx context.Context, phone, code string) error
}

// LogSender writes codes to the log instead of sending them. Used in
// development when no SMS provider is configured.
type LogSender struct{}

func (LogSender) SendCode(_ context.Context, phone, code string) error {
	slog.Info("otp code issued without sms delivery", "phone", phone, "code", code)
	return nil
}
