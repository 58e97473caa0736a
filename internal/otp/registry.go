package otp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"filedrop/internal/domain"
	"filedrop/internal/recordstore"
)

const defaultTTL = 5 * time.Minute

// Registry is the flat-file passcode store. Issuing evicts any existing
// record for the phone before inserting, so the current record is unique per
// phone; expired records are purged lazily on the next verification attempt.
type Registry struct {
	col        *recordstore.Collection[domain.OtpRecord]
	ttl        time.Duration
	codeLength int
	now        func() time.Time
}

// Option tweaks registry behavior.
type Option func(*Registry)

// WithTTL overrides the default 5 minute validity window.
func WithTTL(ttl time.Duration) Option {
	return func(r *Registry) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

// WithCodeLength overrides the issued code width.
func WithCodeLength(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.codeLength = n
		}
	}
}

// WithClock injects a time source for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// NewRegistry wraps an opened passcode collection.
func NewRegistry(col *recordstore.Collection[domain.OtpRecord], opts ...Option) *Registry {
	r := &Registry{
		col:        col,
		ttl:        defaultTTL,
		codeLength: DefaultCodeLength,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Issue generates a code for phone, replacing any record the phone already
// has.
func (r *Registry) Issue(_ context.Context, phone string) (string, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return "", ErrPhoneRequired
	}
	code, err := GenerateNumericCode(r.codeLength)
	if err != nil {
		return "", err
	}
	if _, err := r.col.RemoveWhere(byPhone(phone)); err != nil {
		return "", fmt.Errorf("evict previous code: %w", err)
	}
	rec := domain.OtpRecord{
		Phone:     phone,
		Code:      code,
		ExpiresAt: r.now().UTC().Add(r.ttl),
	}
	if err := r.col.Append(rec); err != nil {
		return "", fmt.Errorf("save code: %w", err)
	}
	return code, nil
}

// Verify reports whether phone presented its current unexpired code. Both a
// successful verification and an expired record remove the record; a wrong
// code leaves it in place.
func (r *Registry) Verify(_ context.Context, phone, code string) (bool, error) {
	rec, ok, err := r.col.FindFirst(func(o domain.OtpRecord) bool {
		return o.Phone == phone && o.Code == code
	})
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	if r.now().UTC().After(rec.ExpiresAt) {
		if _, err := r.col.RemoveWhere(byPhone(phone)); err != nil {
			return false, fmt.Errorf("purge expired code: %w", err)
		}
		return false, nil
	}
	// Single use: consume before reporting success.
	if _, err := r.col.RemoveWhere(byPhone(phone)); err != nil {
		return false, fmt.Errorf("consume code: %w", err)
	}
	return true, nil
}

func byPhone(phone string) func(domain.OtpRecord) bool {
	return func(o domain.OtpRecord) bool { return o.Phone == phone }
}
