package otp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

// RedisRegistry keeps passcodes in redis with native TTL expiry. Codes are
// stored bcrypt-hashed, so a leaked dump does not reveal live codes. One key
// per phone keeps the current-code-unique-per-phone invariant: issuing
// overwrites whatever the phone had.
type RedisRegistry struct {
	client     *redis.Client
	keyPrefix  string
	ttl        time.Duration
	codeLength int
}

// NewRedisRegistry connects to redis at addr.
func NewRedisRegistry(addr, password string, opts ...RedisOption) (*RedisRegistry, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, errors.New("otp redis addr is required")
	}
	r := &RedisRegistry{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
		}),
		keyPrefix:  "filedrop:otp",
		ttl:        defaultTTL,
		codeLength: DefaultCodeLength,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// RedisOption tweaks the redis registry.
type RedisOption func(*RedisRegistry)

// WithRedisTTL overrides the default validity window.
func WithRedisTTL(ttl time.Duration) RedisOption {
	return func(r *RedisRegistry) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

// WithRedisCodeLength overrides the issued code width.
func WithRedisCodeLength(n int) RedisOption {
	return func(r *RedisRegistry) {
		if n > 0 {
			r.codeLength = n
		}
	}
}

// Issue generates a code for phone. Setting the key unconditionally evicts
// any previous code for the phone.
func (r *RedisRegistry) Issue(ctx context.Context, phone string) (string, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return "", ErrPhoneRequired
	}
	code, err := GenerateNumericCode(r.codeLength)
	if err != nil {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash code: %w", err)
	}
	if err := r.client.Set(ctx, r.key(phone), hash, r.ttl).Err(); err != nil {
		return "", fmt.Errorf("save code: %w", err)
	}
	return code, nil
}

// Verify consumes the code when it matches. Expiry is redis TTL; a missing
// key covers both "never issued" and "expired".
func (r *RedisRegistry) Verify(ctx context.Context, phone, code string) (bool, error) {
	key := r.key(strings.TrimSpace(phone))
	hash, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load code: %w", err)
	}
	if bcrypt.CompareHashAndPassword(hash, []byte(code)) != nil {
		return false, nil
	}
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return false, fmt.Errorf("consume code: %w", err)
	}
	return true, nil
}

func (r *RedisRegistry) key(phone string) string {
	return fmt.Sprintf("%s:%s", r.keyPrefix, phone)
}
