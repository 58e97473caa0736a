package otp

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func testRedisRegistry(t *testing.T, opts ...RedisOption) (*RedisRegistry, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	r, err := NewRedisRegistry(mr.Addr(), "", opts...)
	if err != nil {
		t.Fatalf("new redis registry: %v", err)
	}
	return r, mr
}

func TestRedisIssueAndVerify(t *testing.T) {
	r, _ := testRedisRegistry(t)
	ctx := context.Background()

	code, err := r.Issue(ctx, "09123456789")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if len(code) != DefaultCodeLength {
		t.Fatalf("unexpected code width: %q", code)
	}

	wrong := "00000"
	if wrong == code {
		wrong = "00001"
	}
	if ok, err := r.Verify(ctx, "09123456789", wrong); err != nil || ok {
		t.Fatalf("wrong code accepted: ok=%v err=%v", ok, err)
	}
	if ok, err := r.Verify(ctx, "09123456789", code); err != nil || !ok {
		t.Fatalf("correct code rejected: ok=%v err=%v", ok, err)
	}
	// Single use.
	if ok, err := r.Verify(ctx, "09123456789", code); err != nil || ok {
		t.Fatalf("replayed code accepted: ok=%v err=%v", ok, err)
	}
}

func TestRedisIssueReplacesPreviousCode(t *testing.T) {
	r, _ := testRedisRegistry(t)
	ctx := context.Background()

	first, err := r.Issue(ctx, "09123456789")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	second, err := r.Issue(ctx, "09123456789")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if first == second {
		t.Skipf("codes collided, cannot distinguish eviction")
	}
	if ok, _ := r.Verify(ctx, "09123456789", first); ok {
		t.Fatalf("evicted code still verifies")
	}
	if ok, _ := r.Verify(ctx, "09123456789", second); !ok {
		t.Fatalf("current code rejected")
	}
}

func TestRedisExpiry(t *testing.T) {
	r, mr := testRedisRegistry(t, WithRedisTTL(time.Minute))
	ctx := context.Background()

	code, err := r.Issue(ctx, "09123456789")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	mr.FastForward(2 * time.Minute)
	if ok, err := r.Verify(ctx, "09123456789", code); err != nil || ok {
		t.Fatalf("expired code accepted: ok=%v err=%v", ok, err)
	}
}

func TestRedisRegistryRequiresAddr(t *testing.T) {
	if _, err := NewRedisRegistry("  ", ""); err == nil {
		t.Fatalf("expected error on empty addr")
	}
}
