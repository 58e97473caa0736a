package otp

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"filedrop/internal/domain"
	"filedrop/internal/recordstore"
)

func testRegistry(t *testing.T, opts ...Option) (*Registry, *recordstore.Collection[domain.OtpRecord]) {
	t.Helper()
	col := recordstore.Open[domain.OtpRecord](filepath.Join(t.TempDir(), "otps.json"))
	return NewRegistry(col, opts...), col
}

func TestGenerateNumericCodeWidthAndCharset(t *testing.T) {
	for i := 0; i < 20; i++ {
		code, err := GenerateNumericCode(5)
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if len(code) != 5 {
			t.Fatalf("expected 5 digits, got %q", code)
		}
		for _, c := range code {
			if c < '0' || c > '9' {
				t.Fatalf("non-digit in code %q", code)
			}
		}
	}
}

func TestIssueKeepsOneCurrentRecordPerPhone(t *testing.T) {
	r, col := testRegistry(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := r.Issue(ctx, "09123456789"); err != nil {
			t.Fatalf("issue: %v", err)
		}
	}
	records, err := col.All()
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected one current record, got %d", len(records))
	}
	if records[0].Phone != "09123456789" {
		t.Fatalf("unexpected record: %+v", records[0])
	}
}

func TestIssueRequiresPhone(t *testing.T) {
	r, _ := testRegistry(t)
	if _, err := r.Issue(context.Background(), "  "); err != ErrPhoneRequired {
		t.Fatalf("expected ErrPhoneRequired, got %v", err)
	}
}

func TestVerifyFlow(t *testing.T) {
	r, col := testRegistry(t)
	ctx := context.Background()

	code, err := r.Issue(ctx, "09123456789")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	records, _ := col.All()
	if len(records) != 1 || len(records[0].Code) != DefaultCodeLength {
		t.Fatalf("unexpected stored record: %+v", records)
	}
	remaining := time.Until(records[0].ExpiresAt)
	if remaining < 4*time.Minute || remaining > 5*time.Minute+time.Second {
		t.Fatalf("unexpected expiry window: %v", remaining)
	}

	// Wrong code: invalid, record stays.
	wrong := "00000"
	if wrong == code {
		wrong = "00001"
	}
	ok, err := r.Verify(ctx, "09123456789", wrong)
	if err != nil || ok {
		t.Fatalf("wrong code accepted: ok=%v err=%v", ok, err)
	}
	if records, _ = col.All(); len(records) != 1 {
		t.Fatalf("record purged on wrong code")
	}

	// Correct code: valid, record consumed.
	ok, err = r.Verify(ctx, "09123456789", code)
	if err != nil || !ok {
		t.Fatalf("correct code rejected: ok=%v err=%v", ok, err)
	}
	if records, _ = col.All(); len(records) != 0 {
		t.Fatalf("record not consumed after verification")
	}

	// Single use: immediate replay is invalid.
	ok, err = r.Verify(ctx, "09123456789", code)
	if err != nil || ok {
		t.Fatalf("replayed code accepted: ok=%v err=%v", ok, err)
	}
}

func TestVerifyExpiredCodePurgesRecord(t *testing.T) {
	current := time.Now()
	r, col := testRegistry(t, WithClock(func() time.Time { return current }))
	ctx := context.Background()

	code, err := r.Issue(ctx, "09123456789")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	current = current.Add(6 * time.Minute)
	ok, err := r.Verify(ctx, "09123456789", code)
	if err != nil || ok {
		t.Fatalf("expired code accepted: ok=%v err=%v", ok, err)
	}
	if records, _ := col.All(); len(records) != 0 {
		t.Fatalf("expired record not purged")
	}
}

func TestVerifyUnknownPhone(t *testing.T) {
	r, _ := testRegistry(t)
	ok, err := r.Verify(context.Background(), "09120000000", "12345")
	if err != nil || ok {
		t.Fatalf("unexpected result for unknown phone: ok=%v err=%v", ok, err)
	}
}

func TestCustomCodeLength(t *testing.T) {
	r, col := testRegistry(t, WithCodeLength(6))
	if _, err := r.Issue(context.Background(), "09123456789"); err != nil {
		t.Fatalf("issue: %v", err)
	}
	records, _ := col.All()
	if len(records[0].Code) != 6 {
		t.Fatalf("expected 6-digit code, got %q", records[0].Code)
	}
}
