// Package app wires the upload, listing, deletion, and passcode entry
// points over the catalog, the object store, the scanner, and the passcode
// registry.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"filedrop/internal/blob"
	"filedrop/internal/catalog"
	"filedrop/internal/otp"
	"filedrop/internal/ratelimit"
	"filedrop/internal/scan"
	"filedrop/internal/session"
	"filedrop/internal/sms"
)

// Config holds the collaborators and knobs for the core.
type Config struct {
	Catalog  *catalog.Catalog
	Blobs    blob.Store
	Scanner  scan.Scanner
	Codes    otp.Store
	Sender   sms.Sender
	Sessions *session.Issuer

	// SendLimiter optionally throttles passcode sends; nil disables
	// throttling, which is the historical behavior.
	SendLimiter *ratelimit.FixedWindowLimiter

	// TempDir receives scan spool files. Defaults to the OS temp dir.
	TempDir string

	// UploadTimeout bounds the object-store write; its expiry fails the
	// upload. ScanTimeout bounds the re-fetch plus scan; its expiry
	// degrades the scan to skipped.
	UploadTimeout time.Duration
	ScanTimeout   time.Duration

	// ScanDetached runs the malware scan in a goroutine after the upload
	// response. That hides scan latency from callers, but an infected
	// upload can then only be cleaned up after its URL was already
	// returned — the URL cannot be recalled. When false (the default) the
	// scan completes before the response and infection fails the upload.
	ScanDetached bool
}

// App implements the core operations.
type App struct {
	catalog  *catalog.Catalog
	blobs    blob.Store
	scanner  scan.Scanner
	codes    otp.Store
	sender   sms.Sender
	sessions *session.Issuer

	sendLimiter   *ratelimit.FixedWindowLimiter
	tempDir       string
	uploadTimeout time.Duration
	scanTimeout   time.Duration
	scanDetached  bool
}

// New validates the wiring and applies defaults.
func New(cfg Config) (*App, error) {
	if cfg.Catalog == nil {
		return nil, errors.New("catalog is required")
	}
	if cfg.Blobs == nil {
		return nil, errors.New("object store is required")
	}
	if cfg.Codes == nil {
		return nil, errors.New("passcode store is required")
	}
	if cfg.Sessions == nil {
		return nil, errors.New("session issuer is required")
	}
	if cfg.Scanner == nil {
		cfg.Scanner = scan.Disabled{}
	}
	if cfg.Sender == nil {
		cfg.Sender = sms.LogSender{}
	}
	if cfg.TempDir == "" {
		cfg.TempDir = os.TempDir()
	}
	if cfg.UploadTimeout <= 0 {
		cfg.UploadTimeout = 30 * time.Second
	}
	if cfg.ScanTimeout <= 0 {
		cfg.ScanTimeout = 60 * time.Second
	}
	return &App{
		catalog:       cfg.Catalog,
		blobs:         cfg.Blobs,
		scanner:       cfg.Scanner,
		codes:         cfg.Codes,
		sender:        cfg.Sender,
		sessions:      cfg.Sessions,
		sendLimiter:   cfg.SendLimiter,
		tempDir:       cfg.TempDir,
		uploadTimeout: cfg.UploadTimeout,
		scanTimeout:   cfg.ScanTimeout,
		scanDetached:  cfg.ScanDetached,
	}, nil
}

// IssueOTP generates and delivers a passcode for phone. A failed delivery
// is logged but does not invalidate the code: login stays possible through
// transient SMS-provider outages, at the cost of users who never received
// the code having a live one.
func (a *App) IssueOTP(ctx context.Context, phone string) error {
	if !a.sendLimiter.Allow(phone) {
		return ErrTooManySends
	}
	code, err := a.codes.Issue(ctx, phone)
	if err != nil {
		return fmt.Errorf("issue passcode: %w", err)
	}
	if err := a.sender.SendCode(ctx, phone, code); err != nil {
		slog.Warn("passcode delivery failed, code remains valid", "phone", phone, "err", err)
	}
	return nil
}

// VerifyOTP consumes the passcode and returns a session token on success.
func (a *App) VerifyOTP(ctx context.Context, phone, code string) (string, error) {
	ok, err := a.codes.Verify(ctx, phone, code)
	if err != nil {
		return "", fmt.Errorf("verify passcode: %w", err)
	}
	if !ok {
		return "", ErrInvalidCode
	}
	token, err := a.sessions.Issue(phone)
	if err != nil {
		return "", fmt.Errorf("issue session: %w", err)
	}
	return token, nil
}

// FetchFile streams the stored bytes for a URL or pathname. The caller
// owns the returned body.
func (a *App) FetchFile(ctx context.Context, key string) (io.ReadCloser, error) {
	body, err := a.blobs.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("fetch blob: %w", err)
	}
	return body, nil
}

// DeleteFile removes a blob and its catalog record. When ownerID is
// non-empty the catalog record must belong to that owner; the check runs
// before anything is deleted, so an unauthorized call leaves the blob in
// place.
func (a *App) DeleteFile(ctx context.Context, key, ownerID string) error {
	if ownerID != "" {
		rec, ok, err := a.catalog.FindByPath(key)
		if err != nil {
			return fmt.Errorf("look up file record: %w", err)
		}
		if ok && rec.OwnerID != ownerID {
			return catalog.ErrUnauthorized
		}
	}
	if err := a.blobs.Delete(ctx, key); err != nil {
		return fmt.Errorf("delete blob: %w", err)
	}
	if err := a.catalog.RemoveByPath(key, ""); err != nil && !errors.Is(err, catalog.ErrNotFound) {
		// Blob is gone; a leftover record is stale metadata the listing
		// reconciler never surfaces.
		slog.Warn("blob deleted but record removal failed", "key", key, "err", err)
	}
	return nil
}
