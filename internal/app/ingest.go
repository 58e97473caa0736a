package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"filedrop/internal/blob"
	"filedrop/internal/catalog"
	"filedrop/internal/domain"
	"filedrop/internal/util"
)

// UploadResult is the caller-visible outcome of a successful ingestion.
type UploadResult struct {
	URL         string `json:"url"`
	Pathname    string `json:"pathname"`
	Filename    string `json:"filename"`
	ContentType string `json:"contentType,omitempty"`
	Size        int64  `json:"size,omitempty"`
	Category    string `json:"category"`
}

// IngestUpload stores the bytes, records metadata, and scans the result.
//
// The object-store write is the only fatal step: its failure surfaces as
// ErrUploadFailed and nothing is recorded. A failed catalog write after a
// successful store is logged and accepted — the blob exists without
// metadata, which the listing reconciler tolerates. Scanning is advisory:
// an unreachable scanner or a scan transport error leaves the file in place
// and the upload successful. Only a positive infection verdict triggers
// cleanup of both the blob and the record and fails the call with
// ErrInfectedContent (inline mode; in detached mode the response has
// already been sent and only the cleanup happens).
func (a *App) IngestUpload(ctx context.Context, r io.Reader, filename, ownerID string) (UploadResult, error) {
	name := safeFilename(filename)
	category := Category(name)
	pathname := fmt.Sprintf("%s/%d-%s-%s", category, time.Now().UTC().UnixMilli(), util.NewID()[:6], name)
	contentType := contentTypeFor(name)

	putCtx, cancel := context.WithTimeout(ctx, a.uploadTimeout)
	defer cancel()
	obj, err := a.blobs.Put(putCtx, pathname, r, -1, contentType)
	if err != nil {
		slog.Error("object store write failed", "pathname", pathname, "err", err)
		return UploadResult{}, ErrUploadFailed
	}

	rec := domain.FileRecord{
		ID:          uuid.NewString(),
		URL:         obj.URL,
		Pathname:    obj.Pathname,
		Filename:    name,
		ContentType: obj.ContentType,
		Size:        obj.Size,
		UploadedAt:  obj.UploadedAt,
		Category:    category,
		OwnerID:     ownerID,
	}
	if err := a.catalog.AddFile(rec); err != nil {
		// The blob is already stored and downloadable; losing its metadata
		// is accepted rather than rolled back.
		slog.Error("catalog write failed, blob left without metadata", "pathname", obj.Pathname, "err", err)
	}

	result := UploadResult{
		URL:         obj.URL,
		Pathname:    obj.Pathname,
		Filename:    name,
		ContentType: obj.ContentType,
		Size:        obj.Size,
		Category:    category,
	}

	if a.scanDetached {
		go a.scanStored(context.WithoutCancel(ctx), obj)
		return result, nil
	}
	if infected := a.scanStored(ctx, obj); infected {
		return UploadResult{}, ErrInfectedContent
	}
	return result, nil
}

// scanStored re-fetches the blob, spools it to a temp file, and scans it.
// It reports whether the blob was found infected and cleaned up. Every
// other outcome — fetch failure, spool failure, scanner unavailable, scan
// transport error — degrades to "not infected" and is at most logged.
func (a *App) scanStored(ctx context.Context, obj blob.Object) bool {
	ctx, cancel := context.WithTimeout(ctx, a.scanTimeout)
	defer cancel()

	body, err := a.blobs.Get(ctx, obj.URL)
	if err != nil {
		slog.Warn("scan skipped, blob fetch failed", "pathname", obj.Pathname, "err", err)
		return false
	}
	defer body.Close()

	tmpPath, err := spoolToTemp(a.tempDir, body)
	if tmpPath != "" {
		defer os.Remove(tmpPath)
	}
	if err != nil {
		slog.Warn("scan skipped, spool failed", "pathname", obj.Pathname, "err", err)
		return false
	}

	res, err := a.scanner.Scan(ctx, tmpPath)
	if err != nil {
		slog.Warn("scan transport error, treating file as clean", "pathname", obj.Pathname, "err", err)
		return false
	}
	if !res.Available {
		slog.Debug("scanner unavailable, scan skipped", "pathname", obj.Pathname)
		return false
	}
	if !res.Infected {
		return false
	}

	slog.Warn("infected upload detected, removing blob and record",
		"pathname", obj.Pathname, "signatures", strings.Join(res.Signatures, ","))
	cleanupCtx, cleanupCancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cleanupCancel()
	if err := a.blobs.Delete(cleanupCtx, obj.URL); err != nil {
		slog.Error("failed to delete infected blob", "pathname", obj.Pathname, "err", err)
	}
	if err := a.catalog.RemoveByPath(obj.Pathname, ""); err != nil && !errors.Is(err, catalog.ErrNotFound) {
		slog.Error("failed to remove record of infected blob", "pathname", obj.Pathname, "err", err)
	}
	return true
}

// spoolToTemp writes the blob bytes to a scan temp file and returns its
// path. The path is returned even on error so the caller can remove a
// partial file.
func spoolToTemp(dir string, r io.Reader) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	_, copyErr := io.Copy(tmp, r)
	closeErr := tmp.Close()
	if copyErr != nil {
		return tmp.Name(), fmt.Errorf("spool blob: %w", copyErr)
	}
	if closeErr != nil {
		return tmp.Name(), fmt.Errorf("close temp file: %w", closeErr)
	}
	return tmp.Name(), nil
}

func contentTypeFor(filename string) string {
	if ct := mime.TypeByExtension(filepath.Ext(filename)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

func safeFilename(name string) string {
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, string(os.PathSeparator), "_")
	name = strings.TrimSpace(name)
	if name == "" || name == "." {
		return "file"
	}
	return name
}
