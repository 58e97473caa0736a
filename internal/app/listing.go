package app

import (
	"context"
	"fmt"
	"path"
	"strings"

	"golang.org/x/sync/errgroup"

	"filedrop/internal/blob"
	"filedrop/internal/domain"
)

// ListFiles joins the object store's blob listing with the catalog. The
// object store is authoritative: every blob appears exactly once, even
// without a catalog record, while stale records whose blob is gone are
// never surfaced. For metadata-less blobs the category falls back to the
// first path segment and owner is absent.
//
// When ownerID is non-empty only blobs whose record belongs to that owner
// are returned; blobs without metadata have no knowable owner and are
// omitted from filtered listings.
func (a *App) ListFiles(ctx context.Context, ownerID string) ([]domain.FileRecord, error) {
	var (
		objects []blob.Object
		records []domain.FileRecord
	)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		objects, err = a.blobs.List(ctx)
		if err != nil {
			return fmt.Errorf("list blobs: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		records, err = a.catalog.AllFiles("")
		if err != nil {
			return fmt.Errorf("read catalog: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	byKey := make(map[string]domain.FileRecord, len(records)*2)
	for _, rec := range records {
		if rec.Pathname != "" {
			byKey[rec.Pathname] = rec
		}
		if rec.URL != "" {
			byKey[rec.URL] = rec
		}
	}

	out := make([]domain.FileRecord, 0, len(objects))
	for _, obj := range objects {
		rec, ok := byKey[obj.Pathname]
		if !ok {
			rec, ok = byKey[obj.URL]
		}
		if ownerID != "" && (!ok || rec.OwnerID != ownerID) {
			continue
		}
		row := domain.FileRecord{
			URL:         obj.URL,
			Pathname:    obj.Pathname,
			Filename:    path.Base(obj.Pathname),
			ContentType: obj.ContentType,
			Size:        obj.Size,
			UploadedAt:  obj.UploadedAt,
			Category:    pathCategory(obj.Pathname),
		}
		if ok {
			row.ID = rec.ID
			row.OwnerID = rec.OwnerID
			if rec.Filename != "" {
				row.Filename = rec.Filename
			}
			if rec.Category != "" {
				row.Category = rec.Category
			}
			if row.ContentType == "" {
				row.ContentType = rec.ContentType
			}
		}
		out = append(out, row)
	}
	return out, nil
}

func pathCategory(pathname string) string {
	if i := strings.IndexByte(pathname, '/'); i > 0 {
		return pathname[:i]
	}
	return "other"
}
