// Package blob abstracts the external object store holding uploaded bytes.
package blob

import (
	"context"
	"io"
	"time"
)

// Object describes one stored blob.
type Object struct {
	URL         string    `json:"url"`
	Pathname    string    `json:"pathname"`
	ContentType string    `json:"contentType,omitempty"`
	Size        int64     `json:"size,omitempty"`
	UploadedAt  time.Time `json:"uploadedAt"`
}

// Store is the object-store client contract consumed by the core.
// Put stores bytes publicly at pathname and returns the canonical object.
// Get and Delete accept either the canonical URL or the bare pathname.
type Store interface {
	Put(ctx context.Context, pathname string, r io.Reader, size int64, contentType string) (Object, error)
	Get(ctx context.Context, urlOrPathname string) (io.ReadCloser, error)
	Delete(ctx context.Context, urlOrPathname string) error
	List(ctx context.Context) ([]Object, error)
}
