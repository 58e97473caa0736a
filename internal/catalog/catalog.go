// Package catalog keeps the metadata record for every stored blob.
package catalog

import (
	"errors"
	"fmt"

	"filedrop/internal/domain"
	"filedrop/internal/recordstore"
)

var (
	// ErrNotFound is returned when no record matches the given path or URL.
	ErrNotFound = errors.New("file not found")

	// ErrUnauthorized is returned when a caller tries to remove a record
	// owned by someone else.
	ErrUnauthorized = errors.New("not allowed to modify this file")
)

// Catalog is the file-metadata specialization of the record store.
// At most one live record exists per pathname; the ingestion path guarantees
// fresh pathnames structurally, so the catalog itself only appends.
type Catalog struct {
	col *recordstore.Collection[domain.FileRecord]
}

// New wraps an opened collection.
func New(col *recordstore.Collection[domain.FileRecord]) *Catalog {
	return &Catalog{col: col}
}

// Update carries a partial change set for UpdateFile. Nil fields are left
// untouched.
type Update struct {
	Filename    *string
	ContentType *string
	Size        *int64
	Category    *string
	OwnerID     *string
}

// AddFile persists a new record.
func (c *Catalog) AddFile(rec domain.FileRecord) error {
	if err := c.col.Append(rec); err != nil {
		return fmt.Errorf("add file record: %w", err)
	}
	return nil
}

// FindByPath returns the first record whose pathname or URL equals key.
func (c *Catalog) FindByPath(key string) (domain.FileRecord, bool, error) {
	return c.col.FindFirst(matches(key))
}

// RemoveByPath deletes the record(s) matching key by pathname or URL.
// When ownerID is non-empty the matched record must belong to that owner.
func (c *Catalog) RemoveByPath(key, ownerID string) error {
	if ownerID != "" {
		rec, ok, err := c.col.FindFirst(matches(key))
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotFound
		}
		if rec.OwnerID != ownerID {
			return ErrUnauthorized
		}
	}
	removed, err := c.col.RemoveWhere(matches(key))
	if err != nil {
		return fmt.Errorf("remove file record: %w", err)
	}
	if removed == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateFile merges changes into the first record matching key.
// A missing record is a no-op.
func (c *Catalog) UpdateFile(key string, changes Update) error {
	return c.col.UpdateFirst(matches(key), func(rec domain.FileRecord) domain.FileRecord {
		if changes.Filename != nil {
			rec.Filename = *changes.Filename
		}
		if changes.ContentType != nil {
			rec.ContentType = *changes.ContentType
		}
		if changes.Size != nil {
			rec.Size = *changes.Size
		}
		if changes.Category != nil {
			rec.Category = *changes.Category
		}
		if changes.OwnerID != nil {
			rec.OwnerID = *changes.OwnerID
		}
		return rec
	})
}

// AllFiles returns every record, restricted to one owner when ownerID is
// non-empty.
func (c *Catalog) AllFiles(ownerID string) ([]domain.FileRecord, error) {
	if ownerID == "" {
		return c.col.All()
	}
	return c.col.Filter(func(rec domain.FileRecord) bool {
		return rec.OwnerID == ownerID
	})
}

func matches(key string) func(domain.FileRecord) bool {
	return func(rec domain.FileRecord) bool {
		return rec.Pathname == key || rec.URL == key
	}
}
