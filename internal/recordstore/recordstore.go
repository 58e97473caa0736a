// Package recordstore persists a collection of records as a single JSON
// array file. Every mutation reads the whole collection, rewrites it in
// memory, and writes the whole file back. By default a per-collection mutex
// serializes read-modify-write cycles; an Unlocked collection keeps the raw
// last-write-wins behavior of the original flat-file design, where two
// concurrent mutations can lose one side's changes.
package recordstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// Collection is a durable ordered sequence of records of one type.
// The backing file is exclusively owned by the collection.
type Collection[T any] struct {
	path   string
	mu     sync.Mutex
	locked bool
}

// Open returns a collection backed by the JSON file at path. The file and
// its directory are created lazily on the first write.
func Open[T any](path string) *Collection[T] {
	return &Collection[T]{path: path, locked: true}
}

// Unlocked returns a collection without write serialization. Concurrent
// mutations on the same collection may then overwrite each other.
func Unlocked[T any](path string) *Collection[T] {
	return &Collection[T]{path: path}
}

// Path returns the backing file location.
func (c *Collection[T]) Path() string {
	return c.path
}

// All returns every record. A missing backing file means an empty
// collection, never an error. An unreadable file also degrades to empty so
// callers keep working, but the condition is logged because it can mask
// data loss.
func (c *Collection[T]) All() ([]T, error) {
	if c.locked {
		c.mu.Lock()
		defer c.mu.Unlock()
	}
	return c.read()
}

// Filter returns the records matching pred, in stored order.
func (c *Collection[T]) Filter(pred func(T) bool) ([]T, error) {
	records, err := c.All()
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(records))
	for _, rec := range records {
		if pred(rec) {
			out = append(out, rec)
		}
	}
	return out, nil
}

// FindFirst returns the first record matching pred.
func (c *Collection[T]) FindFirst(pred func(T) bool) (T, bool, error) {
	var zero T
	records, err := c.All()
	if err != nil {
		return zero, false, err
	}
	for _, rec := range records {
		if pred(rec) {
			return rec, true, nil
		}
	}
	return zero, false, nil
}

// Append adds a record to the end of the collection. Uniqueness is the
// caller's policy; the store never checks it.
func (c *Collection[T]) Append(rec T) error {
	if c.locked {
		c.mu.Lock()
		defer c.mu.Unlock()
	}
	records, err := c.read()
	if err != nil {
		return err
	}
	return c.write(append(records, rec))
}

// RemoveWhere deletes every record matching pred in a single write and
// reports how many were removed.
func (c *Collection[T]) RemoveWhere(pred func(T) bool) (int, error) {
	if c.locked {
		c.mu.Lock()
		defer c.mu.Unlock()
	}
	records, err := c.read()
	if err != nil {
		return 0, err
	}
	kept := make([]T, 0, len(records))
	removed := 0
	for _, rec := range records {
		if pred(rec) {
			removed++
			continue
		}
		kept = append(kept, rec)
	}
	if removed == 0 {
		return 0, nil
	}
	if err := c.write(kept); err != nil {
		return 0, err
	}
	return removed, nil
}

// UpdateFirst applies apply to the first record matching pred and persists
// the result. A missing match is a no-op, not an error.
func (c *Collection[T]) UpdateFirst(pred func(T) bool, apply func(T) T) error {
	if c.locked {
		c.mu.Lock()
		defer c.mu.Unlock()
	}
	records, err := c.read()
	if err != nil {
		return err
	}
	for i, rec := range records {
		if pred(rec) {
			records[i] = apply(rec)
			return c.write(records)
		}
	}
	return nil
}

func (c *Collection[T]) read() ([]T, error) {
	data, err := os.ReadFile(c.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read collection: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	var records []T
	if err := json.Unmarshal(data, &records); err != nil {
		slog.Warn("collection unreadable, treating as empty", "path", c.path, "err", err)
		return nil, nil
	}
	return records, nil
}

func (c *Collection[T]) write(records []T) error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	if records == nil {
		records = []T{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode collection: %w", err)
	}
	if err := os.WriteFile(c.path, data, 0o644); err != nil {
		return fmt.Errorf("write collection: %w", err)
	}
	return nil
}
