package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore keeps blobs in-process. It exists so the core can be exercised
// without a running object store.
type MemoryStore struct {
	mu      sync.Mutex
	objects map[string]memoryObject
	baseURL string

	// Optional failure injection.
	PutErr    error
	GetErr    error
	DeleteErr error
	ListErr   error
}

type memoryObject struct {
	meta Object
	data []byte
}

// NewMemoryStore initializes an empty in-memory store serving URLs under
// baseURL.
func NewMemoryStore(baseURL string) *MemoryStore {
	if baseURL == "" {
		baseURL = "https://blobs.test"
	}
	return &MemoryStore{
		objects: make(map[string]memoryObject),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

func (m *MemoryStore) Put(_ context.Context, pathname string, r io.Reader, size int64, contentType string) (Object, error) {
	if m.PutErr != nil {
		return Object{}, m.PutErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return Object{}, err
	}
	if size >= 0 && int64(len(data)) != size {
		return Object{}, fmt.Errorf("size mismatch: declared %d, read %d", size, len(data))
	}
	obj := Object{
		URL:         m.baseURL + "/" + pathname,
		Pathname:    pathname,
		ContentType: contentType,
		Size:        int64(len(data)),
		UploadedAt:  time.Now().UTC(),
	}
	m.mu.Lock()
	m.objects[pathname] = memoryObject{meta: obj, data: data}
	m.mu.Unlock()
	return obj, nil
}

func (m *MemoryStore) Get(_ context.Context, urlOrPathname string) (io.ReadCloser, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	m.mu.Lock()
	obj, ok := m.objects[m.key(urlOrPathname)]
	m.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("object not found: %s", urlOrPathname)
	}
	return io.NopCloser(bytes.NewReader(obj.data)), nil
}

func (m *MemoryStore) Delete(_ context.Context, urlOrPathname string) error {
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	m.mu.Lock()
	delete(m.objects, m.key(urlOrPathname))
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) List(_ context.Context) ([]Object, error) {
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	m.mu.Lock()
	out := make([]Object, 0, len(m.objects))
	for _, obj := range m.objects {
		out = append(out, obj.meta)
	}
	m.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Pathname < out[j].Pathname })
	return out, nil
}

// Has reports whether a blob exists at pathname.
func (m *MemoryStore) Has(pathname string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[pathname]
	return ok
}

func (m *MemoryStore) key(urlOrPathname string) string {
	return strings.TrimPrefix(urlOrPathname, m.baseURL+"/")
}
