package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
)

// Writer uploads an object to storage.
type Writer interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}

// Object is a stored blob held by MemoryWriter.
type Object struct {
	Data        []byte
	ContentType string
}

// MemoryWriter keeps uploads in memory. Used when no bucket is configured
// and in tests.
type MemoryWriter struct {
	mu      sync.RWMutex
	objects map[string]Object
}

func NewMemoryWriter() *MemoryWriter {
	return &MemoryWriter{objects: make(map[string]Object)}
}

func (w *MemoryWriter) Put(_ context.Context, path string, data io.Reader, contentType string) error {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, data); err != nil {
		return fmt.Errorf("blob: read %s: %w", path, err)
	}
	w.mu.Lock()
	w.objects[path] = Object{Data: buf.Bytes(), ContentType: contentType}
	w.mu.Unlock()
	return nil
}

// Get returns the object at path.
func (w *MemoryWriter) Get(path string) (Object, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	o, ok := w.objects[path]
	return o, ok
}

// Paths lists stored paths in order.
func (w *MemoryWriter) Paths() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]string, 0, len(w.objects))
	for p := range w.objects {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
