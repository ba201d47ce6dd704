package storage

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// Object is a stored payload held by MemoryStorage.
type Object struct {
	Data        []byte
	ContentType string
}

// MemoryStorage keeps objects in process memory. It is selected when no
// storage credentials are configured and backs the tests.
type MemoryStorage struct {
	endpoint string

	mu      sync.RWMutex
	objects map[string]Object
}

// NewMemoryStorage returns an empty store. endpoint only feeds PublicURL.
func NewMemoryStorage(endpoint string) *MemoryStorage {
	return &MemoryStorage{endpoint: endpoint, objects: make(map[string]Object)}
}

func (s *MemoryStorage) Put(ctx context.Context, bucket, key string, r io.Reader, size int64, contentType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read object %q: %w", key, err)
	}
	if size >= 0 && int64(len(data)) != size {
		return fmt.Errorf("object %q: read %d bytes, expected %d", key, len(data), size)
	}

	s.mu.Lock()
	s.objects[bucket+"/"+key] = Object{Data: data, ContentType: contentType}
	s.mu.Unlock()
	return nil
}

func (s *MemoryStorage) Delete(ctx context.Context, bucket, key string) error {
	s.mu.Lock()
	delete(s.objects, bucket+"/"+key)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStorage) PublicURL(bucket, key string) string {
	return PublicURL(s.endpoint, bucket, key)
}

// Object returns the stored object, if any.
func (s *MemoryStorage) Object(bucket, key string) (Object, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.objects[bucket+"/"+key]
	return o, ok
}

// Len reports how many objects are stored.
func (s *MemoryStorage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
