// Package memory is an in-process ObjectStore for tests and dry runs.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/techstore/techstore-api/internal/storage"
)

type Store struct {
	mu      sync.RWMutex
	objects map[string]object
}

type object struct {
	body     []byte
	modified time.Time
}

func New() *Store {
	return &Store{objects: map[string]object{}}
}

func (s *Store) Put(_ context.Context, key string, body io.Reader, _ int64, _ storage.PutOptions) (storage.ObjectInfo, error) {
	key = strings.TrimPrefix(key, "/")
	if key == "" {
		return storage.ObjectInfo{}, fmt.Errorf("object key is required")
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return storage.ObjectInfo{}, fmt.Errorf("read object body: %w", err)
	}
	now := time.Now().UTC()

	s.mu.Lock()
	s.objects[key] = object{body: data, modified: now}
	s.mu.Unlock()
	return storage.ObjectInfo{Key: key, Size: int64(len(data)), LastModified: now}, nil
}

func (s *Store) Get(_ context.Context, key string) (io.ReadCloser, error) {
	s.mu.RLock()
	obj, ok := s.objects[strings.TrimPrefix(key, "/")]
	s.mu.RUnlock()
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(obj.body)), nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.objects, strings.TrimPrefix(key, "/"))
	s.mu.Unlock()
	return nil
}

func (s *Store) List(_ context.Context, prefix string) ([]storage.ObjectInfo, error) {
	prefix = strings.TrimPrefix(prefix, "/")
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]storage.ObjectInfo, 0)
	for key, obj := range s.objects {
		if strings.HasPrefix(key, prefix) {
			out = append(out, storage.ObjectInfo{Key: key, Size: int64(len(obj.body)), LastModified: obj.modified})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// Keys returns every stored key in order.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.objects))
	for key := range s.objects {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
