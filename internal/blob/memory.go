package blob

import (
	"context"
	"net/url"
	"sort"
	"strings"
	"sync"
)

// MemoryStore keeps documents in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
	baseURL string
}

func NewMemoryStore(baseURL string) *MemoryStore {
	return &MemoryStore{objects: make(map[string][]byte), baseURL: strings.TrimRight(baseURL, "/")}
}

func (s *MemoryStore) Upload(ctx context.Context, bucket, key string, data []byte, contentType string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[bucket+"/"+key] = append([]byte(nil), data...)
	return key, nil
}

func (s *MemoryStore) PublicURL(ctx context.Context, bucket, path string) (string, error) {
	return s.baseURL + "/" + url.PathEscape(bucket) + "/" + url.PathEscape(path), nil
}

func (s *MemoryStore) Get(ctx context.Context, bucket, path string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.objects[bucket+"/"+path]
	if !ok {
		return nil, ErrNotFound
	}
	return data, nil
}

func (s *MemoryStore) Remove(ctx context.Context, bucket, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[bucket+"/"+path]; !ok {
		return ErrNotFound
	}
	delete(s.objects, bucket+"/"+path)
	return nil
}

func (s *MemoryStore) List(ctx context.Context, bucket string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var paths []string
	for k := range s.objects {
		if p, ok := strings.CutPrefix(k, bucket+"/"); ok {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)
	return paths, nil
}
