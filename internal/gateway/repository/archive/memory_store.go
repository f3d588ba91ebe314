package archive

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryStore keeps snapshots in process. URLs use the memory:// scheme and
// are only meaningful for tests and local runs.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

func (s *MemoryStore) Put(_ context.Context, analysisID, name string, content []byte) error {
	if err := validate(analysisID, name); err != nil {
		return err
	}
	s.mu.Lock()
	s.blobs[objectKey(analysisID, name)] = append([]byte(nil), content...)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Get(_ context.Context, analysisID, name string) ([]byte, error) {
	if err := validate(analysisID, name); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.blobs[objectKey(analysisID, name)]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), b...), nil
}

func (s *MemoryStore) List(_ context.Context, analysisID string) ([]string, error) {
	prefix := strings.TrimSpace(analysisID) + "/"
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, 8)
	for k := range s.blobs {
		if strings.HasPrefix(k, prefix) {
			names = append(names, strings.TrimPrefix(k, prefix))
		}
	}
	sort.Strings(names)
	return names, nil
}

func (s *MemoryStore) GetURL(_ context.Context, analysisID, name string) (string, error) {
	if err := validate(analysisID, name); err != nil {
		return "", err
	}
	s.mu.RLock()
	_, ok := s.blobs[objectKey(analysisID, name)]
	s.mu.RUnlock()
	if !ok {
		return "", ErrNotFound
	}
	return "memory://" + objectKey(analysisID, name), nil
}
