// Package memory provides an in-process key-value backend for tests and
// ephemeral sessions.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"tycooncore/pkg/domain"
)

var _ domain.KVStore = (*Store)(nil)

// Store keeps copies of every value in a map guarded by a RWMutex.
type Store struct {
	mu    sync.RWMutex
	data  map[string][]byte
	quota int
}

// NewStore returns an empty store. quota limits value size in bytes; zero
// disables the limit.
func NewStore(quota int) *Store {
	return &Store{data: make(map[string][]byte), quota: quota}
}

func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (s *Store) Put(_ context.Context, key string, value []byte) error {
	if err := domain.CheckQuota(key, len(value), s.quota); err != nil {
		return err
	}
	s.mu.Lock()
	s.data[key] = append([]byte(nil), value...)
	s.mu.Unlock()
	return nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.data, key)
	s.mu.Unlock()
	return nil
}

func (s *Store) Keys(_ context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.data))
	for k := range s.data {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) Close() error { return nil }
