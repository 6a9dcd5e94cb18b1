// Package memory provides an in-memory Store, used when the node runs
// without a data directory and throughout the test suites.
package memory

import (
	"bytes"
	"context"
	"sort"
	"sync"

	"github.com/gridexchange/gridex/x/exchange/types"
)

// Store implements types.Store over a map. Safe for concurrent use.
type Store struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func New() *Store {
	return &Store{data: make(map[string][]byte)}
}

func (s *Store) Get(ctx context.Context, key []byte) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	val, ok := s.data[string(key)]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), val...), true, nil
}

func (s *Store) Set(ctx context.Context, key, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[string(key)] = append([]byte(nil), value...)
	return nil
}

func (s *Store) Delete(ctx context.Context, key []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, string(key))
	return nil
}

func (s *Store) Batch(ctx context.Context, ops []types.BatchOp) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, op := range ops {
		switch op.Type {
		case types.BatchSet:
			s.data[string(op.Key)] = append([]byte(nil), op.Value...)
		case types.BatchDelete:
			delete(s.data, string(op.Key))
		}
	}
	return nil
}

func (s *Store) Iterate(ctx context.Context, prefix []byte, fn func(key, value []byte) (bool, error)) error {
	s.mu.RLock()
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		if bytes.HasPrefix([]byte(k), prefix) {
			keys = append(keys, k)
		}
	}
	s.mu.RUnlock()
	sort.Strings(keys)

	for _, k := range keys {
		s.mu.RLock()
		val, ok := s.data[k]
		if ok {
			val = append([]byte(nil), val...)
		}
		s.mu.RUnlock()
		if !ok {
			continue
		}
		cont, err := fn([]byte(k), val)
		if err != nil {
			return err
		}
		if !cont {
			break
		}
	}
	return nil
}

// Len reports the number of stored keys. Test helper.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
