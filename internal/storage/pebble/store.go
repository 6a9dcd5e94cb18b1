// Package pebble provides a Store backed by a cockroachdb/pebble database.
package pebble

import (
	"context"
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"

	"github.com/gridexchange/gridex/x/exchange/types"
)

var ErrClosed = errors.New("pebble store is closed")

// Store implements types.Store on top of a pebble.DB.
type Store struct {
	db *pebble.DB
}

// Open opens (creating if needed) a pebble database at dir.
func Open(dir string) (*Store, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open pebble at %s: %w", dir, err)
	}
	return &Store{db: db}, nil
}

// New wraps an already-open database. The caller retains ownership of db
// unless Close is used.
func New(db *pebble.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Close() error {
	if s.db == nil {
		return ErrClosed
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *Store) Get(ctx context.Context, key []byte) ([]byte, bool, error) {
	if s.db == nil {
		return nil, false, ErrClosed
	}
	val, closer, err := s.db.Get(key)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer closer.Close()

	// Copy the value out; pebble reuses the buffer after the closer.
	valCopy := make([]byte, len(val))
	copy(valCopy, val)
	return valCopy, true, nil
}

func (s *Store) Set(ctx context.Context, key, value []byte) error {
	if s.db == nil {
		return ErrClosed
	}
	return s.db.Set(key, value, pebble.Sync)
}

func (s *Store) Delete(ctx context.Context, key []byte) error {
	if s.db == nil {
		return ErrClosed
	}
	return s.db.Delete(key, pebble.Sync)
}

func (s *Store) Batch(ctx context.Context, ops []types.BatchOp) error {
	if s.db == nil {
		return ErrClosed
	}
	batch := s.db.NewBatch()
	defer batch.Close()

	for _, op := range ops {
		switch op.Type {
		case types.BatchSet:
			if err := batch.Set(op.Key, op.Value, nil); err != nil {
				return err
			}
		case types.BatchDelete:
			if err := batch.Delete(op.Key, nil); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unknown batch operation type: %d", op.Type)
		}
	}
	return batch.Commit(pebble.Sync)
}

func (s *Store) Iterate(ctx context.Context, prefix []byte, fn func(key, value []byte) (bool, error)) error {
	if s.db == nil {
		return ErrClosed
	}
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: prefixUpperBound(prefix),
	})
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		key := append([]byte(nil), iter.Key()...)
		val := append([]byte(nil), iter.Value()...)
		cont, err := fn(key, val)
		if err != nil {
			return err
		}
		if !cont {
			break
		}
	}
	return iter.Error()
}

// prefixUpperBound returns the smallest key greater than every key with
// the given prefix, or nil when no such bound exists (all-0xff prefix).
func prefixUpperBound(prefix []byte) []byte {
	end := append([]byte(nil), prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xff {
			end[i]++
			return end[:i+1]
		}
	}
	return nil
}
