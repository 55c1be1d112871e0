// Package memory keeps the action journal in process memory.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/scarlet-home/scarletdash/internal/storage"
)

// Store implements storage.Store without persistence.
type Store struct {
	actions *actionStore
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{actions: &actionStore{}}
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}

// Actions returns the ActionStore implementation.
func (s *Store) Actions() storage.ActionStore {
	return s.actions
}

type actionStore struct {
	mu      sync.RWMutex
	entries []storage.ActionEntry
}

func (s *actionStore) Add(ctx context.Context, entry storage.ActionEntry) (storage.ActionEntry, error) {
	if err := ctx.Err(); err != nil {
		return storage.ActionEntry{}, err
	}
	entry = entry.Normalize()

	s.mu.Lock()
	defer s.mu.Unlock()

	// Keep entries ordered oldest first
	i := sort.Search(len(s.entries), func(i int) bool {
		return s.entries[i].Timestamp.After(entry.Timestamp)
	})
	s.entries = append(s.entries, storage.ActionEntry{})
	copy(s.entries[i+1:], s.entries[i:])
	s.entries[i] = entry
	return entry, nil
}

func (s *actionStore) Get(ctx context.Context, id string) (*storage.ActionEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.entries {
		if e.ID == id {
			out := e
			return &out, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *actionStore) Query(ctx context.Context, filter storage.ActionFilter) ([]storage.ActionEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]storage.ActionEntry, 0, len(s.entries))
	for i := len(s.entries) - 1; i >= 0; i-- {
		if filter.Matches(s.entries[i]) {
			out = append(out, s.entries[i])
		}
	}
	return filter.Page(out), nil
}

func (s *actionStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n := sort.Search(len(s.entries), func(i int) bool {
		return !s.entries[i].Timestamp.Before(cutoff)
	})
	s.entries = append([]storage.ActionEntry(nil), s.entries[n:]...)
	return n, nil
}
