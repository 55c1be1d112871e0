package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a record is missing from storage.
var ErrNotFound = errors.New("storage: record not found")

// Store represents the root storage interface.
type Store interface {
	Close() error
	Actions() ActionStore
}

// ActionStore manages the journal of dashboard-issued commands.
type ActionStore interface {
	Add(ctx context.Context, entry ActionEntry) (ActionEntry, error)
	Get(ctx context.Context, id string) (*ActionEntry, error)
	Query(ctx context.Context, filter ActionFilter) ([]ActionEntry, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int, error)
}

// ActionFilter defines criteria for querying journal entries.
type ActionFilter struct {
	Source    Source
	Kind      string
	Outcome   Outcome
	Target    string
	StartTime *time.Time
	EndTime   *time.Time
	Limit     int
	Offset    int
}

// Matches reports whether an entry satisfies every set criterion.
func (f ActionFilter) Matches(e ActionEntry) bool {
	if f.Source != "" && e.Source != f.Source {
		return false
	}
	if f.Kind != "" && e.Kind != f.Kind {
		return false
	}
	if f.Outcome != "" && e.Outcome != f.Outcome {
		return false
	}
	if f.Target != "" && e.Target != f.Target {
		return false
	}
	if f.StartTime != nil && e.Timestamp.Before(*f.StartTime) {
		return false
	}
	if f.EndTime != nil && e.Timestamp.After(*f.EndTime) {
		return false
	}
	return true
}

// Page applies Offset and Limit to an already filtered, ordered slice.
func (f ActionFilter) Page(entries []ActionEntry) []ActionEntry {
	if f.Offset > 0 {
		if f.Offset >= len(entries) {
			return []ActionEntry{}
		}
		entries = entries[f.Offset:]
	}
	if f.Limit > 0 && len(entries) > f.Limit {
		entries = entries[:f.Limit]
	}
	return entries
}
