package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/scarlet-home/scarletdash/internal/storage"
)

var (
	addAction           = redis.NewScript(addActionScript)
	deleteActionsBefore = redis.NewScript(deleteActionsBeforeScript)
)

type actionStore struct {
	client *redis.Client
	prefix string
}

func (s *actionStore) entryKey(id string) string {
	return fmt.Sprintf("%saction:%s", s.prefix, id)
}

func (s *actionStore) indexKey() string {
	return s.prefix + "actions"
}

// Add stores a journal entry, assigning its id and timestamp if unset
func (s *actionStore) Add(ctx context.Context, entry storage.ActionEntry) (storage.ActionEntry, error) {
	entry = entry.Normalize()

	keys := []string{s.entryKey(entry.ID), s.indexKey()}
	args := []interface{}{
		entry.ID,
		entry.Timestamp.Format(time.RFC3339Nano),
		formatScore(entry.Timestamp),
		string(entry.Source),
		entry.Kind,
		entry.Target,
		string(entry.Outcome),
		entry.Error,
		strconv.FormatInt(entry.DurationMs, 10),
	}

	if err := addAction.Run(ctx, s.client, keys, args...).Err(); err != nil {
		return storage.ActionEntry{}, fmt.Errorf("failed to add action entry: %w", err)
	}
	return entry, nil
}

// Get retrieves one entry by id
func (s *actionStore) Get(ctx context.Context, id string) (*storage.ActionEntry, error) {
	data, err := s.client.HGetAll(ctx, s.entryKey(id)).Result()
	if err != nil {
		return nil, err
	}
	return parseActionEntry(data)
}

// Query returns entries newest first
func (s *actionStore) Query(ctx context.Context, filter storage.ActionFilter) ([]storage.ActionEntry, error) {
	rng := &redis.ZRangeBy{Min: "-inf", Max: "+inf"}
	if filter.StartTime != nil {
		rng.Min = formatScore(*filter.StartTime)
	}
	if filter.EndTime != nil {
		rng.Max = formatScore(*filter.EndTime)
	}

	ids, err := s.client.ZRevRangeByScore(ctx, s.indexKey(), rng).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []storage.ActionEntry{}, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, s.entryKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, err
	}

	entries := make([]storage.ActionEntry, 0, len(ids))
	for _, cmd := range cmds {
		data, err := cmd.Result()
		if err != nil || len(data) == 0 {
			continue
		}
		entry, err := parseActionEntry(data)
		if err != nil {
			continue
		}
		if filter.Matches(*entry) {
			entries = append(entries, *entry)
		}
	}

	return filter.Page(entries), nil
}

// DeleteBefore removes entries older than cutoff and returns how many went
func (s *actionStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int, error) {
	n, err := deleteActionsBefore.Run(ctx, s.client, []string{s.indexKey()}, s.prefix, formatScore(cutoff)).Int()
	if err != nil {
		return 0, fmt.Errorf("failed to delete action entries: %w", err)
	}
	return n, nil
}
