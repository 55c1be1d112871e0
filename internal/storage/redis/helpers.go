package redis

import (
	"fmt"
	"strconv"
	"time"

	"github.com/scarlet-home/scarletdash/internal/storage"
)

// parseActionEntry converts a Redis hash to ActionEntry
func parseActionEntry(data map[string]string) (*storage.ActionEntry, error) {
	if len(data) == 0 {
		return nil, storage.ErrNotFound
	}

	timestamp, err := time.Parse(time.RFC3339Nano, data["timestamp"])
	if err != nil {
		return nil, fmt.Errorf("failed to parse timestamp: %w", err)
	}

	durationMs, err := strconv.ParseInt(data["duration_ms"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse duration_ms: %w", err)
	}

	return &storage.ActionEntry{
		ID:         data["id"],
		Timestamp:  timestamp,
		Source:     storage.Source(data["source"]),
		Kind:       data["kind"],
		Target:     data["target"],
		Outcome:    storage.Outcome(data["outcome"]),
		Error:      data["error"],
		DurationMs: durationMs,
	}, nil
}

// formatScore orders entries in the time index.
func formatScore(t time.Time) string {
	return strconv.FormatInt(t.UnixMicro(), 10)
}
