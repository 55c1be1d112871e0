// Package journal records dashboard-issued commands and prunes old entries.
package journal

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/scarlet-home/scarletdash/internal/storage"
)

// writeTimeout bounds how long a journal write may hold up an action.
const writeTimeout = 2 * time.Second

// Recorder writes journal entries for one front-end. Write failures are
// logged and never surface to the caller.
type Recorder struct {
	actions storage.ActionStore
	source  storage.Source
	logger  zerolog.Logger
}

// NewRecorder creates a recorder stamping entries with source.
func NewRecorder(actions storage.ActionStore, source storage.Source, logger zerolog.Logger) *Recorder {
	return &Recorder{
		actions: actions,
		source:  source,
		logger:  logger.With().Str("component", "journal").Str("source", string(source)).Logger(),
	}
}

// Record stores one entry. A nil Recorder drops the entry.
func (r *Recorder) Record(ctx context.Context, entry storage.ActionEntry) {
	if r == nil || r.actions == nil {
		return
	}
	if entry.Source == "" {
		entry.Source = r.source
	}

	// Detach from the request so a cancelled page load still gets journaled
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
	defer cancel()

	stored, err := r.actions.Add(ctx, entry)
	if err != nil {
		r.logger.Error().Err(err).Str("kind", entry.Kind).Msg("Failed to write journal entry")
		return
	}
	r.logger.Debug().
		Str("id", stored.ID).
		Str("kind", stored.Kind).
		Str("target", stored.Target).
		Str("outcome", string(stored.Outcome)).
		Msg("Journaled action")
}

// Recent returns the newest entries matching filter.
func (r *Recorder) Recent(ctx context.Context, filter storage.ActionFilter) ([]storage.ActionEntry, error) {
	if r == nil || r.actions == nil {
		return []storage.ActionEntry{}, nil
	}
	return r.actions.Query(ctx, filter)
}
