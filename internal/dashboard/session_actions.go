package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/scarlet-home/scarletdash/internal/irrigation"
)

// editor returns the session editor of an expanded program. Callers hold
// l.mu.
func (l *ProgramList) editor(programID irrigation.ID) (*SessionEditor, error) {
	r := l.row(programID)
	if r == nil {
		return nil, ErrNotFound
	}
	if r.state != RowExpanded || r.sessions == nil {
		return nil, ErrWrongState
	}
	return r.sessions, nil
}

// AddSessionDraft appends a blank unsaved session row with zeroed
// durations and returns its key.
func (l *ProgramList) AddSessionDraft(programID irrigation.ID) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, err := l.editor(programID)
	if err != nil {
		return "", err
	}
	return e.addDraft(), nil
}

// CancelSessionDraft removes an unsaved session row. Nothing is sent.
func (l *ProgramList) CancelSessionDraft(programID irrigation.ID, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, err := l.editor(programID)
	if err != nil {
		return err
	}
	if !e.removeDraft(key) {
		return ErrNotFound
	}
	return nil
}

// CreateSession posts an unsaved row and reloads with the program
// expanded. Blank durations are sent as 0; the start time is required.
func (l *ProgramList) CreateSession(ctx context.Context, programID irrigation.ID, key string, form irrigation.SessionForm) (err error) {
	release, err := l.guard.Acquire("session.create", l.id+"/"+programID.String()+"/"+key)
	if err != nil {
		return err
	}
	defer release()

	start := time.Now()
	defer func() { finish(ctx, l.journal, "session.create", programID.String(), start, err) }()

	l.mu.Lock()
	e, err := l.editor(programID)
	if err != nil {
		l.mu.Unlock()
		return err
	}
	d := e.draft(key)
	if d == nil {
		l.mu.Unlock()
		return ErrNotFound
	}
	d.form = form
	draft, err := form.Draft()
	if err != nil {
		d.err = err.Error()
		l.mu.Unlock()
		return err
	}
	d.err = ""
	l.mu.Unlock()

	if _, err := l.backend.CreateSession(ctx, programID, draft); err != nil {
		l.mu.Lock()
		if e, eerr := l.editor(programID); eerr == nil {
			if d := e.draft(key); d != nil {
				d.err = StatusSessionCreateFailed
			}
		}
		l.status = StatusSessionCreateFailed
		l.mu.Unlock()
		l.logger.Error().Err(err).Str("program_id", programID.String()).Msg("Failed to create session")
		return fmt.Errorf("failed to create session for program %s: %w", programID, err)
	}

	l.logger.Info().Str("program_id", programID.String()).Str("start_time", draft.StartTime).Msg("Session created")
	l.reload(ctx, programID)
	return nil
}

// EditSession switches a session row to editing and returns the form
// pre-filled from the last fetched session.
func (l *ProgramList) EditSession(programID, sessionID irrigation.ID) (irrigation.SessionForm, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, err := l.editor(programID)
	if err != nil {
		return irrigation.SessionForm{}, err
	}
	return e.edit(sessionID)
}

// SaveSession sends the edited session and reloads with the program
// expanded.
func (l *ProgramList) SaveSession(ctx context.Context, programID, sessionID irrigation.ID, form irrigation.SessionForm) (err error) {
	release, err := l.guard.Acquire("session.save", sessionID.String())
	if err != nil {
		return err
	}
	defer release()

	start := time.Now()
	defer func() { finish(ctx, l.journal, "session.update", sessionID.String(), start, err) }()

	l.mu.Lock()
	e, err := l.editor(programID)
	if err != nil {
		l.mu.Unlock()
		return err
	}
	r := e.row(sessionID)
	if r == nil {
		l.mu.Unlock()
		return ErrNotFound
	}
	if r.state != SessionEditing {
		l.mu.Unlock()
		return ErrWrongState
	}
	r.form = form
	patch, err := form.Patch()
	if err != nil {
		r.err = err.Error()
		l.mu.Unlock()
		return err
	}
	r.err = ""
	l.mu.Unlock()

	if _, err := l.backend.UpdateSession(ctx, sessionID, patch); err != nil {
		l.mu.Lock()
		if e, eerr := l.editor(programID); eerr == nil {
			if r := e.row(sessionID); r != nil {
				r.err = StatusSessionUpdateFailed
			}
		}
		l.status = StatusSessionUpdateFailed
		l.mu.Unlock()
		l.logger.Error().Err(err).Str("session_id", sessionID.String()).Msg("Failed to update session")
		return fmt.Errorf("failed to update session %s: %w", sessionID, err)
	}

	l.logger.Info().Str("session_id", sessionID.String()).Msg("Session updated")
	l.reload(ctx, programID)
	return nil
}

// CancelSession discards a session edit and reloads with the program
// expanded.
func (l *ProgramList) CancelSession(ctx context.Context, programID, sessionID irrigation.ID) error {
	l.mu.Lock()
	e, err := l.editor(programID)
	if err != nil {
		l.mu.Unlock()
		return err
	}
	r := e.row(sessionID)
	if r == nil {
		l.mu.Unlock()
		return ErrNotFound
	}
	if r.state != SessionEditing {
		l.mu.Unlock()
		return ErrWrongState
	}
	l.mu.Unlock()
	return l.Load(ctx, programID)
}

// DeleteSession removes a session once confirm approves and reloads with
// the program expanded. Without approval no request is sent.
func (l *ProgramList) DeleteSession(ctx context.Context, programID, sessionID irrigation.ID, c Confirmer) (err error) {
	release, err := l.guard.Acquire("session.delete", sessionID.String())
	if err != nil {
		return err
	}
	defer release()

	l.mu.Lock()
	e, err := l.editor(programID)
	if err == nil && e.row(sessionID) == nil {
		err = ErrNotFound
	}
	l.mu.Unlock()
	if err != nil {
		return err
	}

	start := time.Now()
	defer func() { finish(ctx, l.journal, "session.delete", sessionID.String(), start, err) }()

	if err := confirm(ctx, c, PromptDeleteSession); err != nil {
		return err
	}

	if err := l.backend.DeleteSession(ctx, programID, sessionID); err != nil {
		l.setStatus(StatusSessionDeleteFailed)
		l.logger.Error().Err(err).Str("session_id", sessionID.String()).Msg("Failed to delete session")
		return fmt.Errorf("failed to delete session %s: %w", sessionID, err)
	}

	l.logger.Info().Str("session_id", sessionID.String()).Msg("Session deleted")
	l.reload(ctx, programID)
	return nil
}
