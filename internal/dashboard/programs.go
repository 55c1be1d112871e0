// Package dashboard holds the view models behind every front-end: the
// program list with its expandable session editors, and the control panel.
package dashboard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/scarlet-home/scarletdash/internal/irrigation"
	"github.com/scarlet-home/scarletdash/internal/metrics"
)

// RowState is the display state of one program row. The states are
// exclusive: an editing row never shows its sessions.
type RowState int

const (
	RowCollapsed RowState = iota
	RowExpanded
	RowEditing
)

func (s RowState) String() string {
	switch s {
	case RowExpanded:
		return "expanded"
	case RowEditing:
		return "editing"
	default:
		return "collapsed"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s RowState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

type programRow struct {
	program  irrigation.Program // last fetched copy
	state    RowState
	form     irrigation.ProgramForm
	sessions *SessionEditor
	err      string
}

type addForm struct {
	visible bool
	form    irrigation.NewProgramForm
	err     string
}

// Options configures a ProgramList.
type Options struct {
	// Guard is shared between lists that act on the same backend. A private
	// guard is created when nil.
	Guard   *Guard
	Journal Journal
	Logger  zerolog.Logger
}

// ProgramList is the irrigation program table: one row per program, each
// collapsed, expanded into its sessions, or being edited. Every mutation is
// followed by a reload from the backend; rows are never patched locally.
type ProgramList struct {
	id      string
	backend ProgramBackend
	guard   *Guard
	journal Journal
	logger  zerolog.Logger

	mu         sync.Mutex
	rows       []*programRow
	add        addForm
	status     string
	loaded     bool
	generation uint64 // last reload started
}

// NewProgramList creates an empty list. Call Load to populate it.
func NewProgramList(backend ProgramBackend, opts Options) *ProgramList {
	guard := opts.Guard
	if guard == nil {
		guard = NewGuard()
	}
	return &ProgramList{
		id:      uuid.NewString(),
		backend: backend,
		guard:   guard,
		journal: opts.Journal,
		logger:  opts.Logger.With().Str("component", "programs").Logger(),
	}
}

// Load fetches every program and replaces all rows. Programs named in
// expand are reopened with their sessions. When a newer Load started while
// this one was waiting, its response is dropped.
func (l *ProgramList) Load(ctx context.Context, expand ...irrigation.ID) error {
	l.mu.Lock()
	l.generation++
	gen := l.generation
	l.mu.Unlock()

	programs, err := l.backend.ListPrograms(ctx)

	l.mu.Lock()
	defer l.mu.Unlock()

	if gen != l.generation {
		metrics.StaleReloadsDiscarded.Inc()
		l.logger.Debug().Uint64("generation", gen).Uint64("latest", l.generation).Msg("Discarding stale program list")
		return nil
	}

	l.loaded = true
	if err != nil {
		l.rows = nil
		l.status = StatusLoadFailed
		l.logger.Error().Err(err).Msg("Failed to load programs")
		return fmt.Errorf("failed to load programs: %w", err)
	}

	rows := make([]*programRow, 0, len(programs))
	for _, p := range programs {
		row := &programRow{program: p.Clone(), state: RowCollapsed}
		for _, id := range expand {
			if p.ID == id {
				row.state = RowExpanded
				row.sessions = newSessionEditor(p)
			}
		}
		rows = append(rows, row)
	}
	l.rows = rows
	l.status = ""
	l.logger.Debug().Int("programs", len(rows)).Msg("Loaded programs")
	return nil
}

func (l *ProgramList) row(id irrigation.ID) *programRow {
	for _, r := range l.rows {
		if r.program.ID == id {
			return r
		}
	}
	return nil
}

func (l *ProgramList) setStatus(s string) {
	l.mu.Lock()
	l.status = s
	l.mu.Unlock()
}

// Toggle collapses an expanded row without a request, or fetches the
// program and opens its sessions.
func (l *ProgramList) Toggle(ctx context.Context, id irrigation.ID) error {
	release, err := l.guard.Acquire("program.toggle", l.id+"/"+id.String())
	if err != nil {
		return err
	}
	defer release()

	l.mu.Lock()
	r := l.row(id)
	switch {
	case r == nil:
		l.mu.Unlock()
		return ErrNotFound
	case r.state == RowEditing:
		l.mu.Unlock()
		return ErrWrongState
	case r.state == RowExpanded:
		r.state = RowCollapsed
		r.sessions = nil
		l.mu.Unlock()
		return nil
	}
	l.mu.Unlock()

	program, err := l.backend.GetProgram(ctx, id)

	l.mu.Lock()
	defer l.mu.Unlock()
	if err != nil {
		l.status = StatusSessionsFailed
		l.logger.Error().Err(err).Str("program_id", id.String()).Msg("Failed to load sessions")
		return fmt.Errorf("failed to load program %s: %w", id, err)
	}

	// The list may have been reloaded while the request was out
	r = l.row(id)
	if r == nil {
		return ErrNotFound
	}
	if r.state != RowCollapsed {
		return nil
	}
	r.program = program.Clone()
	r.state = RowExpanded
	r.sessions = newSessionEditor(program)
	return nil
}

// Edit switches a row to editing and returns the form pre-filled from the
// last fetched program.
func (l *ProgramList) Edit(id irrigation.ID) (irrigation.ProgramForm, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	r := l.row(id)
	if r == nil {
		return irrigation.ProgramForm{}, ErrNotFound
	}
	if r.state != RowEditing {
		r.state = RowEditing
		r.sessions = nil
		r.form = irrigation.ProgramFormFrom(r.program)
		r.err = ""
	}
	return r.form, nil
}

// Save sends the edited values and reloads the list. Values that do not
// parse leave the row editing and send nothing.
func (l *ProgramList) Save(ctx context.Context, id irrigation.ID, form irrigation.ProgramForm) (err error) {
	release, err := l.guard.Acquire("program.save", id.String())
	if err != nil {
		return err
	}
	defer release()

	start := time.Now()
	defer func() { finish(ctx, l.journal, "program.update", id.String(), start, err) }()

	l.mu.Lock()
	r := l.row(id)
	if r == nil {
		l.mu.Unlock()
		return ErrNotFound
	}
	if r.state != RowEditing {
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

	if _, err := l.backend.UpdateProgram(ctx, id, patch); err != nil {
		l.mu.Lock()
		if r := l.row(id); r != nil {
			r.err = StatusUpdateFailed
		}
		l.status = StatusUpdateFailed
		l.mu.Unlock()
		l.logger.Error().Err(err).Str("program_id", id.String()).Msg("Failed to update program")
		return fmt.Errorf("failed to update program %s: %w", id, err)
	}

	l.logger.Info().Str("program_id", id.String()).Msg("Program updated")
	l.reload(ctx)
	return nil
}

// Cancel discards an edit and reloads the canonical list.
func (l *ProgramList) Cancel(ctx context.Context, id irrigation.ID) error {
	l.mu.Lock()
	r := l.row(id)
	if r == nil {
		l.mu.Unlock()
		return ErrNotFound
	}
	if r.state != RowEditing {
		l.mu.Unlock()
		return ErrWrongState
	}
	l.mu.Unlock()
	return l.Load(ctx)
}

// Delete removes a program once confirm approves. Without approval no
// request is sent.
func (l *ProgramList) Delete(ctx context.Context, id irrigation.ID, c Confirmer) (err error) {
	release, err := l.guard.Acquire("program.delete", id.String())
	if err != nil {
		return err
	}
	defer release()

	l.mu.Lock()
	found := l.row(id) != nil
	l.mu.Unlock()
	if !found {
		return ErrNotFound
	}

	start := time.Now()
	defer func() { finish(ctx, l.journal, "program.delete", id.String(), start, err) }()

	if err := confirm(ctx, c, PromptDeleteProgram); err != nil {
		return err
	}

	if err := l.backend.DeleteProgram(ctx, id); err != nil {
		l.setStatus(StatusDeleteFailed)
		l.logger.Error().Err(err).Str("program_id", id.String()).Msg("Failed to delete program")
		return fmt.Errorf("failed to delete program %s: %w", id, err)
	}

	l.logger.Info().Str("program_id", id.String()).Msg("Program deleted")
	l.reload(ctx)
	return nil
}

// reload refreshes the list after a change the backend already applied. A
// failed reload shows StatusLoadFailed but does not fail the change.
func (l *ProgramList) reload(ctx context.Context, expand ...irrigation.ID) {
	if err := l.Load(ctx, expand...); err != nil {
		l.logger.Warn().Err(err).Msg("List is stale after a successful change")
	}
}

// Snapshot copies the current state for rendering.
func (l *ProgramList) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	snap := Snapshot{
		Programs:   make([]ProgramView, 0, len(l.rows)),
		Status:     l.status,
		Loaded:     l.loaded,
		Generation: l.generation,
		AddForm: AddFormView{
			Visible:    l.add.visible,
			Form:       cloneNewProgramForm(l.add.form),
			Submitting: l.guard.Busy("program.create", l.id),
			Error:      l.add.err,
		},
	}
	for _, r := range l.rows {
		p := r.program
		pv := ProgramView{
			ID:         p.ID.String(),
			Name:       p.Name,
			IsActive:   p.IsActive,
			Active:     irrigation.FormatActive(p.IsActive),
			Frequency:  p.Frequency,
			LowerScore: irrigation.FormatNumber(p.LowerScore),
			UpperScore: irrigation.FormatNumber(p.UpperScore),
			Sessions:   len(p.Sessions),
			State:      r.state,
			Error:      r.err,
		}
		if r.state == RowEditing {
			form := r.form
			pv.Form = &form
		}
		if r.state == RowExpanded && r.sessions != nil {
			detail := r.sessions.view()
			pv.Detail = &detail
		}
		snap.Programs = append(snap.Programs, pv)
	}
	return snap
}
