package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/scarlet-home/scarletdash/internal/irrigation"
)

// ToggleAddForm shows or hides the create-program form and returns the new
// visibility. Typed values survive hiding.
func (l *ProgramList) ToggleAddForm() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.add.visible = !l.add.visible
	return l.add.visible
}

// SetAddForm stores the values currently typed into the create form.
func (l *ProgramList) SetAddForm(form irrigation.NewProgramForm) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.add.form = cloneNewProgramForm(form)
}

// AddFormSession appends an empty session group to the create form.
func (l *ProgramList) AddFormSession() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.add.form.Sessions = append(l.add.form.Sessions, irrigation.InitialSessionForm{})
	return len(l.add.form.Sessions)
}

// RemoveFormSession drops session group i from the create form.
func (l *ProgramList) RemoveFormSession(i int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if i < 0 || i >= len(l.add.form.Sessions) {
		return ErrNotFound
	}
	s := l.add.form.Sessions
	l.add.form.Sessions = append(s[:i:i], s[i+1:]...)
	return nil
}

// SubmitAddForm creates a program from form with its embedded sessions.
// Only one submit per list runs at a time. On success the form is cleared
// and the list reloaded; on failure the typed values stay.
func (l *ProgramList) SubmitAddForm(ctx context.Context, form irrigation.NewProgramForm) (err error) {
	release, err := l.guard.Acquire("program.create", l.id)
	if err != nil {
		return err
	}
	defer release()

	start := time.Now()
	defer func() { finish(ctx, l.journal, "program.create", form.Name, start, err) }()

	l.mu.Lock()
	l.add.form = cloneNewProgramForm(form)
	draft, err := form.Draft()
	if err != nil {
		l.add.err = err.Error()
		l.mu.Unlock()
		return err
	}
	l.add.err = ""
	l.mu.Unlock()

	created, err := l.backend.CreateProgram(ctx, draft)
	if err != nil {
		l.mu.Lock()
		l.add.err = StatusAddFailed
		l.mu.Unlock()
		l.logger.Error().Err(err).Str("name", draft.Name).Msg("Failed to add program")
		return fmt.Errorf("failed to add program: %w", err)
	}

	l.mu.Lock()
	l.add.form = irrigation.NewProgramForm{}
	l.mu.Unlock()

	l.logger.Info().Str("program_id", created.ID.String()).Str("name", draft.Name).Msg("Program created")
	l.reload(ctx)
	return nil
}

func cloneNewProgramForm(f irrigation.NewProgramForm) irrigation.NewProgramForm {
	out := f
	if f.Sessions != nil {
		out.Sessions = make([]irrigation.InitialSessionForm, len(f.Sessions))
		copy(out.Sessions, f.Sessions)
	}
	return out
}
