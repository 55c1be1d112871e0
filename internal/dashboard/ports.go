package dashboard

import (
	"context"
	"time"

	"github.com/scarlet-home/scarletdash/internal/irrigation"
	"github.com/scarlet-home/scarletdash/internal/metrics"
	"github.com/scarlet-home/scarletdash/internal/remote"
	"github.com/scarlet-home/scarletdash/internal/storage"
)

// ProgramBackend is the part of the backend the program list talks to.
type ProgramBackend interface {
	ListPrograms(ctx context.Context) ([]irrigation.Program, error)
	GetProgram(ctx context.Context, id irrigation.ID) (irrigation.Program, error)
	CreateProgram(ctx context.Context, draft irrigation.ProgramDraft) (irrigation.Program, error)
	UpdateProgram(ctx context.Context, id irrigation.ID, patch irrigation.ProgramPatch) (irrigation.Program, error)
	DeleteProgram(ctx context.Context, id irrigation.ID) error
	CreateSession(ctx context.Context, programID irrigation.ID, draft irrigation.SessionDraft) (irrigation.Session, error)
	UpdateSession(ctx context.Context, sessionID irrigation.ID, patch irrigation.SessionPatch) (irrigation.Session, error)
	DeleteSession(ctx context.Context, programID, sessionID irrigation.ID) error
}

// PanelBackend is the part of the backend the control panel talks to.
type PanelBackend interface {
	BlindsAutomation(ctx context.Context) (bool, error)
	SetBlindsAutomation(ctx context.Context, enabled bool) error
	IrrigationAutomation(ctx context.Context) (bool, error)
	SetIrrigationAutomation(ctx context.Context, enabled bool) error
	SendBlinds(ctx context.Context, cmd remote.BlindCommand) error
	RunIrrigation(ctx context.Context, req remote.RunRequest) error
	Score(ctx context.Context) (float64, error)
}

var (
	_ ProgramBackend = (*remote.Client)(nil)
	_ PanelBackend   = (*remote.Client)(nil)
)

// Journal receives one entry per mutating action.
type Journal interface {
	Record(ctx context.Context, entry storage.ActionEntry)
}

// finish journals an action and counts it.
func finish(ctx context.Context, j Journal, kind, target string, start time.Time, err error) {
	outcome := outcomeOf(err)
	metrics.ActionsTotal.WithLabelValues(kind, string(outcome)).Inc()
	if j == nil {
		return
	}
	entry := storage.ActionEntry{
		Kind:       kind,
		Target:     target,
		Outcome:    outcome,
		DurationMs: time.Since(start).Milliseconds(),
	}
	if err != nil {
		entry.Error = err.Error()
	}
	j.Record(ctx, entry)
}
