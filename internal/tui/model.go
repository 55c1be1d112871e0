// Package tui is the terminal front-end: the program table with its
// session rows, plus the blinds, manual run and score panel.
package tui

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/scarlet-home/scarletdash/internal/dashboard"
	"github.com/scarlet-home/scarletdash/internal/irrigation"
)

// ─── messages ────────────────────────────────────────────────────────────────

type bootstrapMsg struct{ err error }

// actionMsg reports a finished backend action.
type actionMsg struct {
	action string
	err    error
	// origin is the dialog that submitted the action, nil otherwise.
	origin *form
	// background results never touch the open dialog.
	background bool
}

type scoreTickMsg time.Time

// ─── rows ────────────────────────────────────────────────────────────────────

type lineKind int

const (
	lineProgram lineKind = iota
	lineSession
	lineDraft
)

// line is one selectable row of the table.
type line struct {
	kind    lineKind
	program irrigation.ID
	session irrigation.ID
	draft   string
}

func lines(s dashboard.Snapshot) []line {
	var out []line
	for _, p := range s.Programs {
		pid := irrigation.ID(p.ID)
		out = append(out, line{kind: lineProgram, program: pid})
		if p.Detail == nil {
			continue
		}
		for _, row := range p.Detail.Rows {
			out = append(out, line{kind: lineSession, program: pid, session: irrigation.ID(row.ID)})
		}
		for _, d := range p.Detail.Drafts {
			out = append(out, line{kind: lineDraft, program: pid, draft: d.Key})
		}
	}
	return out
}

// pendingDelete is a destructive action waiting for y/n.
type pendingDelete struct {
	prompt string
	run    func(dashboard.Confirmer) tea.Cmd
}

// ─── model ───────────────────────────────────────────────────────────────────

// Options configures the terminal model.
type Options struct {
	// ScoreRefresh re-reads the weather score on this interval; zero
	// disables the timer.
	ScoreRefresh time.Duration
	Logger       zerolog.Logger
}

// Model is the root Bubble Tea model. Row state lives in the shared
// ProgramList; the model only tracks the cursor and open dialogs.
type Model struct {
	ctx   context.Context
	list  *dashboard.ProgramList
	panel *dashboard.Panel
	opts  Options

	keys     keyMap
	help     help.Model
	showHelp bool

	cursor  int
	form    *form
	confirm *pendingDelete
	status  string
	width   int
	height  int
	logger  zerolog.Logger
}

// NewModel creates the terminal model. ctx bounds every backend call the
// model starts.
func NewModel(ctx context.Context, list *dashboard.ProgramList, panel *dashboard.Panel, opts Options) Model {
	return Model{
		ctx:    ctx,
		list:   list,
		panel:  panel,
		opts:   opts,
		keys:   defaultKeys(),
		help:   help.New(),
		status: "loading…",
		logger: opts.Logger.With().Str("component", "tui").Logger(),
	}
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.bootstrapCmd()}
	if m.opts.ScoreRefresh > 0 {
		cmds = append(cmds, m.scoreTick())
	}
	return tea.Batch(cmds...)
}

func (m Model) bootstrapCmd() tea.Cmd {
	return func() tea.Msg {
		return bootstrapMsg{err: dashboard.Bootstrap(m.ctx, m.list, m.panel)}
	}
}

func (m Model) scoreTick() tea.Cmd {
	return tea.Tick(m.opts.ScoreRefresh, func(t time.Time) tea.Msg { return scoreTickMsg(t) })
}

// do runs fn off the UI loop and reports its error as an actionMsg.
func (m Model) do(action string, fn func(ctx context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return actionMsg{action: action, err: fn(ctx)}
	}
}

// doFrom is do for a dialog submit. Only f is closed or annotated by the
// result.
func (m Model) doFrom(f *form, action string, fn func(ctx context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return actionMsg{action: action, err: fn(ctx), origin: f}
	}
}

func (m Model) refresh(action string, fn func(ctx context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return actionMsg{action: action, err: fn(ctx), background: true}
	}
}

// ─── update ──────────────────────────────────────────────────────────────────

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case bootstrapMsg:
		m.status = ""
		if msg.err != nil {
			m.logger.Error().Err(msg.err).Msg("Initial load failed")
			m.status = "Some panels failed to load."
		}
		m.clamp()
		return m, nil

	case scoreTickMsg:
		return m, tea.Batch(m.refresh("score refresh", m.panel.RefreshScore), m.scoreTick())

	case actionMsg:
		m.finish(msg)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) finish(msg actionMsg) {
	m.clamp()
	own := msg.origin != nil && msg.origin == m.form

	switch {
	case msg.err == nil:
		if msg.background {
			return
		}
		m.status = ""
		if own {
			m.form = nil
		}
		return
	case errors.Is(msg.err, dashboard.ErrNotConfirmed):
		m.status = "Cancelled."
		return
	case errors.Is(msg.err, dashboard.ErrInFlight):
		m.status = "Still working on the previous " + msg.action + "."
		return
	case errors.Is(msg.err, dashboard.ErrNotFound):
		if own {
			m.form = nil
			own = false
		}
	}

	m.logger.Warn().Err(msg.err).Str("action", msg.action).Msg("Action failed")
	if own {
		m.form.err = describe(msg.err)
		return
	}
	m.status = describe(msg.err)
}

// describe turns an action error into a one-line message.
func describe(err error) string {
	var verr *irrigation.ValidationError
	if errors.As(err, &verr) {
		return verr.Error()
	}
	msg := err.Error()
	if i := strings.Index(msg, ": "); i > 0 {
		msg = msg[:i]
	}
	return strings.ToUpper(msg[:1]) + msg[1:] + "."
}

func (m *Model) clamp() {
	n := len(lines(m.list.Snapshot()))
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m Model) selected() (line, bool) {
	ls := lines(m.list.Snapshot())
	if m.cursor < 0 || m.cursor >= len(ls) {
		return line{}, false
	}
	return ls[m.cursor], true
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}

	if m.confirm != nil {
		pending := m.confirm
		switch strings.ToLower(msg.String()) {
		case "y":
			m.confirm = nil
			return m, pending.run(dashboard.Confirmed)
		case "n", "esc":
			m.confirm = nil
			return m, pending.run(dashboard.Declined)
		}
		return m, nil
	}

	if m.form != nil {
		cmd, closed := m.form.update(msg)
		if closed {
			m.form = nil
		}
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		m.cursor++
		m.clamp()
	case key.Matches(msg, m.keys.Reload):
		return m, m.reload()
	case key.Matches(msg, m.keys.Toggle):
		return m.activate()
	case key.Matches(msg, m.keys.Edit):
		return m.edit()
	case key.Matches(msg, m.keys.Delete):
		return m.remove()
	case key.Matches(msg, m.keys.AddDraft):
		return m.addDraft()
	case key.Matches(msg, m.keys.New):
		return m.newProgram()
	case key.Matches(msg, m.keys.Blinds):
		m.form = m.blindsForm()
	case key.Matches(msg, m.keys.Run):
		m.form = m.runForm()
	case key.Matches(msg, m.keys.BlindAuto):
		enabled := !m.panel.State().BlindsAutomation
		return m, m.do("blinds automation", func(ctx context.Context) error {
			return m.panel.SetBlindsAutomation(ctx, enabled)
		})
	case key.Matches(msg, m.keys.IrrAuto):
		enabled := !m.panel.State().IrrigationAutomation
		return m, m.do("irrigation automation", func(ctx context.Context) error {
			return m.panel.SetIrrigationAutomation(ctx, enabled)
		})
	case key.Matches(msg, m.keys.Score):
		return m, m.do("score", m.panel.RefreshScore)
	}
	return m, nil
}

// reload refetches the list, keeping expanded programs open.
func (m Model) reload() tea.Cmd {
	var expanded []irrigation.ID
	for _, p := range m.list.Snapshot().Programs {
		if p.Detail != nil {
			expanded = append(expanded, irrigation.ID(p.ID))
		}
	}
	return m.do("reload", func(ctx context.Context) error {
		return m.list.Load(ctx, expanded...)
	})
}

// activate toggles a program's sessions, or opens the selected session or
// draft for editing.
func (m Model) activate() (tea.Model, tea.Cmd) {
	sel, ok := m.selected()
	if !ok {
		return m, nil
	}
	if sel.kind == lineProgram {
		return m, m.do("toggle", func(ctx context.Context) error {
			return m.list.Toggle(ctx, sel.program)
		})
	}
	return m.edit()
}

func (m Model) edit() (tea.Model, tea.Cmd) {
	sel, ok := m.selected()
	if !ok {
		return m, nil
	}

	switch sel.kind {
	case lineProgram:
		pf, err := m.list.Edit(sel.program)
		if err != nil {
			m.status = describe(err)
			return m, nil
		}
		m.clamp()
		m.form = m.programForm(sel.program, pf)
	case lineSession:
		sf, err := m.list.EditSession(sel.program, sel.session)
		if err != nil {
			m.status = describe(err)
			return m, nil
		}
		m.form = m.sessionForm(sel.program, sel.session, sf)
	case lineDraft:
		m.form = m.draftForm(sel.program, sel.draft, m.draftValues(sel))
	}
	return m, nil
}

func (m Model) draftValues(sel line) irrigation.SessionForm {
	p, ok := m.list.Snapshot().Program(sel.program)
	if !ok || p.Detail == nil {
		return irrigation.BlankSessionForm()
	}
	for _, d := range p.Detail.Drafts {
		if d.Key == sel.draft {
			return d.Form
		}
	}
	return irrigation.BlankSessionForm()
}

func (m Model) remove() (tea.Model, tea.Cmd) {
	sel, ok := m.selected()
	if !ok {
		return m, nil
	}

	switch sel.kind {
	case lineProgram:
		m.confirm = &pendingDelete{
			prompt: dashboard.PromptDeleteProgram,
			run: func(c dashboard.Confirmer) tea.Cmd {
				return m.do("delete", func(ctx context.Context) error {
					return m.list.Delete(ctx, sel.program, c)
				})
			},
		}
	case lineSession:
		m.confirm = &pendingDelete{
			prompt: dashboard.PromptDeleteSession,
			run: func(c dashboard.Confirmer) tea.Cmd {
				return m.do("delete session", func(ctx context.Context) error {
					return m.list.DeleteSession(ctx, sel.program, sel.session, c)
				})
			},
		}
	case lineDraft:
		if err := m.list.CancelSessionDraft(sel.program, sel.draft); err != nil {
			m.status = describe(err)
		}
		m.clamp()
	}
	return m, nil
}

func (m Model) addDraft() (tea.Model, tea.Cmd) {
	sel, ok := m.selected()
	if !ok {
		return m, nil
	}
	k, err := m.list.AddSessionDraft(sel.program)
	if err != nil {
		m.status = "Open the program's sessions first."
		return m, nil
	}
	m.form = m.draftForm(sel.program, k, irrigation.BlankSessionForm())
	return m, nil
}

func (m Model) newProgram() (tea.Model, tea.Cmd) {
	if !m.list.Snapshot().AddForm.Visible {
		m.list.ToggleAddForm()
	}
	m.form = m.addProgramForm(m.list.Snapshot().AddForm.Form)
	return m, nil
}
