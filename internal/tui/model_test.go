package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/scarlet-home/scarletdash/internal/dashboard"
	"github.com/scarlet-home/scarletdash/internal/irrigation"
	"github.com/scarlet-home/scarletdash/internal/remote"
	"github.com/scarlet-home/scarletdash/internal/remote/remotetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f64(v float64) *float64 { return &v }

func newTestModel(t *testing.T) (Model, *remotetest.Backend) {
	t.Helper()
	backend := remotetest.New(t)
	client, err := remote.New(remote.Config{BaseURL: backend.URL(), Timeout: 2 * time.Second}, zerolog.Nop())
	require.NoError(t, err)

	guard := dashboard.NewGuard()
	opts := dashboard.Options{Guard: guard, Logger: zerolog.Nop()}
	list := dashboard.NewProgramList(client, opts)
	panel := dashboard.NewPanel(client, opts)
	return NewModel(context.Background(), list, panel, Options{Logger: zerolog.Nop()}), backend
}

func seedLawn(backend *remotetest.Backend) irrigation.Program {
	return backend.Seed(irrigation.Program{
		Name:       "Lawn",
		IsActive:   true,
		Frequency:  2,
		LowerScore: 1,
		UpperScore: 4,
		Sessions: []irrigation.Session{
			{StartTime: "06:00:00", Zone1: f64(10), Zone3: f64(5)},
		},
	})
}

// drain runs cmd and feeds the resulting model messages back, the way the
// Bubble Tea runtime would.
func drain(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	if cmd == nil {
		return m
	}
	switch msg := cmd().(type) {
	case tea.BatchMsg:
		for _, c := range msg {
			m = drain(t, m, c)
		}
	case actionMsg, bootstrapMsg:
		next, c := m.Update(msg)
		m = drain(t, next.(Model), c)
	}
	return m
}

func send(t *testing.T, m Model, msgs ...tea.Msg) Model {
	t.Helper()
	for _, msg := range msgs {
		next, cmd := m.Update(msg)
		m = drain(t, next.(Model), cmd)
	}
	return m
}

func keys(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

var enter = tea.KeyMsg{Type: tea.KeyEnter}

func started(t *testing.T) (Model, *remotetest.Backend, irrigation.Program) {
	t.Helper()
	m, backend := newTestModel(t)
	p := seedLawn(backend)
	m = drain(t, m, m.Init())
	return m, backend, p
}

func TestModel_InitLoadsEverything(t *testing.T) {
	m, _, _ := started(t)

	view := m.View()
	assert.Contains(t, view, "Lawn")
	assert.Contains(t, view, "Weather score")
	if m.status != "" {
		t.Errorf("Expected empty status after load, got %q", m.status)
	}
}

func TestModel_ToggleSessions(t *testing.T) {
	m, _, _ := started(t)

	m = send(t, m, enter)
	snap := m.list.Snapshot()
	require.NotNil(t, snap.Programs[0].Detail)
	assert.Contains(t, m.View(), "06:00")
	assert.Len(t, lines(snap), 2)

	m = send(t, m, enter)
	assert.Nil(t, m.list.Snapshot().Programs[0].Detail)
	assert.Equal(t, dashboard.RowCollapsed, m.list.Snapshot().Programs[0].State)
}

func TestModel_CursorStaysInRange(t *testing.T) {
	m, _, _ := started(t)

	m = send(t, m, keys("j"), keys("j"), keys("j"))
	if m.cursor != 0 {
		t.Errorf("Expected cursor 0 with one row, got %d", m.cursor)
	}

	m = send(t, m, enter, keys("j"))
	if m.cursor != 1 {
		t.Errorf("Expected cursor on the session row, got %d", m.cursor)
	}

	// A cancelled draft leaves no row behind for the cursor
	m = send(t, m, keys("a"), tea.KeyMsg{Type: tea.KeyEsc})
	m = send(t, m, keys("j"), keys("j"))
	assert.Equal(t, 1, m.cursor)
}

func TestModel_EditAndSave(t *testing.T) {
	m, backend, p := started(t)

	m = send(t, m, keys("e"))
	require.NotNil(t, m.form)
	assert.Equal(t, "Lawn", m.form.inputs[0].Value())
	assert.Equal(t, dashboard.RowEditing, m.list.Snapshot().Programs[0].State)

	m.form.inputs[2].SetValue("3")
	m.form.inputs[3].SetValue("1.5")
	m.form.inputs[4].SetValue("4.25")
	m = send(t, m, enter)

	assert.Nil(t, m.form)
	stored, ok := backend.Program(p.ID)
	require.True(t, ok)
	assert.Equal(t, 3, stored.Frequency)
	assert.Equal(t, 1.5, stored.LowerScore)
	assert.Equal(t, 4.25, stored.UpperScore)
}

func TestModel_EditMalformedKeepsForm(t *testing.T) {
	m, backend, _ := started(t)

	m = send(t, m, keys("e"))
	m.form.inputs[2].SetValue("often")
	before := backend.RequestCount()
	m = send(t, m, enter)

	require.NotNil(t, m.form)
	assert.Contains(t, m.form.err, "frequency")
	assert.Equal(t, before, backend.RequestCount())

	m = send(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Nil(t, m.form)
	assert.Equal(t, dashboard.RowCollapsed, m.list.Snapshot().Programs[0].State)
}

func TestModel_DeleteAsksFirst(t *testing.T) {
	m, backend, p := started(t)

	m = send(t, m, keys("d"))
	require.NotNil(t, m.confirm)
	assert.Contains(t, m.View(), dashboard.PromptDeleteProgram)

	before := backend.RequestCount()
	m = send(t, m, keys("n"))
	assert.Nil(t, m.confirm)
	assert.Equal(t, before, backend.RequestCount())
	assert.Equal(t, "Cancelled.", m.status)

	m = send(t, m, keys("d"), keys("y"))
	_, ok := backend.Program(p.ID)
	assert.False(t, ok)
	assert.Empty(t, m.list.Snapshot().Programs)
}

func TestModel_AddSession(t *testing.T) {
	m, backend, p := started(t)

	m = send(t, m, keys("a"))
	assert.Nil(t, m.form)
	assert.NotEmpty(t, m.status)

	m = send(t, m, enter, keys("a"))
	require.NotNil(t, m.form)
	assert.Equal(t, "0", m.form.inputs[1].Value())

	m.form.inputs[0].SetValue("19:00")
	m = send(t, m, enter)
	assert.Nil(t, m.form)

	stored, ok := backend.Program(p.ID)
	require.True(t, ok)
	assert.Len(t, stored.Sessions, 2)
	require.NotNil(t, m.list.Snapshot().Programs[0].Detail)
	assert.Len(t, m.list.Snapshot().Programs[0].Detail.Rows, 2)
}

func TestModel_NewProgram(t *testing.T) {
	m, backend := newTestModel(t)
	m = drain(t, m, m.Init())
	assert.Contains(t, m.View(), "No programs")

	m = send(t, m, keys("n"))
	require.NotNil(t, m.form)
	assert.True(t, m.list.Snapshot().AddForm.Visible)

	m.form.inputs[0].SetValue("Roses")
	m.form.inputs[2].SetValue("1")
	m.form.inputs[3].SetValue("0.5")
	m.form.inputs[4].SetValue("3")
	m = send(t, m, tea.KeyMsg{Type: tea.KeyCtrlN})
	require.Len(t, m.form.inputs, 7)
	m.form.inputs[5].SetValue("05:30")
	m.form.inputs[6].SetValue("20")
	m = send(t, m, enter)

	assert.Nil(t, m.form)
	snap := m.list.Snapshot()
	require.Len(t, snap.Programs, 1)
	assert.Equal(t, "Roses", snap.Programs[0].Name)
	assert.Equal(t, 1, snap.Programs[0].Sessions)
	assert.True(t, strings.HasPrefix(backend.Requests()[len(backend.Requests())-2], "POST /irrigation/program"))
}

func TestModel_PanelKeys(t *testing.T) {
	m, backend, _ := started(t)

	m = send(t, m, keys("b"))
	blinds, _ := backend.Automation()
	assert.True(t, blinds)

	m = send(t, m, keys("B"))
	require.NotNil(t, m.form)
	m.form.inputs[0].SetValue("up")
	m.form.inputs[1].SetValue("down")
	m = send(t, m, enter)
	assert.Equal(t, remote.BlindUp, backend.Blinds().LeftBlind)
	assert.Equal(t, remote.BlindDown, backend.Blinds().RightBlind)
	assert.Equal(t, dashboard.StatusCommandSent, m.panel.State().BlindsStatus)

	m = send(t, m, keys("R"))
	require.NotNil(t, m.form)
	m.form.inputs[0].SetValue("7")
	m = send(t, m, enter)
	run := backend.LastRun()
	require.NotNil(t, run)
	assert.Equal(t, 7, run.Zone1)
	assert.Equal(t, remote.IrrigationOn, run.IsActive)
}

func TestModel_InvalidBlindsKeepsForm(t *testing.T) {
	m, _, _ := started(t)

	m = send(t, m, keys("B"))
	m.form.inputs[0].SetValue("sideways")
	m = send(t, m, enter)
	require.NotNil(t, m.form)
	assert.Contains(t, m.form.err, "left_blind")
}

func TestModel_Quit(t *testing.T) {
	m, _ := newTestModel(t)
	_, cmd := m.Update(keys("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
}

func TestGauge(t *testing.T) {
	tests := []struct {
		ratio  float64
		filled int
	}{
		{0, 0},
		{0.5, 10},
		{1, 20},
		{1.7, 20},
	}
	for _, tt := range tests {
		got := strings.Count(gauge(tt.ratio, 20), "█")
		if got != tt.filled {
			t.Errorf("gauge(%v): expected %d filled cells, got %d", tt.ratio, tt.filled, got)
		}
	}
}

// scoreRefresh runs the refresh half of a score tick and feeds its result back.
func scoreRefresh(t *testing.T, m Model) Model {
	t.Helper()
	next, cmd := m.Update(scoreTickMsg(time.Now()))
	batch, ok := cmd().(tea.BatchMsg)
	require.True(t, ok)
	require.NotEmpty(t, batch)
	return drain(t, next.(Model), batch[0])
}

func TestModel_ScoreRefreshKeepsEditDialog(t *testing.T) {
	m, backend, p := started(t)

	m = send(t, m, keys("e"))
	require.NotNil(t, m.form)
	f := m.form
	f.inputs[0].SetValue("Back lawn")

	m = scoreRefresh(t, m)
	if m.form != f {
		t.Fatalf("Expected the edit dialog to stay open after a score refresh")
	}
	assert.Equal(t, "Back lawn", m.form.inputs[0].Value())
	assert.Empty(t, m.form.err)

	backend.SetScoreBody("not a number")
	m = scoreRefresh(t, m)
	require.True(t, m.form == f)
	assert.Empty(t, m.form.err)
	assert.Contains(t, m.status, "score")

	m = send(t, m, enter)
	assert.Nil(t, m.form)
	stored, ok := backend.Program(p.ID)
	require.True(t, ok)
	assert.Equal(t, "Back lawn", stored.Name)
}

func TestModel_StaleResultLeavesNewDialog(t *testing.T) {
	m, _, _ := started(t)

	m = send(t, m, keys("e"))
	old := m.form
	m = send(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	m = send(t, m, keys("e"))
	require.NotNil(t, m.form)
	require.False(t, m.form == old)

	next, _ := m.Update(actionMsg{action: "save", err: dashboard.ErrNotFound, origin: old})
	m = next.(Model)
	assert.NotNil(t, m.form)
	assert.Empty(t, m.form.err)
}
