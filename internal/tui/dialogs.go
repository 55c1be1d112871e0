package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/scarlet-home/scarletdash/internal/dashboard"
	"github.com/scarlet-home/scarletdash/internal/irrigation"
)

var (
	programLabels = []string{"Name", "Active", "Frequency", "Lower score", "Upper score"}
	sessionLabels = []string{"Start time", "Zone 1", "Zone 2", "Zone 3", "Connected"}
)

func sessionValues(f irrigation.SessionForm) []string {
	return []string{f.StartTime, f.Zone1, f.Zone2, f.Zone3, f.ZoneConnected}
}

func sessionFromValues(v []string) irrigation.SessionForm {
	return irrigation.SessionForm{StartTime: v[0], Zone1: v[1], Zone2: v[2], Zone3: v[3], ZoneConnected: v[4]}
}

func (m Model) programForm(id irrigation.ID, pf irrigation.ProgramForm) *form {
	f := newForm("Edit program", programLabels,
		[]string{pf.Name, pf.IsActive, pf.Frequency, pf.LowerScore, pf.UpperScore})
	f.submit = func(v []string) tea.Cmd {
		edited := irrigation.ProgramForm{Name: v[0], IsActive: v[1], Frequency: v[2], LowerScore: v[3], UpperScore: v[4]}
		return m.doFrom(f, "save", func(ctx context.Context) error {
			return m.list.Save(ctx, id, edited)
		})
	}
	f.cancel = func() tea.Cmd {
		return m.do("cancel", func(ctx context.Context) error {
			return m.list.Cancel(ctx, id)
		})
	}
	return f
}

func (m Model) sessionForm(pid, sid irrigation.ID, sf irrigation.SessionForm) *form {
	f := newForm("Edit session", sessionLabels, sessionValues(sf))
	f.submit = func(v []string) tea.Cmd {
		return m.doFrom(f, "save session", func(ctx context.Context) error {
			return m.list.SaveSession(ctx, pid, sid, sessionFromValues(v))
		})
	}
	f.cancel = func() tea.Cmd {
		return m.do("cancel", func(ctx context.Context) error {
			return m.list.CancelSession(ctx, pid, sid)
		})
	}
	return f
}

func (m Model) draftForm(pid irrigation.ID, k string, sf irrigation.SessionForm) *form {
	f := newForm("New session", sessionLabels, sessionValues(sf))
	f.submit = func(v []string) tea.Cmd {
		return m.doFrom(f, "create session", func(ctx context.Context) error {
			return m.list.CreateSession(ctx, pid, k, sessionFromValues(v))
		})
	}
	f.cancel = func() tea.Cmd {
		_ = m.list.CancelSessionDraft(pid, k)
		return nil
	}
	return f
}

func (m Model) addProgramForm(np irrigation.NewProgramForm) *form {
	values := []string{np.Name, np.IsActive, np.Frequency, np.LowerScore, np.UpperScore}
	labels := append([]string(nil), programLabels...)
	for i, s := range np.Sessions {
		labels = append(labels, fmt.Sprintf("Session %d start", i+1), fmt.Sprintf("Session %d minutes", i+1))
		values = append(values, s.StartTime, s.DurationMinutes)
	}
	if np.IsActive == "" {
		values[1] = "true"
	}

	f := newForm("New program", labels, values)
	f.grow = func(f *form) {
		m.list.SetAddForm(newProgramFromValues(f.values()))
		n := m.list.AddFormSession()
		f.addFields([]string{fmt.Sprintf("Session %d start", n), fmt.Sprintf("Session %d minutes", n)}, nil)
	}
	f.submit = func(v []string) tea.Cmd {
		np := newProgramFromValues(v)
		return m.doFrom(f, "add program", func(ctx context.Context) error {
			return m.list.SubmitAddForm(ctx, np)
		})
	}
	f.cancel = func() tea.Cmd {
		m.list.SetAddForm(newProgramFromValues(f.values()))
		if m.list.Snapshot().AddForm.Visible {
			m.list.ToggleAddForm()
		}
		return nil
	}
	return f
}

// newProgramFromValues reads the fixed program fields followed by
// start/minutes pairs.
func newProgramFromValues(v []string) irrigation.NewProgramForm {
	np := irrigation.NewProgramForm{Name: v[0], IsActive: v[1], Frequency: v[2], LowerScore: v[3], UpperScore: v[4]}
	for i := len(programLabels); i+1 < len(v); i += 2 {
		np.Sessions = append(np.Sessions, irrigation.InitialSessionForm{StartTime: v[i], DurationMinutes: v[i+1]})
	}
	return np
}

func (m Model) blindsForm() *form {
	st := m.panel.State()
	f := newForm("Blinds (up, down, nostate)", []string{"Left", "Right"},
		[]string{string(st.LeftBlind), string(st.RightBlind)})
	f.submit = func(v []string) tea.Cmd {
		return m.doFrom(f, "blinds", func(ctx context.Context) error {
			return m.panel.SendBlinds(ctx, v[0], v[1])
		})
	}
	return f
}

func (m Model) runForm() *form {
	f := newForm("Manual irrigation", []string{"Zone 1", "Zone 2", "Zone 3", "Connected", "Active (on/off)"},
		[]string{"0", "0", "0", "0", "on"})
	f.submit = func(v []string) tea.Cmd {
		run := dashboard.RunForm{
			Zone1:         v[0],
			Zone2:         v[1],
			Zone3:         v[2],
			ZoneConnected: v[3],
			Active:        irrigation.ParseBool(v[4]),
		}
		return m.doFrom(f, "irrigation run", func(ctx context.Context) error {
			return m.panel.RunIrrigation(ctx, run)
		})
	}
	return f
}
