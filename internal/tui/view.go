package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/scarlet-home/scarletdash/internal/dashboard"
)

func (m Model) View() string {
	snap := m.list.Snapshot()
	panel := m.panel.State()

	var b strings.Builder
	b.WriteString(Title.Render("scarlet · irrigation"))
	b.WriteString("\n\n")
	b.WriteString(m.renderTable(snap))

	if snap.Status != "" {
		b.WriteString("\n" + Bad.Render(snap.Status))
	}
	if m.status != "" {
		b.WriteString("\n" + Muted.Render(m.status))
	}

	body := b.String()
	side := renderPanel(panel)
	if m.width > 0 && m.width < 100 {
		body = lipgloss.JoinVertical(lipgloss.Left, body, "", side)
	} else {
		body = lipgloss.JoinHorizontal(lipgloss.Top, Pane.Render(body), " ", side)
	}

	switch {
	case m.confirm != nil:
		body += "\n\n" + Dialog.Render(m.confirm.prompt+"  "+Muted.Render("y/n"))
	case m.form != nil:
		body += "\n\n" + m.form.view()
	}

	if m.showHelp {
		body += "\n\n" + m.help.FullHelpView(m.keys.FullHelp())
	} else {
		body += "\n\n" + m.help.ShortHelpView(m.keys.ShortHelp())
	}
	return body
}

const rowFormat = "%-3s %-18s %-6s %-5s %-6s %-6s %-8s"

func (m Model) renderTable(snap dashboard.Snapshot) string {
	if !snap.Loaded {
		return Muted.Render("Loading programs…")
	}
	if len(snap.Programs) == 0 {
		return Muted.Render("No programs. Press n to add one.")
	}

	var b strings.Builder
	b.WriteString(Header.Render(fmt.Sprintf(rowFormat, "", "Name", "Active", "Freq", "Lower", "Upper", "Sessions")))
	b.WriteString("\n")

	i := 0
	mark := func(s string) string {
		if i == m.cursor {
			s = Selected.Render(s)
		}
		i++
		return s + "\n"
	}

	for _, p := range snap.Programs {
		arrow := "▸"
		if p.Detail != nil {
			arrow = "▾"
		}
		row := fmt.Sprintf(rowFormat, arrow, truncate(p.Name, 18), p.Active, fmt.Sprint(p.Frequency), p.LowerScore, p.UpperScore, fmt.Sprint(p.Sessions))
		if p.State == dashboard.RowEditing {
			row = Editing.Render(row + "  editing")
		}
		b.WriteString(mark(row))
		if p.Error != "" {
			b.WriteString("    " + Bad.Render(p.Error) + "\n")
		}
		if p.Detail == nil {
			continue
		}

		for _, s := range p.Detail.Rows {
			row := fmt.Sprintf("    %-6s z1 %-5s z2 %-5s z3 %-5s conn %-5s", s.StartTime, s.Zone1, s.Zone2, s.Zone3, s.ZoneConnected)
			if s.State == dashboard.SessionEditing {
				row = Editing.Render(row + "  editing")
			}
			b.WriteString(mark(row))
			if s.Error != "" {
				b.WriteString("      " + Bad.Render(s.Error) + "\n")
			}
		}
		for _, d := range p.Detail.Drafts {
			b.WriteString(mark(Editing.Render(fmt.Sprintf("    %-6s new session", d.Form.StartTime))))
			if d.Error != "" {
				b.WriteString("      " + Bad.Render(d.Error) + "\n")
			}
		}
		if len(p.Detail.Rows) == 0 && len(p.Detail.Drafts) == 0 {
			b.WriteString(Muted.Render("    no sessions, press a to add one") + "\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderPanel(st dashboard.PanelState) string {
	onOff := func(v bool) string {
		if v {
			return Good.Render("on")
		}
		return Muted.Render("off")
	}

	var b strings.Builder
	b.WriteString(Header.Render("Automation") + "\n")
	b.WriteString("blinds      " + onOff(st.BlindsAutomation) + "\n")
	b.WriteString("irrigation  " + onOff(st.IrrigationAutomation) + "\n")
	if st.AutomationError != "" {
		b.WriteString(Bad.Render(st.AutomationError) + "\n")
	}

	b.WriteString("\n" + Header.Render("Blinds") + "\n")
	b.WriteString(fmt.Sprintf("left %s · right %s\n", st.LeftBlind, st.RightBlind))
	if st.BlindsStatus != "" {
		style := Bad
		if st.BlindsOK {
			style = Good
		}
		b.WriteString(style.Render(st.BlindsStatus) + "\n")
	}
	if st.RunStatus != "" {
		b.WriteString("\n" + Header.Render("Irrigation") + "\n" + st.RunStatus + "\n")
	}

	b.WriteString("\n" + Header.Render("Weather score") + "\n")
	b.WriteString(gauge(st.ScoreRatio, 20) + " " + st.ScoreText + "\n")
	if st.ScoreError != "" {
		b.WriteString(Bad.Render(st.ScoreError) + "\n")
	} else if !st.ScoreUpdated.IsZero() {
		b.WriteString(Muted.Render("updated "+st.ScoreUpdated.Local().Format("15:04")) + "\n")
	}
	return Pane.Render(strings.TrimRight(b.String(), "\n"))
}

// gauge draws ratio (0..1) as a bar of width cells.
func gauge(ratio float64, width int) string {
	filled := int(ratio*float64(width) + 0.5)
	filled = max(0, min(width, filled))
	return Good.Render(strings.Repeat("█", filled)) + Muted.Render(strings.Repeat("░", width-filled))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
