package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// form is a modal list of labelled text inputs. submit receives the values
// in field order; cancel runs on esc.
type form struct {
	title  string
	labels []string
	inputs []textinput.Model
	focus  int
	err    string

	submit func(values []string) tea.Cmd
	cancel func() tea.Cmd
	// grow, when set, adds fields on ctrl+n.
	grow func(f *form)
}

func newForm(title string, labels, values []string) *form {
	f := &form{title: title}
	f.addFields(labels, values)
	if len(f.inputs) > 0 {
		f.inputs[0].Focus()
	}
	return f
}

func (f *form) addFields(labels, values []string) {
	for i, label := range labels {
		in := textinput.New()
		in.Prompt = ""
		in.CharLimit = 64
		in.Width = 24
		in.Cursor.SetMode(cursor.CursorStatic)
		if i < len(values) {
			in.SetValue(values[i])
		}
		f.labels = append(f.labels, label)
		f.inputs = append(f.inputs, in)
	}
}

func (f *form) values() []string {
	out := make([]string, len(f.inputs))
	for i, in := range f.inputs {
		out[i] = in.Value()
	}
	return out
}

func (f *form) move(delta int) {
	if len(f.inputs) == 0 {
		return
	}
	f.inputs[f.focus].Blur()
	f.focus = (f.focus + delta + len(f.inputs)) % len(f.inputs)
	f.inputs[f.focus].Focus()
}

// update handles a key while the form is open. closed reports that the
// form was submitted or cancelled.
func (f *form) update(msg tea.KeyMsg) (cmd tea.Cmd, closed bool) {
	switch msg.Type {
	case tea.KeyTab, tea.KeyDown:
		f.move(1)
		return nil, false
	case tea.KeyShiftTab, tea.KeyUp:
		f.move(-1)
		return nil, false
	case tea.KeyEsc:
		if f.cancel != nil {
			return f.cancel(), true
		}
		return nil, true
	case tea.KeyEnter:
		f.err = ""
		return f.submit(f.values()), false
	case tea.KeyCtrlN:
		if f.grow != nil {
			f.grow(f)
		}
		return nil, false
	}

	var c tea.Cmd
	f.inputs[f.focus], c = f.inputs[f.focus].Update(msg)
	return c, false
}

func (f *form) view() string {
	width := 0
	for _, l := range f.labels {
		width = max(width, lipgloss.Width(l))
	}

	var b strings.Builder
	b.WriteString(Title.Render(f.title))
	b.WriteString("\n\n")
	for i, in := range f.inputs {
		label := f.labels[i] + strings.Repeat(" ", width-lipgloss.Width(f.labels[i]))
		if i == f.focus {
			label = Editing.Render(label)
		} else {
			label = Muted.Render(label)
		}
		b.WriteString(label + "  " + in.View() + "\n")
	}
	if f.err != "" {
		b.WriteString("\n" + Bad.Render(f.err) + "\n")
	}
	hint := "enter save · tab next field · esc cancel"
	if f.grow != nil {
		hint += " · ctrl+n add session"
	}
	b.WriteString("\n" + Muted.Render(hint))
	return Dialog.Render(b.String())
}
