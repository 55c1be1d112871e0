package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up        key.Binding
	Down      key.Binding
	Toggle    key.Binding
	Edit      key.Binding
	Delete    key.Binding
	AddDraft  key.Binding
	New       key.Binding
	Reload    key.Binding
	Blinds    key.Binding
	Run       key.Binding
	BlindAuto key.Binding
	IrrAuto   key.Binding
	Score     key.Binding
	Help      key.Binding
	Quit      key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Toggle:    key.NewBinding(key.WithKeys("enter", " "), key.WithHelp("enter", "sessions")),
		Edit:      key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit")),
		Delete:    key.NewBinding(key.WithKeys("d", "x"), key.WithHelp("d", "delete")),
		AddDraft:  key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add session")),
		New:       key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new program")),
		Reload:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		Blinds:    key.NewBinding(key.WithKeys("B"), key.WithHelp("B", "blinds")),
		Run:       key.NewBinding(key.WithKeys("R"), key.WithHelp("R", "run irrigation")),
		BlindAuto: key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "blinds auto")),
		IrrAuto:   key.NewBinding(key.WithKeys("i"), key.WithHelp("i", "irrigation auto")),
		Score:     key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "score")),
		Help:      key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:      key.NewBinding(key.WithKeys("ctrl+c", "q"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.Edit, k.Delete, k.New, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Toggle, k.Edit},
		{k.Delete, k.AddDraft, k.New, k.Reload},
		{k.Blinds, k.Run, k.BlindAuto, k.IrrAuto},
		{k.Score, k.Help, k.Quit},
	}
}
