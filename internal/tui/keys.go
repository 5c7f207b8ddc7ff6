package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
)

type keyMap struct {
	Up            key.Binding
	Down          key.Binding
	Open          key.Binding
	Topic         key.Binding
	Difficulty    key.Binding
	ShowCompleted key.Binding
	ClearFilters  key.Binding
	Refresh       key.Binding
	Quit          key.Binding
	Submit        key.Binding
	Reset         key.Binding
	Close         key.Binding
	ForceQuit     key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up:            key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:          key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Open:          key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
		Topic:         key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "topic")),
		Difficulty:    key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "difficulty")),
		ShowCompleted: key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "completed")),
		ClearFilters:  key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "clear")),
		Refresh:       key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		Quit:          key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		Submit:        key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "submit")),
		Reset:         key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "reset")),
		Close:         key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		ForceQuit:     key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
	}
}

func (k keyMap) browseHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Open, k.Topic, k.Difficulty, k.ShowCompleted, k.ClearFilters, k.Refresh, k.Quit}
}

func (k keyMap) practiceHelp() []key.Binding {
	return []key.Binding{k.Submit, k.Reset, k.Close, k.ForceQuit}
}

func renderHelp(bindings []key.Binding) string {
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		parts = append(parts, helpKeyStyle.Render(h.Key)+" "+h.Desc)
	}
	return helpStyle.Render(strings.Join(parts, " • "))
}
