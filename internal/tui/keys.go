package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
)

type keyMap struct {
	Quit      key.Binding
	Submit    key.Binding
	Restart   key.Binding
	Back      key.Binding
	Up        key.Binding
	Down      key.Binding
	FocusNext key.Binding
	FocusPrev key.Binding
	Cycle     key.Binding
	Retry     key.Binding
	Register  key.Binding
	Close     key.Binding

	Open     key.Binding
	Compose  key.Binding
	Refresh  key.Binding
	NextPage key.Binding
	PrevPage key.Binding
	Logout   key.Binding
	Leave    key.Binding
	Send     key.Binding
	Delete   key.Binding
}

var keys = keyMap{
	Quit:      key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
	Submit:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "continue")),
	Restart:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "start over")),
	Back:      key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
	Up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	FocusNext: key.NewBinding(key.WithKeys("tab", "down"), key.WithHelp("tab", "next field")),
	FocusPrev: key.NewBinding(key.WithKeys("shift+tab", "up"), key.WithHelp("shift+tab", "prev field")),
	Cycle:     key.NewBinding(key.WithKeys("left", "right"), key.WithHelp("←/→", "change option")),
	Retry:     key.NewBinding(key.WithKeys("r", "enter"), key.WithHelp("r", "retry")),
	Register:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "register a new address")),
	Close:     key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "close")),

	Open:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
	Compose:  key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "compose")),
	Refresh:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
	NextPage: key.NewBinding(key.WithKeys("right", "n"), key.WithHelp("→/n", "next page")),
	PrevPage: key.NewBinding(key.WithKeys("left", "p"), key.WithHelp("←/p", "prev page")),
	Logout:   key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "log out")),
	Leave:    key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit")),
	Send:     key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "send")),
	Delete:   key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
}

// withHelp relabels a binding for one screen.
func withHelp(b key.Binding, desc string) key.Binding {
	b.SetHelp(b.Help().Key, desc)
	return b
}

func footer(bindings ...key.Binding) string {
	keyStyle := lipgloss.NewStyle().Foreground(colorAccent).Bold(true)
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		if !b.Enabled() || (h.Key == "" && h.Desc == "") {
			continue
		}
		parts = append(parts, keyStyle.Render(h.Key)+" "+hintStyle.Render(h.Desc))
	}
	return strings.Join(parts, "  ")
}
