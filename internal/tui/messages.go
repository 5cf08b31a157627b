package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jask/rtic/internal/flow"
	"github.com/jask/rtic/internal/webmail"
)

// flowDoneMsg carries a wizard task result back onto the event loop.
type flowDoneMsg struct{ ev flow.Event }

type mailDoneMsg struct{ ev webmail.Event }

func runFlow(t flow.Task) tea.Cmd {
	return func() tea.Msg { return flowDoneMsg{t.Run()} }
}

func runMail(t webmail.Task) tea.Cmd {
	return func() tea.Msg { return mailDoneMsg{t.Run()} }
}
