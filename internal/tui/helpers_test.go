package tui

import (
	"testing"
	"time"

	bcursor "github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// keyPress builds the KeyMsg bubbletea delivers for a named key.
func keyPress(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "ctrl+s":
		return tea.KeyMsg{Type: tea.KeyCtrlS}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

// staticCursors stops cursor blinking so focus and typing return no timer
// commands.
func staticCursors(inputs []*textinput.Model, areas ...*textarea.Model) {
	for _, in := range inputs {
		in.Cursor.SetMode(bcursor.CursorStatic)
	}
	for _, a := range areas {
		a.Cursor.SetMode(bcursor.CursorStatic)
	}
}

// collect runs cmd and returns the task results it produces. Spinner ticks
// are dropped, as is anything that does not answer promptly.
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	ch := make(chan tea.Msg, 1)
	go func() { ch <- cmd() }()
	var msg tea.Msg
	select {
	case msg = <-ch:
	case <-time.After(200 * time.Millisecond):
		return nil
	}
	switch msg := msg.(type) {
	case spinner.TickMsg:
		return nil
	case tea.BatchMsg:
		var out []tea.Msg
		for _, c := range msg {
			out = append(out, collect(c)...)
		}
		return out
	case flowDoneMsg, mailDoneMsg, tea.QuitMsg:
		return []tea.Msg{msg}
	}
	return nil
}

// send delivers msg and feeds task results back until the model settles.
// It reports whether the model asked to quit.
func send(t *testing.T, m tea.Model, msg tea.Msg) bool {
	t.Helper()
	queue := []tea.Msg{msg}
	quit := false
	for i := 0; len(queue) > 0; i++ {
		if i > 32 {
			t.Fatal("command chain exceeded max depth")
		}
		next := queue[0]
		queue = queue[1:]
		if _, ok := next.(tea.QuitMsg); ok {
			quit = true
			continue
		}
		_, cmd := m.Update(next)
		queue = append(queue, collect(cmd)...)
	}
	return quit
}

func press(t *testing.T, m tea.Model, keys ...string) bool {
	t.Helper()
	quit := false
	for _, k := range keys {
		quit = send(t, m, keyPress(k)) || quit
	}
	return quit
}

func typeText(t *testing.T, m tea.Model, s string) {
	t.Helper()
	for _, r := range s {
		send(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}
