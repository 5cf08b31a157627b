package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jask/rtic/internal/webmail"
)

const dateLayout = "2006-01-02 15:04"

// MailModel renders the webmail client.
type MailModel struct {
	ctl        *webmail.Controller
	email      textinput.Model
	password   textinput.Model
	to         textinput.Model
	body       textarea.Model
	loginFocus int
	onBody     bool
	selected   int
	spinner    spinner.Model
	view       webmail.View
}

func NewMail(ctl *webmail.Controller) *MailModel {
	email := textinput.New()
	email.Prompt = "Email:    "
	email.Placeholder = "name@example.com"
	email.Focus()

	password := textinput.New()
	password.Prompt = "Password: "
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '*'

	to := textinput.New()
	to.Prompt = "To: "
	to.Placeholder = "recipient@example.com"

	body := textarea.New()
	body.Placeholder = "Write your message..."
	body.ShowLineNumbers = false
	body.SetWidth(60)
	body.SetHeight(6)

	return &MailModel{
		ctl:      ctl,
		email:    email,
		password: password,
		to:       to,
		body:     body,
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(infoStyle)),
		view:     ctl.Active(),
	}
}

func (m *MailModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *MailModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			return m, tea.Quit
		}
		return m.handleKey(msg)
	case mailDoneMsg:
		m.ctl.Apply(msg.ev)
		return m, m.sync()
	case spinner.TickMsg:
		if !m.ctl.Pending() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *MailModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.ctl.Active() {
	case webmail.ViewLogin:
		return m.handleLoginKey(msg)
	case webmail.ViewInbox:
		return m.handleInboxKey(msg)
	case webmail.ViewCompose:
		return m.handleComposeKey(msg)
	case webmail.ViewDetail:
		switch {
		case key.Matches(msg, keys.Back):
			_ = m.ctl.Back()
			return m, m.sync()
		case key.Matches(msg, keys.Delete):
			task, err := m.ctl.Delete()
			if err != nil {
				return m, nil
			}
			return m, m.start(task)
		}
	}
	return m, nil
}

func (m *MailModel) handleLoginKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.FocusNext), key.Matches(msg, keys.FocusPrev):
		return m, m.focusLogin(1 - m.loginFocus)
	case key.Matches(msg, keys.Submit):
		task, err := m.ctl.Login(m.email.Value(), m.password.Value())
		if err != nil {
			return m, nil
		}
		return m, m.start(task)
	}
	var cmd tea.Cmd
	if m.loginFocus == 0 {
		m.email, cmd = m.email.Update(msg)
	} else {
		m.password, cmd = m.password.Update(msg)
	}
	return m, cmd
}

func (m *MailModel) handleInboxKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Leave):
		return m, tea.Quit
	case key.Matches(msg, keys.Up):
		if m.selected > 0 {
			m.selected--
		}
	case key.Matches(msg, keys.Down):
		if m.selected < len(m.ctl.Page())-1 {
			m.selected++
		}
	case key.Matches(msg, keys.NextPage):
		if m.ctl.NextPage() {
			m.selected = 0
		}
	case key.Matches(msg, keys.PrevPage):
		if m.ctl.PrevPage() {
			m.selected = 0
		}
	case key.Matches(msg, keys.Open):
		_ = m.ctl.Open(m.selected)
		return m, m.sync()
	case key.Matches(msg, keys.Compose):
		_ = m.ctl.Compose()
		return m, m.sync()
	case key.Matches(msg, keys.Refresh):
		task, err := m.ctl.Refresh()
		if err != nil {
			return m, nil
		}
		return m, m.start(task)
	case key.Matches(msg, keys.Logout):
		m.ctl.Logout()
		return m, m.sync()
	}
	return m, nil
}

func (m *MailModel) handleComposeKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Back):
		_ = m.ctl.Back()
		return m, m.sync()
	case msg.Type == tea.KeyTab || msg.Type == tea.KeyShiftTab:
		return m, m.focusCompose(!m.onBody)
	case key.Matches(msg, keys.Send):
		task, err := m.ctl.Send(m.to.Value(), m.body.Value())
		if err != nil {
			return m, nil
		}
		return m, m.start(task)
	case key.Matches(msg, keys.Submit) && !m.onBody:
		return m, m.focusCompose(true)
	}
	var cmd tea.Cmd
	if m.onBody {
		m.body, cmd = m.body.Update(msg)
	} else {
		m.to, cmd = m.to.Update(msg)
	}
	return m, cmd
}

func (m *MailModel) focusLogin(i int) tea.Cmd {
	m.loginFocus = i
	if i == 0 {
		m.password.Blur()
		return m.email.Focus()
	}
	m.email.Blur()
	return m.password.Focus()
}

func (m *MailModel) focusCompose(body bool) tea.Cmd {
	m.onBody = body
	if body {
		m.to.Blur()
		return m.body.Focus()
	}
	m.body.Blur()
	return m.to.Focus()
}

func (m *MailModel) start(task webmail.Task) tea.Cmd {
	return tea.Batch(runMail(task), m.spinner.Tick)
}

// sync resets per-view input state when the active view changes.
func (m *MailModel) sync() tea.Cmd {
	v := m.ctl.Active()
	if v == m.view {
		if n := len(m.ctl.Page()); m.selected >= n {
			m.selected = max(n-1, 0)
		}
		return nil
	}
	prev := m.view
	m.view = v
	switch v {
	case webmail.ViewLogin:
		m.email.Reset()
		m.password.Reset()
		m.selected = 0
		return m.focusLogin(0)
	case webmail.ViewInbox:
		if prev == webmail.ViewLogin {
			m.selected = 0
		}
		if n := len(m.ctl.Page()); m.selected >= n {
			m.selected = max(n-1, 0)
		}
	case webmail.ViewCompose:
		m.to.Reset()
		m.body.Reset()
		return m.focusCompose(false)
	}
	return nil
}

func (m *MailModel) View() string {
	var b strings.Builder
	title := "RTIC mail"
	if acct, ok := m.ctl.Account(); ok {
		title += " - " + acct.Email
	}
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n\n")

	switch m.ctl.Active() {
	case webmail.ViewLogin:
		b.WriteString(m.email.View() + "\n")
		b.WriteString(m.password.View())
		if m.ctl.Pending() {
			b.WriteString("\n\n" + m.spinner.View() + " Signing in...")
		}
		b.WriteString(errLine(m.ctl.Error(webmail.ViewLogin)))
		b.WriteString("\n\n" + footer(withHelp(keys.FocusNext, "switch field"), withHelp(keys.Submit, "sign in"), keys.Quit))

	case webmail.ViewInbox:
		b.WriteString(m.renderInbox())

	case webmail.ViewCompose:
		b.WriteString(m.to.View())
		if hint, ok := m.ctl.SuggestRecipient(m.to.Value()); ok {
			b.WriteString("\n" + warnStyle.Render("Did you mean "+hint+"?"))
		}
		b.WriteString("\n\n" + m.body.View())
		if m.ctl.Pending() {
			b.WriteString("\n" + m.spinner.View() + " Sending...")
		}
		b.WriteString(errLine(m.ctl.Error(webmail.ViewCompose)))
		b.WriteString("\n\n" + footer(withHelp(keys.FocusNext, "switch field"), keys.Send, withHelp(keys.Back, "cancel")))

	case webmail.ViewDetail:
		msg, _ := m.ctl.Current()
		header := fmt.Sprintf("From: %s\nTo:   %s\nDate: %s", msg.Sender, msg.Receiver, msg.Date.Local().Format(dateLayout))
		if msg.Tag != "" {
			header += "\nTag:  " + msg.Tag
		}
		b.WriteString(panelStyle.Render(header + "\n\n" + msg.Text))
		if m.ctl.Pending() {
			b.WriteString("\n" + m.spinner.View() + " Deleting...")
		}
		b.WriteString(errLine(m.ctl.Error(webmail.ViewDetail)))
		b.WriteString("\n\n" + footer(keys.Delete, keys.Back))
	}
	return b.String() + "\n"
}

func (m *MailModel) renderInbox() string {
	var b strings.Builder
	b.WriteString(labelStyle.Render(m.ctl.CountLine()))
	if s := m.ctl.Status(); s != "" {
		b.WriteString("  " + successStyle.Render(s))
	}
	b.WriteString("\n")
	acct, _ := m.ctl.Account()
	for i, msg := range m.ctl.Page() {
		who := "From " + msg.Sender
		if msg.Sender == acct.Email {
			who = "To " + msg.Receiver
		}
		line := fmt.Sprintf("%s  %-32s %s", msg.Date.Local().Format(dateLayout), who, webmail.Preview(msg.Text))
		if i == m.selected {
			line = selectedStyle.Render(line)
		}
		b.WriteString("\n" + cursor(i, m.selected) + line)
	}
	fmt.Fprintf(&b, "\n\n%s", hintStyle.Render(fmt.Sprintf("page %d of %d", m.ctl.PageNumber(), m.ctl.PageCount())))
	if m.ctl.Pending() {
		b.WriteString("  " + m.spinner.View())
	}
	b.WriteString(errLine(m.ctl.Error(webmail.ViewInbox)))
	b.WriteString("\n\n" + footer(keys.Open, keys.Compose, keys.Refresh, keys.PrevPage, keys.NextPage, keys.Logout, keys.Leave))
	return b.String()
}
