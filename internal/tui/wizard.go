package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jask/rtic/internal/directory"
	"github.com/jask/rtic/internal/flow"
)

// Registration form focus order.
const (
	regAddress = iota
	regSecret
	regAccountType
	regPurpose
	regFieldCount
)

// WizardModel renders the identity-verification wizard.
type WizardModel struct {
	ctl      *flow.Controller
	token    textinput.Model
	address  textinput.Model
	secret   textinput.Model
	focus    int
	account  int
	purpose  int
	selected int
	spinner  spinner.Model
	view     flow.View
}

func NewWizard(ctl *flow.Controller) *WizardModel {
	token := textinput.New()
	token.Placeholder = "identity username"
	token.Prompt = "> "
	token.CharLimit = 128
	token.Focus()

	address := textinput.New()
	address.Placeholder = "name@example.com"
	address.Prompt = "Email:    "

	secret := textinput.New()
	secret.Prompt = "Password: "
	secret.EchoMode = textinput.EchoPassword
	secret.EchoCharacter = '*'

	sp := spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(infoStyle))

	return &WizardModel{
		ctl:     ctl,
		token:   token,
		address: address,
		secret:  secret,
		spinner: sp,
		view:    ctl.Active(),
	}
}

func (m *WizardModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *WizardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			return m, tea.Quit
		}
		return m.handleKey(msg)
	case flowDoneMsg:
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

func (m *WizardModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.ctl.Active() {
	case flow.ViewLogin:
		if key.Matches(msg, keys.Submit) {
			task, err := m.ctl.SubmitIdentity(m.token.Value())
			if err != nil {
				return m, nil
			}
			return m, m.start(task)
		}
		var cmd tea.Cmd
		m.token, cmd = m.token.Update(msg)
		return m, cmd

	case flow.ViewPendingVerification:
		switch {
		case key.Matches(msg, keys.Restart):
			m.ctl.Restart()
			return m, m.sync()
		case key.Matches(msg, keys.Retry):
			task, err := m.ctl.RetryLookup()
			if err != nil {
				return m, nil
			}
			return m, m.start(task)
		}

	case flow.ViewAddressSelection:
		addrs := m.ctl.Addresses()
		switch {
		case key.Matches(msg, keys.Up):
			if m.selected > 0 {
				m.selected--
			}
		case key.Matches(msg, keys.Down):
			if m.selected < len(addrs)-1 {
				m.selected++
			}
		case key.Matches(msg, keys.Submit):
			var pick string
			if m.selected < len(addrs) {
				pick = addrs[m.selected]
			}
			_ = m.ctl.SelectAddress(pick)
			return m, m.sync()
		case key.Matches(msg, keys.Register):
			_ = m.ctl.BeginRegistration()
			return m, m.sync()
		case key.Matches(msg, keys.Restart):
			m.ctl.Restart()
			return m, m.sync()
		}

	case flow.ViewRegistration:
		return m.handleRegistrationKey(msg)

	case flow.ViewSummary:
		switch {
		case key.Matches(msg, keys.Close):
			if m.ctl.Close() == nil {
				return m, tea.Quit
			}
		case key.Matches(msg, keys.Restart), key.Matches(msg, keys.Submit):
			m.ctl.Restart()
			return m, m.sync()
		}
	}
	return m, nil
}

func (m *WizardModel) handleRegistrationKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Restart):
		m.ctl.Restart()
		return m, m.sync()
	case key.Matches(msg, keys.FocusNext):
		return m, m.setFocus((m.focus + 1) % regFieldCount)
	case key.Matches(msg, keys.FocusPrev):
		return m, m.setFocus((m.focus + regFieldCount - 1) % regFieldCount)
	case key.Matches(msg, keys.Submit):
		task, err := m.ctl.SubmitRegistration(flow.RegistrationForm{
			Address:     m.address.Value(),
			Secret:      m.secret.Value(),
			AccountType: directory.AccountTypes()[m.account],
			Purpose:     directory.Purposes()[m.purpose],
		})
		if err != nil {
			return m, nil
		}
		return m, m.start(task)
	case key.Matches(msg, keys.Cycle) && m.focus >= regAccountType:
		step := 1
		if msg.Type == tea.KeyLeft {
			step = -1
		}
		if m.focus == regAccountType {
			m.account = wrap(m.account+step, len(directory.AccountTypes()))
		} else {
			m.purpose = wrap(m.purpose+step, len(directory.Purposes()))
		}
		return m, nil
	}

	var cmd tea.Cmd
	switch m.focus {
	case regAddress:
		m.address, cmd = m.address.Update(msg)
	case regSecret:
		m.secret, cmd = m.secret.Update(msg)
	}
	return m, cmd
}

func (m *WizardModel) setFocus(f int) tea.Cmd {
	m.focus = f
	m.address.Blur()
	m.secret.Blur()
	switch f {
	case regAddress:
		return m.address.Focus()
	case regSecret:
		return m.secret.Focus()
	}
	return nil
}

func (m *WizardModel) start(task flow.Task) tea.Cmd {
	return tea.Batch(runFlow(task), m.spinner.Tick, m.sync())
}

// sync resets per-view input state when the active view changes.
func (m *WizardModel) sync() tea.Cmd {
	v := m.ctl.Active()
	if v == m.view {
		return nil
	}
	m.view = v
	switch v {
	case flow.ViewLogin:
		m.token.Reset()
		m.address.Reset()
		m.secret.Reset()
		m.account, m.purpose, m.selected = 0, 0, 0
		return m.token.Focus()
	case flow.ViewAddressSelection:
		m.selected = 0
	case flow.ViewRegistration:
		m.token.Blur()
		return m.setFocus(regAddress)
	}
	return nil
}

func (m *WizardModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("RTIC identity verification"))
	b.WriteString("\n\n")

	switch m.ctl.Active() {
	case flow.ViewLogin:
		b.WriteString(labelStyle.Render("Sign in with your identity username"))
		b.WriteString("\n")
		b.WriteString(m.token.View())
		b.WriteString(errLine(m.ctl.Error(flow.ViewLogin)))
		b.WriteString("\n\n" + footer(keys.Submit, keys.Quit))

	case flow.ViewPendingVerification:
		if m.ctl.Pending() {
			fmt.Fprintf(&b, "%s Verifying %s...", m.spinner.View(), m.ctl.IdentityToken())
		} else {
			fmt.Fprintf(&b, "Verification for %s did not complete.", m.ctl.IdentityToken())
		}
		b.WriteString(errLine(m.ctl.Error(flow.ViewPendingVerification)))
		retry := keys.Retry
		retry.SetEnabled(m.ctl.CanRetry())
		b.WriteString("\n\n" + footer(retry, keys.Restart, keys.Quit))

	case flow.ViewAddressSelection:
		b.WriteString(labelStyle.Render("Choose the email address to use"))
		b.WriteString("\n")
		for i, addr := range m.ctl.Addresses() {
			line := addr
			if i == m.selected {
				line = selectedStyle.Render(addr)
			}
			b.WriteString("\n" + cursor(i, m.selected) + line)
		}
		b.WriteString(errLine(m.ctl.Error(flow.ViewAddressSelection)))
		b.WriteString("\n\n" + footer(keys.Up, keys.Down, withHelp(keys.Submit, "confirm"), keys.Register, keys.Restart))

	case flow.ViewRegistration:
		b.WriteString(labelStyle.Render("Register an email address for " + m.ctl.IdentityToken()))
		b.WriteString("\n\n")
		b.WriteString(m.address.View() + "\n")
		b.WriteString(m.secret.View() + "\n")
		b.WriteString(m.option("Account:  ", regAccountType, string(directory.AccountTypes()[m.account])) + "\n")
		b.WriteString(m.option("Purpose:  ", regPurpose, string(directory.Purposes()[m.purpose])))
		if m.ctl.Pending() {
			b.WriteString("\n\n" + m.spinner.View() + " Registering...")
		}
		b.WriteString(errLine(m.ctl.Error(flow.ViewRegistration)))
		b.WriteString("\n\n" + footer(keys.FocusNext, keys.Cycle, withHelp(keys.Submit, "register"), keys.Restart))

	case flow.ViewSummary:
		p, _ := m.ctl.Profile()
		rows := []string{
			successStyle.Render("Verification complete"),
			"",
			"Identity: " + p.IdentityToken,
			"Email:    " + p.Address,
		}
		if p.AccountType != "" {
			rows = append(rows, "Account:  "+string(p.AccountType), "Purpose:  "+string(p.Purpose))
		}
		b.WriteString(panelStyle.Render(strings.Join(rows, "\n")))
		closeKey := keys.Close
		closeKey.SetEnabled(m.ctl.AllowClose())
		b.WriteString("\n\n" + footer(withHelp(keys.Submit, "start over"), closeKey, keys.Quit))
	}
	return b.String() + "\n"
}

func (m *WizardModel) option(label string, field int, value string) string {
	v := "< " + value + " >"
	if m.focus == field {
		return selectedStyle.Render(label + v)
	}
	return label + v
}

func wrap(i, n int) int {
	return ((i % n) + n) % n
}
