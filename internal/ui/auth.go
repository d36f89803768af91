package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/betza/betza/internal/toast"
)

// authForm holds the sign-in / sign-up inputs. The confirm field is only
// shown on the sign-up screen.
type authForm struct {
	inputs  [3]textinput.Model // email, password, confirm
	focus   int
	busy    bool
	errText string
}

func newAuthForm() authForm {
	var f authForm

	email := textinput.New()
	email.Placeholder = "email"
	email.CharLimit = 254
	email.Focus()

	password := textinput.New()
	password.Placeholder = "password"
	password.EchoMode = textinput.EchoPassword
	password.CharLimit = 128

	confirm := textinput.New()
	confirm.Placeholder = "confirm password"
	confirm.EchoMode = textinput.EchoPassword
	confirm.CharLimit = 128

	f.inputs = [3]textinput.Model{email, password, confirm}
	return f
}

// fieldCount is how many inputs the current screen uses.
func (m Model) fieldCount() int {
	if m.screen == screenSignUp {
		return 3
	}
	return 2
}

func (m Model) handleGetStartedKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.screen = screenSignIn
		m.form = newAuthForm()
		return m, textinput.Blink
	case "s":
		m.screen = screenSignUp
		m.form = newAuthForm()
		return m, textinput.Blink
	case "g":
		return m, beginOAuth(m.session, m.provider, m.redirectURL)
	case "b":
		if !m.session.BiometricEnabled() {
			return m, m.showToast("Fingerprint sign-in is not set up", toast.Error)
		}
		m.form.busy = true
		return m, resumeWithBiometrics(m.ctx, m.session)
	}
	return m, nil
}

func (m Model) handleAuthFormKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.screen = screenGetStarted
		m.form = newAuthForm()
		return m, nil

	case "tab", "down":
		m.setFocus((m.form.focus + 1) % m.fieldCount())
		return m, textinput.Blink

	case "shift+tab", "up":
		m.setFocus((m.form.focus - 1 + m.fieldCount()) % m.fieldCount())
		return m, textinput.Blink

	case "enter":
		if m.form.focus < m.fieldCount()-1 {
			m.setFocus(m.form.focus + 1)
			return m, textinput.Blink
		}
		return m.submitAuthForm()
	}

	if m.form.busy {
		return m, nil
	}
	var cmd tea.Cmd
	m.form.inputs[m.form.focus], cmd = m.form.inputs[m.form.focus].Update(msg)
	return m, cmd
}

func (m *Model) setFocus(i int) {
	for idx := range m.form.inputs {
		if idx == i {
			m.form.inputs[idx].Focus()
		} else {
			m.form.inputs[idx].Blur()
		}
	}
	m.form.focus = i
}

func (m Model) submitAuthForm() (tea.Model, tea.Cmd) {
	if m.form.busy {
		return m, nil
	}
	email := strings.TrimSpace(m.form.inputs[0].Value())
	password := m.form.inputs[1].Value()
	m.form.busy = true
	m.form.errText = ""
	if m.screen == screenSignUp {
		confirm := m.form.inputs[2].Value()
		return m, signUp(m.ctx, m.session, email, password, confirm)
	}
	return m, signIn(m.ctx, m.session, email, password)
}

func (m Model) renderGetStarted() string {
	var b strings.Builder
	b.WriteString(m.styles.AccentText.Render("Welcome to Betza"))
	b.WriteString("\n\n")
	b.WriteString(m.styles.Text.Render("Browse the catalog, fill your cart, and check out"))
	b.WriteString("\n\n")
	b.WriteString(m.styles.Text.Render("  enter  Sign in with email"))
	b.WriteString("\n")
	b.WriteString(m.styles.Text.Render("  s      Create an account"))
	b.WriteString("\n")
	b.WriteString(m.styles.Text.Render("  g      Continue with Google"))
	b.WriteString("\n")
	if m.session.BiometricEnabled() {
		b.WriteString(m.styles.Text.Render("  b      Sign in with fingerprint"))
		b.WriteString("\n")
	}
	if m.oauthURL != "" {
		b.WriteString("\n")
		b.WriteString(m.styles.MutedText.Render("Open this link to finish signing in:"))
		b.WriteString("\n")
		b.WriteString(m.styles.InfoText.Render(m.oauthURL))
		b.WriteString("\n")
	}
	if m.form.busy {
		b.WriteString("\n")
		b.WriteString(m.spin.View())
		b.WriteString(m.styles.MutedText.Render(" Checking fingerprint..."))
	}
	return m.styles.Panel.Render(b.String())
}

func (m Model) renderAuthForm() string {
	var b strings.Builder
	if m.screen == screenSignUp {
		b.WriteString(m.styles.AccentText.Render("Create account"))
	} else {
		b.WriteString(m.styles.AccentText.Render("Sign in"))
	}
	b.WriteString("\n\n")
	for i := 0; i < m.fieldCount(); i++ {
		b.WriteString(m.form.inputs[i].View())
		b.WriteString("\n")
	}
	if m.form.errText != "" {
		b.WriteString("\n")
		b.WriteString(m.styles.DangerText.Render(m.form.errText))
		b.WriteString("\n")
	}
	if m.form.busy {
		b.WriteString("\n")
		b.WriteString(m.spin.View())
		b.WriteString(m.styles.MutedText.Render(" Working..."))
	}
	return m.styles.FocusPanel.Render(b.String())
}
