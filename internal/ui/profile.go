package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/betza/betza/internal/gateway"
	"github.com/betza/betza/internal/prefs"
	"github.com/betza/betza/internal/toast"
)

// profileEdit identifies which account form, if any, owns the keyboard.
type profileEdit int

const (
	profileEditNone profileEdit = iota
	profileEditName
	profileEditPassword
)

type profileState struct {
	biometric bool
	profile   gateway.Profile
	editing   profileEdit
	name      textinput.Model
	password  [2]textinput.Model // new password, confirm
	passFocus int
	busy      bool
}

func (m Model) handleProfileKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.screen = screenHome
		return m, nil

	case "e":
		input := textinput.New()
		input.Placeholder = "full name"
		input.CharLimit = 80
		input.SetValue(m.profile.profile.FullName)
		input.Focus()
		m.profile.name = input
		m.profile.editing = profileEditName
		return m, textinput.Blink

	case "P":
		password := textinput.New()
		password.Placeholder = "new password"
		password.EchoMode = textinput.EchoPassword
		password.CharLimit = 128
		password.Focus()

		confirm := textinput.New()
		confirm.Placeholder = "confirm new password"
		confirm.EchoMode = textinput.EchoPassword
		confirm.CharLimit = 128

		m.profile.password = [2]textinput.Model{password, confirm}
		m.profile.passFocus = 0
		m.profile.editing = profileEditPassword
		return m, textinput.Blink

	case "b":
		return m, setBiometric(m.session, !m.profile.biometric)

	case "T":
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.styles = m.theme.Styles()
		if m.prefsPath != "" {
			_ = prefs.Save(m.prefsPath, prefs.Prefs{Theme: m.theme.Name})
		}
		return m, nil

	case "s":
		return m, signOut(m.ctx, m.session)
	}
	return m, nil
}

func (m Model) handleProfileEditKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.profile.editing = profileEditNone
		m.profile.busy = false
		return m, nil

	case "tab", "down":
		if m.profile.editing == profileEditPassword {
			m.setPasswordFocus((m.profile.passFocus + 1) % 2)
			return m, textinput.Blink
		}

	case "shift+tab", "up":
		if m.profile.editing == profileEditPassword {
			m.setPasswordFocus((m.profile.passFocus + 1) % 2)
			return m, textinput.Blink
		}

	case "enter":
		return m.submitProfileEdit()
	}

	if m.profile.busy {
		return m, nil
	}
	var cmd tea.Cmd
	switch m.profile.editing {
	case profileEditName:
		m.profile.name, cmd = m.profile.name.Update(msg)
	case profileEditPassword:
		i := m.profile.passFocus
		m.profile.password[i], cmd = m.profile.password[i].Update(msg)
	}
	return m, cmd
}

func (m *Model) setPasswordFocus(i int) {
	for idx := range m.profile.password {
		if idx == i {
			m.profile.password[idx].Focus()
		} else {
			m.profile.password[idx].Blur()
		}
	}
	m.profile.passFocus = i
}

func (m Model) submitProfileEdit() (tea.Model, tea.Cmd) {
	if m.profile.busy {
		return m, nil
	}
	switch m.profile.editing {
	case profileEditName:
		name := strings.TrimSpace(m.profile.name.Value())
		if name == "" {
			return m, m.showToast("Enter your name", toast.Error)
		}
		m.profile.busy = true
		return m, saveFullName(m.ctx, m.shop, name)

	case profileEditPassword:
		if m.profile.passFocus == 0 {
			m.setPasswordFocus(1)
			return m, textinput.Blink
		}
		m.profile.busy = true
		return m, changePassword(m.ctx, m.session,
			m.profile.password[0].Value(), m.profile.password[1].Value())
	}
	return m, nil
}

func (m Model) renderProfile() string {
	var b strings.Builder
	b.WriteString(m.styles.AccentText.Render("Profile"))
	b.WriteString("\n\n")

	if u := m.session.User(); u != nil {
		b.WriteString(m.styles.Text.Render("Signed in as " + u.Email))
		b.WriteString("\n")
	}
	name := m.profile.profile.FullName
	if name == "" {
		name = "(not set)"
	}
	b.WriteString(m.styles.Text.Render("Name: " + name))
	b.WriteString("\n\n")

	switch m.profile.editing {
	case profileEditName:
		b.WriteString(m.profile.name.View())
		b.WriteString("\n")
	case profileEditPassword:
		b.WriteString(m.profile.password[0].View())
		b.WriteString("\n")
		b.WriteString(m.profile.password[1].View())
		b.WriteString("\n")
	default:
		fingerprint := "off"
		if m.profile.biometric {
			fingerprint = "on"
		}
		b.WriteString(m.styles.Text.Render("  e  Edit name"))
		b.WriteString("\n")
		b.WriteString(m.styles.Text.Render("  P  Change password"))
		b.WriteString("\n")
		b.WriteString(m.styles.Text.Render("  b  Fingerprint sign-in: " + fingerprint))
		b.WriteString("\n")
		b.WriteString(m.styles.Text.Render("  T  Theme: " + m.theme.Name))
		b.WriteString("\n")
		b.WriteString(m.styles.Text.Render("  s  Sign out"))
		b.WriteString("\n")
	}
	if m.profile.busy {
		b.WriteString("\n")
		b.WriteString(m.spin.View())
		b.WriteString(m.styles.MutedText.Render(" Working..."))
	}
	return m.styles.Panel.Render(b.String())
}
