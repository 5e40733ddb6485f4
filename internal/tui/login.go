package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

type loginMode int

const (
	modePassword loginMode = iota
	modePassphrase
	modeMagicLink
)

func (m loginMode) String() string {
	switch m {
	case modePassphrase:
		return "passphrase"
	case modeMagicLink:
		return "magic link"
	default:
		return "email & password"
	}
}

type (
	signedInMsg struct{ err error }
	linkSentMsg struct{ err error }
)

type loginScreen struct {
	deps     *Deps
	mode     loginMode
	inputs   []textinput.Model
	focus    int
	linkSent bool
	busy     bool
	err      string
	info     string
}

func newLogin(d *Deps) *loginScreen {
	s := &loginScreen{deps: d}
	s.build()
	return s
}

func newInput(placeholder string, secret bool) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = 256
	ti.Width = 40
	if secret {
		ti.EchoMode = textinput.EchoPassword
		ti.EchoCharacter = '•'
	}
	return ti
}

func (s *loginScreen) build() {
	switch {
	case s.mode == modePassword:
		s.inputs = []textinput.Model{newInput("email", false), newInput("password", true)}
	case s.mode == modePassphrase:
		s.inputs = []textinput.Model{newInput("secret passphrase", true)}
	case s.mode == modeMagicLink && s.linkSent:
		s.inputs = []textinput.Model{newInput("token from the sign-in link", false)}
	default:
		s.inputs = []textinput.Model{newInput("email", false)}
	}
	s.focus = 0
	s.inputs[0].Focus()
}

func (s *loginScreen) Init() tea.Cmd { return textinput.Blink }

func (s *loginScreen) Title() string { return "Sign in" }

func (s *loginScreen) Hints() string {
	return "tab next field · ctrl+l switch method · enter submit · esc continue as guest"
}

// canSubmit is false while a request is in flight or any field is blank.
func (s *loginScreen) canSubmit() bool {
	if s.busy {
		return false
	}
	for _, in := range s.inputs {
		if strings.TrimSpace(in.Value()) == "" {
			return false
		}
	}
	return true
}

func (s *loginScreen) value(i int) string { return strings.TrimSpace(s.inputs[i].Value()) }

func (s *loginScreen) setFocus(i int) {
	n := len(s.inputs)
	s.focus = ((i % n) + n) % n
	for j := range s.inputs {
		if j == s.focus {
			s.inputs[j].Focus()
		} else {
			s.inputs[j].Blur()
		}
	}
}

func (s *loginScreen) submit() tea.Cmd {
	d := s.deps
	switch {
	case s.mode == modePassword:
		email, pw := s.value(0), s.inputs[1].Value()
		return func() tea.Msg {
			_, err := d.Auth.SignInWithPassword(d.Ctx, email, pw)
			return signedInMsg{err}
		}
	case s.mode == modePassphrase:
		phrase := s.value(0)
		return func() tea.Msg {
			_, err := d.Auth.SignInWithPassphrase(d.Ctx, phrase)
			return signedInMsg{err}
		}
	case s.linkSent:
		tok := s.value(0)
		return func() tea.Msg {
			_, err := d.Auth.VerifyMagicLink(d.Ctx, tok)
			return signedInMsg{err}
		}
	default:
		email := s.value(0)
		return func() tea.Msg { return linkSentMsg{d.Auth.RequestMagicLink(d.Ctx, email)} }
	}
}

func (s *loginScreen) Update(msg tea.Msg) (Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case signedInMsg:
		s.busy = false
		if msg.err != nil {
			s.deps.Log.Warn("sign-in failed", "method", s.mode.String(), "error", msg.err)
			s.err = "Sign-in failed: " + msg.err.Error()
			return s, nil
		}
		return s, reset(newLessonMap(s.deps))
	case linkSentMsg:
		s.busy = false
		if msg.err != nil {
			s.err = "Could not send link: " + msg.err.Error()
			return s, nil
		}
		s.linkSent, s.err = true, ""
		s.info = "Check your email for the sign-in link and paste its token."
		s.build()
		return s, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return s, reset(newLessonMap(s.deps))
		case "ctrl+l":
			s.mode = (s.mode + 1) % 3
			s.linkSent, s.err, s.info = false, "", ""
			s.build()
			return s, nil
		case "tab", "down":
			s.setFocus(s.focus + 1)
			return s, nil
		case "shift+tab", "up":
			s.setFocus(s.focus - 1)
			return s, nil
		case "enter":
			if !s.canSubmit() {
				return s, nil
			}
			s.busy, s.err = true, ""
			return s, s.submit()
		}
	}
	var cmd tea.Cmd
	s.inputs[s.focus], cmd = s.inputs[s.focus].Update(msg)
	return s, cmd
}

func (s *loginScreen) View(width, height int) string {
	var b strings.Builder
	b.WriteString(theme.Title.Render("Welcome, forager!") + "\n")
	b.WriteString(theme.Muted.Render("Method: "+s.mode.String()) + "\n\n")
	for _, in := range s.inputs {
		b.WriteString(in.View() + "\n")
	}
	b.WriteString("\n")
	label := "[ Sign in ]"
	if s.mode == modeMagicLink && !s.linkSent {
		label = "[ Send link ]"
	}
	switch {
	case s.busy:
		b.WriteString(theme.Muted.Render("Working…"))
	case s.canSubmit():
		b.WriteString(theme.Selected.Render(label))
	default:
		b.WriteString(theme.Muted.Render(label))
	}
	b.WriteString("\n")
	if s.info != "" {
		b.WriteString(theme.Muted.Render(s.info) + "\n")
	}
	if s.err != "" {
		b.WriteString(theme.Error.Render(s.err) + "\n")
	}
	return b.String()
}
