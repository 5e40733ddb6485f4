package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/mind-engage/fungiquest/internal/content"
	"github.com/mind-engage/fungiquest/internal/schema"
)

type (
	profileLoadedMsg struct {
		p   schema.Profile
		err error
	}
	profileSavedMsg struct {
		p   schema.Profile
		err error
	}
)

var profileFields = []string{"Display name", "Bio", "Country", "Region"}

type profileScreen struct {
	deps    *Deps
	profile schema.Profile
	inputs  []textinput.Model
	focus   int
	loading bool
	saving  bool
	saved   bool
	err     string
}

func newProfile(d *Deps) *profileScreen {
	s := &profileScreen{deps: d, loading: true}
	for _, f := range profileFields {
		in := newInput(strings.ToLower(f), false)
		s.inputs = append(s.inputs, in)
	}
	s.inputs[0].Focus()
	return s
}

func (s *profileScreen) Title() string { return "Profile" }

func (s *profileScreen) Hints() string { return "tab next field · ctrl+s save · esc back" }

func (s *profileScreen) Init() tea.Cmd {
	d := s.deps
	return func() tea.Msg {
		p, err := d.Content.GetProfile(d.Ctx)
		return profileLoadedMsg{p, err}
	}
}

func (s *profileScreen) edit() content.ProfileEdit {
	v := func(i int) string { return strings.TrimSpace(s.inputs[i].Value()) }
	return content.ProfileEdit{DisplayName: v(0), Bio: v(1), Country: v(2), Region: v(3)}
}

func (s *profileScreen) fill(p schema.Profile) {
	s.profile = p
	for i, v := range []string{p.DisplayName, p.Bio, p.Country, p.Region} {
		s.inputs[i].SetValue(v)
	}
}

func (s *profileScreen) Update(msg tea.Msg) (Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case profileLoadedMsg:
		s.loading = false
		if msg.err != nil {
			s.err = "Could not load profile: " + msg.err.Error()
			return s, nil
		}
		s.fill(msg.p)
		return s, nil
	case profileSavedMsg:
		s.saving = false
		if msg.err != nil {
			s.err = "Could not save: " + msg.err.Error()
			return s, nil
		}
		s.fill(msg.p)
		s.saved, s.err = true, ""
		return s, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return s, pop()
		case "tab", "down":
			s.move(1)
			return s, nil
		case "shift+tab", "up":
			s.move(-1)
			return s, nil
		case "ctrl+s":
			if s.saving || s.loading {
				return s, nil
			}
			s.saving, s.saved = true, false
			d, e := s.deps, s.edit()
			return s, func() tea.Msg {
				p, err := d.Content.SaveProfile(d.Ctx, e)
				return profileSavedMsg{p, err}
			}
		}
		s.saved = false
	}
	var cmd tea.Cmd
	s.inputs[s.focus], cmd = s.inputs[s.focus].Update(msg)
	return s, cmd
}

func (s *profileScreen) move(delta int) {
	s.inputs[s.focus].Blur()
	n := len(s.inputs)
	s.focus = ((s.focus+delta)%n + n) % n
	s.inputs[s.focus].Focus()
}

func (s *profileScreen) View(width, height int) string {
	if s.loading {
		return theme.Muted.Render("Loading profile…")
	}
	var b strings.Builder
	b.WriteString(theme.XP.Render(fmt.Sprintf("Total XP: %d", s.profile.TotalXP)) + "\n")
	if len(s.profile.Badges) > 0 {
		b.WriteString("Badges: " + strings.Join(s.profile.Badges, ", ") + "\n")
	}
	if s.deps.Content.UserID() == "" {
		b.WriteString(theme.Muted.Render("Signed out: changes are kept on this device only.") + "\n")
	}
	b.WriteString("\n")
	for i, in := range s.inputs {
		b.WriteString(fmt.Sprintf("%-13s %s\n", profileFields[i]+":", in.View()))
	}
	switch {
	case s.saving:
		b.WriteString("\n" + theme.Muted.Render("Saving…"))
	case s.saved:
		b.WriteString("\n" + theme.Correct.Render("Saved."))
	}
	if s.err != "" {
		b.WriteString("\n" + theme.Error.Render(s.err))
	}
	return b.String()
}
