package tui

import (
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mind-engage/fungiquest/internal/lesson"
)

type (
	mapLoadedMsg struct {
		path     []lesson.Stop
		estimate int
		err      error
	}
	sessionStartedMsg struct {
		lessonID string
		err      error
	}
)

type lessonMapScreen struct {
	deps     *Deps
	path     []lesson.Stop
	cursor   int
	estimate int
	loading  bool
	err      string
}

func newLessonMap(d *Deps) *lessonMapScreen {
	return &lessonMapScreen{deps: d, loading: true}
}

func (s *lessonMapScreen) Title() string { return "Lesson path" }

func (s *lessonMapScreen) Hints() string {
	return "↑/↓ move · enter play · r restart · p profile · b leaderboard · o sign out · q quit"
}

func (s *lessonMapScreen) Init() tea.Cmd { return s.load() }

func (s *lessonMapScreen) load() tea.Cmd {
	d := s.deps
	return func() tea.Msg {
		ls, done, err := d.Content.LessonMap(d.Ctx)
		if err != nil {
			return mapLoadedMsg{err: err}
		}
		path := lesson.BuildPath(ls, done)
		est := 0
		if i := lesson.CurrentIndex(path); i >= 0 {
			est = d.Content.EstimateLessonXP(d.Ctx, path[i].Lesson.ID)
		}
		return mapLoadedMsg{path: path, estimate: est}
	}
}

// play resumes a stored attempt or starts a fresh one.
func (s *lessonMapScreen) play(lessonID string) tea.Cmd {
	d := s.deps
	return func() tea.Msg {
		st, err := d.Tracker.State(d.Ctx, lessonID)
		if err != nil {
			return sessionStartedMsg{lessonID, err}
		}
		if _, ok := st.(lesson.InProgress); ok {
			return sessionStartedMsg{lessonID: lessonID}
		}
		_, err = d.Tracker.Start(d.Ctx, lessonID)
		return sessionStartedMsg{lessonID, err}
	}
}

// restart discards any stored attempt and starts over from the first question.
func (s *lessonMapScreen) restart(lessonID string) tea.Cmd {
	d := s.deps
	return func() tea.Msg {
		if err := d.Tracker.Abandon(d.Ctx, lessonID); err != nil {
			return sessionStartedMsg{lessonID, err}
		}
		_, err := d.Tracker.Start(d.Ctx, lessonID)
		return sessionStartedMsg{lessonID, err}
	}
}

func (s *lessonMapScreen) Update(msg tea.Msg) (Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case focusMsg:
		s.loading = true
		return s, s.load()
	case mapLoadedMsg:
		s.loading = false
		if msg.err != nil {
			s.err = "Could not load lessons: " + msg.err.Error()
			return s, nil
		}
		s.err = ""
		s.path, s.estimate = msg.path, msg.estimate
		s.cursor = max(lesson.CurrentIndex(s.path), 0)
		return s, nil
	case sessionStartedMsg:
		if errors.Is(msg.err, lesson.ErrNoQuestions) {
			s.err = "This lesson has no questions yet."
			return s, nil
		}
		if msg.err != nil {
			s.err = "Could not start lesson: " + msg.err.Error()
			return s, nil
		}
		return s, push(newQuestion(s.deps, msg.lessonID))
	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if s.cursor > 0 {
				s.cursor--
			}
		case "down", "j":
			if s.cursor < len(s.path)-1 {
				s.cursor++
			}
		case "enter", " ", "r":
			if s.cursor < len(s.path) && s.path[s.cursor].Playable() {
				s.err = ""
				if msg.String() == "r" {
					return s, s.restart(s.path[s.cursor].Lesson.ID)
				}
				return s, s.play(s.path[s.cursor].Lesson.ID)
			}
			s.err = "Finish the current lesson to unlock this one."
		case "p":
			return s, push(newProfile(s.deps))
		case "b":
			return s, push(newLeaderboard(s.deps))
		case "o":
			s.deps.Auth.SignOut()
			return s, reset(newLogin(s.deps))
		case "q":
			return s, tea.Quit
		}
	}
	return s, nil
}

func (s *lessonMapScreen) View(width, height int) string {
	if s.loading && s.path == nil {
		return theme.Muted.Render("Loading lessons…")
	}
	var b strings.Builder
	if len(s.path) == 0 && s.err == "" {
		b.WriteString(theme.Muted.Render("No lessons yet."))
	}
	for i, st := range s.path {
		line := fmt.Sprintf("%s %s", st.Marker.Symbol(), st.Lesson.Title)
		if st.Lesson.Icon != "" {
			line = fmt.Sprintf("%s %s %s", st.Marker.Symbol(), st.Lesson.Icon, st.Lesson.Title)
		}
		switch st.Marker {
		case lesson.MarkerCompleted:
			line = theme.Correct.Render(line)
		case lesson.MarkerCurrent:
			line = theme.XP.Render(line) + theme.Muted.Render(fmt.Sprintf("  ~%d XP", s.estimate))
		default:
			line = theme.Muted.Render(line)
		}
		cursor := "  "
		if i == s.cursor {
			cursor = theme.Selected.Render("› ")
		}
		b.WriteString(cursor + line + "\n")
		if i < len(s.path)-1 {
			b.WriteString(theme.Muted.Render("   │") + "\n")
		}
	}
	if s.cursor < len(s.path) {
		if desc := s.path[s.cursor].Lesson.Description; desc != "" {
			b.WriteString("\n" + theme.Muted.Render(desc) + "\n")
		}
	}
	if s.err != "" {
		b.WriteString("\n" + theme.Error.Render(s.err) + "\n")
	}
	return b.String()
}
