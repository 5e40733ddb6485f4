package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mind-engage/fungiquest/internal/lesson"
)

// finishScreen shows a passed or failed attempt.
type finishScreen struct {
	deps  *Deps
	state lesson.State
	err   string
}

func newFinish(d *Deps, st lesson.State) *finishScreen {
	return &finishScreen{deps: d, state: st}
}

func (s *finishScreen) Init() tea.Cmd { return nil }

func (s *finishScreen) Title() string { return "Lesson complete" }

func (s *finishScreen) Hints() string {
	if _, ok := s.state.(lesson.Failed); ok {
		return "enter back to map · t try again"
	}
	return "enter back to map"
}

func (s *finishScreen) Update(msg tea.Msg) (Screen, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok {
		switch k.String() {
		case "enter", "esc", " ":
			return s, pop()
		case "t":
			if f, ok := s.state.(lesson.Failed); ok {
				d := s.deps
				return s, func() tea.Msg {
					_, err := d.Tracker.Start(d.Ctx, f.LessonID)
					return retryMsg{f.LessonID, err}
				}
			}
		}
	}
	if m, ok := msg.(retryMsg); ok {
		if m.err != nil {
			s.err = "Could not restart: " + m.err.Error()
			return s, nil
		}
		return s, replace(newQuestion(s.deps, m.lessonID))
	}
	return s, nil
}

type retryMsg struct {
	lessonID string
	err      error
}

func (s *finishScreen) View(width, height int) string {
	out := s.summary()
	if s.err != "" {
		out += "\n" + theme.Error.Render(s.err)
	}
	return out
}

func (s *finishScreen) summary() string {
	switch st := s.state.(type) {
	case lesson.Passed:
		body := theme.Correct.Render("Lesson passed! 🎉") + "\n\n" +
			fmt.Sprintf("You answered all %d questions and earned ", st.Total) +
			theme.XP.Render(fmt.Sprintf("%d XP", st.XP)) + "."
		return theme.Card.Render(body)
	case lesson.Failed:
		body := theme.Wrong.Render("Lesson failed") + "\n\n" +
			fmt.Sprintf("%d wrong answers reached the limit of %d for this lesson.\n", st.Wrong, st.Threshold) +
			"No XP was saved. Press t to try again."
		return theme.Card.Render(body)
	default:
		return lesson.Describe(s.state)
	}
}
