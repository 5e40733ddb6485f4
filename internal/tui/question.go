package tui

import (
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mind-engage/fungiquest/internal/lesson"
	"github.com/mind-engage/fungiquest/internal/schema"
)

type (
	questionLoadedMsg struct {
		q   schema.Question
		st  lesson.State
		err error
	}
	submittedMsg struct {
		out      lesson.Outcome
		answerID string
		err      error
	}
	revealedMsg struct {
		correctID string
		err       error
	}
	advancedMsg struct {
		st  lesson.State
		err error
	}
)

type questionScreen struct {
	deps     *Deps
	lessonID string

	q        schema.Question
	layout   lesson.Layout
	state    lesson.InProgress
	cursor   int
	chosen   string
	outcome  *lesson.Outcome
	revealed string
	loading  bool
	busy     bool
	err      string
}

func newQuestion(d *Deps, lessonID string) *questionScreen {
	return &questionScreen{deps: d, lessonID: lessonID, loading: true}
}

func (s *questionScreen) Title() string { return "Lesson" }

func (s *questionScreen) Hints() string {
	if s.answered() {
		return "enter continue · esc back to map"
	}
	return "←↑↓→ choose · enter submit · r reveal answer · esc back to map"
}

func (s *questionScreen) Init() tea.Cmd { return s.load() }

func (s *questionScreen) load() tea.Cmd {
	d, id := s.deps, s.lessonID
	return func() tea.Msg {
		st, err := d.Tracker.State(d.Ctx, id)
		if err != nil {
			return questionLoadedMsg{err: err}
		}
		q, err := d.Tracker.Current(d.Ctx, id)
		return questionLoadedMsg{q: q, st: st, err: err}
	}
}

func (s *questionScreen) answered() bool { return s.state.Submitted || s.state.Revealed }

func (s *questionScreen) correctID() string {
	if s.outcome != nil && s.outcome.CorrectAnswerID != "" {
		return s.outcome.CorrectAnswerID
	}
	return s.revealed
}

func (s *questionScreen) Update(msg tea.Msg) (Screen, tea.Cmd) {
	d := s.deps
	switch msg := msg.(type) {
	case questionLoadedMsg:
		s.loading, s.busy = false, false
		if errors.Is(msg.err, lesson.ErrNoSession) {
			return s, pop()
		}
		if msg.err != nil {
			s.err = "Could not load question: " + msg.err.Error()
			return s, nil
		}
		ip, ok := msg.st.(lesson.InProgress)
		if !ok {
			return s, pop()
		}
		s.q, s.state, s.layout = msg.q, ip, lesson.ChooseLayout(msg.q)
		s.cursor, s.chosen, s.outcome, s.revealed, s.err = 0, "", nil, "", ""
		if ip.Revealed {
			if ca, ok := msg.q.CorrectAnswer(); ok {
				s.revealed = ca.ID
			}
		}
		return s, nil

	case submittedMsg:
		s.busy = false
		if msg.err != nil {
			s.err = msg.err.Error()
			return s, nil
		}
		out := msg.out
		s.outcome, s.chosen, s.state = &out, msg.answerID, out.State
		return s, nil

	case revealedMsg:
		s.busy = false
		if msg.err != nil {
			s.err = msg.err.Error()
			return s, nil
		}
		s.revealed, s.state.Revealed = msg.correctID, true
		return s, nil

	case advancedMsg:
		s.busy = false
		if msg.err != nil {
			s.err = msg.err.Error()
			return s, nil
		}
		switch st := msg.st.(type) {
		case lesson.InProgress:
			s.state = st
			return s, s.load()
		case lesson.Passed, lesson.Failed:
			return s, replace(newFinish(d, st))
		default:
			return s, pop()
		}

	case tea.KeyMsg:
		if s.busy || s.loading {
			return s, nil
		}
		n := len(s.q.Answers)
		cols := s.layout.Columns(n)
		switch msg.String() {
		case "esc":
			return s, pop()
		case "left", "h":
			if s.cursor > 0 {
				s.cursor--
			}
		case "right", "l":
			if s.cursor < n-1 {
				s.cursor++
			}
		case "up", "k":
			if s.cursor-cols >= 0 {
				s.cursor -= cols
			}
		case "down", "j":
			if s.cursor+cols < n {
				s.cursor += cols
			}
		case "r":
			if !s.state.Submitted && !s.state.Revealed {
				s.busy = true
				return s, func() tea.Msg {
					id, err := d.Tracker.Reveal(d.Ctx, s.lessonID)
					return revealedMsg{id, err}
				}
			}
		case "n":
			if s.answered() {
				return s, s.advance()
			}
		case "enter", " ":
			if s.state.Submitted {
				return s, s.advance()
			}
			if n == 0 {
				if s.state.Revealed {
					return s, s.advance()
				}
				return s, nil
			}
			answerID := s.q.Answers[s.cursor].ID
			s.busy = true
			return s, func() tea.Msg {
				out, err := d.Tracker.Submit(d.Ctx, s.lessonID, answerID)
				return submittedMsg{out, answerID, err}
			}
		}
	}
	return s, nil
}

func (s *questionScreen) advance() tea.Cmd {
	d, id := s.deps, s.lessonID
	s.busy = true
	return func() tea.Msg {
		st, err := d.Tracker.Advance(d.Ctx, id)
		return advancedMsg{st, err}
	}
}

func (s *questionScreen) View(width, height int) string {
	if s.loading {
		return theme.Muted.Render("Loading question…")
	}
	var b strings.Builder
	b.WriteString(theme.Muted.Render(lesson.Describe(s.state)))
	b.WriteString(theme.Muted.Render(fmt.Sprintf(" · fail at %d wrong", lesson.FailThreshold(s.state.Total))) + "\n\n")

	if s.layout == lesson.LayoutImageQuestion && lesson.ValidImage(s.q.ImageURL) {
		b.WriteString(theme.Image.Render("[image: "+s.q.ImageURL+"]") + "\n")
	}
	b.WriteString(theme.Title.Render(s.q.Text) + "\n\n")
	b.WriteString(s.renderAnswers(width) + "\n")

	if s.outcome != nil {
		b.WriteString("\n" + s.renderResult() + "\n")
	} else if s.revealed != "" {
		b.WriteString("\n" + theme.Muted.Render("Answer revealed: no XP for this question.") + "\n")
	}
	if s.err != "" {
		b.WriteString("\n" + theme.Error.Render(s.err) + "\n")
	}
	return b.String()
}

func (s *questionScreen) renderAnswers(width int) string {
	n := len(s.q.Answers)
	if n == 0 {
		return theme.Muted.Render("(this question has no answers)")
	}
	cols := s.layout.Columns(n)
	cellWidth := max(20, width/cols-2)
	correct := s.correctID()

	cells := make([]string, 0, n)
	for i, a := range s.q.Answers {
		label := a.Text
		if s.layout == lesson.LayoutImageGrid && lesson.ValidImage(a.ImageURL) {
			label = "[image: " + a.ImageURL + "]"
			if a.Text != "" {
				label += "\n" + a.Text
			}
		}
		mark := "  "
		style := lipgloss.NewStyle()
		switch {
		case correct != "" && a.ID == correct:
			mark, style = "✓ ", theme.Correct
		case s.chosen != "" && a.ID == s.chosen:
			mark, style = "✗ ", theme.Wrong
		case i == s.cursor && !s.state.Submitted:
			mark, style = "› ", theme.Selected
		}
		cell := style.Render(mark + label)
		if s.layout == lesson.LayoutImageGrid {
			cell = theme.Card.Width(cellWidth).Render(cell)
		} else {
			cell = lipgloss.NewStyle().Width(cellWidth).Render(cell)
		}
		cells = append(cells, cell)
	}

	var rows []string
	for i := 0; i < len(cells); i += cols {
		end := min(i+cols, len(cells))
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cells[i:end]...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (s *questionScreen) renderResult() string {
	var b strings.Builder
	switch {
	case s.outcome.IsCorrect && s.state.Revealed:
		b.WriteString(theme.Correct.Render("Correct!") + theme.Muted.Render(" (revealed, no XP)"))
	case s.outcome.IsCorrect && s.outcome.Awarded > 0:
		b.WriteString(theme.Correct.Render("Correct!") + " " + theme.XP.Render(fmt.Sprintf("+%d XP", s.outcome.Awarded)))
	case s.outcome.IsCorrect:
		b.WriteString(theme.Correct.Render("Correct!"))
	default:
		b.WriteString(theme.Wrong.Render("Not quite."))
		if ca, ok := s.q.Answer(s.outcome.CorrectAnswerID); ok && ca.Text != "" {
			b.WriteString(" The answer was " + ca.Text + ".")
		}
	}
	if s.q.Explanation != "" {
		b.WriteString("\n" + theme.Muted.Render(s.q.Explanation))
	}
	return theme.Card.Render(b.String())
}
