package tui

import (
	"strconv"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/mind-engage/fungiquest/internal/content"
)

const leaderboardSize = 20

type leaderboardMsg struct{ rows []content.LeaderboardRow }

type leaderboardScreen struct {
	deps    *Deps
	table   table.Model
	rows    []content.LeaderboardRow
	loading bool
}

func newLeaderboard(d *Deps) *leaderboardScreen {
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "#", Width: 4},
			{Title: "Forager", Width: 28},
			{Title: "XP", Width: 10},
		}),
		table.WithFocused(true),
		table.WithHeight(leaderboardSize+1),
		table.WithWidth(48),
	)
	return &leaderboardScreen{deps: d, table: t, loading: true}
}

func (s *leaderboardScreen) Title() string { return "Leaderboard" }

func (s *leaderboardScreen) Hints() string { return "↑/↓ scroll · esc back" }

func (s *leaderboardScreen) Init() tea.Cmd {
	d := s.deps
	return func() tea.Msg { return leaderboardMsg{d.Content.Leaderboard(d.Ctx, leaderboardSize)} }
}

func (s *leaderboardScreen) Update(msg tea.Msg) (Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case leaderboardMsg:
		s.loading, s.rows = false, msg.rows
		trs := make([]table.Row, 0, len(msg.rows))
		for i, r := range msg.rows {
			name := r.DisplayName
			if name == "" {
				name = "Anonymous forager"
			}
			trs = append(trs, table.Row{strconv.Itoa(i + 1), name, strconv.Itoa(r.TotalXP)})
		}
		s.table.SetRows(trs)
		return s, nil
	case tea.KeyMsg:
		if msg.String() == "esc" || msg.String() == "q" {
			return s, pop()
		}
	}
	var cmd tea.Cmd
	s.table, cmd = s.table.Update(msg)
	return s, cmd
}

func (s *leaderboardScreen) View(width, height int) string {
	if s.loading {
		return theme.Muted.Render("Loading leaderboard…")
	}
	return s.table.View()
}
