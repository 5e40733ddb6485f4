package main

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/mind-engage/fungiquest/internal/lesson"
	"github.com/mind-engage/fungiquest/internal/localstore"
	"github.com/mind-engage/fungiquest/internal/tui"
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Start the interactive lesson path",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		// Lesson sessions live only as long as this process.
		tabs := localstore.NewMemory()
		app := tui.New(&tui.Deps{
			Ctx:     ctxOf(cmd),
			Auth:    e.backend,
			Content: e.content,
			Tracker: lesson.NewTracker(e.content, tabs, e.log.With("component", "lesson")),
			Log:     e.log,
		}, e.backend.UserID() != "")

		_, err = tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctxOf(cmd))).Run()
		return err
	},
}
