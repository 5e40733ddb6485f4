package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mind-engage/fungiquest/internal/lesson"
)

var lessonsCmd = &cobra.Command{
	Use:   "lessons",
	Short: "Print the lesson path and your progress",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		ctx := ctxOf(cmd)
		ls, done, err := e.content.LessonMap(ctx)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, st := range lesson.BuildPath(ls, done) {
			line := fmt.Sprintf("%s %-28s %s", st.Marker.Symbol(), st.Lesson.Title, st.Marker)
			if st.Marker == lesson.MarkerCurrent {
				line += fmt.Sprintf("  (~%d XP)", e.content.EstimateLessonXP(ctx, st.Lesson.ID))
			}
			fmt.Fprintln(out, line)
		}
		return nil
	},
}
