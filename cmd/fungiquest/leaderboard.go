package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var leaderboardLimit int

var leaderboardCmd = &cobra.Command{
	Use:   "leaderboard",
	Short: "Show the top foragers by XP",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		out := cmd.OutOrStdout()
		for i, r := range e.content.Leaderboard(ctxOf(cmd), leaderboardLimit) {
			fmt.Fprintf(out, "%3d. %-28s %6d XP\n", i+1, r.DisplayName, r.TotalXP)
		}
		return nil
	},
}

func init() {
	leaderboardCmd.Flags().IntVarP(&leaderboardLimit, "limit", "n", 20, "Number of rows")
}
