package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	logFile    string
	passphrase string
)

var rootCmd = &cobra.Command{
	Use:   "fungiquest",
	Short: "Learn to identify mushrooms, one lesson at a time",
	Long: `FungiQuest is a gamified mushroom-identification course for the terminal.

Work through the lesson path, answer multiple-choice questions to earn XP,
and climb the leaderboard. Run without arguments to start playing.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return playCmd.RunE(cmd, args)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: $XDG_CONFIG_HOME/fungiquest/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Write logs here (default: fungiquest.log in the state dir)")
	rootCmd.PersistentFlags().StringVar(&passphrase, "passphrase", "", "Sign in with a passphrase before running the command")

	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(lessonsCmd)
	rootCmd.AddCommand(leaderboardCmd)
	rootCmd.AddCommand(seedCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
