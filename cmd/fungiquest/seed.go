package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mind-engage/fungiquest/internal/seed"
)

var (
	seedAdminUser string
	seedAdminPass string
)

var seedCmd = &cobra.Command{
	Use:   "seed [file.yaml]",
	Short: "Upload lesson content (the built-in starter set when no file is given)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			f   seed.File
			err error
		)
		if len(args) == 1 {
			fh, err := os.Open(args[0])
			if err != nil {
				return err
			}
			f, err = seed.Parse(fh)
			fh.Close()
			if err != nil {
				return err
			}
		} else if f, err = seed.Builtin(); err != nil {
			return err
		}

		if seedAdminPass == "" {
			seedAdminPass = os.Getenv("FUNGIQUEST_ADMIN_PASSWORD")
		}
		if seedAdminPass == "" {
			return fmt.Errorf("admin password required (--admin-password or FUNGIQUEST_ADMIN_PASSWORD)")
		}

		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		ctx := ctxOf(cmd)
		if _, err := e.backend.SignInWithPassword(ctx, seedAdminUser, seedAdminPass); err != nil {
			return fmt.Errorf("admin sign-in: %w", err)
		}
		res, err := seed.Apply(ctx, e.backend, f.Records())
		if err != nil {
			return err
		}
		e.log.Info("content seeded", "lessons", res.Lessons, "questions", res.Questions, "answers", res.Answers)
		fmt.Fprintf(cmd.OutOrStdout(), "seeded %d lessons, %d questions, %d answers\n", res.Lessons, res.Questions, res.Answers)
		return nil
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedAdminUser, "admin-user", "admin", "Admin account on the gateway")
	seedCmd.Flags().StringVar(&seedAdminPass, "admin-password", "", "Admin password (or FUNGIQUEST_ADMIN_PASSWORD)")
}
