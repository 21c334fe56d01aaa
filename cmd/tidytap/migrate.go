package main

import (
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/01001010sedano/TidyTapv1/internal/database"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database migrations",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withRawDB(func(db *sql.DB) error {
					if err := database.Migrate(db); err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the most recent migration",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withRawDB(func(db *sql.DB) error {
					if err := database.Rollback(db); err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), "rolled back one migration")
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show migration status",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withRawDB(func(db *sql.DB) error {
					return database.PrintStatus(db, cmd.OutOrStdout())
				})
			},
		},
	)
	return cmd
}
