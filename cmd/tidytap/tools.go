package main

import (
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/01001010sedano/TidyTapv1/internal/config"
	"github.com/01001010sedano/TidyTapv1/internal/database"
	"github.com/01001010sedano/TidyTapv1/internal/push"
	"github.com/01001010sedano/TidyTapv1/internal/store"
	"github.com/01001010sedano/TidyTapv1/internal/templates"
)

// withRawDB opens the configured database without applying migrations.
func withRawDB(fn func(*sql.DB) error) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	db, err := database.OpenWithoutMigrations(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	return fn(db)
}

func templatesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "templates",
		Short: "Manage task templates",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "seed <household-id>",
		Short: "Add the built-in templates to a household",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			db, err := database.Open(cfg.Database.Path)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()

			h, err := store.NewHouseholdStore(db).GetByID(args[0])
			if err != nil {
				return err
			}
			if h == nil {
				return fmt.Errorf("household %q not found", args[0])
			}
			n, err := store.NewTemplateStore(db).SeedDefaults(h.ID, h.ManagerID, templates.Defaults())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added %d templates to %s\n", n, h.Name)
			return nil
		},
	})
	return cmd
}

func vapidCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "vapid",
		Short: "Generate a VAPID key pair for web push",
		RunE: func(cmd *cobra.Command, args []string) error {
			pub, priv, err := push.GenerateVAPIDKeys()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "TIDYTAP_VAPID_PUBLIC_KEY=%s\n", pub)
			fmt.Fprintf(out, "TIDYTAP_VAPID_PRIVATE_KEY=%s\n", priv)
			return nil
		},
	}
}
