package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/01001010sedano/TidyTapv1/internal/backup"
	"github.com/01001010sedano/TidyTapv1/internal/config"
	"github.com/01001010sedano/TidyTapv1/internal/database"
	"github.com/01001010sedano/TidyTapv1/internal/logging"
	"github.com/01001010sedano/TidyTapv1/internal/metrics"
)

func backupConfig(cfg *config.Config) backup.Config {
	b := cfg.Backup
	return backup.Config{
		Endpoint:   b.Endpoint,
		Bucket:     b.Bucket,
		Region:     b.Region,
		AccessKey:  b.AccessKey,
		SecretKey:  b.SecretKey,
		Prefix:     b.Prefix,
		Passphrase: b.Passphrase,
		Interval:   b.Interval,
		Retention:  b.Retention,
	}
}

// newBackupManager returns nil when backups are not configured.
func newBackupManager(db *sql.DB, cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *backup.Manager {
	bc := backupConfig(cfg)
	if !bc.Enabled() {
		return nil
	}
	return backup.NewManager(db, backup.NewS3Client(bc), bc, logger.With("component", "backup"), m)
}

func withBackupManager(fn func(context.Context, *backup.Manager) error) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := logging.Setup(cfg.Log.Level, cfg.Log.Format)
	db, err := database.OpenWithoutMigrations(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	mgr := newBackupManager(db, cfg, logger, nil)
	if mgr == nil {
		return fmt.Errorf("backups are not configured: set backup bucket, access_key, secret_key and passphrase")
	}
	return fn(context.Background(), mgr)
}

func backupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Encrypted database snapshots in S3-compatible storage",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "run",
			Short: "Upload a snapshot now",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withBackupManager(func(ctx context.Context, m *backup.Manager) error {
					snap, err := m.Run(ctx)
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "uploaded %s (%d bytes)\n", snap.Key, snap.Size)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "List stored snapshots, newest first",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withBackupManager(func(ctx context.Context, m *backup.Manager) error {
					snaps, err := m.List(ctx)
					if err != nil {
						return err
					}
					printSnapshots(cmd.OutOrStdout(), snaps)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "prune",
			Short: "Delete snapshots older than the retention window",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withBackupManager(func(ctx context.Context, m *backup.Manager) error {
					n, err := m.Prune(ctx)
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "deleted %d snapshots\n", n)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "fetch <key> <dest>",
			Short: "Download and decrypt a snapshot to a file",
			Long: `Download and decrypt a snapshot to dest and verify its integrity.

To restore, stop the server and replace the database file with dest.`,
			Args: cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withBackupManager(func(ctx context.Context, m *backup.Manager) error {
					if err := m.Fetch(ctx, args[0], args[1]); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", args[1])
					return nil
				})
			},
		},
	)
	return cmd
}

func printSnapshots(w io.Writer, snaps []backup.Snapshot) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tSIZE\tCREATED")
	for _, s := range snaps {
		fmt.Fprintf(tw, "%s\t%d\t%s\n", s.Key, s.Size, s.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	tw.Flush()
}
