package commands

import (
	"errors"
	"os"

	"github.com/spf13/cobra"
)

var errNoBackupBucket = errors.New("no S3 bucket configured, set state.s3_bucket in the config file")

func newBackupsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backups",
		Short: "Work with state snapshots mirrored to S3",
	}

	cmd.AddCommand(newBackupsListCommand())
	cmd.AddCommand(newBackupsRestoreCommand())

	return cmd
}

func newBackupsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List available snapshots, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := buildApp(cmd.Context())
			if err != nil {
				return err
			}
			if app.backup == nil {
				return errNoBackupBucket
			}

			backups := app.backup.List(cmd.Context(), cfg.Project, cfg.Environment)
			data, err := app.renderer.FormatBackups(backups)
			if err != nil {
				return err
			}
			os.Stdout.Write(data)
			return nil
		},
	}
}

func newBackupsRestoreCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "restore [key]",
		Short: "Download a snapshot and install it as the local state file",
		Long: `Restore fetches a snapshot from S3 and writes it to the local
state file, preserving the previous file as .backup. With no key the
most recent snapshot is used. Run 'costctl start' afterwards to apply
it.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := buildApp(cmd.Context())
			if err != nil {
				return err
			}
			if app.backup == nil {
				return errNoBackupBucket
			}

			var key string
			if len(args) == 1 {
				key = args[0]
			} else {
				backups := app.backup.List(cmd.Context(), cfg.Project, cfg.Environment)
				if len(backups) == 0 {
					return errors.New("no snapshots found in the backup bucket")
				}
				key = backups[0].Key
				app.log.WithField("key", key).Info("no key given, using most recent snapshot")
			}

			doc, err := app.backup.Restore(cmd.Context(), key)
			if err != nil {
				return err
			}
			if err := app.store.Save(doc); err != nil {
				return err
			}

			app.log.WithField("path", app.store.Path()).Info("snapshot installed as local state")
			return nil
		},
	}
}
