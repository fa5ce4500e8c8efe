package commands

import (
	"github.com/spf13/cobra"
)

func newStartCommand() *cobra.Command {
	var (
		dryRun  bool
		fromKey string
	)

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Restore resources from the saved configuration",
		Long: `Start loads the state file written by the last stop and restores
everything in reverse order: alarm actions first so monitoring is live
before traffic, then the stream, then functions. A verification pass
confirms the groups came back up.

Use --from-backup to restore a specific S3 snapshot instead of the
local state file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := buildApp(cmd.Context())
			if err != nil {
				return err
			}

			if fromKey != "" {
				if app.backup == nil {
					return errNoBackupBucket
				}
				doc, err := app.backup.Restore(cmd.Context(), fromKey)
				if err != nil {
					return err
				}
				return renderOperation(app, app.ctrl.StartFromDocument(cmd.Context(), doc, dryRun))
			}

			return renderOperation(app, app.ctrl.StartAll(cmd.Context(), dryRun))
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report what would change without touching AWS")
	cmd.Flags().StringVar(&fromKey, "from-backup", "", "S3 snapshot key to restore from")

	return cmd
}
