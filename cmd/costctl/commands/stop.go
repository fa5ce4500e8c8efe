package commands

import (
	"github.com/spf13/cobra"
)

func newStopCommand() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Save the running configuration and stop all resources",
		Long: `Stop saves the current resource configuration to the state file
(and S3 when configured), then stops everything in dependency order:
functions first, then the stream, then alarm actions.

A failed state save degrades to a warning, the stop still proceeds.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := buildApp(cmd.Context())
			if err != nil {
				return err
			}

			result := app.ctrl.StopAll(cmd.Context(), dryRun)
			return renderOperation(app, result)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report what would change without touching AWS")

	return cmd
}
