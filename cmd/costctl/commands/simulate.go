package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newSimulateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:       "simulate {stop|start}",
		Short:     "Preview the changes an operation would make",
		ValidArgs: []string{"stop", "start"},
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		Long: `Simulate derives the exact change set a stop or start would apply,
with a risk grade and monthly cost impact per change, without touching
any resource. Cost figures come from the same calculator the live
commands use.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := buildApp(cmd.Context())
			if err != nil {
				return err
			}

			result, err := app.ctrl.Simulate(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			data, err := app.renderer.FormatSimulation(result)
			if err != nil {
				return err
			}
			os.Stdout.Write(data)

			if result.HasErrors() {
				return fmt.Errorf("simulation found blocking problems")
			}
			return nil
		},
	}

	return cmd
}
