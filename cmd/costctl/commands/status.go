package commands

import (
	"os"

	"github.com/spf13/cobra"
)

func newStatusCommand() *cobra.Command {
	var refreshPrices bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show resource states, current costs and recommendations",
		Long: `Status inspects every managed resource group, prices the
environment at current usage, and suggests actions where the observed
state looks inconsistent or wasteful.

Cost figures use built-in us-east-1 list prices. Pass --refresh-prices
to pull region prices from the AWS Pricing API first.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := buildAppWithPrices(cmd.Context(), refreshPrices)
			if err != nil {
				return err
			}

			report := app.ctrl.Status(cmd.Context())
			data, err := app.renderer.FormatStatus(report)
			if err != nil {
				return err
			}
			os.Stdout.Write(data)
			return nil
		},
	}

	cmd.Flags().BoolVar(&refreshPrices, "refresh-prices", false, "refresh unit prices from the AWS Pricing API")

	return cmd
}
