package commands

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ujanalytics/costctl/internal/awsclient"
	"github.com/ujanalytics/costctl/internal/controller"
	"github.com/ujanalytics/costctl/internal/costs"
	"github.com/ujanalytics/costctl/internal/errors"
	"github.com/ujanalytics/costctl/internal/logger"
	"github.com/ujanalytics/costctl/internal/managers"
	"github.com/ujanalytics/costctl/internal/output"
	"github.com/ujanalytics/costctl/internal/state"
	"github.com/ujanalytics/costctl/pkg/config"
)

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "costctl",
	Short: "Stop and start non-production AWS environments to cut idle spend",
	Long: `costctl manages the lifecycle of a project's AWS resources so
non-production environments stop costing money while nobody uses them.

It scales the Kinesis stream down to one shard, disables the Lambda
functions by reserving zero concurrency, and silences CloudWatch alarm
actions. The running configuration is saved before anything changes,
so 'costctl start' restores the environment exactly as it was.

Typical use:
  costctl stop                 # save config, stop everything
  costctl start                # restore the saved config
  costctl status               # states, costs, recommendations
  costctl simulate stop        # preview changes without applying`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig(cmd)
	},
}

// Execute runs the root command. Any error exits with code 1; success
// exits with 0.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprint(os.Stderr, formatError(err))
		os.Exit(errors.ExitCode(err))
	}
}

// formatError renders an error for the terminal, including the
// recovery suggestions typed errors carry.
func formatError(err error) string {
	var sb strings.Builder
	fmt.Fprintln(&sb, "Error:", err)

	var typed *errors.Error
	if stderrors.As(err, &typed) {
		if guidance := typed.Guidance(); guidance != "" {
			sb.WriteString(guidance)
		}
	}
	return sb.String()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.costctl/costctl.yaml)")
	rootCmd.PersistentFlags().String("project", "", "project name (overrides config)")
	rootCmd.PersistentFlags().String("env", "", "environment name (overrides config)")
	rootCmd.PersistentFlags().String("region", "", "AWS region (overrides config)")
	rootCmd.PersistentFlags().String("profile", "", "AWS profile (overrides config)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringP("output", "o", "", "output format (text, json)")
	rootCmd.PersistentFlags().Bool("no-color", false, "disable colored output")

	rootCmd.AddCommand(newStopCommand())
	rootCmd.AddCommand(newStartCommand())
	rootCmd.AddCommand(newStatusCommand())
	rootCmd.AddCommand(newSimulateCommand())
	rootCmd.AddCommand(newBackupsCommand())
	rootCmd.AddCommand(newVersionCommand())
}

func initConfig(cmd *cobra.Command) error {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return err
	}

	if v, _ := cmd.Flags().GetString("project"); v != "" {
		cfg.Project = v
	}
	if v, _ := cmd.Flags().GetString("env"); v != "" {
		cfg.Environment = v
	}
	if v, _ := cmd.Flags().GetString("region"); v != "" {
		cfg.AWS.Region = v
	}
	if v, _ := cmd.Flags().GetString("profile"); v != "" {
		cfg.AWS.Profile = v
	}
	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		cfg.Logging.Level = v
	}
	if v, _ := cmd.Flags().GetString("output"); v != "" {
		cfg.Output.Format = v
	}
	if v, _ := cmd.Flags().GetBool("no-color"); v {
		cfg.Output.NoColor = true
	}

	return cfg.ExpandPaths()
}

// app bundles everything a command needs after wiring.
type app struct {
	ctrl     *controller.Controller
	clients  *awsclient.Clients
	store    *state.Store
	backup   *state.S3Backup
	calc     *costs.Calculator
	renderer *output.Renderer
	log      logger.Logger
}

// buildApp validates config, connects to AWS and wires the managers.
// Commands that never touch AWS (version) skip it.
func buildApp(ctx context.Context) (*app, error) {
	return buildAppWithPrices(ctx, false)
}

// buildAppWithPrices optionally refreshes unit prices from the AWS
// Pricing API before wiring the cost calculator.
func buildAppWithPrices(ctx context.Context, refreshPrices bool) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	format, err := output.ParseFormat(cfg.Output.Format)
	if err != nil {
		return nil, err
	}

	log := logger.New(cfg.Logging.Level)

	clients, err := awsclient.New(ctx, awsclient.ClientConfig{
		Region:  cfg.AWS.Region,
		Profile: cfg.AWS.Profile,
	})
	if err != nil {
		return nil, err
	}

	caller, err := clients.VerifyIdentity(ctx)
	if err != nil {
		return nil, err
	}
	log.WithField("caller", caller).Debug("AWS identity verified")

	prices := costs.DefaultPriceTable()
	if refreshPrices {
		prices = costs.NewRefresher(clients.Pricing, log).Refresh(ctx, clients.Region(), prices)
	}
	calc := costs.NewCalculator(clients.Region(), prices)

	stream := managers.NewStreamManager(clients.Kinesis, calc, log, managers.StreamConfig{
		StreamName:   cfg.Resources.Stream.Name,
		ActiveShards: cfg.Resources.Stream.ActiveShards,
	})
	functions := managers.NewFunctionSetManager(clients.Lambda, calc, log, managers.FunctionSetConfig{
		FunctionNames: cfg.Resources.Functions.Names,
	})
	alarms := managers.NewAlarmSetManager(clients.CloudWatch, calc, log, managers.AlarmSetConfig{
		AlarmNamePrefix: cfg.Resources.Alarms.NamePrefix,
	})

	store := state.NewStore(cfg.State.FilePath, log)

	var backup *state.S3Backup
	if cfg.HasS3Backup() {
		backup = state.NewS3Backup(clients.S3, cfg.State.S3Bucket, cfg.State.S3Prefix, log)
	}

	ctrl := controller.New(stream, functions, alarms, store, backup, calc, log, controller.Config{
		Project:     cfg.Project,
		Environment: cfg.Environment,
	})

	return &app{
		ctrl:     ctrl,
		clients:  clients,
		store:    store,
		backup:   backup,
		calc:     calc,
		renderer: output.NewRenderer(format, cfg.Output.NoColor),
		log:      log,
	}, nil
}

// renderOperation prints a result and converts failure into a non-zero
// exit through the returned error.
func renderOperation(a *app, result *controller.Result) error {
	data, err := a.renderer.FormatOperation(result)
	if err != nil {
		return err
	}
	os.Stdout.Write(data)

	if !result.Success() {
		return fmt.Errorf("%s did not complete successfully", result.Operation)
	}
	return nil
}
