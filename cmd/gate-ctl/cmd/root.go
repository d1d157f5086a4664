package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/oshokin/gate-controller/internal/config"
	"github.com/oshokin/gate-controller/internal/service/client"
	"github.com/oshokin/gate-controller/internal/version"
)

const (
	// tokenEnv supplies the bearer token when --token is not set.
	tokenEnv = "GATE_TOKEN"
	// alertExitCode is the exit status of watch --exit-on-alert.
	alertExitCode = 2
)

var (
	// cfgPath stores the configuration file path.
	cfgPath string
	// serverAddress overrides grpc_addr.
	serverAddress string
	// token is the bearer token for open, close and clear-alert.
	token string
	// asJSON prints the raw status document.
	asJSON bool
	// pollInterval is the watch polling interval.
	pollInterval time.Duration
	// exitOnAlert stops watch with a non-zero status once an alert is raised.
	exitOnAlert bool

	// rootCmd represents the base command of the gate client.
	rootCmd = &cobra.Command{
		Use:   "gate-ctl",
		Short: "Control a gate controller over gRPC.",
		Long: `Sends a single command to a running gate-server and prints the gate status.

Commands that move the gate need a bearer token when the controller has
authentication enabled: pass --token or set ` + tokenEnv + `.`,
		SilenceUsage: true,
	}
)

// Execute runs the gate-ctl CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitCode(err))
	}
}

// exitCode maps a command error to the process exit status.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, client.ErrAlertActive):
		return alertExitCode
	default:
		return 1
	}
}

// newActionCommand builds one subcommand bound to a client action.
func newActionCommand(action client.Action, short string) *cobra.Command {
	return &cobra.Command{
		Use:   string(action),
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			bearer := token
			if bearer == "" {
				bearer = os.Getenv(tokenEnv)
			}

			return client.Run(ctx, &client.Options{
				ConfigPath:    cfgPath,
				ServerAddress: serverAddress,
				Token:         bearer,
				Action:        action,
				JSON:          asJSON,
			})
		},
	}
}

// newWatchCommand builds the status polling subcommand.
func newWatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Poll the gate status and print every change.",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			return client.Watch(ctx, &client.WatchOptions{
				ConfigPath:    cfgPath,
				ServerAddress: serverAddress,
				PollInterval:  pollInterval,
				ExitOnAlert:   exitOnAlert,
			})
		},
	}

	cmd.Flags().DurationVarP(&pollInterval, "interval", "i", client.DefaultPollInterval, "status polling interval")
	cmd.Flags().BoolVar(&exitOnAlert, "exit-on-alert", false, "exit with status 2 once an alert is active")

	return cmd
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.PersistentFlags().StringVarP(&serverAddress, "server", "s", "", "controller gRPC address, overrides grpc_addr")
	rootCmd.PersistentFlags().StringVarP(&token, "token", "t", "", "bearer token (default $"+tokenEnv+")")
	rootCmd.PersistentFlags().BoolVar(&asJSON, "json", false, "print the raw status document")

	rootCmd.AddCommand(
		newActionCommand(client.ActionOpen, "Pulse the relay to open the gate."),
		newActionCommand(client.ActionClose, "Pulse the relay to close the gate."),
		newActionCommand(client.ActionStatus, "Print the gate status."),
		newActionCommand(client.ActionClearAlert, "Acknowledge a timed-out operation."),
		newWatchCommand(),
	)
}
