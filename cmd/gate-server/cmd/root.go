package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/gate-controller/internal/config"
	"github.com/oshokin/gate-controller/internal/service/server"
	"github.com/oshokin/gate-controller/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// httpAddress overrides the HTTP listen address.
	httpAddress string
	// simulate runs against the in-memory barrier instead of GPIO.
	simulate bool

	// rootCmd represents the base command for running the controller.
	rootCmd = &cobra.Command{
		Use:   "gate-server [listen-address]",
		Short: "Run the gate controller: relay, sensors, monitor loop, gRPC and HTTP.",
		Long: `Starts the gate controller daemon.

The controller pulses the gate opener relay on request, watches the two end-stop
sensors, raises an alert when an opening or closing misses its deadline and
closes a gate left open after the auto-close delay.

Only the port from grpc_addr is used for listening (e.g., :50051).
Listen address can be provided as argument to override config (e.g., :9090).
Use --simulate to run without GPIO hardware.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			// Use listen address argument if provided, otherwise rely on config.
			var listenAddress string
			if len(args) > 0 {
				listenAddress = args[0]
			}

			options := &server.Options{
				ConfigPath:    configPath,
				ListenAddress: listenAddress,
				HTTPAddress:   httpAddress,
			}

			if simulate {
				options.Driver = config.DriverSimulated
			}

			return server.Run(ctx, options)
		},
	}
)

// Execute runs the gate-server CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.Flags().StringVar(&httpAddress, "http", "", "HTTP listen address, overrides http_addr")
	rootCmd.Flags().BoolVar(&simulate, "simulate", false, "drive an in-memory barrier instead of GPIO")
}
