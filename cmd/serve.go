package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"conductor/internal/app"
)

// statusAddr enables the read-only status server on this address.
var statusAddr string

// noAudit disables the periodic endpoint audit.
var noAudit bool

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the service fleet in the foreground",
		Long: `Starts every service of the registry one at a time in dependency order,
waiting for each to pass its health check before launching the next.
A service whose dependency did not come up is blocked and never launched.

After startup conductor prints a summary, then keeps monitoring health and
runs the endpoint audit when it is due. Ctrl+C (or SIGTERM) stops every
service, dependents before their dependencies; a second Ctrl+C skips the
remaining grace periods.

Exit codes:
  0  clean shutdown
  1  runtime error
  2  invalid configuration or dependency cycle; nothing was started
  3  a non-optional service did not reach running during startup`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}
	addServeFlags(cmd)
	return cmd
}

func addServeFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&statusAddr, "status-addr", "", "Serve /healthz, /status and /metrics on this address (e.g. 127.0.0.1:9321)")
	cmd.Flags().BoolVar(&noAudit, "no-audit", false, "Disable the periodic endpoint audit")
}

// runServe is the main entry point for the serve command
func runServe(cmd *cobra.Command, args []string) error {
	cfg := app.NewConfig(debug, configPath)
	cfg.LogFormat = logFormat
	cfg.StatusAddr = statusAddr
	cfg.NoAudit = noAudit
	cfg.Version = cmd.Root().Version
	cfg.Output = cmd.OutOrStdout()

	application, err := app.NewApplication(cfg)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return application.Run(ctx)
}
