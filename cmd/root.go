package cmd

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"conductor/internal/config"
	"conductor/internal/dependency"
	"conductor/internal/orchestrator"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (command failed, invalid arguments).
	ExitCodeError = 1
	// ExitCodeConfig indicates an invalid configuration or a dependency cycle.
	// No service was started.
	ExitCodeConfig = 2
	// ExitCodeStartupIncomplete indicates a non-optional service did not reach
	// running during startup.
	ExitCodeStartupIncomplete = 3
)

// Flags shared by every command.
var (
	configPath string
	debug      bool
	logFormat  string
)

// rootCmd represents the base command for the conductor application.
// Without a subcommand it runs the fleet, like serve.
var rootCmd = &cobra.Command{
	Use:   "conductor",
	Short: "Start, monitor and stop a local fleet of services",
	Long: `conductor launches a fixed set of local services in dependency order,
resolves port conflicts, waits for each service to pass its health check,
monitors health while running, periodically triggers an endpoint audit and
stops everything in reverse dependency order on Ctrl+C.`,
	Args: cobra.NoArgs,
	RunE: runServe,
	// SilenceUsage prevents Cobra from printing the usage message on errors that are handled by the application.
	SilenceUsage: true,
}

// SetVersion sets the version for the root command.
// This function is typically called from the main package to inject the application version at build time.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute is the main entry point for the CLI application.
// This function is called by main.main().
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "conductor version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(getExitCode(err))
	}
}

// getExitCode determines the appropriate exit code based on the error type.
// This provides semantic exit codes for scripting and automation.
func getExitCode(err error) int {
	if err == nil {
		return ExitCodeSuccess
	}

	var cfgErr *config.ConfigurationError
	if errors.As(err, &cfgErr) {
		return ExitCodeConfig
	}

	var validation config.ValidationErrors
	if errors.As(err, &validation) {
		return ExitCodeConfig
	}

	var cycle *dependency.CycleError
	if errors.As(err, &cycle) {
		return ExitCodeConfig
	}

	if errors.Is(err, orchestrator.ErrStartupIncomplete) {
		return ExitCodeStartupIncomplete
	}

	// Default to general error
	return ExitCodeError
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "Configuration file (default ./conductor.yaml, then ~/.config/conductor/conductor.yaml, then the built-in registry)")
	pf.BoolVar(&debug, "debug", false, "Enable debug logging, including the output of every service")
	pf.StringVar(&logFormat, "log-format", "", "Log format: text or json (overrides logging.format)")

	addServeFlags(rootCmd)

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newPlanCmd())
	rootCmd.AddCommand(newVersionCmd())
}
