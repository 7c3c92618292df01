package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"warren/internal/config"
	"warren/internal/converge"
	"warren/internal/guard"
	"warren/pkg/logging"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error.
	ExitCodeError = 1
	// ExitCodeInvalidDescriptor indicates the descriptor failed to parse or validate.
	ExitCodeInvalidDescriptor = 2
	// ExitCodeCookieMismatch indicates the Erlang cookie would change without
	// the database wipe being authorized.
	ExitCodeCookieMismatch = 3
	// ExitCodeResourcesFailed indicates at least one resource failed to converge.
	ExitCodeResourcesFailed = 4
)

// Persistent flags shared by every command.
var (
	descriptorPath string
	rootDir        string
	logLevel       string
	logFormat      string
)

// rootCmd represents the base command for the warren application.
var rootCmd = &cobra.Command{
	Use:   "warren",
	Short: "Converge a host to a declared RabbitMQ installation",
	Long: `warren reads a RabbitMQ descriptor and converges the host to it:
the broker package, rabbitmq.config and rabbitmq-env.conf, the service,
plugins, the Erlang cookie for clustering, TLS and LDAP settings, and the
rabbitmqadmin helper.

Changing the Erlang cookie of a node that already has a database requires
wiping that database; warren refuses to do so unless
cluster.wipeDBOnCookieChange is set.`,
	// SilenceUsage prevents Cobra from printing the usage message on errors that are handled by the application.
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := logging.ParseLevel(logLevel)
		if err != nil {
			return err
		}
		switch logFormat {
		case logging.FormatText, logging.FormatJSON:
		default:
			return fmt.Errorf("unknown log format %q (expected text or json)", logFormat)
		}
		logging.Init(logFormat, level, cmd.ErrOrStderr())
		return nil
	},
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
	rootCmd.SetVersionTemplate(`{{printf "warren version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(getExitCode(err))
	}
}

// getExitCode determines the appropriate exit code based on the error type.
// This provides semantic exit codes for scripting and automation.
func getExitCode(err error) int {
	var mismatch *guard.MismatchError
	if errors.As(err, &mismatch) {
		return ExitCodeCookieMismatch
	}

	var cfgErr config.ConfigurationError
	if errors.As(err, &cfgErr) && cfgErr.ErrorType != config.ErrorTypeIO {
		return ExitCodeInvalidDescriptor
	}

	var verrs config.ValidationErrors
	if errors.As(err, &verrs) {
		return ExitCodeInvalidDescriptor
	}

	var resErr *converge.ResourceError
	if errors.As(err, &resErr) {
		return ExitCodeResourcesFailed
	}

	return ExitCodeError
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&descriptorPath, "config", "c", config.DefaultDescriptorPath, "Path to the RabbitMQ descriptor")
	rootCmd.PersistentFlags().StringVar(&rootDir, "root", "", "Prefix every managed path with this directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", logging.FormatText, "Log format (text, json)")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newSelfUpdateCmd())
	rootCmd.AddCommand(newApplyCmd())
	rootCmd.AddCommand(newPlanCmd())
	rootCmd.AddCommand(newRenderCmd())
	rootCmd.AddCommand(newValidateCmd())
	rootCmd.AddCommand(newCheckCmd())
	rootCmd.AddCommand(newHistoryCmd())
}
