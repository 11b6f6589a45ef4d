package cmd

import (
	"errors"
	"fmt"
	"os"

	"testrig/internal/config"
	"testrig/internal/extension"
	"testrig/internal/formatting"
	"testrig/pkg/logging"

	"github.com/spf13/cobra"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (command failed, invalid arguments).
	ExitCodeError = 1
	// ExitCodeConfigError indicates an invalid testrig.yaml or catalog.
	ExitCodeConfigError = 2
	// ExitCodeTestsFailed indicates a suite ran but some cases failed.
	ExitCodeTestsFailed = 3
)

var (
	configDir    string
	logLevelFlag string
	outputFormat string
	quiet        bool
	noColor      bool
)

// rootCmd represents the base command for the testrig application.
// It is the entry point when the application is called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "testrig",
	Short: "Inspect and exercise the testrig lifecycle engine",
	Long: `testrig orchestrates the lifecycle of test invocations: it verifies
test declarations, creates a dependency container, injects fakes and real
collaborators, starts servers, clients and resources, and tears everything
down again in reverse order.

This CLI inspects the extension catalog, the phase plans of each test level
and the testrig.yaml configuration, and runs a built-in self-test suite.`,
	// SilenceUsage prevents Cobra from printing the usage message on errors that are handled by the application.
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initLogging(cmd)
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
	rootCmd.SetVersionTemplate(`{{printf "testrig version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(getExitCode(err))
	}
}

// errTestsFailed is returned by commands whose suite had failing cases.
var errTestsFailed = errors.New("some test cases failed")

// getExitCode determines the appropriate exit code based on the error type.
func getExitCode(err error) int {
	var validation config.ValidationErrors
	if errors.As(err, &validation) || extension.IsConfigurationError(err) {
		return ExitCodeConfigError
	}
	if errors.Is(err, errTestsFailed) {
		return ExitCodeTestsFailed
	}
	return ExitCodeError
}

// initLogging sends logs to stderr at the configured level. The flag wins
// over testrig.yaml; an unreadable file falls back to the default level so
// that `config validate` can still report on it.
func initLogging(cmd *cobra.Command) error {
	level := config.DefaultLogLevel
	if cfg, err := config.LoadConfig(configDir); err == nil {
		level = cfg.LogLevel
	}
	if logLevelFlag != "" {
		level = logLevelFlag
	}
	parsed, err := logging.ParseLevel(level)
	if err != nil {
		return err
	}
	logging.InitForCLI(parsed, cmd.ErrOrStderr())
	return nil
}

// loadConfig reads testrig.yaml from the --config-dir directory.
func loadConfig() (config.RigConfig, error) {
	cfg, err := config.LoadConfig(configDir)
	if err != nil {
		return config.RigConfig{}, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// formatter returns the formatter selected by --output.
func formatter() (formatting.Formatter, formatting.Options, error) {
	format, err := formatting.ParseFormat(outputFormat)
	if err != nil {
		return nil, formatting.Options{}, err
	}
	opts := formatting.Options{Format: format, Quiet: quiet, Color: !noColor}
	return formatting.New(opts), opts, nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", ".", "Directory containing "+config.FileName)
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Log level (debug, info, warn, error); overrides the configuration")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "Output format (table, json, yaml)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress decorative output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	_ = rootCmd.RegisterFlagCompletionFunc("output", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{"table", "json", "yaml"}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("log-level", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{"debug", "info", "warn", "error"}, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newExtensionsCmd())
	rootCmd.AddCommand(newPlanCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newSelftestCmd())
}
