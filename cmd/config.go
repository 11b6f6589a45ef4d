package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"testrig/internal/config"
	"testrig/internal/formatting"

	"github.com/spf13/cobra"
)

var (
	configInitForce     bool
	configValidateWatch bool
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show, validate or create testrig.yaml",
		Long: `Manage the testrig.yaml configuration in the --config-dir directory.

Examples:
  testrig config show
  testrig config validate --config-dir ./e2e
  testrig config validate --watch
  testrig config init --force`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration (file over defaults)",
		Args:  cobra.NoArgs,
		RunE:  runConfigShow,
	})
	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration and report every problem",
		Args:  cobra.NoArgs,
		RunE:  runConfigValidate,
	}
	validateCmd.Flags().BoolVarP(&configValidateWatch, "watch", "w", false, "Keep validating whenever the file changes")
	cmd.AddCommand(validateCmd)

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a configuration file with the default settings",
		Args:  cobra.NoArgs,
		RunE:  runConfigInit,
	}
	initCmd.Flags().BoolVar(&configInitForce, "force", false, "Overwrite an existing file")
	cmd.AddCommand(initCmd)

	return cmd
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	f, _, err := formatter()
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	t := formatting.Table{
		Title:   "Configuration",
		Headers: []string{"KEY", "VALUE"},
		Rows: [][]any{
			{"level", cfg.Level},
			{"resourceStrategy", cfg.ResourceStrategy},
			{"proxyPolicy", cfg.ProxyPolicy},
			{"logLevel", cfg.LogLevel},
			{"parallel", cfg.Parallel},
			{"metrics.enabled", cfg.Metrics.Enabled},
			{"metrics.namespace", cfg.Metrics.Namespace},
			{"tracing.enabled", cfg.Tracing.Enabled},
			{"tracing.tracerName", cfg.Tracing.TracerName},
		},
		Footer: "source: " + configSource(),
	}
	return f.Write(cmd.OutOrStdout(), t, cfg)
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	_, err := loadConfig()
	reportValidation(cmd, err)
	if !configValidateWatch {
		return err
	}

	w, werr := config.NewWatcher(configDir, func(_ config.RigConfig, err error) {
		reportValidation(cmd, err)
	})
	if werr != nil {
		return werr
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return w.Run(ctx)
}

func reportValidation(cmd *cobra.Command, err error) {
	if quiet {
		return
	}
	if err == nil {
		fmt.Fprintf(cmd.OutOrStdout(), "✅ %s is valid\n", configSource())
		return
	}
	var validation config.ValidationErrors
	if !errors.As(err, &validation) {
		fmt.Fprintf(cmd.ErrOrStderr(), "❌ %v\n", err)
		return
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "❌ %s has %d problem(s):\n", configSource(), len(validation))
	for _, v := range validation {
		fmt.Fprintf(cmd.ErrOrStderr(), "   - %s\n", v.Error())
	}
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := filepath.Join(configDir, config.FileName)
	if _, err := os.Stat(path); err == nil && !configInitForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	if err := config.Save(configDir, config.GetDefaultConfig()); err != nil {
		return err
	}
	if !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "📄 Wrote %s\n", path)
	}
	return nil
}

// configSource describes where the configuration comes from.
func configSource() string {
	path := filepath.Join(configDir, config.FileName)
	if _, err := os.Stat(path); err != nil {
		return "defaults (no " + path + ")"
	}
	return path
}
