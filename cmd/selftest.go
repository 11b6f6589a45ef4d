package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"testrig/internal/lifecycle"
	"testrig/internal/selftest"
	"testrig/internal/suite"
)

var (
	selftestLevel    string
	selftestParallel int
	selftestFailFast bool
	selftestVerbose  bool
	selftestMetrics  bool
)

func newSelftestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "selftest",
		Short: "Run the built-in self-test suite through the lifecycle",
		Long: `Run a small greeting domain through every phase of the lifecycle using
the default catalog: fakes at the isolated level, a seeded container and an
audit resource at the container level, and a real HTTP server and client at
the e2e level.

Examples:
  testrig selftest
  testrig selftest --level e2e --verbose
  testrig selftest --metrics
  testrig selftest -o json`,
		Args: cobra.NoArgs,
		RunE: runSelftest,
	}
	cmd.Flags().StringVar(&selftestLevel, "level", "", "Only run this level (default: every level)")
	cmd.Flags().IntVar(&selftestParallel, "parallel", 0, "Concurrent invocations (default: from configuration)")
	cmd.Flags().BoolVar(&selftestFailFast, "fail-fast", false, "Stop starting cases after the first failure")
	cmd.Flags().BoolVarP(&selftestVerbose, "verbose", "v", false, "Report passing cases as they complete")
	cmd.Flags().BoolVar(&selftestMetrics, "metrics", false, "Collect phase metrics and print them afterwards")
	return cmd
}

func runSelftest(cmd *cobra.Command, args []string) error {
	_, opts, err := formatter()
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if selftestMetrics {
		cfg.Metrics.Enabled = true
	}
	cat, err := buildCatalog(cfg)
	if err != nil {
		return err
	}

	levels := lifecycle.Levels
	if selftestLevel != "" {
		level, err := lifecycle.ParseLevel(selftestLevel)
		if err != nil {
			return err
		}
		levels = []lifecycle.Level{level}
	}
	parallel := selftestParallel
	if parallel == 0 {
		parallel = cat.Settings().Parallel
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	out := cmd.OutOrStdout()
	failed := false
	for _, level := range levels {
		runner := suite.NewRunner(cat.OrchestratorFor(level),
			suite.WithParallel(parallel),
			suite.WithFailFast(selftestFailFast),
			suite.WithReporter(suite.NewOutputReporter(out, opts, selftestVerbose)),
		)
		res, err := runner.Run(ctx, selftest.Cases(level))
		if err != nil {
			return err
		}
		if !res.Succeeded() {
			failed = true
			if selftestFailFast {
				break
			}
		}
	}

	if g := cat.Gatherer(); g != nil && selftestMetrics {
		if err := writeMetrics(out, g); err != nil {
			return err
		}
	}
	if failed {
		return errTestsFailed
	}
	return nil
}

// writeMetrics prints the gathered metrics in the Prometheus text format.
func writeMetrics(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}
	fmt.Fprintln(w)
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("failed to encode metrics: %w", err)
		}
	}
	return nil
}
