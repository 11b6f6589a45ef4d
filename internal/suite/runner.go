// Package suite runs many test invocations against one orchestrator,
// concurrently and with a shared report.
package suite

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"testrig/internal/lifecycle"
	"testrig/pkg/logging"
)

var errFailFast = errors.New("fail-fast triggered")

// Option configures a Runner.
type Option func(*Runner)

// WithParallel bounds the number of concurrent invocations. Values below
// one run the cases sequentially.
func WithParallel(n int) Option {
	return func(r *Runner) { r.parallel = n }
}

// WithFailFast stops starting new cases after the first failure.
func WithFailFast(enabled bool) Option {
	return func(r *Runner) { r.failFast = enabled }
}

// WithReporter sets the reporter. The default reports nothing.
func WithReporter(rep Reporter) Option {
	return func(r *Runner) { r.reporter = rep }
}

// Runner executes cases through an orchestrator.
type Runner struct {
	orchestrator *lifecycle.Orchestrator
	parallel     int
	failFast     bool
	reporter     Reporter

	mu sync.Mutex
}

// NewRunner creates a Runner for orch.
func NewRunner(orch *lifecycle.Orchestrator, opts ...Option) *Runner {
	r := &Runner{orchestrator: orch, parallel: 1, reporter: NopReporter{}}
	for _, opt := range opts {
		opt(r)
	}
	if r.parallel < 1 {
		r.parallel = 1
	}
	return r
}

// Run executes every case and returns the summary. Results keep the order
// of cases regardless of completion order. The returned error is only set
// when ctx is cancelled.
func (r *Runner) Run(ctx context.Context, cases []Case) (*SuiteResult, error) {
	result := &SuiteResult{
		Level:     r.orchestrator.Level().String(),
		StartTime: time.Now(),
		Total:     len(cases),
		Results:   make([]CaseResult, len(cases)),
	}
	r.reporter.ReportStart(r.orchestrator.Level(), len(cases))
	logging.Info("Suite", "Running %d cases at level %s with parallelism %d", len(cases), result.Level, r.parallel)

	// The group context only decides whether cases still start; running
	// invocations keep ctx so their teardown is never cut short.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.parallel)

	for i, c := range cases {
		g.Go(func() error {
			var cr CaseResult
			if gctx.Err() != nil {
				cr = CaseResult{Name: c.Name, Result: ResultSkipped}
			} else {
				cr = r.runCase(ctx, c)
			}
			r.record(result, i, cr)
			if r.failFast && (cr.Result == ResultFailed || cr.Result == ResultError) {
				return errFailFast
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil && !errors.Is(err, errFailFast) {
		return nil, err
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)
	r.reporter.ReportSuiteResult(*result)

	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

func (r *Runner) record(result *SuiteResult, i int, cr CaseResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result.Results[i] = cr
	result.count(cr)
	r.reporter.ReportCaseResult(cr)
}

func (r *Runner) runCase(ctx context.Context, c Case) CaseResult {
	started := time.Now()
	cr := CaseResult{Name: c.Name}

	if c.New == nil {
		return cr.finish(ResultError, fmt.Errorf("case %q has no test constructor", c.Name), started)
	}
	rc, err := lifecycle.NewContext(c.New())
	if err != nil {
		return cr.finish(ResultError, err, started)
	}
	cr.InvocationID = rc.ID()

	var bodyErr error
	err = r.orchestrator.Run(ctx, rc, func(ctx context.Context, rc *lifecycle.Context) error {
		if c.Body == nil {
			return nil
		}
		bodyErr = runBody(ctx, rc, c.Body)
		return bodyErr
	})
	for _, p := range rc.History() {
		cr.Phases = append(cr.Phases, p.String())
	}

	switch {
	case err == nil:
		return cr.finish(ResultPassed, nil, started)
	case bodyErr != nil && onlyBody(err, bodyErr):
		logging.Debug("Suite", "Case %s failed: %v", c.Name, err)
		return cr.finish(ResultFailed, err, started)
	default:
		logging.Warn("Suite", "Case %s errored: %v", c.Name, err)
		return cr.finish(ResultError, err, started)
	}
}

// runBody converts a panicking body into an error so the invocation is
// still stopped.
func runBody(ctx context.Context, rc *lifecycle.Context, body Body) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("test body panicked: %v", p)
		}
	}()
	return body(ctx, rc)
}

// onlyBody reports whether err carries nothing but the body's own failure.
func onlyBody(err, bodyErr error) bool {
	if err == bodyErr {
		return true
	}
	var joined interface{ Unwrap() []error }
	if !errors.As(err, &joined) {
		return false
	}
	for _, e := range joined.Unwrap() {
		if e != nil && e != bodyErr {
			return false
		}
	}
	return true
}

func (cr CaseResult) finish(res Result, err error, started time.Time) CaseResult {
	cr.Result = res
	cr.Duration = time.Since(started)
	if err != nil {
		cr.err = err
		cr.Error = err.Error()
	}
	return cr
}
