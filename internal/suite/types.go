package suite

import (
	"context"
	"time"

	"testrig/internal/lifecycle"
)

// Result represents the outcome of one case.
type Result string

const (
	// ResultPassed indicates the body ran and every phase succeeded
	ResultPassed Result = "PASSED"
	// ResultFailed indicates the body returned an error
	ResultFailed Result = "FAILED"
	// ResultError indicates the lifecycle itself failed (verification, setup or teardown)
	ResultError Result = "ERROR"
	// ResultSkipped indicates the case never started because the suite stopped early
	ResultSkipped Result = "SKIPPED"
)

// Body is the test body run between Start and Stop.
type Body func(ctx context.Context, rc *lifecycle.Context) error

// Case is one test invocation of a suite.
type Case struct {
	// Name identifies the case in reports.
	Name string
	// New returns a fresh test instance (a pointer to a struct) for the case.
	New func() any
	// Body runs once the invocation is started. A nil body only checks that
	// the lifecycle completes.
	Body Body
}

// CaseResult represents the result of a single case.
type CaseResult struct {
	Name         string        `json:"name" yaml:"name"`
	InvocationID string        `json:"invocationId,omitempty" yaml:"invocationId,omitempty"`
	Result       Result        `json:"result" yaml:"result"`
	Phases       []string      `json:"phases,omitempty" yaml:"phases,omitempty"`
	Duration     time.Duration `json:"duration" yaml:"duration"`
	Error        string        `json:"error,omitempty" yaml:"error,omitempty"`

	err error
}

// Err returns the error the case ended with.
func (r CaseResult) Err() error { return r.err }

// SuiteResult summarizes a suite run.
type SuiteResult struct {
	Level     string        `json:"level" yaml:"level"`
	StartTime time.Time     `json:"startTime" yaml:"startTime"`
	EndTime   time.Time     `json:"endTime" yaml:"endTime"`
	Duration  time.Duration `json:"duration" yaml:"duration"`
	Total     int           `json:"total" yaml:"total"`
	Passed    int           `json:"passed" yaml:"passed"`
	Failed    int           `json:"failed" yaml:"failed"`
	Errors    int           `json:"errors" yaml:"errors"`
	Skipped   int           `json:"skipped" yaml:"skipped"`
	Results   []CaseResult  `json:"results" yaml:"results"`
}

// Succeeded reports whether no case failed or errored.
func (s SuiteResult) Succeeded() bool {
	return s.Failed == 0 && s.Errors == 0
}

func (s *SuiteResult) count(r CaseResult) {
	switch r.Result {
	case ResultPassed:
		s.Passed++
	case ResultFailed:
		s.Failed++
	case ResultError:
		s.Errors++
	case ResultSkipped:
		s.Skipped++
	}
}

// Reporter receives suite progress.
type Reporter interface {
	// ReportStart is called before any case runs
	ReportStart(level lifecycle.Level, total int)
	// ReportCaseResult is called as each case completes, possibly concurrently
	ReportCaseResult(result CaseResult)
	// ReportSuiteResult is called when all cases are done
	ReportSuiteResult(result SuiteResult)
}
