package suite

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/jedib0t/go-pretty/v6/text"

	"testrig/internal/formatting"
	"testrig/internal/lifecycle"
)

// NopReporter reports nothing.
type NopReporter struct{}

func (NopReporter) ReportStart(lifecycle.Level, int) {}
func (NopReporter) ReportCaseResult(CaseResult)      {}
func (NopReporter) ReportSuiteResult(SuiteResult)    {}

// OutputReporter prints case results as they complete and the summary in
// the configured output format.
type OutputReporter struct {
	w         io.Writer
	formatter formatting.Formatter
	options   formatting.Options
	verbose   bool

	mu sync.Mutex
}

// NewOutputReporter creates an OutputReporter writing to w. Progress lines
// are only printed for the table format, and only failures unless verbose.
func NewOutputReporter(w io.Writer, options formatting.Options, verbose bool) *OutputReporter {
	return &OutputReporter{
		w:         w,
		formatter: formatting.New(options),
		options:   options,
		verbose:   verbose,
	}
}

func (r *OutputReporter) progress() bool {
	return r.options.Format == formatting.FormatTable && !r.options.Quiet
}

func (r *OutputReporter) ReportStart(level lifecycle.Level, total int) {
	if !r.progress() {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.w, "🧪 Running %d cases at level %s\n\n", total, level)
}

func (r *OutputReporter) ReportCaseResult(result CaseResult) {
	if !r.progress() {
		return
	}
	if !r.verbose && (result.Result == ResultPassed || result.Result == ResultSkipped) {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.w, "%s %s (%v)\n", r.symbol(result.Result), result.Name, result.Duration)
	if result.Error != "" {
		fmt.Fprintf(r.w, "   %s\n", indent(result.Error, "   "))
	}
}

func (r *OutputReporter) ReportSuiteResult(result SuiteResult) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t := formatting.Table{
		Title:   fmt.Sprintf("Suite (%s)", result.Level),
		Headers: []string{"CASE", "RESULT", "DURATION", "PHASES", "ERROR"},
		Footer:  summary(result),
	}
	for _, cr := range result.Results {
		t.Rows = append(t.Rows, []any{
			cr.Name,
			r.symbol(cr.Result) + " " + string(cr.Result),
			cr.Duration,
			len(cr.Phases),
			firstLine(cr.Error),
		})
	}
	if r.progress() {
		fmt.Fprintln(r.w)
	}
	if err := r.formatter.Write(r.w, t, result); err != nil {
		fmt.Fprintf(r.w, "⚠️  Failed to write suite report: %v\n", err)
	}
}

func (r *OutputReporter) symbol(res Result) string {
	var s string
	var c text.Color
	switch res {
	case ResultPassed:
		s, c = "✅", text.FgGreen
	case ResultFailed:
		s, c = "❌", text.FgRed
	case ResultError:
		s, c = "💥", text.FgRed
	case ResultSkipped:
		s, c = "⏭️", text.FgYellow
	default:
		return "❓"
	}
	if r.options.Color {
		return c.Sprint(s)
	}
	return s
}

func summary(result SuiteResult) string {
	rate := 0.0
	if result.Total > 0 {
		rate = float64(result.Passed) / float64(result.Total) * 100
	}
	return fmt.Sprintf("%d passed, %d failed, %d errors, %d skipped of %d in %v (%.1f%% success)",
		result.Passed, result.Failed, result.Errors, result.Skipped, result.Total, result.Duration, rate)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " ..."
	}
	return s
}

func indent(s, prefix string) string {
	return strings.ReplaceAll(s, "\n", "\n"+prefix)
}
