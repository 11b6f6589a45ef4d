// Package formatting renders command and report output as tables, JSON or YAML.
//
// Every output carries both a tabular view (for humans) and the structured
// value it was built from (for machines), so one call site serves all formats.
package formatting

import (
	"fmt"
	"io"
	"strings"
)

// OutputFormat represents the desired output format
type OutputFormat string

const (
	FormatTable OutputFormat = "table" // Rich table output
	FormatJSON  OutputFormat = "json"  // JSON output
	FormatYAML  OutputFormat = "yaml"  // YAML output
)

// Formats lists the supported output formats.
var Formats = []OutputFormat{FormatTable, FormatJSON, FormatYAML}

// ParseFormat returns the OutputFormat named by s. An empty string selects
// the table format.
func ParseFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatTable:
		return FormatTable, nil
	case FormatJSON:
		return FormatJSON, nil
	case FormatYAML:
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown output format %q (expected table, json or yaml)", s)
	}
}

// Options configures the formatter behavior
type Options struct {
	Format OutputFormat
	Quiet  bool // Suppress decorative elements
	Color  bool // Enable colored output
}

// Table is the tabular view of an output.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]any
	// Footer is printed below the table, e.g. a summary line.
	Footer string
}

// Formatter writes one output.
type Formatter interface {
	// Write renders t, or data for the structured formats.
	Write(w io.Writer, t Table, data any) error
}

// New creates the formatter for options.Format.
func New(options Options) Formatter {
	switch options.Format {
	case FormatJSON:
		return NewJSONFormatter(options)
	case FormatYAML:
		return NewYAMLFormatter(options)
	default:
		return NewTableFormatter(options)
	}
}
