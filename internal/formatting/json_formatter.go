package formatting

import (
	"encoding/json"
	"fmt"
	"io"
)

// JSONFormatter provides structured JSON output formatting
type JSONFormatter struct {
	options Options
}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter(options Options) *JSONFormatter {
	return &JSONFormatter{
		options: options,
	}
}

func (f *JSONFormatter) Write(w io.Writer, _ Table, data any) error {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output to JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}
