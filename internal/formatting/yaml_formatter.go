package formatting

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// YAMLFormatter provides YAML output formatting
type YAMLFormatter struct {
	options Options
}

// NewYAMLFormatter creates a new YAML formatter
func NewYAMLFormatter(options Options) *YAMLFormatter {
	return &YAMLFormatter{
		options: options,
	}
}

func (f *YAMLFormatter) Write(w io.Writer, _ Table, data any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(data); err != nil {
		return fmt.Errorf("failed to marshal output to YAML: %w", err)
	}
	return enc.Close()
}
