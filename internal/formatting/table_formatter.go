package formatting

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// maxCellWidth truncates long values in table cells.
const maxCellWidth = 100

// TableFormatter provides rich table output formatting
type TableFormatter struct {
	options Options
}

// NewTableFormatter creates a new table formatter
func NewTableFormatter(options Options) *TableFormatter {
	return &TableFormatter{
		options: options,
	}
}

func (f *TableFormatter) Write(w io.Writer, t Table, _ any) error {
	if len(t.Rows) == 0 {
		if !f.options.Quiet {
			_, err := fmt.Fprint(w, f.formatEmptyMessage("📋", "No items found"))
			return err
		}
		return nil
	}

	tw := f.createTable(w)
	if t.Title != "" && !f.options.Quiet {
		tw.SetTitle(t.Title)
	}

	headers := make(table.Row, len(t.Headers))
	for i, h := range t.Headers {
		headers[i] = f.paint(text.FgHiCyan, h)
	}
	tw.AppendHeader(headers)

	for _, row := range t.Rows {
		cells := make(table.Row, len(row))
		for i, v := range row {
			cells[i] = truncate(fmt.Sprintf("%v", v))
		}
		tw.AppendRow(cells)
	}
	tw.Render()

	if t.Footer != "" && !f.options.Quiet {
		_, err := fmt.Fprintf(w, "\n%s\n", f.paint(text.FgHiBlue, t.Footer))
		return err
	}
	return nil
}

// createTable creates a new table with standard styling
func (f *TableFormatter) createTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	if !f.options.Color {
		t.Style().Color = table.ColorOptions{}
	}
	return t
}

// formatEmptyMessage formats empty result messages
func (f *TableFormatter) formatEmptyMessage(icon, message string) string {
	return fmt.Sprintf("%s %s\n", f.paint(text.FgYellow, icon), f.paint(text.FgYellow, message))
}

func (f *TableFormatter) paint(c text.Color, s string) string {
	if !f.options.Color {
		return s
	}
	return c.Sprint(s)
}

// truncate collapses whitespace so every cell stays on one line and cuts
// the result to maxCellWidth runes.
func truncate(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) > maxCellWidth {
		return string(runes[:maxCellWidth-3]) + "..."
	}
	return s
}
