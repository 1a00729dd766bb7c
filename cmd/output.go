package cmd

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
)

var (
	okColor   = color.New(color.FgGreen)
	warnColor = color.New(color.FgYellow)
)

func successf(w io.Writer, format string, a ...any) {
	okColor.Fprintf(w, "✓ %s\n", fmt.Sprintf(format, a...))
}

func warnf(w io.Writer, format string, a ...any) {
	warnColor.Fprintf(w, "⚠ Warning: %s\n", fmt.Sprintf(format, a...))
}

// renderTable writes an ASCII table with headers kept verbatim ("+", "#").
func renderTable(w io.Writer, header []string, rows [][]string) {
	tw := tablewriter.NewWriter(w)
	tw.SetHeader(header)
	tw.SetAutoFormatHeaders(false)
	tw.SetAutoWrapText(false)
	tw.AppendBulk(rows)
	tw.Render()
}
