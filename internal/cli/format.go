package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"
)

// fatih/color disables escape codes by itself when stdout is not a terminal.
var (
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	infoColor    = color.New(color.FgCyan)
	headerColor  = color.New(color.FgBlue, color.Bold)
	labelColor   = color.New(color.FgWhite, color.Bold)
	valueColor   = color.New(color.FgHiBlack)
	dimColor     = color.New(color.FgHiBlack)
)

// stdout is looked up on every call rather than captured once, so the
// helpers follow os.Stdout when it is redirected.
func stdout() io.Writer {
	return os.Stdout
}

// PrintSection prints a section header surrounded by blank lines.
func PrintSection(title string) {
	w := stdout()
	_, _ = fmt.Fprintln(w)
	_, _ = headerColor.Fprintf(w, "▸ %s\n", title)
	_, _ = fmt.Fprintln(w)
}

// PrintSuccess prints a success message with a checkmark
func PrintSuccess(msg string) {
	_, _ = successColor.Fprintf(stdout(), "✓ %s\n", msg)
}

// PrintError prints an error message to stderr. Package manager output often
// ends in a newline already, so trailing whitespace is trimmed.
func PrintError(msg string) {
	_, _ = errorColor.Fprintf(os.Stderr, "✗ %s\n", strings.TrimRight(msg, "\r\n\t "))
}

// PrintInfo prints an uncolored line.
func PrintInfo(msg string) {
	_, _ = fmt.Fprintln(stdout(), msg)
}

// PrintLabelValue prints "label: value" indented under a section.
func PrintLabelValue(label, value string) {
	w := stdout()
	_, _ = labelColor.Fprintf(w, "  %s: ", label)
	_, _ = valueColor.Fprintln(w, value)
}

// PrintList prints items numbered from 1, keeping their order.
func PrintList(items []string, indent int) {
	w := stdout()
	pad := strings.Repeat("  ", indent)
	digits := len(fmt.Sprint(len(items)))
	for i, item := range items {
		_, _ = dimColor.Fprintf(w, "%s%*d. ", pad, digits, i+1)
		_, _ = infoColor.Fprintln(w, item)
	}
}

// PrintTable prints rows under headers with every column padded to its
// widest cell. Cells beyond the header count are dropped.
func PrintTable(headers []string, rows [][]string) {
	if len(headers) == 0 || len(rows) == 0 {
		return
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = utf8.RuneCountInString(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) {
				widths[i] = max(widths[i], utf8.RuneCountInString(cell))
			}
		}
	}

	w := stdout()
	printRow(w, headerColor, headers, widths)

	rule := make([]string, len(widths))
	for i, n := range widths {
		rule[i] = strings.Repeat("-", n)
	}
	printRow(w, dimColor, rule, widths)

	for _, row := range rows {
		printRow(w, valueColor, row, widths)
	}
}

func printRow(w io.Writer, c *color.Color, cells []string, widths []int) {
	_, _ = fmt.Fprint(w, "  ")
	for i, cell := range cells {
		if i >= len(widths) {
			break
		}
		if i > 0 {
			_, _ = fmt.Fprint(w, "  ")
		}
		_, _ = c.Fprint(w, cell)
		// Pad the last column too so the colored block has an even edge.
		if gap := widths[i] - utf8.RuneCountInString(cell); gap > 0 {
			_, _ = fmt.Fprint(w, strings.Repeat(" ", gap))
		}
	}
	_, _ = fmt.Fprintln(w)
}

// PrintEmptyState prints a dimmed placeholder when there is nothing to show.
func PrintEmptyState(msg string) {
	_, _ = dimColor.Fprintf(stdout(), "  %s\n", msg)
}

// plural formats count with the singular or plural noun.
func plural(count int, one, many string) string {
	if count == 1 {
		return fmt.Sprintf("%d %s", count, one)
	}
	return fmt.Sprintf("%d %s", count, many)
}
