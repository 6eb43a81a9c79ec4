// Package output provides formatters for CLI output.
package output

import (
	"fmt"
	"io"
	"strings"

	"taskboard/internal/board"
	"taskboard/internal/task"
)

const (
	// ColumnSeparator is the separator line around column headers.
	ColumnSeparator = "------------"
)

// FormatTask formats a task line.
// Format: "{ID:>4}  {TITLE}\n" (4-wide right-aligned id, two spaces, title)
func FormatTask(w io.Writer, t task.Task) {
	fmt.Fprintf(w, "%4d  %s\n", t.ID, normalizeTitle(t.Title))
}

// FormatTaskLong formats a task line followed by its description, indented
// under the title.
func FormatTaskLong(w io.Writer, t task.Task) {
	FormatTask(w, t)
	if d := normalizeText(t.Description); d != "" {
		fmt.Fprintf(w, "      %s\n", d)
	}
}

// FormatColumnHeader formats a column section header with its task count.
func FormatColumnHeader(w io.Writer, g board.Group) {
	fmt.Fprintln(w, ColumnSeparator)
	fmt.Fprintf(w, "%s (%d)\n", g.Label, g.Count())
	fmt.Fprintln(w, ColumnSeparator)
}

// FormatBoard writes every column with its tasks.
func FormatBoard(w io.Writer, groups []board.Group, long bool) {
	for _, g := range groups {
		FormatColumnHeader(w, g)
		for _, t := range g.Tasks {
			if long {
				FormatTaskLong(w, t)
			} else {
				FormatTask(w, t)
			}
		}
	}
}

// normalizeTitle normalizes a task title for display.
// - Empty or whitespace-only titles become "(untitled)"
// - Newlines are replaced with spaces
func normalizeTitle(title string) string {
	title = normalizeText(title)
	if title == "" {
		return "(untitled)"
	}
	return title
}

func normalizeText(s string) string {
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.TrimSpace(s)
}
