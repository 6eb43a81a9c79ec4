package board

import (
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"taskboard/internal/task"
)

// Group is one rendered column.
type Group struct {
	Column task.Column
	Label  string
	Tasks  []task.Task
}

// Count returns the number of tasks in the column.
func (g Group) Count() int { return len(g.Tasks) }

// GroupByColumn splits tasks into the four columns, in board order, each in
// position order. Columns without tasks are still returned.
func GroupByColumn(tasks []task.Task) []Group {
	out := make([]Group, len(task.Columns))
	for i, c := range task.Columns {
		out[i] = Group{Column: c, Label: c.Label(), Tasks: task.InColumn(tasks, c)}
	}
	return out
}

// Filter keeps the tasks whose title or description matches query,
// ignoring case. A blank query keeps everything. In fuzzy mode the query
// characters need only appear in order.
func Filter(tasks []task.Task, query string, fuzzyMatch bool) []task.Task {
	q := strings.TrimSpace(query)
	if q == "" {
		return tasks
	}

	match := func(s string) bool {
		return strings.Contains(strings.ToLower(s), strings.ToLower(q))
	}
	if fuzzyMatch {
		match = func(s string) bool { return fuzzy.MatchFold(q, s) }
	}

	out := make([]task.Task, 0, len(tasks))
	for _, t := range tasks {
		if match(t.Title) || match(t.Description) {
			out = append(out, t)
		}
	}
	return out
}
