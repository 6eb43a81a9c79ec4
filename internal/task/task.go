// Package task defines the board's data model: tasks, columns and the
// payloads used to create and patch them.
package task

import (
	"cmp"
	"slices"
)

// Column identifies one of the fixed workflow stages.
type Column string

const (
	Backlog    Column = "backlog"
	InProgress Column = "in_progress"
	Review     Column = "review"
	Done       Column = "done"
)

// Columns lists every column in board order.
var Columns = []Column{Backlog, InProgress, Review, Done}

var columnLabels = map[Column]string{
	Backlog:    "TO DO",
	InProgress: "IN PROGRESS",
	Review:     "IN REVIEW",
	Done:       "DONE",
}

// Valid reports whether c is one of the four known columns.
func (c Column) Valid() bool {
	_, ok := columnLabels[c]
	return ok
}

// Label returns the display label for the column.
func (c Column) Label() string {
	if l, ok := columnLabels[c]; ok {
		return l
	}
	return string(c)
}

// Rank returns the board index of the column, or len(Columns) for an
// unknown column so that it sorts last.
func (c Column) Rank() int {
	if i := slices.Index(Columns, c); i >= 0 {
		return i
	}
	return len(Columns)
}

// ParseColumn converts s to a Column.
func ParseColumn(s string) (Column, error) {
	c := Column(s)
	if !c.Valid() {
		return "", &ValidationError{Field: "column", Reason: "unknown column " + quote(s)}
	}
	return c, nil
}

// Task is a single work item on the board.
type Task struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Column      Column `json:"column"`
	Position    int    `json:"position"`
}

// CreateInput holds the fields of a new task. The id is assigned by the store.
type CreateInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Column      Column `json:"column"`
	Position    int    `json:"position"`
}

// Validate checks the required fields. An empty title is accepted here;
// callers that care reject it before reaching the store.
func (in CreateInput) Validate() error {
	if in.Column == "" {
		return &ValidationError{Field: "column", Reason: "required"}
	}
	if !in.Column.Valid() {
		return &ValidationError{Field: "column", Reason: "unknown column " + quote(string(in.Column))}
	}
	if in.Position < 1 {
		return &ValidationError{Field: "position", Reason: "must be positive"}
	}
	return nil
}

// Patch is a partial update. Nil fields are left untouched.
type Patch struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Column      *Column `json:"column,omitempty"`
	Position    *int    `json:"position,omitempty"`
}

// Validate checks the fields that are set.
func (p Patch) Validate() error {
	if p.Column != nil && !p.Column.Valid() {
		return &ValidationError{Field: "column", Reason: "unknown column " + quote(string(*p.Column))}
	}
	if p.Position != nil && *p.Position < 1 {
		return &ValidationError{Field: "position", Reason: "must be positive"}
	}
	return nil
}

// Empty reports whether no field is set.
func (p Patch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Column == nil && p.Position == nil
}

// Apply returns t with the set fields of p merged in.
func (p Patch) Apply(t Task) Task {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Column != nil {
		t.Column = *p.Column
	}
	if p.Position != nil {
		t.Position = *p.Position
	}
	return t
}

// Placement builds a patch that only moves a task.
func Placement(c Column, position int) Patch {
	return Patch{Column: &c, Position: &position}
}

// Sort orders tasks by (column rank, position) in place. The sort is stable:
// tasks with equal keys keep their relative order.
func Sort(tasks []Task) {
	slices.SortStableFunc(tasks, compare)
}

// Sorted returns a sorted copy of tasks.
func Sorted(tasks []Task) []Task {
	out := slices.Clone(tasks)
	Sort(out)
	return out
}

func compare(a, b Task) int {
	if c := cmp.Compare(a.Column.Rank(), b.Column.Rank()); c != 0 {
		return c
	}
	return cmp.Compare(a.Position, b.Position)
}

// Find returns the task with the given id.
func Find(tasks []Task, id int) (Task, bool) {
	i := slices.IndexFunc(tasks, func(t Task) bool { return t.ID == id })
	if i < 0 {
		return Task{}, false
	}
	return tasks[i], true
}

// InColumn returns the tasks of column c in position order.
func InColumn(tasks []Task, c Column) []Task {
	var out []Task
	for _, t := range tasks {
		if t.Column == c {
			out = append(out, t)
		}
	}
	slices.SortStableFunc(out, func(a, b Task) int { return cmp.Compare(a.Position, b.Position) })
	return out
}

// NextPosition returns the position that places a new task last in c.
func NextPosition(tasks []Task, c Column) int {
	highest := 0
	for _, t := range tasks {
		if t.Column == c && t.Position > highest {
			highest = t.Position
		}
	}
	return highest + 1
}
