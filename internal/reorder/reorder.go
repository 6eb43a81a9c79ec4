// Package reorder turns a drag-and-drop gesture into column and position
// assignments. It performs no I/O and never fails: input it cannot make
// sense of resolves to no updates.
package reorder

import (
	"slices"

	"taskboard/internal/task"
)

// DropTarget is where a dragged task was released: a ColumnArea or a
// SiblingTask.
type DropTarget interface {
	isDropTarget()
}

// ColumnArea is the empty area of a column.
type ColumnArea struct {
	Column task.Column
}

// SiblingTask is another task card.
type SiblingTask struct {
	ID int
}

func (ColumnArea) isDropTarget()  {}
func (SiblingTask) isDropTarget() {}

// Update is the new placement of one task.
type Update struct {
	ID       int
	Column   task.Column
	Position int
}

// Patch converts u to a partial update carrying only column and position.
func (u Update) Patch() task.Patch {
	return task.Placement(u.Column, u.Position)
}

// Resolve computes the placements produced by dropping movedID on target.
// A nil result means nothing changes.
//
// Drops into another column never renumber the destination column, so a
// column may end up with duplicate positions; the canonical sort tolerates
// that. Only a reorder within one column renumbers, densely from 1.
func Resolve(tasks []task.Task, movedID int, target DropTarget) []Update {
	moved, ok := task.Find(tasks, movedID)
	if !ok {
		return nil
	}

	switch t := target.(type) {
	case ColumnArea:
		if !t.Column.Valid() || t.Column == moved.Column {
			return nil
		}
		return []Update{{ID: moved.ID, Column: t.Column, Position: 1}}

	case SiblingTask:
		if t.ID == moved.ID {
			return nil
		}
		over, ok := task.Find(tasks, t.ID)
		if !ok {
			return nil
		}
		if over.Column != moved.Column {
			pos := over.Position
			if pos < 1 {
				pos = 1
			}
			return []Update{{ID: moved.ID, Column: over.Column, Position: pos}}
		}
		return withinColumn(tasks, moved, over)
	}
	return nil
}

func withinColumn(tasks []task.Task, moved, over task.Task) []Update {
	col := task.InColumn(tasks, moved.Column)

	from := slices.IndexFunc(col, func(t task.Task) bool { return t.ID == moved.ID })
	to := slices.IndexFunc(col, func(t task.Task) bool { return t.ID == over.ID })
	if from < 0 || to < 0 || from == to {
		return nil
	}

	col = slices.Delete(col, from, from+1)
	col = slices.Insert(col, to, moved)

	out := make([]Update, len(col))
	for i, t := range col {
		out[i] = Update{ID: t.ID, Column: t.Column, Position: i + 1}
	}
	return out
}
