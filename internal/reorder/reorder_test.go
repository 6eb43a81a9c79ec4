package reorder

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"taskboard/internal/task"
)

const (
	idA = 1
	idB = 2
	idC = 3
	idX = 10
)

func board() []task.Task {
	return []task.Task{
		{ID: idA, Column: task.Backlog, Position: 1},
		{ID: idB, Column: task.Backlog, Position: 2},
		{ID: idC, Column: task.Backlog, Position: 3},
		{ID: 4, Column: task.InProgress, Position: 1},
		{ID: 5, Column: task.InProgress, Position: 2},
		{ID: idX, Column: task.Review, Position: 1},
	}
}

func TestSameColumnRenumbersDensely(t *testing.T) {
	got := Resolve(board(), idC, SiblingTask{ID: idA})
	assert.Equal(t, []Update{
		{ID: idC, Column: task.Backlog, Position: 1},
		{ID: idA, Column: task.Backlog, Position: 2},
		{ID: idB, Column: task.Backlog, Position: 3},
	}, got)
}

func TestSameColumnMoveDown(t *testing.T) {
	got := Resolve(board(), idA, SiblingTask{ID: idB})
	assert.Equal(t, []Update{
		{ID: idB, Column: task.Backlog, Position: 1},
		{ID: idA, Column: task.Backlog, Position: 2},
		{ID: idC, Column: task.Backlog, Position: 3},
	}, got)
}

func TestSameColumnWithGapsAndTies(t *testing.T) {
	tasks := []task.Task{
		{ID: 7, Column: task.Done, Position: 4},
		{ID: 8, Column: task.Done, Position: 4},
		{ID: 9, Column: task.Done, Position: 10},
	}
	got := Resolve(tasks, 9, SiblingTask{ID: 7})
	assert.Equal(t, []Update{
		{ID: 9, Column: task.Done, Position: 1},
		{ID: 7, Column: task.Done, Position: 2},
		{ID: 8, Column: task.Done, Position: 3},
	}, got)
}

func TestDropOnEmptyColumnArea(t *testing.T) {
	tasks := board()
	got := Resolve(tasks, idX, ColumnArea{Column: task.Done})
	assert.Equal(t, []Update{{ID: idX, Column: task.Done, Position: 1}}, got)

	// Only the moved task is touched.
	for _, u := range got {
		assert.Equal(t, idX, u.ID)
	}
}

func TestDropOnColumnAreaWithExistingFirstTask(t *testing.T) {
	got := Resolve(board(), idX, ColumnArea{Column: task.InProgress})
	assert.Equal(t, []Update{{ID: idX, Column: task.InProgress, Position: 1}}, got,
		"ties with the existing position 1 are left to the stable sort")
}

func TestCrossColumnOntoSibling(t *testing.T) {
	got := Resolve(board(), idB, SiblingTask{ID: 5})
	assert.Equal(t, []Update{{ID: idB, Column: task.InProgress, Position: 2}}, got)
}

func TestNoOps(t *testing.T) {
	tests := []struct {
		name   string
		moved  int
		target DropTarget
	}{
		{"moved id absent", 99, ColumnArea{Column: task.Done}},
		{"moved id absent onto sibling", 99, SiblingTask{ID: idA}},
		{"sibling absent", idA, SiblingTask{ID: 42}},
		{"onto itself", idB, SiblingTask{ID: idB}},
		{"own column area", idA, ColumnArea{Column: task.Backlog}},
		{"unknown column", idA, ColumnArea{Column: "archive"}},
		{"nil target", idA, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Nil(t, Resolve(board(), tt.moved, tt.target))
		})
	}
}

func TestResolveDoesNotModifyInput(t *testing.T) {
	tasks := board()
	before := append([]task.Task(nil), tasks...)
	Resolve(tasks, idC, SiblingTask{ID: idA})
	assert.Equal(t, before, tasks)
}

func TestUpdatePatch(t *testing.T) {
	p := Update{ID: 3, Column: task.Review, Position: 2}.Patch()
	assert.Nil(t, p.Title)
	assert.Equal(t, task.Review, *p.Column)
	assert.Equal(t, 2, *p.Position)
}
