package board

import (
	"context"
	"strings"

	"taskboard/internal/engine"
	"taskboard/internal/task"
)

// Form is the content of the task dialog.
type Form struct {
	Title       string
	Description string
}

// Prefill returns the form for m: the task's current values when editing,
// blank otherwise.
func Prefill(m Modal, tasks []task.Task) Form {
	if !m.Editing() {
		return Form{}
	}
	t, ok := task.Find(tasks, m.EditingID)
	if !ok {
		return Form{}
	}
	return Form{Title: t.Title, Description: t.Description}
}

// TargetColumn is the column a submitted form lands in: the edited task's
// column, the dialog's column, or backlog.
func TargetColumn(m Modal, tasks []task.Task) task.Column {
	if m.Editing() {
		if t, ok := task.Find(tasks, m.EditingID); ok {
			return t.Column
		}
	}
	if c, err := task.ParseColumn(m.Column); err == nil {
		return c
	}
	return task.Backlog
}

// Submit sends the form through the engine. Title and description are
// trimmed and a blank title is refused without contacting the engine.
// Editing changes only the title and description; creating appends the task
// to the end of its column. Close the dialog once the mutation succeeds.
func Submit(ctx context.Context, eng *engine.Engine, m Modal, f Form) (*engine.Mutation, error) {
	title := strings.TrimSpace(f.Title)
	desc := strings.TrimSpace(f.Description)
	if title == "" {
		return nil, &task.ValidationError{Field: "title", Reason: "required"}
	}

	tasks := eng.Tasks()
	if m.Editing() {
		if _, ok := task.Find(tasks, m.EditingID); !ok {
			return nil, &task.NotFoundError{ID: m.EditingID}
		}
		return eng.Update(ctx, m.EditingID, task.Patch{Title: &title, Description: &desc}), nil
	}

	col := TargetColumn(m, tasks)
	return eng.Create(ctx, task.CreateInput{
		Title:       title,
		Description: desc,
		Column:      col,
		Position:    task.NextPosition(tasks, col),
	}), nil
}
