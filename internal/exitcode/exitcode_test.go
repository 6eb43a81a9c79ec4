package exitcode

import (
	"errors"
	"fmt"
	"testing"

	"taskboard/internal/task"
)

func TestForError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, Success},
		{"validation", &task.ValidationError{Field: "title", Reason: "required"}, UserError},
		{"wrapped not found", fmt.Errorf("update task 3: %w", &task.NotFoundError{ID: 3}), UserError},
		{"transport", &task.TransportError{Op: "list", Status: 502}, BackendError},
		{"other", errors.New("boom"), BackendError},
	}
	for _, tt := range tests {
		if got := ForError(tt.err); got != tt.want {
			t.Errorf("%s: ForError = %d, want %d", tt.name, got, tt.want)
		}
	}
}
