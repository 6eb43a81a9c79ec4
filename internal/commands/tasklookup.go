package commands

import (
	"context"
	"errors"
	"fmt"
	"io"

	"taskboard/internal/engine"
	"taskboard/internal/exitcode"
	"taskboard/internal/task"
)

// lookupTask finds id in the loaded board.
func lookupTask(sess *Session, id int) (task.Task, error) {
	t, ok := task.Find(sess.Engine.Tasks(), id)
	if !ok {
		return task.Task{}, &task.NotFoundError{ID: id}
	}
	return t, nil
}

// await blocks until m has settled, including the refetch that follows it,
// and reports a failure on errOut.
func await(ctx context.Context, m *engine.Mutation, errOut io.Writer) int {
	if err := m.Wait(ctx); err != nil {
		return report(errOut, err)
	}
	return exitcode.Success
}

// report prints err and returns the matching exit code.
func report(errOut io.Writer, err error) int {
	code := exitcode.ForError(err)
	switch {
	case errors.Is(err, context.Canceled):
		fmt.Fprintln(errOut, "error: interrupted")
	case code == exitcode.BackendError:
		fmt.Fprintf(errOut, "error: backend error: %v\n", err)
	default:
		fmt.Fprintf(errOut, "error: %v\n", err)
	}
	return code
}
