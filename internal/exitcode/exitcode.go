// Package exitcode defines exit codes for the CLI.
package exitcode

import (
	"errors"

	"taskboard/internal/task"
)

const (
	// Success indicates successful completion.
	Success = 0

	// UserError indicates a user error (bad args, unknown task, invalid input).
	UserError = 1

	// ConfigError indicates an unreadable or invalid configuration.
	ConfigError = 2

	// BackendError indicates a task store or network error.
	BackendError = 3
)

// ForError maps a task error to an exit code.
func ForError(err error) int {
	switch {
	case err == nil:
		return Success
	case errors.Is(err, task.ErrValidation), errors.Is(err, task.ErrNotFound):
		return UserError
	default:
		return BackendError
	}
}
