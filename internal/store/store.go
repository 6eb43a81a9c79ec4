// Package store defines the backend-agnostic contract of a task collection.
package store

import (
	"context"

	"taskboard/internal/task"
)

// Store is a collection-style CRUD surface over task records.
// The repository never reaches a backend except through this interface.
type Store interface {
	// List returns every task in store order (no client-side sorting).
	List(ctx context.Context) ([]task.Task, error)

	// Create stores a new task and returns it with its assigned id.
	Create(ctx context.Context, in task.CreateInput) (task.Task, error)

	// Update merges the set fields of p into task id and returns the result.
	// Returns an error matching task.ErrNotFound if id is absent.
	Update(ctx context.Context, id int, p task.Patch) (task.Task, error)

	// Delete removes task id.
	// Returns an error matching task.ErrNotFound if id is absent.
	Delete(ctx context.Context, id int) error
}
