// Package memstore implements store.Store in process memory.
// It backs fallback mode and the dev server; nothing survives a restart.
package memstore

import (
	"context"
	"slices"
	"sync"

	"taskboard/internal/task"
)

// Store is an in-memory task collection with a monotonically increasing id
// counter. Safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	tasks  []task.Task
	nextID int
}

// New creates an empty store whose first id is 1.
func New() *Store {
	return &Store{nextID: 1}
}

// NewSeeded creates a store holding the given tasks. The id counter starts
// above the highest seeded id.
func NewSeeded(seed []task.Task) *Store {
	s := &Store{tasks: slices.Clone(seed), nextID: 1}
	for _, t := range seed {
		if t.ID >= s.nextID {
			s.nextID = t.ID + 1
		}
	}
	return s
}

// NewSample creates a store seeded with SampleTasks.
func NewSample() *Store {
	return NewSeeded(SampleTasks())
}

// List implements store.Store.
func (s *Store) List(ctx context.Context) ([]task.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.tasks), nil
}

// Create implements store.Store.
func (s *Store) Create(ctx context.Context, in task.CreateInput) (task.Task, error) {
	if err := ctx.Err(); err != nil {
		return task.Task{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	t := task.Task{
		ID:          s.nextID,
		Title:       in.Title,
		Description: in.Description,
		Column:      in.Column,
		Position:    in.Position,
	}
	s.nextID++
	s.tasks = append(s.tasks, t)
	return t, nil
}

// Update implements store.Store.
func (s *Store) Update(ctx context.Context, id int, p task.Patch) (task.Task, error) {
	if err := ctx.Err(); err != nil {
		return task.Task{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(id)
	if i < 0 {
		return task.Task{}, &task.NotFoundError{ID: id}
	}
	s.tasks[i] = p.Apply(s.tasks[i])
	return s.tasks[i], nil
}

// Delete implements store.Store.
func (s *Store) Delete(ctx context.Context, id int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(id)
	if i < 0 {
		return &task.NotFoundError{ID: id}
	}
	s.tasks = slices.Delete(s.tasks, i, i+1)
	return nil
}

// Len returns the number of stored tasks.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tasks)
}

func (s *Store) index(id int) int {
	return slices.IndexFunc(s.tasks, func(t task.Task) bool { return t.ID == id })
}
