// Package board holds the presentation state of the task board: the search
// query, the task form dialog and the helpers that turn the engine's task
// list into columns.
package board

import "sync"

// Modal describes the task form dialog. EditingID is non-zero when an
// existing task is being edited; otherwise Column is where a new task goes.
type Modal struct {
	Open      bool
	EditingID int
	Column    string
}

// Editing reports whether the dialog edits an existing task.
func (m Modal) Editing() bool { return m.Open && m.EditingID != 0 }

// State is safe for concurrent use.
type State struct {
	mu     sync.RWMutex
	search string
	modal  Modal
}

// NewState returns an empty state with the dialog closed.
func NewState() *State {
	return &State{}
}

// SetSearch replaces the search query.
func (s *State) SetSearch(q string) {
	s.mu.Lock()
	s.search = q
	s.mu.Unlock()
}

// Search returns the search query.
func (s *State) Search() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.search
}

// OpenCreate opens the dialog to add a task to column.
func (s *State) OpenCreate(column string) {
	s.mu.Lock()
	s.modal = Modal{Open: true, Column: column}
	s.mu.Unlock()
}

// OpenEdit opens the dialog on task id.
func (s *State) OpenEdit(id int) {
	s.mu.Lock()
	s.modal = Modal{Open: true, EditingID: id}
	s.mu.Unlock()
}

// Close closes the dialog and forgets its target.
func (s *State) Close() {
	s.mu.Lock()
	s.modal = Modal{}
	s.mu.Unlock()
}

// Modal returns the dialog state.
func (s *State) Modal() Modal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.modal
}
