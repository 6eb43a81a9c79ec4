// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"sync"

	"taskboard/internal/backend/memstore"
	"taskboard/internal/task"
)

// FakeStore is an in-memory store.Store with error injection and call
// counting for testing.
type FakeStore struct {
	mem *memstore.Store

	mu    sync.Mutex
	calls map[string]int
	gate  chan struct{}

	// Error injection for testing. UpdateErrFor and DeleteErrFor take
	// precedence over the blanket errors for their ids.
	ListErr      error
	CreateErr    error
	UpdateErr    error
	DeleteErr    error
	UpdateErrFor map[int]error
	DeleteErrFor map[int]error
}

// NewFakeStore creates a FakeStore seeded with tasks.
func NewFakeStore(tasks ...task.Task) *FakeStore {
	return &FakeStore{
		mem:          memstore.NewSeeded(tasks),
		calls:        make(map[string]int),
		UpdateErrFor: make(map[int]error),
		DeleteErrFor: make(map[int]error),
	}
}

// NewSampleFakeStore creates a FakeStore seeded with the fallback sample board.
func NewSampleFakeStore() *FakeStore {
	return NewFakeStore(memstore.SampleTasks()...)
}

// Hold makes every following call block until Release is called or the
// call's context ends.
func (f *FakeStore) Hold() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.gate == nil {
		f.gate = make(chan struct{})
	}
}

// Release unblocks held calls.
func (f *FakeStore) Release() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.gate != nil {
		close(f.gate)
		f.gate = nil
	}
}

// SetErr sets an injected error under the store's lock so tests may change
// it while calls are in flight.
func (f *FakeStore) SetErr(target *error, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	*target = err
}

// Calls returns how many times op ("list", "create", "update", "delete") ran.
func (f *FakeStore) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// Snapshot returns the stored tasks in store order.
func (f *FakeStore) Snapshot() []task.Task {
	tasks, _ := f.mem.List(context.Background())
	return tasks
}

// enter records a call, waits on the gate and returns the injected error.
func (f *FakeStore) enter(ctx context.Context, op string, pick func() error) error {
	f.mu.Lock()
	f.calls[op]++
	gate := f.gate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return pick()
}

// List implements store.Store.
func (f *FakeStore) List(ctx context.Context) ([]task.Task, error) {
	if err := f.enter(ctx, "list", func() error { return f.ListErr }); err != nil {
		return nil, err
	}
	return f.mem.List(ctx)
}

// Create implements store.Store.
func (f *FakeStore) Create(ctx context.Context, in task.CreateInput) (task.Task, error) {
	if err := f.enter(ctx, "create", func() error { return f.CreateErr }); err != nil {
		return task.Task{}, err
	}
	return f.mem.Create(ctx, in)
}

// Update implements store.Store.
func (f *FakeStore) Update(ctx context.Context, id int, p task.Patch) (task.Task, error) {
	err := f.enter(ctx, "update", func() error {
		if err, ok := f.UpdateErrFor[id]; ok {
			return err
		}
		return f.UpdateErr
	})
	if err != nil {
		return task.Task{}, err
	}
	return f.mem.Update(ctx, id, p)
}

// Delete implements store.Store.
func (f *FakeStore) Delete(ctx context.Context, id int) error {
	err := f.enter(ctx, "delete", func() error {
		if err, ok := f.DeleteErrFor[id]; ok {
			return err
		}
		return f.DeleteErr
	})
	if err != nil {
		return err
	}
	return f.mem.Delete(ctx, id)
}
