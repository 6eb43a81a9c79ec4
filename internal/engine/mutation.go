package engine

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"taskboard/internal/task"
)

// Kind is the type of change a mutation makes.
type Kind int

const (
	KindCreate Kind = iota
	KindUpdate
	KindDelete
	KindReorder
)

func (k Kind) String() string {
	switch k {
	case KindCreate:
		return "create"
	case KindUpdate:
		return "update"
	case KindDelete:
		return "delete"
	case KindReorder:
		return "reorder"
	default:
		return "unknown"
	}
}

// Status is what a UI needs to enable or disable its controls.
type Status int

const (
	StatusPending Status = iota
	StatusSettled
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusSettled:
		return "settled"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Phase is the mutation's position in its lifecycle:
//
//	Idle -> Optimistic -> Reconciling -> Idle   (success)
//	Idle -> Optimistic -> RollingBack -> Idle   (failure)
//
// A mutation deferred behind another one on the same task stays Idle and
// Pending until it may start. Create has no optimistic change but passes
// through Optimistic while its request is in flight.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseOptimistic
	PhaseReconciling
	PhaseRollingBack
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseOptimistic:
		return "optimistic"
	case PhaseReconciling:
		return "reconciling"
	case PhaseRollingBack:
		return "rolling_back"
	default:
		return "unknown"
	}
}

// Mutation tracks one create, update, delete or reorder.
type Mutation struct {
	id   uuid.UUID
	kind Kind
	ids  []int
	done chan struct{}

	// Owned by the engine while the mutation is in flight.
	snapshot []task.Task
	applied  uint64

	mu        sync.Mutex
	status    Status
	phase     Phase
	err       error
	result    task.Task
	hasResult bool
	noop      bool
}

func newMutation(kind Kind, ids []int) *Mutation {
	return &Mutation{
		id:   uuid.New(),
		kind: kind,
		ids:  ids,
		done: make(chan struct{}),
	}
}

// ID identifies the mutation in logs and traces.
func (m *Mutation) ID() uuid.UUID { return m.id }

// Kind returns the mutation type.
func (m *Mutation) Kind() Kind { return m.kind }

// TaskIDs returns the ids the mutation touches. Empty for create.
func (m *Mutation) TaskIDs() []int { return append([]int(nil), m.ids...) }

// Done is closed once the mutation has settled or failed.
func (m *Mutation) Done() <-chan struct{} { return m.done }

// Status reports pending, settled or failed.
func (m *Mutation) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Phase reports the lifecycle phase.
func (m *Mutation) Phase() Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase
}

// Err returns the failure, or nil while pending or after success.
func (m *Mutation) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

// Result returns the task confirmed by the store for create and update.
func (m *Mutation) Result() (task.Task, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.result, m.hasResult
}

// Noop reports whether the mutation resolved to no change.
func (m *Mutation) Noop() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.noop
}

// Wait blocks until the mutation is done and returns its error.
func (m *Mutation) Wait(ctx context.Context) error {
	select {
	case <-m.done:
		return m.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Mutation) setPhase(p Phase) {
	m.mu.Lock()
	m.phase = p
	m.mu.Unlock()
}

func (m *Mutation) setResult(t task.Task) {
	m.mu.Lock()
	m.result = t
	m.hasResult = true
	m.mu.Unlock()
}

// settle moves the mutation to its final state and wakes waiters.
func (m *Mutation) settle(err error) {
	m.mu.Lock()
	m.phase = PhaseIdle
	m.err = err
	if err != nil {
		m.status = StatusFailed
	} else {
		m.status = StatusSettled
	}
	m.mu.Unlock()
	close(m.done)
}
