// Package engine keeps the client-side view of the board in sync with the
// task repository.
//
// The engine owns a cached, canonically ordered task list. Mutations are
// applied to the cache optimistically before the repository confirms them.
// A successful mutation marks the cache stale and refetches in the
// background; a failed one restores the snapshot taken just before its
// optimistic write and then refetches as well. A refetch in flight is
// cancelled whenever a mutation starts, so a stale read can never overwrite
// an optimistic write, and mutations touching the same task run one at a
// time.
package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"

	"taskboard/internal/reorder"
	"taskboard/internal/task"
)

// DefaultStaleTime is how long fetched data is considered fresh.
const DefaultStaleTime = 30 * time.Second

// Repository is the task API the engine synchronizes with.
type Repository interface {
	FetchAll(ctx context.Context) ([]task.Task, error)
	Create(ctx context.Context, in task.CreateInput) (task.Task, error)
	Update(ctx context.Context, id int, p task.Patch) (task.Task, error)
	Delete(ctx context.Context, id int) error
}

// QueryStatus describes the task list query.
type QueryStatus int

const (
	QueryIdle QueryStatus = iota
	QueryLoading
	QueryReady
	QueryError
)

func (s QueryStatus) String() string {
	switch s {
	case QueryIdle:
		return "idle"
	case QueryLoading:
		return "loading"
	case QueryReady:
		return "ready"
	case QueryError:
		return "error"
	default:
		return "unknown"
	}
}

// View is a consistent read of the cache.
type View struct {
	Tasks     []task.Task
	Status    QueryStatus
	Err       error
	Stale     bool
	FetchedAt time.Time
}

// Options configures an Engine.
type Options struct {
	Logger    *slog.Logger
	Tracer    trace.Tracer
	StaleTime time.Duration

	// Now replaces time.Now (for testing).
	Now func() time.Time
}

// Engine is the query/mutation cache for the task list.
type Engine struct {
	repo      Repository
	log       *slog.Logger
	tracer    trace.Tracer
	staleTime time.Duration
	now       func() time.Time

	bg       context.Context
	bgCancel context.CancelFunc
	locks    *keyLocks

	mu          sync.Mutex
	tasks       []task.Task
	status      QueryStatus
	err         error
	stale       bool
	fetchedAt   time.Time
	version     uint64
	fetchGen    uint64
	fetchCancel context.CancelFunc
	inflight    int
	active      int
	idle        chan struct{}
	pending     int
	busy        map[int]int
	subs        map[int]func([]task.Task)
	nextSub     int

	// queue holds written lists not yet delivered, in write order.
	// deliverMu is held by the one goroutine draining it.
	queue     [][]task.Task
	deliverMu sync.Mutex
}

// New creates an engine over repo. Call Load before reading.
func New(repo Repository, opts Options) *Engine {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Tracer == nil {
		opts.Tracer = nooptrace.NewTracerProvider().Tracer("taskboard/engine")
	}
	if opts.StaleTime <= 0 {
		opts.StaleTime = DefaultStaleTime
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	bg, cancel := context.WithCancel(context.Background())
	return &Engine{
		repo:      repo,
		log:       opts.Logger.With("component", "engine"),
		tracer:    opts.Tracer,
		staleTime: opts.StaleTime,
		now:       opts.Now,
		bg:        bg,
		bgCancel:  cancel,
		locks:     newKeyLocks(),
		idle:      make(chan struct{}),
		busy:      make(map[int]int),
		subs:      make(map[int]func([]task.Task)),
	}
}

// Load performs the initial fetch. If it fails the engine stays in
// QueryError and View exposes no tasks.
func (e *Engine) Load(ctx context.Context) error {
	return e.fetch(ctx)
}

// Refetch fetches the list now, superseding any background refetch.
// The result is dropped if a mutation is in flight.
func (e *Engine) Refetch(ctx context.Context) error {
	return e.fetch(ctx)
}

// Refresh fetches only when the cache is missing, stale or older than the
// stale time.
func (e *Engine) Refresh(ctx context.Context) error {
	e.mu.Lock()
	fresh := e.status == QueryReady && !e.stale && e.now().Sub(e.fetchedAt) < e.staleTime
	e.mu.Unlock()
	if fresh {
		return nil
	}
	return e.fetch(ctx)
}

// Tasks returns a copy of the cached list in canonical order.
func (e *Engine) Tasks() []task.Task {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.tasks)
}

// View returns the cache together with the query state.
func (e *Engine) View() View {
	e.mu.Lock()
	defer e.mu.Unlock()
	v := View{
		Status:    e.status,
		Err:       e.err,
		Stale:     e.stale,
		FetchedAt: e.fetchedAt,
	}
	if e.status != QueryError {
		v.Tasks = slices.Clone(e.tasks)
	}
	return v
}

// Busy reports whether a mutation touching id has not settled yet.
func (e *Engine) Busy(id int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.busy[id] > 0
}

// Pending returns the number of unsettled mutations.
func (e *Engine) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pending
}

// Subscribe registers fn to receive a copy of the list after every cache
// write. Lists arrive in write order and fn is never called concurrently;
// it runs outside the engine's lock and writes made while it runs are
// delivered after it returns. The returned func unsubscribes.
func (e *Engine) Subscribe(fn func([]task.Task)) func() {
	e.mu.Lock()
	id := e.nextSub
	e.nextSub++
	e.subs[id] = fn
	e.mu.Unlock()

	return func() {
		e.mu.Lock()
		delete(e.subs, id)
		e.mu.Unlock()
	}
}

// WaitIdle blocks until no mutation or refetch is running.
func (e *Engine) WaitIdle(ctx context.Context) error {
	for {
		e.mu.Lock()
		if e.active == 0 {
			e.mu.Unlock()
			return nil
		}
		ch := e.idle
		e.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close cancels background refetches and waits for running work to end.
func (e *Engine) Close() {
	e.bgCancel()
	_ = e.WaitIdle(context.Background())
}

// Create stores a new task. The title and description are trimmed and a
// blank title is rejected. Position 0 places the task last in its column and
// an empty column means backlog. Nothing is shown until the store confirms.
func (e *Engine) Create(ctx context.Context, in task.CreateInput) *Mutation {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	if in.Title == "" {
		return e.reject(KindCreate, nil, &task.ValidationError{Field: "title", Reason: "required"})
	}
	if in.Column == "" {
		in.Column = task.Backlog
	}
	if in.Position == 0 {
		e.mu.Lock()
		in.Position = task.NextPosition(e.tasks, in.Column)
		e.mu.Unlock()
	}
	if err := in.Validate(); err != nil {
		return e.reject(KindCreate, nil, err)
	}

	m := newMutation(KindCreate, nil)
	return e.start(ctx, m, nil, func(ctx context.Context) error {
		t, err := e.repo.Create(ctx, in)
		if err != nil {
			return err
		}
		m.setResult(t)
		return nil
	})
}

// Update merges p into task id, optimistically.
func (e *Engine) Update(ctx context.Context, id int, p task.Patch) *Mutation {
	if err := validatePatch(p); err != nil {
		return e.reject(KindUpdate, []int{id}, err)
	}

	m := newMutation(KindUpdate, []int{id})
	change := func(tasks []task.Task) []task.Task {
		for i := range tasks {
			if tasks[i].ID == id {
				tasks[i] = p.Apply(tasks[i])
			}
		}
		return tasks
	}
	return e.start(ctx, m, change, func(ctx context.Context) error {
		t, err := e.repo.Update(ctx, id, p)
		if err != nil {
			return err
		}
		m.setResult(t)
		return nil
	})
}

// Delete removes task id, optimistically.
func (e *Engine) Delete(ctx context.Context, id int) *Mutation {
	m := newMutation(KindDelete, []int{id})
	change := func(tasks []task.Task) []task.Task {
		return slices.DeleteFunc(tasks, func(t task.Task) bool { return t.ID == id })
	}
	return e.start(ctx, m, change, func(ctx context.Context) error {
		return e.repo.Delete(ctx, id)
	})
}

// Reorder resolves a drop of movedID onto target and applies the resulting
// placements. A drop that changes nothing returns an already settled no-op
// mutation. If the mutation has to wait for tasks it touches, the drop is
// resolved again against the cache it writes over.
func (e *Engine) Reorder(ctx context.Context, movedID int, target reorder.DropTarget) *Mutation {
	updates := reorder.Resolve(e.Tasks(), movedID, target)
	return e.apply(ctx, updates, func(tasks []task.Task) []reorder.Update {
		return reorder.Resolve(tasks, movedID, target)
	})
}

// Apply places several tasks at once. The cache sees all placements in one
// write; the store receives one update per task, concurrently, and the
// batch fails if any of them fails. When an id appears more than once the
// last placement wins.
func (e *Engine) Apply(ctx context.Context, updates []reorder.Update) *Mutation {
	return e.apply(ctx, updates, nil)
}

func (e *Engine) apply(ctx context.Context, updates []reorder.Update, resolve func([]task.Task) []reorder.Update) *Mutation {
	updates = lastPlacements(updates)
	if len(updates) == 0 {
		m := newMutation(KindReorder, nil)
		m.noop = true
		m.settle(nil)
		return m
	}

	ids := make([]int, 0, len(updates))
	for _, u := range updates {
		if err := u.Patch().Validate(); err != nil {
			return e.reject(KindReorder, nil, err)
		}
		ids = append(ids, u.ID)
	}
	slices.Sort(ids)

	m := newMutation(KindReorder, ids)
	batch := updates
	change := func(tasks []task.Task) []task.Task {
		if resolve != nil {
			if again := lastPlacements(resolve(tasks)); coveredBy(again, ids) {
				batch = again
			}
		}
		if len(batch) == 0 {
			return nil
		}
		for i := range tasks {
			for _, u := range batch {
				if tasks[i].ID == u.ID {
					tasks[i].Column = u.Column
					tasks[i].Position = u.Position
				}
			}
		}
		return tasks
	}
	return e.start(ctx, m, change, func(ctx context.Context) error {
		g, ctx := errgroup.WithContext(ctx)
		for _, u := range batch {
			g.Go(func() error {
				_, err := e.repo.Update(ctx, u.ID, u.Patch())
				return err
			})
		}
		return g.Wait()
	})
}

// lastPlacements drops earlier placements of an id placed more than once,
// keeping the first-seen order.
func lastPlacements(updates []reorder.Update) []reorder.Update {
	at := make(map[int]int, len(updates))
	out := make([]reorder.Update, 0, len(updates))
	for _, u := range updates {
		if i, ok := at[u.ID]; ok {
			out[i] = u
			continue
		}
		at[u.ID] = len(out)
		out = append(out, u)
	}
	return out
}

// coveredBy reports whether every update touches one of the sorted ids.
func coveredBy(updates []reorder.Update, ids []int) bool {
	for _, u := range updates {
		if _, ok := slices.BinarySearch(ids, u.ID); !ok {
			return false
		}
	}
	return true
}

func validatePatch(p task.Patch) error {
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return &task.ValidationError{Field: "title", Reason: "required"}
	}
	return p.Validate()
}

// reject returns a mutation that failed before reaching the cache.
func (e *Engine) reject(kind Kind, ids []int, err error) *Mutation {
	m := newMutation(kind, ids)
	e.log.Debug("mutation rejected", "mutation", m.id, "kind", kind, "err", err)
	m.settle(err)
	return m
}

// start runs a mutation: wait for its ids, write the optimistic change,
// dispatch, then roll back or reconcile. When the ids are free the
// optimistic write happens before start returns.
func (e *Engine) start(ctx context.Context, m *Mutation, change func([]task.Task) []task.Task, dispatch func(context.Context) error) *Mutation {
	ctx, span := e.tracer.Start(ctx, "taskboard.engine."+m.kind.String(),
		trace.WithAttributes(
			attribute.String("taskboard.mutation.id", m.id.String()),
			attribute.IntSlice("taskboard.task.ids", m.ids),
		),
	)

	e.mu.Lock()
	e.active++
	e.pending++
	for _, id := range m.ids {
		e.busy[id]++
	}
	e.mu.Unlock()

	t := e.locks.enqueue(m.ids)
	if t.granted {
		e.begin(m, change)
		go e.run(ctx, span, m, t, dispatch)
		return m
	}

	e.log.Debug("mutation deferred", "mutation", m.id, "kind", m.kind, "ids", m.ids)
	go func() {
		if err := e.locks.wait(ctx, t); err != nil {
			e.end(span, m, err)
			return
		}
		e.begin(m, change)
		e.run(ctx, span, m, t, dispatch)
	}()
	return m
}

// begin cancels any refetch, snapshots the cache and applies change as a
// single write. A change that returns nil leaves the cache alone.
func (e *Engine) begin(m *Mutation, change func([]task.Task) []task.Task) {
	e.mu.Lock()
	e.cancelFetchLocked()
	e.inflight++

	if change != nil {
		snap := slices.Clone(e.tasks)
		if next := change(slices.Clone(e.tasks)); next != nil {
			task.Sort(next)
			m.snapshot = snap
			e.writeLocked(next)
			m.applied = e.version
		}
	}
	m.setPhase(PhaseOptimistic)
	e.mu.Unlock()

	e.log.Debug("mutation optimistic", "mutation", m.id, "kind", m.kind, "ids", m.ids)
	e.deliver()
}

// run dispatches the mutation and settles it after reconciliation.
func (e *Engine) run(ctx context.Context, span trace.Span, m *Mutation, t *ticket, dispatch func(context.Context) error) {
	err := dispatch(ctx)

	e.mu.Lock()
	e.inflight--
	if err != nil {
		m.setPhase(PhaseRollingBack)
		e.rollbackLocked(m)
	} else {
		m.setPhase(PhaseReconciling)
	}
	e.stale = true
	refetched := e.startRefetchLocked()
	e.mu.Unlock()

	e.deliver()
	e.locks.release(t)

	if err != nil {
		e.log.Warn("mutation failed, rolled back", "mutation", m.id, "kind", m.kind, "ids", m.ids, "err", err)
	}
	<-refetched
	e.end(span, m, err)
}

// end settles m and releases its bookkeeping.
func (e *Engine) end(span trace.Span, m *Mutation, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()

	m.settle(err)
	if err == nil {
		e.log.Debug("mutation settled", "mutation", m.id, "kind", m.kind, "ids", m.ids)
	}

	e.mu.Lock()
	e.pending--
	for _, id := range m.ids {
		if e.busy[id]--; e.busy[id] <= 0 {
			delete(e.busy, id)
		}
	}
	e.untrackLocked()
	e.mu.Unlock()
}

// rollbackLocked restores m's snapshot. When the cache has not been written
// since m's optimistic write the snapshot is restored as is; otherwise only
// m's records are put back so concurrent mutations keep their changes.
func (e *Engine) rollbackLocked(m *Mutation) {
	if m.snapshot == nil {
		return
	}
	snap := m.snapshot
	m.snapshot = nil

	if e.version == m.applied {
		e.writeLocked(snap)
		return
	}

	next := slices.Clone(e.tasks)
	for _, id := range m.ids {
		prev, ok := task.Find(snap, id)
		if !ok {
			continue
		}
		if i := slices.IndexFunc(next, func(t task.Task) bool { return t.ID == id }); i >= 0 {
			next[i] = prev
		} else {
			next = append(next, prev)
		}
	}
	task.Sort(next)
	e.writeLocked(next)
}

// fetch runs a foreground fetch.
func (e *Engine) fetch(ctx context.Context) error {
	e.mu.Lock()
	e.cancelFetchLocked()
	gen := e.fetchGen
	if e.status == QueryIdle {
		e.status = QueryLoading
	}
	e.active++
	e.mu.Unlock()

	tasks, err := e.repo.FetchAll(ctx)

	e.mu.Lock()
	e.landLocked(gen, tasks, err)
	e.mu.Unlock()

	e.deliver()
	e.mu.Lock()
	e.untrackLocked()
	e.mu.Unlock()
	return err
}

// startRefetchLocked supersedes any running refetch with a new background
// one. The returned channel is closed when it finishes, applied or not.
func (e *Engine) startRefetchLocked() <-chan struct{} {
	e.cancelFetchLocked()
	ctx, cancel := context.WithCancel(e.bg)
	gen := e.fetchGen
	e.fetchCancel = cancel
	e.active++

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer cancel()

		tasks, err := e.repo.FetchAll(ctx)

		e.mu.Lock()
		e.landLocked(gen, tasks, err)
		e.mu.Unlock()

		e.deliver()
		e.mu.Lock()
		e.untrackLocked()
		e.mu.Unlock()
	}()
	return done
}

// cancelFetchLocked cancels the running refetch, if any, and makes any
// fetch already started land nowhere.
func (e *Engine) cancelFetchLocked() {
	if e.fetchCancel != nil {
		e.fetchCancel()
		e.fetchCancel = nil
	}
	e.fetchGen++
}

// landLocked applies a fetch result if it is still current and no mutation
// is in flight.
func (e *Engine) landLocked(gen uint64, tasks []task.Task, err error) {
	if gen != e.fetchGen {
		return
	}
	e.fetchCancel = nil

	if err != nil {
		if errors.Is(err, context.Canceled) && e.bg.Err() != nil {
			return
		}
		if e.status != QueryReady {
			e.status = QueryError
			e.err = err
		}
		e.log.Warn("fetch tasks failed", "err", err)
		return
	}
	if e.inflight > 0 {
		return
	}

	e.status = QueryReady
	e.err = nil
	e.stale = false
	e.fetchedAt = e.now()
	e.writeLocked(tasks)
}

// writeLocked replaces the cache and queues a copy for subscribers.
// Callers run deliver once they drop e.mu.
func (e *Engine) writeLocked(tasks []task.Task) {
	if tasks == nil {
		tasks = []task.Task{}
	}
	e.tasks = tasks
	e.version++
	if len(e.subs) > 0 {
		e.queue = append(e.queue, slices.Clone(tasks))
	}
}

func (e *Engine) untrackLocked() {
	e.active--
	if e.active == 0 {
		close(e.idle)
		e.idle = make(chan struct{})
	}
}

func (e *Engine) subscribersLocked() []func([]task.Task) {
	if len(e.subs) == 0 {
		return nil
	}
	out := make([]func([]task.Task), 0, len(e.subs))
	for _, fn := range e.subs {
		out = append(out, fn)
	}
	return out
}

// deliver hands queued lists to subscribers in write order. If another
// goroutine is already delivering it returns at once and that goroutine
// picks up the new lists, so writers never wait on a slow subscriber.
func (e *Engine) deliver() {
	for {
		if !e.deliverMu.TryLock() {
			return
		}
		for {
			e.mu.Lock()
			lists := e.queue
			e.queue = nil
			subs := e.subscribersLocked()
			e.mu.Unlock()
			if len(lists) == 0 {
				break
			}
			for _, tasks := range lists {
				for _, fn := range subs {
					fn(slices.Clone(tasks))
				}
			}
		}
		e.deliverMu.Unlock()

		// A writer may have queued a list and failed TryLock just before
		// the unlock above.
		e.mu.Lock()
		more := len(e.queue) > 0
		e.mu.Unlock()
		if !more {
			return
		}
	}
}
