// Package repository is the task API client the rest of the board talks to.
// It chooses between the network store and the in-memory fallback once, when
// it is opened, and returns reads in canonical board order.
package repository

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"taskboard/internal/backend/memstore"
	"taskboard/internal/store"
	"taskboard/internal/task"
)

const (
	// DefaultProbeTimeout bounds the startup reachability check.
	DefaultProbeTimeout = 1500 * time.Millisecond

	// DefaultCallTimeout bounds every other call.
	DefaultCallTimeout = 5 * time.Second

	tracerName = "taskboard/repository"
)

// Mode says which store the repository talks to.
type Mode int

const (
	// ModeAuto probes the remote store and falls back when it is unreachable.
	ModeAuto Mode = iota
	// ModeNetwork uses the remote store.
	ModeNetwork
	// ModeFallback uses the in-memory store.
	ModeFallback
)

func (m Mode) String() string {
	switch m {
	case ModeNetwork:
		return "network"
	case ModeFallback:
		return "fallback"
	default:
		return "auto"
	}
}

// ParseMode converts a config value to a Mode. Empty means auto.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "auto":
		return ModeAuto, nil
	case "network":
		return ModeNetwork, nil
	case "fallback", "memory":
		return ModeFallback, nil
	default:
		return ModeAuto, fmt.Errorf("unknown mode %q (want auto, network or fallback)", s)
	}
}

// Options configures Open.
type Options struct {
	// Remote is the network store. Nil forces fallback in auto mode.
	Remote store.Store

	// Fallback replaces the seeded in-memory store (for testing).
	Fallback store.Store

	// Mode forces a mode. ModeAuto probes Remote.
	Mode Mode

	// ProbeTimeout must be shorter than CallTimeout.
	ProbeTimeout time.Duration
	CallTimeout  time.Duration

	Logger *slog.Logger
	Tracer trace.Tracer
}

// Repository wraps the active store. Its mode never changes after Open.
type Repository struct {
	store       store.Store
	mode        Mode
	callTimeout time.Duration
	log         *slog.Logger
	tracer      trace.Tracer
}

// Open resolves the mode and returns a ready repository.
// In auto mode the remote store is probed once; any failure selects fallback
// for the repository's lifetime.
func Open(ctx context.Context, opts Options) (*Repository, error) {
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = DefaultProbeTimeout
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = DefaultCallTimeout
	}
	if opts.ProbeTimeout >= opts.CallTimeout {
		return nil, fmt.Errorf("probe timeout %s must be shorter than call timeout %s", opts.ProbeTimeout, opts.CallTimeout)
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Tracer == nil {
		opts.Tracer = nooptrace.NewTracerProvider().Tracer(tracerName)
	}

	r := &Repository{
		callTimeout: opts.CallTimeout,
		log:         opts.Logger.With("component", "repository"),
		tracer:      opts.Tracer,
	}

	mode := opts.Mode
	if mode == ModeNetwork && opts.Remote == nil {
		return nil, errors.New("network mode requires a remote store")
	}
	if mode == ModeAuto {
		mode = r.probe(ctx, opts.Remote, opts.ProbeTimeout)
	}

	r.mode = mode
	if mode == ModeNetwork {
		r.store = opts.Remote
	} else {
		r.store = opts.Fallback
		if r.store == nil {
			r.store = memstore.NewSample()
		}
	}
	r.log.Debug("repository ready", "mode", mode.String())
	return r, nil
}

func (r *Repository) probe(ctx context.Context, remote store.Store, timeout time.Duration) Mode {
	if remote == nil {
		r.log.Info("no task api configured, using in-memory store")
		return ModeFallback
	}

	ctx, span := r.tracer.Start(ctx, "taskboard.repository.probe", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if _, err := remote.List(ctx); err != nil {
		span.SetAttributes(attribute.String("taskboard.mode", ModeFallback.String()))
		r.log.Info("task api not available, using in-memory store", "err", err)
		return ModeFallback
	}
	span.SetAttributes(attribute.String("taskboard.mode", ModeNetwork.String()))
	return ModeNetwork
}

// Mode returns the mode chosen by Open.
func (r *Repository) Mode() Mode { return r.mode }

// FetchAll returns every task sorted by (column, position).
func (r *Repository) FetchAll(ctx context.Context) ([]task.Task, error) {
	ctx, finish := r.begin(ctx, "fetch_all", 0)
	tasks, err := r.store.List(ctx)
	finish(err)
	if err != nil {
		return nil, fmt.Errorf("fetch tasks: %w", err)
	}
	task.Sort(tasks)
	return tasks, nil
}

// Create validates in and stores a new task.
// Title emptiness is not checked here; callers reject blank titles.
func (r *Repository) Create(ctx context.Context, in task.CreateInput) (task.Task, error) {
	if err := in.Validate(); err != nil {
		return task.Task{}, err
	}
	ctx, finish := r.begin(ctx, "create", 0)
	t, err := r.store.Create(ctx, in)
	finish(err)
	if err != nil {
		return task.Task{}, fmt.Errorf("create task: %w", err)
	}
	return t, nil
}

// Update merges p into task id.
func (r *Repository) Update(ctx context.Context, id int, p task.Patch) (task.Task, error) {
	if err := p.Validate(); err != nil {
		return task.Task{}, err
	}
	ctx, finish := r.begin(ctx, "update", id)
	t, err := r.store.Update(ctx, id, p)
	finish(err)
	if err != nil {
		return task.Task{}, fmt.Errorf("update task %d: %w", id, err)
	}
	return t, nil
}

// Delete removes task id.
func (r *Repository) Delete(ctx context.Context, id int) error {
	ctx, finish := r.begin(ctx, "delete", id)
	err := r.store.Delete(ctx, id)
	finish(err)
	if err != nil {
		return fmt.Errorf("delete task %d: %w", id, err)
	}
	return nil
}

// begin applies the call timeout and opens a client span. The returned
// func ends both and must be called exactly once.
func (r *Repository) begin(ctx context.Context, op string, id int) (context.Context, func(error)) {
	attrs := []attribute.KeyValue{attribute.String("taskboard.mode", r.mode.String())}
	if id != 0 {
		attrs = append(attrs, attribute.Int("taskboard.task.id", id))
	}
	ctx, span := r.tracer.Start(ctx, "taskboard.repository."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
	ctx, cancel := context.WithTimeout(ctx, r.callTimeout)
	start := time.Now()

	return ctx, func(err error) {
		cancel()
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			r.log.Debug("store call failed", "op", op, "id", id, "elapsed", time.Since(start), "err", err)
		} else {
			r.log.Debug("store call", "op", op, "id", id, "elapsed", time.Since(start))
		}
		span.End()
	}
}
