// Package commands provides the command interface and implementations.
package commands

import (
	"context"
	"flag"
	"io"
	"log/slog"

	"taskboard/internal/board"
	"taskboard/internal/config"
	"taskboard/internal/engine"
	"taskboard/internal/repository"
)

// Session is the loaded board a command works on.
type Session struct {
	Engine *engine.Engine
	Mode   repository.Mode
	Logger *slog.Logger
	State  *board.State

	closer func()
}

// NewSession bundles an engine with its presentation state. closer, if not
// nil, runs on Close.
func NewSession(eng *engine.Engine, mode repository.Mode, logger *slog.Logger, closer func()) *Session {
	return &Session{
		Engine: eng,
		Mode:   mode,
		Logger: logger,
		State:  board.NewState(),
		closer: closer,
	}
}

// Close waits for background work and releases resources.
func (s *Session) Close() {
	if s.closer != nil {
		s.closer()
		return
	}
	s.Engine.Close()
}

// Command defines the interface for CLI commands.
type Command interface {
	// Name returns the primary command name.
	Name() string

	// Aliases returns alternative names for the command.
	Aliases() []string

	// Synopsis returns a short description for help output.
	Synopsis() string

	// Usage returns the usage string for help output.
	Usage() string

	// NeedsBoard returns true if the command reads or changes tasks.
	// Commands like help, version, init and serve return false.
	NeedsBoard() bool

	// RegisterFlags registers command-specific flags.
	RegisterFlags(fs *flag.FlagSet)

	// Run executes the command.
	// cfg is always provided (config dir, settings).
	// sess is nil if NeedsBoard() returns false; otherwise its engine is loaded.
	// args contains positional arguments after flag parsing.
	// Returns exit code.
	Run(ctx context.Context, cfg *config.Config, sess *Session, args []string, out, errOut io.Writer) int
}
