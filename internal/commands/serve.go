package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"taskboard/internal/backend/httpstore"
	"taskboard/internal/backend/memstore"
	"taskboard/internal/config"
	"taskboard/internal/exitcode"
	"taskboard/internal/telemetry"
)

const shutdownTimeout = 5 * time.Second

func init() {
	Register(&ServeCmd{})
}

// ServeCmd runs a development task API over an in-memory store.
type ServeCmd struct {
	addr  string
	empty bool
	ready func(net.Addr)
}

// SetReady registers a callback invoked once the server listens (for testing).
func (c *ServeCmd) SetReady(fn func(net.Addr)) {
	c.ready = fn
}

func (c *ServeCmd) Name() string      { return "serve" }
func (c *ServeCmd) Aliases() []string { return nil }
func (c *ServeCmd) Synopsis() string  { return "Run a development task API" }
func (c *ServeCmd) Usage() string     { return "taskboard serve [--addr <host:port>] [--empty]" }
func (c *ServeCmd) NeedsBoard() bool  { return false }

func (c *ServeCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.addr, "addr", "", "")
	fs.BoolVar(&c.empty, "empty", false, "")
}

func (c *ServeCmd) Run(ctx context.Context, cfg *config.Config, _ *Session, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}

	addr := c.addr
	if addr == "" {
		addr = cfg.Settings.ListenAddr
	}
	logger := telemetry.NewLogger(errOut, cfg.LogLevel(), telemetry.Format(cfg.Settings.LogFormat))

	st := memstore.NewSample()
	if c.empty {
		st = memstore.New()
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}
	srv := &http.Server{
		Handler:           httpstore.NewHandler(st, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	if !cfg.Quiet {
		fmt.Fprintf(out, "serving http://%s%s\n", ln.Addr(), httpstore.ResourcePath)
	}
	logger.Info("task api listening", "addr", ln.Addr().String(), "tasks", st.Len())

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()
	if c.ready != nil {
		c.ready(ln.Addr())
	}

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintf(errOut, "error: %v\n", err)
			return exitcode.BackendError
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			fmt.Fprintf(errOut, "error: shutdown: %v\n", err)
			return exitcode.BackendError
		}
	}
	return exitcode.Success
}
