package cli

import (
	"context"
	"io"

	"taskboard/internal/backend/httpstore"
	"taskboard/internal/commands"
	"taskboard/internal/config"
	"taskboard/internal/engine"
	"taskboard/internal/repository"
	"taskboard/internal/store"
	"taskboard/internal/telemetry"
)

// OpenSession is the production SessionFactory. It builds the network
// client, resolves the store mode, and starts an engine over the result.
// The engine is not loaded yet.
func OpenSession(ctx context.Context, cfg *config.Config, logOut io.Writer) (*commands.Session, error) {
	s := cfg.Settings
	logger := telemetry.NewLogger(logOut, cfg.LogLevel(), telemetry.Format(s.LogFormat))

	mode, err := repository.ParseMode(s.Mode)
	if err != nil {
		return nil, err
	}

	tracing, err := telemetry.InitTracing(ctx, s.Trace, logOut)
	if err != nil {
		return nil, err
	}

	var remote store.Store
	if mode != repository.ModeFallback {
		client, err := httpstore.New(ctx, httpstore.Options{
			BaseURL: s.APIURL,
			Token:   s.Token,
			Timeout: s.RequestTimeout,
		})
		if err != nil {
			_ = tracing.Shutdown(ctx)
			return nil, err
		}
		remote = client
	}

	repo, err := repository.Open(ctx, repository.Options{
		Remote:       remote,
		Mode:         mode,
		ProbeTimeout: s.ProbeTimeout,
		CallTimeout:  s.RequestTimeout,
		Logger:       logger,
		Tracer:       tracing.Tracer("taskboard/repository"),
	})
	if err != nil {
		_ = tracing.Shutdown(ctx)
		return nil, err
	}
	logger.Debug("board opened", "mode", repo.Mode().String(), "api_url", s.APIURL)

	eng := engine.New(repo, engine.Options{
		Logger:    logger,
		Tracer:    tracing.Tracer("taskboard/engine"),
		StaleTime: s.StaleTime,
	})
	closer := func() {
		eng.Close()
		if err := tracing.Shutdown(context.Background()); err != nil {
			logger.Warn("flush traces", "err", err)
		}
	}
	return commands.NewSession(eng, repo.Mode(), logger, closer), nil
}
