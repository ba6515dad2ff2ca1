// Package app wires campusd's services using go.uber.org/dig and runs the
// HTTP server until its context ends.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"go.uber.org/dig"
	"golang.org/x/sync/errgroup"

	"github.com/Shivanand-hulikatti/campus-event-backend/internal/config"
	"github.com/Shivanand-hulikatti/campus-event-backend/internal/dispatch"
	"github.com/Shivanand-hulikatti/campus-event-backend/internal/handler"
	"github.com/Shivanand-hulikatti/campus-event-backend/internal/seed"
	"github.com/Shivanand-hulikatti/campus-event-backend/internal/service"
	"github.com/Shivanand-hulikatti/campus-event-backend/internal/store"
)

// App holds the resolved singletons. Callers use the getters and never
// import dig directly.
type App struct {
	cfg   *config.Config
	log   *slog.Logger
	svc   *service.EventService
	tools *dispatch.Dispatcher
	srv   *http.Server
}

func (a *App) Service() *service.EventService   { return a.svc }
func (a *App) Dispatcher() *dispatch.Dispatcher { return a.tools }
func (a *App) Handler() http.Handler            { return a.srv.Handler }

// LogOutput is the destination of the process log, a named type so dig
// can tell it apart from other writers.
type LogOutput struct{ io.Writer }

// New builds every service from cfg. Logs go to out.
func New(cfg *config.Config, out io.Writer) (*App, error) {
	c := dig.New()

	providers := []any{
		func() *config.Config { return cfg },
		func() LogOutput { return LogOutput{out} },
		newLogger,
		newLocation,
		newStore,
		newEventService,
		newDispatcher,
		newEventHandler,
		newRouter,
		newServer,
	}
	for _, p := range providers {
		if err := c.Provide(p); err != nil {
			return nil, err
		}
	}

	var result *App
	err := c.Invoke(func(
		log *slog.Logger,
		svc *service.EventService,
		tools *dispatch.Dispatcher,
		srv *http.Server,
	) {
		result = &App{cfg: cfg, log: log, svc: svc, tools: tools, srv: srv}
	})
	if err != nil {
		return nil, fmt.Errorf("app: %w", dig.RootCause(err))
	}
	return result, nil
}

func newLogger(cfg *config.Config, out LogOutput) *slog.Logger {
	return cfg.Log.NewLogger(out)
}

func newLocation(cfg *config.Config) (*time.Location, error) {
	return cfg.Server.Location()
}

func newStore(cfg *config.Config, loc *time.Location, log *slog.Logger) (*store.Store, error) {
	ds, err := seed.Load(cfg.Seed.File)
	if err != nil {
		return nil, err
	}
	st, err := ds.NewStore(loc)
	if err != nil {
		return nil, err
	}
	source := cfg.Seed.File
	if source == "" {
		source = "built-in"
	}
	log.Info("seed loaded", "source", source, "events", len(ds.Events), "venues", len(ds.Venues), "time_zone", loc.String())
	return st, nil
}

func newEventService(st *store.Store, loc *time.Location, log *slog.Logger) *service.EventService {
	return service.NewEventService(st, service.WithLogger(log), service.WithLocation(loc))
}

func newDispatcher(svc *service.EventService, log *slog.Logger) (*dispatch.Dispatcher, error) {
	return dispatch.New(svc.Tools(), dispatch.WithLogger(log))
}

func newEventHandler(svc *service.EventService, tools *dispatch.Dispatcher, log *slog.Logger) *handler.EventHandler {
	return handler.NewEventHandler(svc, tools, log)
}

func newRouter(h *handler.EventHandler, log *slog.Logger) http.Handler {
	return handler.NewRouter(h, log)
}

func newServer(cfg *config.Config, h http.Handler, log *slog.Logger) *http.Server {
	return &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      h,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		ErrorLog:     slog.NewLogLogger(log.Handler(), slog.LevelError),
	}
}

// Run listens on the configured address and serves until ctx is done,
// then shuts the server down gracefully.
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.srv.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", a.srv.Addr, err)
	}
	return a.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.log.Info("server listening", "addr", ln.Addr().String())
		if err := a.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		a.log.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := a.srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		a.log.Info("server stopped")
		return nil
	})

	return g.Wait()
}
