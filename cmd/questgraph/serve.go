package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/metalagman/questgraph/internal/config"
	"github.com/metalagman/questgraph/internal/db"
	"github.com/metalagman/questgraph/internal/engine"
	"github.com/metalagman/questgraph/internal/gamedata"
	"github.com/metalagman/questgraph/internal/logging"
	"github.com/metalagman/questgraph/internal/progress"
	"github.com/metalagman/questgraph/internal/web"
)

func serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the progress API, status page and websocket feed",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}

			app := newServeApp(cfg)
			if err := app.Err(); err != nil {
				return err
			}
			if err := app.Start(cmd.Context()); err != nil {
				return err
			}
			select {
			case sig := <-app.Done():
				log.Info().Str("signal", sig.String()).Msg("shutting down")
			case <-cmd.Context().Done():
			}
			stopCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			return app.Stop(stopCtx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address, overrides server.addr")
	return cmd
}

// newServeApp wires config, database, store, game data cache and HTTP server.
func newServeApp(cfg config.Config, extra ...fx.Option) *fx.App {
	opts := []fx.Option{
		fx.Supply(cfg),
		fx.Provide(
			provideDB,
			progress.NewStore,
			provideCache,
			provideWebServer,
			provideHTTPServer,
		),
		fx.Invoke(func(*http.Server) {}),
		fx.StartTimeout(cfg.Provider.Timeout + 15*time.Second),
		fx.WithLogger(func() fxevent.Logger {
			return fxLogger{logger: logging.Component("fx"), verbose: logging.DebugEnabled()}
		}),
	}
	return fx.New(append(opts, extra...)...)
}

func provideDB(lc fx.Lifecycle, cfg config.Config) (*sql.DB, error) {
	database, err := db.Open(context.Background(), cfg.Database)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{OnStop: func(context.Context) error { return database.Close() }})
	return database, nil
}

func provideCache(lc fx.Lifecycle, cfg config.Config) *gamedata.Cache {
	cache := newCache(cfg)
	lc.Append(fx.Hook{
		OnStart: cache.Start,
		OnStop: func(context.Context) error {
			cache.Stop()
			return nil
		},
	})
	return cache
}

func provideWebServer(cfg config.Config, store *progress.Store, cache *gamedata.Cache) (*web.Server, error) {
	srv, err := web.NewServer(store, cache, cfg.Mode(),
		engine.WithLogger(logging.Component("engine")),
		engine.WithParallelism(cfg.Engine.Parallelism),
	)
	if err != nil {
		return nil, err
	}
	cache.OnRefresh(func(*gamedata.Data) { srv.Notify(context.Background()) })
	return srv, nil
}

func provideHTTPServer(lc fx.Lifecycle, cfg config.Config, srv *web.Server) *http.Server {
	hs := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			ln, err := net.Listen("tcp", hs.Addr)
			if err != nil {
				return fmt.Errorf("listen %s: %w", hs.Addr, err)
			}
			log.Info().Str("addr", ln.Addr().String()).Msg("serving questgraph")
			go func() {
				if err := hs.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error().Err(err).Msg("http server stopped")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			srv.Close()
			return hs.Shutdown(ctx)
		},
	})
	return hs
}

// fxLogger routes fx lifecycle events through zerolog. Constructor wiring is only
// reported when verbose is set.
type fxLogger struct {
	logger  zerolog.Logger
	verbose bool
}

func (l fxLogger) LogEvent(event fxevent.Event) {
	switch e := event.(type) {
	case *fxevent.Provided:
		if e.Err != nil {
			l.logger.Error().Err(e.Err).Str("constructor", e.ConstructorName).Msg("provide failed")
			return
		}
		if l.verbose {
			for _, typ := range e.OutputTypeNames {
				l.logger.Debug().Str("constructor", e.ConstructorName).Str("type", typ).Msg("provided")
			}
		}
	case *fxevent.OnStartExecuted:
		if e.Err != nil {
			l.logger.Error().Err(e.Err).Str("hook", e.FunctionName).Msg("start hook failed")
			return
		}
		l.logger.Debug().Str("hook", e.FunctionName).Dur("runtime", e.Runtime).Msg("start hook executed")
	case *fxevent.OnStopExecuted:
		if e.Err != nil {
			l.logger.Error().Err(e.Err).Str("hook", e.FunctionName).Msg("stop hook failed")
		}
	case *fxevent.Invoked:
		if e.Err != nil {
			l.logger.Error().Err(e.Err).Str("function", e.FunctionName).Msg("invoke failed")
		}
	case *fxevent.Started:
		if e.Err != nil {
			l.logger.Error().Err(e.Err).Msg("start failed")
			return
		}
		l.logger.Debug().Msg("started")
	case *fxevent.Stopped:
		if e.Err != nil {
			l.logger.Error().Err(e.Err).Msg("stop failed")
		}
	}
}
