// Command cache-server serves a cache store over HTTP. The backend is chosen
// by CACHE_BACKEND; see pkg/config for all variables.
package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/Sternrassler/compliance-cache/fx/cachefx"
	"github.com/Sternrassler/compliance-cache/pkg/config"
	"github.com/Sternrassler/compliance-cache/pkg/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	logger := logging.Setup(cfg.Logging)

	app := fx.New(
		fx.WithLogger(func() fxevent.Logger { return &cachefx.EventLogger{Logger: logger} }),
		fx.Supply(cfg, logger),
		cachefx.Module,
		fx.Provide(newHandlers, newServer),
		fx.Invoke(func(*http.Server) {}),
	)

	app.Run()
	if err := app.Err(); err != nil {
		os.Exit(1)
	}
}

func newServer(lc fx.Lifecycle, cfg config.Config, h *handlers, logger zerolog.Logger) *http.Server {
	logger = logger.With().Str("component", logging.ComponentServer).Logger()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           h.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return err
			}

			logger.Info().
				Str("addr", srv.Addr).
				Str("backend", cfg.Cache.Backend).
				Int64("rate_limit", cfg.RateLimit.Limit).
				Dur("rate_window", cfg.RateLimit.Window).
				Msg("Starting cache server")

			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error().Err(err).Msg("Server failed")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info().Msg("Shutting down cache server")
			return srv.Shutdown(ctx)
		},
	})

	return srv
}
