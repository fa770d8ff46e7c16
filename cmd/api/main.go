// Command api serves the CarbonTrack page and JSON API.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/carbontrack/carbontrack/internal/api"
	"github.com/carbontrack/carbontrack/internal/api/middleware"
	"github.com/carbontrack/carbontrack/internal/config"
	"github.com/carbontrack/carbontrack/internal/provider/resilience"
	"github.com/carbontrack/carbontrack/internal/session"
	"github.com/carbontrack/carbontrack/internal/telemetry"
	"github.com/carbontrack/carbontrack/internal/web"
)

const serviceName = "carbontrack"

// Set with -ldflags at build time.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

const (
	shutdownTimeout          = 30 * time.Second
	telemetryShutdownTimeout = 5 * time.Second
)

func main() {
	log := zerolog.New(os.Stdout).With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx, log)
	stop()
	if err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
	log.Info().Msg("server stopped")
}

func run(ctx context.Context, log zerolog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log = log.Level(cfg.LogLevel())
	log.Info().
		Str("build_time", BuildTime).
		Str("env", cfg.App.Env).
		Str("city", cfg.Environment.City).
		Msg("starting")
	if cfg.Session.GeneratedKey {
		log.Warn().Msg("SESSION_SIGNING_KEY not set, using a random key; sessions will not survive a restart")
	}

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    cfg.App.Env,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		Enabled:        cfg.Telemetry.Enabled,
		SampleRatio:    cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), telemetryShutdownTimeout)
		defer cancel()
		if err := tp.Shutdown(sctx); err != nil {
			log.Error().Err(err).Msg("telemetry shutdown")
		}
	}()
	if tp.Enabled() {
		log.Info().Str("otlp_endpoint", cfg.Telemetry.OTLPEndpoint).Msg("telemetry exporting")
	}

	httpMetrics, err := middleware.NewMetrics()
	if err != nil {
		return fmt.Errorf("http metrics: %w", err)
	}
	fetchMetrics, err := middleware.NewFetchMetrics()
	if err != nil {
		return fmt.Errorf("fetch metrics: %w", err)
	}

	// Each provider is asked once at startup; refreshes come from users.
	registry := resilience.NewRegistry()
	fetcher := newFetcher(cfg, registry, fetchMetrics, log)
	fetcher.Start(ctx)

	repo, subsystems, closeStore, err := newSessionRepository(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("session store: %w", err)
	}
	defer closeStore()

	sessions := session.NewService(session.ServiceConfig{
		Repository: repo,
		Tokens:     session.NewTokenService(session.TokenConfig{SigningKey: cfg.Session.SigningKey}),
		TTL:        cfg.Session.TTL,
		Logger:     log,
	})
	go sessions.RunSweeper(ctx, cfg.Session.SweepInterval)
	log.Info().Str("store", cfg.Session.Store).Dur("ttl", cfg.Session.TTL).Msg("sessions ready")

	renderer, err := web.NewRenderer()
	if err != nil {
		return fmt.Errorf("page templates: %w", err)
	}

	server := &http.Server{
		Addr: ":" + cfg.App.Port,
		Handler: api.NewRouter(api.RouterConfig{
			Version:        Version,
			BuildTime:      BuildTime,
			Logger:         log,
			Metrics:        httpMetrics,
			SessionService: sessions,
			Fetcher:        fetcher,
			Registry:       registry,
			Renderer:       renderer,
			Subsystems:     subsystems,
			RequireTLS:     cfg.Security.RequireTLS,
		}),
		ReadTimeout: 15 * time.Second,
		// A refresh waits on the providers before it can answer.
		WriteTimeout: 15*time.Second + cfg.Environment.Timeout,
		IdleTimeout:  60 * time.Second,
	}
	return serve(ctx, server, log)
}

// serve runs server until ctx is cancelled, then drains it.
func serve(ctx context.Context, server *http.Server, log zerolog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("listening")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(sctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
