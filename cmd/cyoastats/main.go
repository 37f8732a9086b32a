package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/rs/zerolog"

	"github.com/aseli4488/cyoa-stats/internal/config"
	"github.com/aseli4488/cyoa-stats/internal/database"
	"github.com/aseli4488/cyoa-stats/internal/server"
)

func main() {
	_ = godotenv.Load()
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal().Err(err).Msg("load config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := database.RunMigrations(ctx, cfg.Database.URL()); err != nil {
		logger.Fatal().Err(err).Msg("migrations")
	}

	if cfg.Observability.Enabled {
		app, err := newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.Observability.ServiceName),
			newrelic.ConfigLicense(cfg.Observability.LicenseKey),
		)
		if err != nil {
			logger.Fatal().Err(err).Msg("new relic agent")
		}
		defer app.Shutdown(10 * time.Second)
	}

	pool, err := database.NewPool(ctx, cfg.Database, logger, cfg.Observability.Enabled)
	if err != nil {
		logger.Fatal().Err(err).Msg("database pool")
	}
	defer pool.Close()

	srv, err := server.New(cfg, pool, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("build server")
	}

	logger.Info().Str("port", cfg.Server.Port).Msg("starting server")
	if err := srv.Start(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("server exited")
		os.Exit(1)
	}
}
