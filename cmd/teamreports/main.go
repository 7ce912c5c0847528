package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"teamreports/internal/auth"
	"teamreports/internal/backend"
	"teamreports/internal/cli"
	"teamreports/internal/config"
	apphttp "teamreports/internal/http"
	"teamreports/internal/metrics"
	"teamreports/internal/services"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), "app")
	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).Validate)

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}

	initCtx, initCancel := context.WithTimeout(context.Background(), 30*time.Second)
	res, err := backend.NewFactory(logger.Logger).Create(initCtx, bcfg)
	initCancel()
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	m := metrics.New()
	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Reports:            services.NewReportService(res.Records, res.Users, res.Publisher, m),
		Exports:            services.NewExportService(res.Records, nil, m),
		Auth:               services.NewAuthService(res.Users, tokens),
		Tokens:             tokens,
		Users:              res.Users,
		UserCacheTTL:       30 * time.Second,
		Pinger:             res.Pinger,
		Metrics:            m,
		Logger:             logger,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	})

	_, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		if err := res.Close(); err != nil {
			logger.Error("Backend close error", "error", err)
		}
	})

	logger.Info("Starting teamreports server", "port", cfg.Port, "backend", cfg.DataBackend, "broker", res.Publisher != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		_ = res.Close()
		os.Exit(1)
	}

	<-done
	logger.Info("Server stopped gracefully")
}
