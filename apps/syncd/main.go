package main

import (
	"context"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/synclinehq/syncline/apps/syncd/internal/config"
	"github.com/synclinehq/syncline/apps/syncd/internal/gitstore"
	storegithub "github.com/synclinehq/syncline/apps/syncd/internal/gitstore/github"
	"github.com/synclinehq/syncline/apps/syncd/internal/handler"
	"github.com/synclinehq/syncline/apps/syncd/internal/platform/github"
	"github.com/synclinehq/syncline/apps/syncd/internal/platform/logger"
	"github.com/synclinehq/syncline/apps/syncd/internal/platform/telemetry"
	"github.com/synclinehq/syncline/apps/syncd/internal/platform/validation"
	"github.com/synclinehq/syncline/apps/syncd/internal/publish"
	"github.com/synclinehq/syncline/schemas"
)

func main() {
	slog := logger.New()

	// --- Observability ---

	// Default the service name before any OTel init.
	if os.Getenv("OTEL_SERVICE_NAME") == "" {
		os.Setenv("OTEL_SERVICE_NAME", "syncd") //nolint:errcheck
	}

	otelEnabled := os.Getenv("OTEL_ENABLED") == "true"
	ctx := context.Background()
	tel, err := telemetry.New(ctx, otelEnabled)
	if err != nil {
		slog.Error("telemetry init failed", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			slog.Error("telemetry shutdown failed", "error", err)
		}
	}()

	// --- Config ---

	cfg, err := config.Load(os.Getenv("SYNCD_CONFIG"))
	if err != nil {
		slog.Error("config load failed", "error", err)
		os.Exit(1)
	}

	// --- GitHub clients ---

	// Each request may carry its own token; an empty one falls back to the
	// configured credential (token or GitHub App installation).
	clients := func(token string) gitstore.Client {
		if token == "" {
			token = cfg.GitHub.Token
		}
		if token == "" && cfg.GitHub.AppID != 0 {
			gh, err := github.NewAppClient(cfg.GitHub.AppID, cfg.GitHub.InstallationID,
				cfg.GitHub.PrivateKeyPath, cfg.GitHub.APIURL)
			if err == nil {
				return storegithub.New(gh, slog)
			}
			slog.Error("github app client init failed, falling back to anonymous", "error", err)
		}
		return storegithub.New(github.NewTokenClient(token, cfg.GitHub.APIURL), slog)
	}

	pubOpts := []publish.Option{
		publish.WithWebBaseURL(cfg.GitHub.WebURL),
		publish.WithCreationGrace(cfg.CreationGrace(2 * time.Second)),
	}
	if cfg.Publish.BlobConcurrency > 0 {
		pubOpts = append(pubOpts, publish.WithBlobConcurrency(cfg.Publish.BlobConcurrency))
	}
	if cfg.Publish.RetryMaxTries > 0 {
		pubOpts = append(pubOpts, publish.WithRetry(uint(cfg.Publish.RetryMaxTries), 250*time.Millisecond))
	}

	// --- HTTP ---

	router := gin.New()

	validator, err := validation.New(schemas.OpenAPISpec)
	if err != nil {
		slog.Error("openapi validation middleware init failed", "error", err)
		os.Exit(1)
	}

	router.Use(gin.Recovery(), otelgin.Middleware("syncd"), validator)
	handler.RegisterRoutes(router, clients, slog, pubOpts...)

	slog.Info("starting syncd", "port", cfg.Port, "githubApiUrl", cfg.GitHub.APIURL)
	if err := router.Run(":" + cfg.Port); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
