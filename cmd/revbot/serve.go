package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	giteaadapter "github.com/ericfisherdev/revbot/internal/adapter/driven/gitea"
	openaiadapter "github.com/ericfisherdev/revbot/internal/adapter/driven/openai"
	sqliteadapter "github.com/ericfisherdev/revbot/internal/adapter/driven/sqlite"
	httphandler "github.com/ericfisherdev/revbot/internal/adapter/driving/http"
	"github.com/ericfisherdev/revbot/internal/application"
	"github.com/ericfisherdev/revbot/internal/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the webhook server",
	Long: `Run the webhook server.

Required environment:
  GITEA_AUTHORIZATION  shared secret expected in the Authorization header
  GITEA_BASE_URL       Gitea API root, e.g. https://git.example.com/api/v1/
  GITEA_TOKEN          access token of the bot account
  AI_BASE_URL          OpenAI-compatible API root
  AI_KEY               API key
  AI_MODEL             model name

Optional environment:
  REVBOT_LISTEN_ADDR             (default 0.0.0.0:6651)
  REVBOT_DB_PATH                 (default revbot.db)
  REVBOT_MAX_CONCURRENT_REVIEWS  (default 4)
  REVBOT_RESPONSE_PARSER         lines or markdown (default lines)
  REVBOT_LOG_LEVEL               debug, info, warn or error (default info)`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	// 1. Load configuration (fail fast on missing required env vars).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel})))
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"gitea_base_url", cfg.GiteaBaseURL,
		"ai_model", cfg.AIModel,
		"max_concurrent_reviews", cfg.MaxConcurrentReviews,
		"response_parser", cfg.ResponseParser,
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open the run ledger and apply migrations.
	db, err := sqliteadapter.NewDB(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}
	slog.Info("database opened", "path", cfg.DBPath)
	runStore := sqliteadapter.NewRunRepo(db)

	// 4. Create the shared remote clients.
	host, err := giteaadapter.NewClient(cfg.GiteaBaseURL, cfg.GiteaToken)
	if err != nil {
		return fmt.Errorf("create gitea client: %w", err)
	}
	chat := openaiadapter.NewClient(cfg.AIBaseURL, cfg.AIKey, cfg.AIModel)

	// 5. Create the review pipeline.
	var parser application.ReviewParser = application.LineStripParser{}
	if cfg.ResponseParser == config.ParserMarkdown {
		parser = application.NewMarkdownFenceParser()
	}
	dispatcher := application.NewDispatcher(cfg.MaxConcurrentReviews)
	reviewSvc := application.NewReviewService(host, chat, parser, runStore, dispatcher)

	// 6. Create the HTTP server.
	handler := httphandler.NewServeMux(
		httphandler.NewHandler(reviewSvc, runStore, cfg.WebhookSecret, slog.Default()),
		slog.Default(),
	)
	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// 7. Wait for a shutdown signal or a server failure.
	select {
	case <-ctx.Done():
		slog.Info("shutting down")
	case err := <-serveErr:
		if err != nil {
			_ = dispatcher.Shutdown(context.Background())
			return fmt.Errorf("http server: %w", err)
		}
	}

	// 8. Stop accepting deliveries, then give running reviews time to finish.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}
	if err := dispatcher.Shutdown(shutdownCtx); err != nil {
		slog.Warn("reviews still running at shutdown were canceled", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}
