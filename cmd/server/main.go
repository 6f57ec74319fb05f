package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/feedtide/feedtide/internal/cache"
	"github.com/feedtide/feedtide/internal/config"
	"github.com/feedtide/feedtide/internal/events"
	"github.com/feedtide/feedtide/internal/httpserver"
	"github.com/feedtide/feedtide/internal/postgres"
	"github.com/feedtide/feedtide/internal/search"
	"github.com/feedtide/feedtide/internal/timeline"
	"github.com/feedtide/feedtide/internal/visibility"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Set up repository (implements the resolver, context loader and post
	// selection interfaces)
	repo, err := postgres.NewRepository(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("create repository: %w", err)
	}
	defer repo.Close()
	logger.Info("connected to database")

	contexts := cache.NewLoader(repo.LoadContext, cfg.CacheTTL)

	selector := timeline.NewSelector(repo, logger, timeline.Options{
		SmallFeedThreshold: cfg.SmallFeedThreshold,
		MaxOffsetWithBumps: cfg.MaxOffsetWithBumps,
	})

	engine := search.NewEngine(repo, cachedContexts{contexts}, selector, logger, search.Options{
		MaxComplexity:      cfg.MaxComplexity,
		MinPrefixLength:    cfg.MinPrefixLength,
		SmallFeedThreshold: cfg.SmallFeedThreshold,
	})

	// Set up graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Start the event stream subscriber in the background
	if cfg.EventsURL != "" {
		subscriber := events.NewSubscriber(cfg.EventsURL, contexts, logger)
		go func() {
			if err := subscriber.Start(ctx); err != nil && ctx.Err() == nil {
				logger.Error("event subscriber exited with error", "error", err)
			}
		}()
	}

	// Start the HTTP server
	server := httpserver.NewServer(cfg, engine, logger)
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server exited with error", "error", err)
		}
	}()

	logger.Info("server started", "port", cfg.Port)

	// Wait for shutdown signal
	sig := <-sigCh
	logger.Info("received signal, shutting down", "signal", sig)
	cancel()

	if err := server.Shutdown(context.Background()); err != nil {
		logger.Error("error shutting down http server", "error", err)
	}

	return nil
}

// cachedContexts adapts the read-through cache to the context loader
// interface the engine expects.
type cachedContexts struct {
	loader *cache.Loader[uuid.UUID, visibility.Ctx]
}

func (c cachedContexts) LoadContext(ctx context.Context, viewerID uuid.UUID) (visibility.Ctx, error) {
	return c.loader.Get(ctx, viewerID)
}
