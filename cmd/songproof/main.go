package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sydlexius/songproof/internal/api"
	"github.com/sydlexius/songproof/internal/catalog"
	"github.com/sydlexius/songproof/internal/catalog/deezer"
	"github.com/sydlexius/songproof/internal/catalog/musicbrainz"
	"github.com/sydlexius/songproof/internal/catalog/spotify"
	"github.com/sydlexius/songproof/internal/config"
	"github.com/sydlexius/songproof/internal/database"
	"github.com/sydlexius/songproof/internal/event"
	"github.com/sydlexius/songproof/internal/logging"
	"github.com/sydlexius/songproof/internal/resolve"
	"github.com/sydlexius/songproof/internal/song"
	"github.com/sydlexius/songproof/internal/verify"
	"github.com/sydlexius/songproof/internal/version"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := os.Getenv("SPF_CONFIG_PATH")
	if configPath == "" {
		configPath = "/data/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logManager, logger := logging.NewManager(logging.Config{
		Level:    cfg.Logging.Level,
		Format:   cfg.Logging.Format,
		FilePath: cfg.Logging.FilePath,
	})
	defer logManager.Close() //nolint:errcheck
	slog.SetDefault(logger)

	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("closing database", "error", err)
		}
	}()

	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	logger.Info("database ready", slog.String("path", cfg.Database.Path))

	songService := song.NewService(db)

	// Catalog infrastructure.
	rateLimiters := catalog.NewRateLimiterMap()
	mbCatalog := musicbrainz.New(rateLimiters, logger)
	dzCatalog := deezer.New(rateLimiters, logger)
	spCatalog := spotify.New(rateLimiters, logger)

	registry := catalog.NewRegistry()
	registry.Register(mbCatalog)
	registry.Register(dzCatalog)

	resolver := resolve.NewResolver(spCatalog, cfg.Resolve.AcceptThreshold, logger)
	linkCache := resolve.NewLinkCache()

	eventBus := event.NewBus(logger, 256)
	go eventBus.Start()
	defer eventBus.Stop()

	orchestrator := verify.NewOrchestrator(verify.Deps{
		Metadata:  mbCatalog,
		Preview:   dzCatalog,
		Streaming: spCatalog,
		Resolver:  resolver,
		Bus:       eventBus,
		Pacing:    time.Duration(cfg.Verify.PacingMS) * time.Millisecond,
		Logger:    logger,
	})
	verifyService := verify.NewService(orchestrator, songService, logger)

	logger.Info("starting songproof",
		slog.String("version", version.Version),
		slog.String("commit", version.Commit),
	)

	router := api.NewRouter(api.RouterDeps{
		SongService:   songService,
		VerifyService: verifyService,
		Resolver:      resolver,
		LinkCache:     linkCache,
		Registry:      registry,
		Previews:      dzCatalog,
		Bus:           eventBus,
		Logger:        logger,
		BasePath:      cfg.Server.BasePath,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Logging settings follow config file edits without a restart.
	go func() {
		err := config.Watch(ctx, configPath, logger, func(updated *config.Config) {
			logManager.Reconfigure(logging.Config{
				Level:    updated.Logging.Level,
				Format:   updated.Logging.Format,
				FilePath: updated.Logging.FilePath,
			})
		})
		if err != nil {
			logger.Warn("config watcher stopped", "error", err)
		}
	}()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	verifyService.Cancel()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	return nil
}
