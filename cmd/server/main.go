package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/wikigest/internal/api"
	"github.com/dgallion1/wikigest/internal/config"
	"github.com/dgallion1/wikigest/internal/embedder"
	"github.com/dgallion1/wikigest/internal/filestore"
	"github.com/dgallion1/wikigest/internal/pipeline"
	"github.com/dgallion1/wikigest/internal/storage"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := storage.Open(cfg.DatabasePath)
	if err != nil {
		log.Error("failed to open storage", "path", cfg.DatabasePath, "error", err)
		os.Exit(1)
	}

	embed, err := embedder.New(cfg.EmbedProvider, cfg.EmbedBaseURL, cfg.EmbedAPIKey, cfg.EmbedModel, cfg.EmbedDims)
	if err != nil {
		log.Error("failed to build embedder", "provider", cfg.EmbedProvider, "error", err)
		os.Exit(1)
	}
	if embed != nil {
		log.Info("embeddings enabled", "provider", cfg.EmbedProvider, "model", embed.Model(), "dims", embed.Dimensions())
	} else {
		log.Info("embeddings disabled")
	}

	var files *filestore.FileStore
	if cfg.ExportDir != "" {
		files, err = filestore.New(cfg.ExportDir)
		if err != nil {
			log.Error("failed to prepare export dir", "dir", cfg.ExportDir, "error", err)
			os.Exit(1)
		}
	}

	orch, err := pipeline.NewOrchestrator(cfg, store, embed, files, log)
	if err != nil {
		log.Error("failed to build pipeline", "error", err)
		os.Exit(1)
	}
	orch.Start(ctx)

	srv := api.NewServer(orch, embed, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		orch.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		if embed != nil {
			embed.Close()
		}
		store.Close()
	}()

	log.Info("starting wikigest", "port", cfg.Port)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
