package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"pcax/internal/config"
	"pcax/internal/extractor/gemini"
	"pcax/internal/extractor/openai"
	"pcax/internal/handler"
	"pcax/internal/logger"
	"pcax/internal/port"
	"pcax/internal/prompt"
	"pcax/internal/repository/postgres"
	"pcax/internal/router"
	"pcax/internal/service"
	"pcax/internal/storage/fsstore"
	s3storage "pcax/internal/storage/s3"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	zlog := logger.New(logger.Config{
		Level:    cfg.Log.Level,
		Format:   cfg.Log.Format,
		FilePath: cfg.Log.File,
	})
	defer func() { _ = zlog.Sync() }()

	// Run-artifact store and prompt store
	store, err := fsstore.NewStore(cfg.Store.OutputDir)
	if err != nil {
		return fmt.Errorf("failed to initialize run store: %w", err)
	}
	prompts := prompt.NewStore(cfg.Prompt.Dir)

	// LLM providers
	extractors, err := buildExtractors(cfg, zlog)
	if err != nil {
		return err
	}

	// Optional experiment archive
	var repo port.ExperimentRepository
	var experimentH *handler.ExperimentHandler
	db, dbErr := openDB(cfg)
	if dbErr != nil {
		return dbErr
	}
	if db != nil {
		defer db.Close()
		repo = postgres.NewExperimentRepo(db)
		experimentH = handler.NewExperimentHandler(repo, zlog)
	}

	// Optional object-storage archive
	var archive port.ObjectStorage
	if cfg.S3.Enabled() {
		archive, err = s3storage.NewS3Client(&cfg.S3)
		if err != nil {
			return fmt.Errorf("failed to initialize S3 client: %w", err)
		}
	}

	extractSvc := service.NewExtractionService(service.Options{
		Extractors:      extractors,
		DefaultProvider: cfg.Provider.Primary.Provider,
		Prompts:         prompts,
		Store:           store,
		Repo:            repo,
		Archive:         archive,
		ArchiveBucket:   cfg.S3.Bucket,
		Pipeline:        cfg.Pipeline,
		Events:          service.NewBroadcaster(),
		Log:             zlog,
	})
	evalSvc := service.NewEvalService(store, cfg.Eval, zlog)

	extractH := handler.NewExtractHandler(extractSvc, zlog)
	evalH := handler.NewEvalHandler(extractSvc, evalSvc, zlog)
	promptH := handler.NewPromptHandler(prompts, zlog)
	healthH := handler.NewHealthHandler(db)

	r := router.Setup(extractH, evalH, promptH, healthH, experimentH, cfg.CORS.AllowedOrigins, zlog)

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		zlog.Info("server starting", zap.String("addr", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-quit:
		zlog.Info("shutting down", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}

// buildExtractors wires one chunk extractor per configured provider.
func buildExtractors(cfg *config.Config, zlog *zap.Logger) (map[string]port.ChunkExtractor, error) {
	extractors := make(map[string]port.ChunkExtractor)
	for _, pc := range []*config.ProviderEndpointConfig{&cfg.Provider.Primary, cfg.Provider.SecondaryConfig()} {
		if pc == nil {
			continue
		}
		switch pc.Provider {
		case "gemini":
			extractors[pc.Provider] = gemini.NewClient(pc, zlog)
		case "openai":
			extractors[pc.Provider] = openai.NewClient(pc, zlog)
		default:
			return nil, fmt.Errorf("unknown provider %q (expected gemini or openai)", pc.Provider)
		}
	}
	return extractors, nil
}

func openDB(cfg *config.Config) (*sqlx.DB, error) {
	if !cfg.DB.Enabled() {
		return nil, nil
	}
	d, err := postgres.NewDB(&cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return d, nil
}
