package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/romariotrain/media-pipeline/internal/config"
	"github.com/romariotrain/media-pipeline/internal/media/access"
	"github.com/romariotrain/media-pipeline/internal/media/httpapi"
	"github.com/romariotrain/media-pipeline/internal/media/resolve"
	"github.com/romariotrain/media-pipeline/internal/media/upload"
	"github.com/romariotrain/media-pipeline/internal/platform/metrics"
	"github.com/romariotrain/media-pipeline/internal/storage/postgres"
	"github.com/romariotrain/media-pipeline/internal/storage/s3"
)

func run(ctx context.Context, logger zerolog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		logger = logger.Level(lvl)
	}

	db, err := postgres.Connect(ctx, cfg.DatabaseURL, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns)
	if err != nil {
		return fmt.Errorf("db connect: %w", err)
	}
	defer db.Close()

	store, err := s3.New(ctx, s3.Config{
		Endpoint:       cfg.S3Endpoint,
		PublicEndpoint: cfg.S3PublicEndpoint,
		Region:         cfg.S3Region,
		Bucket:         cfg.S3Bucket,
		AccessKeyID:    cfg.S3AccessKeyID,
		SecretKey:      cfg.S3SecretKey,
		UsePathStyle:   cfg.S3UsePathStyle,
	}, logger)
	if err != nil {
		return fmt.Errorf("s3 init: %w", err)
	}

	// Dependencies
	m := metrics.New()
	outboxRepo := postgres.NewOutboxRepo(db)
	assetRepo := postgres.NewAssetRepo(db, outboxRepo)
	relRepo := postgres.NewRelationshipRepo(db)

	gateway := upload.New(store, assetRepo, logger, m)
	resolver := resolve.New(store)
	gate := access.New(relRepo, logger).WithMetrics(m)

	h := httpapi.New(gateway, assetRepo, resolver, gate, logger)
	router := httpapi.NewRouter(h, m)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil {
			errCh <- err
		}
	}()
	logger.Info().Str("addr", cfg.HTTPAddr).Msg("http server listening")

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil

	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen and serve: %w", err)
	}
}
