package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/romariotrain/media-pipeline/internal/app"
	"github.com/romariotrain/media-pipeline/internal/config"
	"github.com/romariotrain/media-pipeline/internal/media/kafka"
	"github.com/romariotrain/media-pipeline/internal/media/outbox"
	"github.com/romariotrain/media-pipeline/internal/storage/postgres"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	os.Exit(app.Run("publish", logger, func(ctx context.Context) error {
		return run(ctx, logger)
	}))
}

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

	producer, err := kafka.NewProducer(kafka.ProducerConfig{
		Brokers: cfg.KafkaBrokers,
		Topic:   cfg.KafkaTopic,
		Logger:  logger,
	})
	if err != nil {
		return fmt.Errorf("kafka producer: %w", err)
	}
	defer producer.Close()

	publisher, err := outbox.NewPublisher(outbox.PublisherConfig{
		OutboxRepo: postgres.NewOutboxRepo(db),
		Producer:   producer,
		Interval:   cfg.OutboxInterval,
		BatchSize:  cfg.OutboxBatchSize,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("outbox publisher: %w", err)
	}

	if err := publisher.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
