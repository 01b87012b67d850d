package main

import (
	"context"
	"os"

	"github.com/rs/zerolog"

	"github.com/romariotrain/media-pipeline/internal/app"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	os.Exit(app.Run("media", logger, func(ctx context.Context) error {
		return run(ctx, logger)
	}))
}
