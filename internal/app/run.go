package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
)

type Runner func(ctx context.Context) error

// Run executes a service until SIGINT/SIGTERM and returns the process exit
// code.
func Run(serviceName string, log zerolog.Logger, run Runner) int {
	log = log.With().Str("service", serviceName).Logger()
	log.Info().Msg("starting")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- run(ctx) }()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
		// Short grace period for in-flight work.
		time.Sleep(200 * time.Millisecond)
		return 0
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("failed")
			return 1
		}
		log.Info().Msg("stopped")
		return 0
	}
}
