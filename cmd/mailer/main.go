package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/bootstrap"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/logger"
)

// runner abstracts the worker lifecycle.
type runner interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

type builder func() (runner, func(), error)

// Run starts the worker, waits for a signal or a crash, then stops it.
// It returns a process exit code.
func Run(build builder, sigCh <-chan os.Signal, lg zerolog.Logger) int {
	app, cleanup, err := build()
	if err != nil {
		lg.Error().Err(err).Msg("bootstrap failed")
		return 1
	}
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		lg.Info().Msg("account-mailer starting")
		err := app.Start(ctx)
		if err == nil && ctx.Err() == nil {
			err = errors.New("consumer exited")
		}
		if err != nil && !errors.Is(err, context.Canceled) {
			errCh <- err
		}
	}()

	select {
	case sig := <-sigCh:
		lg.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-errCh:
		lg.Error().Err(err).Msg("app crashed")
		return 1
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer stopCancel()

	if err := app.Stop(stopCtx); err != nil {
		lg.Error().Err(err).Msg("graceful stop failed")
		return 1
	}

	lg.Info().Msg("shutdown complete")
	return 0
}

func buildFromBootstrap() (runner, func(), error) {
	app, cleanup, err := bootstrap.NewMailer()
	if err != nil {
		return nil, nil, err
	}
	return app, cleanup, nil
}

func main() {
	logger.Init()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	os.Exit(Run(buildFromBootstrap, sigCh, zlog.Logger))
}
