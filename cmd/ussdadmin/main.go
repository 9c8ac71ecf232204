package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/andyle182810/ussdadmin/config"
	"github.com/andyle182810/ussdadmin/logutil"
	_ "github.com/joho/godotenv/autoload"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, usage)
			os.Exit(2) //nolint:mnd
		}

		log.Fatal().Err(err).Msg("Command failed")
	}
}

func run(args []string) error {
	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logutil.Setup(os.Stderr, cfg.LogLevel, cfg.LogPretty)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := newApplication(cfg, os.Stdout)
	if err != nil {
		return err
	}

	defer func() {
		if closeErr := app.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("Failed to close application")
		}
	}()

	return app.dispatch(ctx, args)
}
