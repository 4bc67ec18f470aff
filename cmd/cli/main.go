package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/mediagate/internal/client/cli"
	"github.com/dmitrijs2005/mediagate/internal/client/config"
	"github.com/dmitrijs2005/mediagate/internal/flagx"
	"github.com/dmitrijs2005/mediagate/internal/logging"
	"github.com/joho/godotenv"
)

func main() {

	// .env is optional; real environment variables take precedence.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("unable to read .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("%v", err)
	}

	if err := run(cfg); err != nil {
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := logging.New(os.Stderr, cfg.LogLevel)

	app, err := cli.NewApp(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "unable to start", "error", err)
		return err
	}
	defer app.Close()

	if err := app.Run(ctx, flagx.PositionalArgs(os.Args[1:], config.ValueFlags)); err != nil {
		logger.Error(ctx, "command failed", "error", err)
		return err
	}
	return nil
}
