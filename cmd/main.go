package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/opentruth/truth-parser-telegram-bot/internal/app"
	"github.com/opentruth/truth-parser-telegram-bot/pkg/logger"
	"go.uber.org/fx"
)

func main() {
	log := logger.New(logger.Opts{Env: os.Getenv("APP_ENV")})

	fxApp := fx.New(
		fx.Logger(log),
		app.Module,
	)

	if err := fxApp.Start(context.Background()); err != nil {
		log.Error("Failed to start application", "error", err)
		os.Exit(1)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	if err := fxApp.Stop(context.Background()); err != nil {
		log.Error("Failed to stop application", "error", err)
		os.Exit(1)
	}
}
