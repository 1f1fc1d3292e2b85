package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/fieldops/spendbot/core/config"
	"github.com/fieldops/spendbot/core/logger"
	"github.com/fieldops/spendbot/internal/app"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("spendbot: %v", err)
	}
}

func run() error {
	// Config path is optional; with no YAML file everything comes from the
	// environment (plus .env). The flag wins over CONFIG_PATH.
	cfgPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to YAML config")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return err
	}

	if err := logger.Init(cfg.LoggerSettings()); err != nil {
		return err
	}
	defer func() {
		if err := logger.Shutdown(); err != nil {
			log.Printf("logger shutdown error: %v", err)
		}
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	application, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	return application.Run(ctx)
}
