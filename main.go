package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"dddkit/cmd"
	"dddkit/config"
	"dddkit/pkg/logger"
)

func main() {
	var configPath, port string
	flag.StringVar(&configPath, "config", "", "Path to config file")
	flag.StringVar(&port, "port", "", "Server port, overrides server.port")
	flag.Parse()

	if err := run(configPath, port); err != nil {
		fmt.Printf("Application startup failed: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, port string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if port != "" {
		cfg.Server.Port = port
	}
	cfg.Server.Enabled = true

	if err := logger.Init(&cfg.Log, cfg.App.Env); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	app, err := cmd.NewBuilder(cfg).Build(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	logger.Info("Serving API",
		zap.String("port", cfg.Server.Port),
		zap.Bool("outbox", cfg.Outbox.Enabled))
	return app.Run(ctx)
}
