package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"bankbot/internal/builder"
	"bankbot/internal/config"
	"bankbot/internal/telegram"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "Path to YAML config file")
	flag.Parse()

	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	logger, err := builder.SetupLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "setup logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := builder.Build(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to build application", zap.Error(err))
	}
	c.LoadKnowledgeBase(ctx, flag.Args()...)

	bot, err := telegram.New(cfg.Telegram, c.Service, c.Sessions, cfg.Session.MaxUploadBytes, logger)
	if err != nil {
		logger.Fatal("failed to start telegram bot", zap.Error(err))
	}
	bot.Start(ctx)

	<-ctx.Done()
	logger.Info("received shutdown signal")
	if err := bot.Stop(cfg.Server.ShutdownTimeout()); err != nil {
		logger.Error("telegram bot shutdown", zap.Error(err))
	}
}
