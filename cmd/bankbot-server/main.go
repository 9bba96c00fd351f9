package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"bankbot/internal/builder"
	"bankbot/internal/config"
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

	ctx := context.Background()
	c, err := builder.Build(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to build application", zap.Error(err))
	}
	c.LoadKnowledgeBase(ctx, flag.Args()...)

	if err := builder.NewApp(c).Run(); err != nil {
		logger.Fatal("application error", zap.Error(err))
	}
}
