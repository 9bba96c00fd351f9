package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"bankbot/internal/builder"
	"bankbot/internal/config"
	"bankbot/internal/tui"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ./config.yaml or ~/.config/bankbot/config.yaml if not provided)")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: bankbot [--config=config.yaml] [knowledge-base files...]")
		flag.PrintDefaults()
	}
	flag.Parse()

	if err := run(cfgPath, flag.Args()); err != nil {
		fmt.Fprintln(os.Stderr, "bankbot:", err)
		os.Exit(1)
	}
}

func run(cfgPath string, kbFiles []string) error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	// logs must not draw over the terminal UI
	if cfg.Log.File == "" {
		cfg.Log.File = "bankbot.log"
	}
	logger, err := builder.SetupLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	c, err := builder.Build(context.Background(), cfg, logger)
	if err != nil {
		return err
	}
	ctx := c.Context(context.Background())
	summary := c.LoadKnowledgeBase(ctx, kbFiles...)

	m := tui.New(ctx, c.Service, c.Sessions, c.ModelName, summary)
	_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}

func loadConfig(path string) (*config.AppConfig, error) {
	if path == "" {
		cfg, _, err := config.LoadDefault()
		return cfg, err
	}
	return config.Load(path)
}
