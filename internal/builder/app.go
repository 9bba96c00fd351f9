package builder

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"bankbot/internal/api"
	"bankbot/internal/api/chat"
)

// App is the HTTP front-end.
type App struct {
	server     *http.Server
	components *Components
	logger     *zap.Logger
}

// NewApp builds the HTTP server around c.
func NewApp(c *Components) *App {
	cfg := c.Config
	handler := chat.NewHandler(c.Service, c.Sessions, cfg.Session.MaxUploadBytes)
	router := api.SetupRouter(handler, c.Logger, cfg.Server.RequestTimeout())
	return &App{
		server: &http.Server{
			Addr:              cfg.Server.Addr,
			Handler:           router,
			ReadHeaderTimeout: 15 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		components: c,
		logger:     c.Logger,
	}
}

func (a *App) Handler() http.Handler { return a.server.Handler }

// Run serves until SIGINT/SIGTERM, then shuts down gracefully.
func (a *App) Run() error {
	errChan := make(chan error, 1)
	go func() {
		a.logger.Info("starting HTTP server", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case err := <-errChan:
		a.logger.Error("server error", zap.Error(err))
		return err
	case sig := <-sigChan:
		a.logger.Info("received shutdown signal", zap.String("signal", sig.String()))
	}
	return a.shutdown()
}

func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.components.Config.Server.ShutdownTimeout())
	defer cancel()

	a.logger.Info("shutting down server gracefully")
	if err := a.server.Shutdown(ctx); err != nil {
		a.logger.Error("server shutdown error", zap.Error(err))
		return err
	}
	a.logger.Info("application stopped gracefully")
	return nil
}
