package telegram

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"

	"bankbot/internal/config"
)

// Bot long-polls Telegram and hands every update to a Handler on its own goroutine.
type Bot struct {
	api      *tgbotapi.BotAPI
	cfg      config.TelegramConfig
	handler  *Handler
	logger   *zap.Logger
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New authorizes with the bot token and builds the handler.
func New(cfg config.TelegramConfig, svc ChatService, sessions SessionStore, maxUploadBytes int64, logger *zap.Logger) (*Bot, error) {
	if cfg.Token == "" {
		return nil, errors.New("telegram token is not set")
	}
	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("create bot API: %w", err)
	}
	api.Debug = cfg.Debug

	logger.Info("telegram bot authorized",
		zap.String("username", api.Self.UserName),
		zap.Int64("id", api.Self.ID),
	)

	return &Bot{
		api:      api,
		cfg:      cfg,
		handler:  NewHandler(api, svc, sessions, maxUploadBytes),
		logger:   logger,
		stopChan: make(chan struct{}),
	}, nil
}

// Start begins polling. It returns immediately.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.cfg.UpdateTimeout
	updates := b.api.GetUpdatesChan(u)

	ctx = ctxzap.ToContext(ctx, b.logger)
	go b.processUpdates(ctx, updates)
	b.logger.Info("telegram bot started")
}

// Stop stops polling and waits up to timeout for running turns.
func (b *Bot) Stop(timeout time.Duration) error {
	b.stopOnce.Do(func() {
		close(b.stopChan)
		b.api.StopReceivingUpdates()
	})

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.logger.Info("telegram bot stopped")
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("shutdown timeout of %s exceeded", timeout)
	}
}

func (b *Bot) processUpdates(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-b.stopChan:
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.wg.Add(1)
			go func(u tgbotapi.Update) {
				defer b.wg.Done()
				b.handler.handleSafely(ctx, u)
			}(update)
		}
	}
}

// handleSafely recovers a panicking turn and tells the user.
func (h *Handler) handleSafely(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			ctxzap.Error(ctx, "panic recovered in telegram handler",
				zap.Any("panic", r),
				zap.String("stack", string(debug.Stack())),
				zap.Int("update_id", update.UpdateID),
			)
			if update.Message != nil && update.Message.Chat != nil {
				h.send(ctx, update.Message.Chat.ID, msgGenericError)
			}
		}
	}()

	start := time.Now()
	h.HandleUpdate(ctx, update)
	ctxzap.Debug(ctx, "update handled", zap.Int("update_id", update.UpdateID), zap.Duration("took", time.Since(start)))
}
