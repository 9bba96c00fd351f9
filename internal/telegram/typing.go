package telegram

import (
	"context"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// The typing action expires after five seconds.
const typingInterval = 4 * time.Second

// keepTyping shows the typing indicator until the returned stop is called.
func keepTyping(ctx context.Context, api Messenger, chatID int64) (stop func()) {
	send := func() {
		if _, err := api.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)); err != nil {
			ctxzap.Debug(ctx, "failed to send typing action", zap.Error(err))
		}
	}
	send()

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(typingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				send()
			case <-done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
	return func() { close(done) }
}
