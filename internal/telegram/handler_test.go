package telegram

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bankbot/internal/chunker"
	"bankbot/internal/classifier"
	"bankbot/internal/gateway"
	"bankbot/internal/prompt"
	"bankbot/internal/service"
	"bankbot/internal/session"
	"bankbot/internal/summarizer"
)

type fakeMessenger struct {
	mu      sync.Mutex
	texts   []string
	files   []string
	actions int
	fileURL string
}

func (f *fakeMessenger) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch m := c.(type) {
	case tgbotapi.MessageConfig:
		f.texts = append(f.texts, m.Text)
	case tgbotapi.DocumentConfig:
		f.files = append(f.files, m.File.(tgbotapi.FileBytes).Name)
	}
	return tgbotapi.Message{}, nil
}

func (f *fakeMessenger) Request(tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	f.actions++
	f.mu.Unlock()
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeMessenger) GetFileDirectURL(string) (string, error) {
	if f.fileURL == "" {
		return "", errors.New("no file")
	}
	return f.fileURL, nil
}

func (f *fakeMessenger) last() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.texts) == 0 {
		return ""
	}
	return f.texts[len(f.texts)-1]
}

func newHandler(t *testing.T) (*Handler, *fakeMessenger, *session.Store) {
	t.Helper()
	svc := service.NewBankService(
		classifier.New(),
		chunker.NewWindowChunker(800, 100),
		gateway.NewMockClient(),
		summarizer.NewFrequencySummarizer(),
		nil,
		service.Options{},
	)
	store := session.NewStore(0, session.Settings{Temperature: 0.7, MaxTokens: 512})
	api := &fakeMessenger{}
	return NewHandler(api, svc, store, 1<<20), api, store
}

func textUpdate(chatID int64, text string) tgbotapi.Update {
	msg := &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: chatID}, Text: text}
	if strings.HasPrefix(text, "/") {
		cmd, _, _ := strings.Cut(text, " ")
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}}
	}
	return tgbotapi.Update{Message: msg}
}

func documentUpdate(chatID int64, name string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Chat:     &tgbotapi.Chat{ID: chatID},
		Document: &tgbotapi.Document{FileID: "file-1", FileName: name, FileSize: 100},
	}}
}

func TestHandleUpdate_TextTurn(t *testing.T) {
	h, api, store := newHandler(t)

	h.HandleUpdate(context.Background(), textUpdate(42, "Tell me about football"))

	assert.Equal(t, prompt.OutOfDomainReply, api.last())
	assert.GreaterOrEqual(t, api.actions, 1)
	assert.Len(t, store.GetOrCreate("tg:42").Messages(), 2)
}

func TestHandleUpdate_Commands(t *testing.T) {
	h, api, store := newHandler(t)
	ctx := context.Background()

	h.HandleUpdate(ctx, textUpdate(7, "/start"))
	assert.Equal(t, msgWelcome, api.last())

	h.HandleUpdate(ctx, textUpdate(7, "/clear"))
	assert.Equal(t, msgNoDocument, api.last())

	h.HandleUpdate(ctx, textUpdate(7, "/status"))
	assert.Equal(t, "Knowledge base: "+service.StatusDisabled, api.last())

	h.HandleUpdate(ctx, textUpdate(7, "/transcript"))
	assert.Equal(t, msgEmptyChat, api.last())

	h.HandleUpdate(ctx, textUpdate(7, "what is a cheque"))
	before := store.GetOrCreate("tg:7")
	require.Len(t, before.Messages(), 2)

	h.HandleUpdate(ctx, textUpdate(7, "/transcript"))
	assert.Equal(t, []string{"chat_history.pdf"}, api.files)

	h.HandleUpdate(ctx, textUpdate(7, "/new"))
	assert.Equal(t, msgNewChat, api.last())
	assert.Empty(t, store.GetOrCreate("tg:7").Messages())

	h.HandleUpdate(ctx, textUpdate(7, "/launch"))
	assert.Equal(t, msgUnknownCommand, api.last())
}

func TestHandleUpdate_DocumentUpload(t *testing.T) {
	h, api, store := newHandler(t)
	files := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("Home loan EMI is due on the 5th. Late payment attracts a penalty of 2 percent."))
	}))
	defer files.Close()
	api.fileURL = files.URL

	h.HandleUpdate(context.Background(), documentUpdate(9, "terms.txt"))

	got := api.last()
	assert.True(t, strings.HasPrefix(got, "Loaded terms.txt."), got)
	assert.Contains(t, got, "Banking terms detected: ")
	assert.True(t, store.GetOrCreate("tg:9").HasDocument())

	h.HandleUpdate(context.Background(), textUpdate(9, "/clear"))
	assert.Equal(t, msgDocumentCleared, api.last())
	assert.False(t, store.GetOrCreate("tg:9").HasDocument())
}

func TestHandleUpdate_DocumentRejected(t *testing.T) {
	h, api, _ := newHandler(t)
	ctx := context.Background()

	h.HandleUpdate(ctx, documentUpdate(1, "photo.jpg"))
	assert.Contains(t, api.last(), "images")

	h.HandleUpdate(ctx, documentUpdate(1, "sheet.xlsx"))
	assert.Contains(t, api.last(), "Unsupported file type")

	h.HandleUpdate(ctx, documentUpdate(1, "notes.txt"))
	assert.Equal(t, msgGenericError, api.last())
}

func TestHandleSafely_RecoversPanics(t *testing.T) {
	api := &fakeMessenger{}
	h := &Handler{api: api}

	assert.NotPanics(t, func() {
		h.handleSafely(context.Background(), textUpdate(3, "hello"))
	})
	assert.Equal(t, msgGenericError, api.last())
}

func TestSplitMessage(t *testing.T) {
	assert.Equal(t, []string{""}, splitMessage("", 10))
	assert.Equal(t, []string{"short"}, splitMessage("short", 10))
	assert.Equal(t, []string{"abcdefghij", "klm"}, splitMessage("abcdefghijklm", 10))
	assert.Equal(t, []string{"line one\n", "line two"}, splitMessage("line one\nline two", 10))

	parts := splitMessage(strings.Repeat("₹", 9000), maxMessageRunes)
	require.Len(t, parts, 3)
	assert.Len(t, []rune(parts[0]), maxMessageRunes)
}

func TestDocumentLoaded(t *testing.T) {
	doc := &session.Document{Name: "a.pdf", Summary: "Short."}

	got := documentLoaded(doc, []string{"atm", "bank"}, true)

	assert.Equal(t, "Loaded a.pdf.\nBanking terms detected: atm, bank and more...\n\nSummary: Short.", got)
}
