package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"

	"bankbot/internal/ingest"
	"bankbot/internal/pkg/logger"
	"bankbot/internal/service"
	"bankbot/internal/session"
	"bankbot/internal/transcript"
)

// Messenger is the part of *tgbotapi.BotAPI the handler uses.
type Messenger interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

type ChatService interface {
	Ask(ctx context.Context, sess *session.Session, text string) service.Reply
	UploadDocument(ctx context.Context, sess *session.Session, filename string, r io.Reader) (*session.Document, error)
	ClearDocument(ctx context.Context, sess *session.Session)
	KnowledgeBaseStats(ctx context.Context) service.Stats
}

type SessionStore interface {
	GetOrCreate(id string) *session.Session
	Reset(id string) *session.Session
}

// Handler turns chat updates into BankBot turns. Each chat maps to one session.
type Handler struct {
	api            Messenger
	service        ChatService
	sessions       SessionStore
	httpClient     *http.Client
	maxUploadBytes int64
}

func NewHandler(api Messenger, svc ChatService, sessions SessionStore, maxUploadBytes int64) *Handler {
	return &Handler{
		api:            api,
		service:        svc,
		sessions:       sessions,
		httpClient:     &http.Client{},
		maxUploadBytes: maxUploadBytes,
	}
}

func sessionKey(chatID int64) string { return "tg:" + strconv.FormatInt(chatID, 10) }

// HandleUpdate processes one update. Only messages are handled.
func (h *Handler) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.Chat == nil {
		return
	}
	ctx = logger.AddFields(ctx, zap.Int64("chat_id", msg.Chat.ID), zap.Int("update_id", update.UpdateID))

	switch {
	case msg.IsCommand():
		h.handleCommand(ctx, msg)
	case msg.Document != nil:
		h.handleDocument(ctx, msg)
	case strings.TrimSpace(msg.Text) != "":
		h.handleText(ctx, msg)
	}
}

func (h *Handler) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	ctx = logger.WithAction(ctx, "command:"+msg.Command())

	switch msg.Command() {
	case "start", "help":
		h.send(ctx, chatID, msgWelcome)
	case "new":
		h.sessions.Reset(sessionKey(chatID))
		h.send(ctx, chatID, msgNewChat)
	case "clear":
		sess := h.sessions.GetOrCreate(sessionKey(chatID))
		if !sess.HasDocument() {
			h.send(ctx, chatID, msgNoDocument)
			return
		}
		h.service.ClearDocument(ctx, sess)
		h.send(ctx, chatID, msgDocumentCleared)
	case "status":
		h.send(ctx, chatID, knowledgeBaseStatus(h.service.KnowledgeBaseStats(ctx)))
	case "transcript":
		h.sendTranscript(ctx, chatID)
	default:
		h.send(ctx, chatID, msgUnknownCommand)
	}
}

func (h *Handler) handleText(ctx context.Context, msg *tgbotapi.Message) {
	sess := h.sessions.GetOrCreate(sessionKey(msg.Chat.ID))

	stop := keepTyping(ctx, h.api, msg.Chat.ID)
	reply := h.service.Ask(ctx, sess, msg.Text)
	stop()

	for _, part := range splitMessage(reply.Text, maxMessageRunes) {
		h.send(ctx, msg.Chat.ID, part)
	}
}

func (h *Handler) handleDocument(ctx context.Context, msg *tgbotapi.Message) {
	ctx = logger.WithAction(ctx, "upload")
	chatID := msg.Chat.ID
	name := msg.Document.FileName

	if _, err := ingest.ForFile(name); err != nil {
		h.send(ctx, chatID, uploadError(err))
		return
	}
	if h.maxUploadBytes > 0 && int64(msg.Document.FileSize) > h.maxUploadBytes {
		h.send(ctx, chatID, msgFileTooLarge)
		return
	}

	stop := keepTyping(ctx, h.api, chatID)
	defer stop()

	body, err := h.download(ctx, msg.Document.FileID)
	if err != nil {
		ctxzap.Error(ctx, "failed to download document", zap.Error(err))
		h.send(ctx, chatID, msgGenericError)
		return
	}
	defer body.Close()

	sess := h.sessions.GetOrCreate(sessionKey(chatID))
	doc, err := h.service.UploadDocument(ctx, sess, name, body)
	if err != nil {
		ctxzap.Warn(ctx, "document rejected", zap.String("name", name), zap.Error(err))
		h.send(ctx, chatID, uploadError(err))
		return
	}
	terms, more := sess.DetectedTerms(5)
	h.send(ctx, chatID, documentLoaded(doc, terms, more))
}

func (h *Handler) download(ctx context.Context, fileID string) (io.ReadCloser, error) {
	url, err := h.api.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("get file url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("download file: status %d", resp.StatusCode)
	}
	if h.maxUploadBytes > 0 {
		return struct {
			io.Reader
			io.Closer
		}{io.LimitReader(resp.Body, h.maxUploadBytes), resp.Body}, nil
	}
	return resp.Body, nil
}

func (h *Handler) sendTranscript(ctx context.Context, chatID int64) {
	sess := h.sessions.GetOrCreate(sessionKey(chatID))
	msgs := sess.Messages()
	if len(msgs) == 0 {
		h.send(ctx, chatID, msgEmptyChat)
		return
	}
	data, err := transcript.PDFFormatter{}.Format(sess.Title(), msgs)
	if err != nil {
		ctxzap.Error(ctx, "failed to render transcript", zap.Error(err))
		h.send(ctx, chatID, msgGenericError)
		return
	}
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: "chat_history.pdf", Bytes: data})
	if _, err := h.api.Send(doc); err != nil {
		ctxzap.Error(ctx, "failed to send transcript", zap.Error(err))
	}
}

func (h *Handler) send(ctx context.Context, chatID int64, text string) {
	if _, err := h.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		ctxzap.Error(ctx, "failed to send message", zap.Error(err))
	}
}

func uploadError(err error) string {
	switch {
	case errors.Is(err, ingest.ErrUnsupported):
		return "Unsupported file type. Send a PDF, DOCX, TXT, Markdown or HTML file."
	case errors.Is(err, ingest.ErrOCRUnavailable):
		return "I can't read text from images. Please send the document as PDF or DOCX."
	case errors.Is(err, ingest.ErrNoText):
		return "No readable text found in the file."
	default:
		return msgGenericError
	}
}
