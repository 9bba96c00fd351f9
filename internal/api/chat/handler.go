package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"

	"bankbot/internal/ingest"
	"bankbot/internal/pkg/logger"
	"bankbot/internal/pkg/response"
	"bankbot/internal/session"
	"bankbot/internal/transcript"
)

type Handler struct {
	service        ChatService
	sessions       SessionStore
	maxUploadBytes int64
}

func NewHandler(service ChatService, sessions SessionStore, maxUploadBytes int64) *Handler {
	return &Handler{service: service, sessions: sessions, maxUploadBytes: maxUploadBytes}
}

// CreateSession handles POST /sessions
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "CreateSession")
	sess := h.sessions.Create()
	ctxzap.Info(ctx, "session created", zap.String("session_id", sess.ID))
	response.Created(w, toSessionDTO(sess))
}

// ListSessions handles GET /sessions
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	sessions := h.sessions.List()
	out := make([]SessionSummaryDTO, len(sessions))
	for i, s := range sessions {
		out[i] = toSummaryDTO(s)
	}
	response.Success(w, out)
}

// GetSession handles GET /sessions/{id}
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	ctx, sess, ok := h.session(w, r, "GetSession")
	if !ok {
		return
	}
	ctxzap.Debug(ctx, "session fetched")
	response.Success(w, toSessionDTO(sess))
}

// DeleteSession handles DELETE /sessions/{id}
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	ctx := logger.AddFields(r.Context(), zap.String("session_id", chi.URLParam(r, "id")), zap.String("action", "DeleteSession"))
	if err := h.sessions.Delete(chi.URLParam(r, "id")); err != nil {
		h.respondError(ctx, w, err)
		return
	}
	response.NoContent(w)
}

// UpdateSettings handles PATCH /sessions/{id}/settings
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	ctx, sess, ok := h.session(w, r, "UpdateSettings")
	if !ok {
		return
	}
	var req SettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	settings := sess.Settings()
	if req.Temperature != nil {
		settings.Temperature = *req.Temperature
	}
	if req.MaxTokens != nil {
		settings.MaxTokens = *req.MaxTokens
	}
	if err := sess.SetSettings(settings); err != nil {
		h.respondError(ctx, w, err)
		return
	}
	ctxzap.Info(ctx, "settings updated", zap.Float64("temperature", settings.Temperature), zap.Int("max_tokens", settings.MaxTokens))
	response.Success(w, settings)
}

// SendMessage handles POST /sessions/{id}/messages
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	ctx, sess, ok := h.session(w, r, "SendMessage")
	if !ok {
		return
	}
	var req MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		response.Error(w, http.StatusBadRequest, "text is required")
		return
	}
	response.Success(w, toMessageResponse(h.service.Ask(ctx, sess, req.Text)))
}

// UploadDocument handles PUT /sessions/{id}/document with a multipart "file" field.
func (h *Handler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	ctx, sess, ok := h.session(w, r, "UploadDocument")
	if !ok {
		return
	}
	if h.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			response.Error(w, http.StatusRequestEntityTooLarge, "file is too large")
			return
		}
		response.Error(w, http.StatusBadRequest, "multipart field \"file\" is required")
		return
	}
	defer file.Close()

	doc, err := h.service.UploadDocument(ctx, sess, header.Filename, file)
	if err != nil {
		h.respondError(ctx, w, err)
		return
	}
	response.Success(w, doc)
}

// ClearDocument handles DELETE /sessions/{id}/document
func (h *Handler) ClearDocument(w http.ResponseWriter, r *http.Request) {
	ctx, sess, ok := h.session(w, r, "ClearDocument")
	if !ok {
		return
	}
	h.service.ClearDocument(ctx, sess)
	response.NoContent(w)
}

// Transcript handles GET /sessions/{id}/transcript?format=txt|pdf|docx
func (h *Handler) Transcript(w http.ResponseWriter, r *http.Request) {
	ctx, sess, ok := h.session(w, r, "Transcript")
	if !ok {
		return
	}
	f, err := transcript.ForFormat(transcript.Format(r.URL.Query().Get("format")))
	if err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	data, err := f.Format(sess.Title(), sess.Messages())
	if err != nil {
		h.respondError(ctx, w, err)
		return
	}
	response.Attachment(w, f.ContentType(), "chat_history"+f.FileExtension(), data)
}

// KnowledgeBaseStats handles GET /knowledge-base/stats
func (h *Handler) KnowledgeBaseStats(w http.ResponseWriter, r *http.Request) {
	response.Success(w, h.service.KnowledgeBaseStats(r.Context()))
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request, action string) (context.Context, *session.Session, bool) {
	id := chi.URLParam(r, "id")
	ctx := logger.AddFields(r.Context(), zap.String("session_id", id), zap.String("action", action))
	sess, err := h.sessions.Get(id)
	if err != nil {
		h.respondError(ctx, w, err)
		return ctx, nil, false
	}
	return ctx, sess, true
}

func (h *Handler) respondError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrNotFound):
		response.Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, session.ErrInvalidTemperature), errors.Is(err, session.ErrInvalidMaxTokens):
		response.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ingest.ErrUnsupported):
		response.Error(w, http.StatusUnsupportedMediaType, err.Error())
	case errors.Is(err, ingest.ErrOCRUnavailable), errors.Is(err, ingest.ErrNoText):
		response.Error(w, http.StatusUnprocessableEntity, err.Error())
	default:
		ctxzap.Error(ctx, "request failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "internal error")
	}
}
