package chat

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers session and knowledge base routes
func RegisterRoutes(r chi.Router, h *Handler) {
	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", h.CreateSession)
		r.Get("/", h.ListSessions)
		r.Get("/{id}", h.GetSession)
		r.Delete("/{id}", h.DeleteSession)
		r.Patch("/{id}/settings", h.UpdateSettings)
		r.Post("/{id}/messages", h.SendMessage)
		r.Put("/{id}/document", h.UploadDocument)
		r.Delete("/{id}/document", h.ClearDocument)
		r.Get("/{id}/transcript", h.Transcript)
	})
	r.Get("/knowledge-base/stats", h.KnowledgeBaseStats)
}
