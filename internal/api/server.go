package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"bankbot/internal/api/chat"
	"bankbot/internal/api/middleware"
	"bankbot/internal/pkg/response"
)

// SetupRouter creates and configures the HTTP router. A zero timeout leaves
// requests unbounded; batch answers over a long document can take minutes.
func SetupRouter(chatHandler *chat.Handler, logger *zap.Logger, timeout time.Duration) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(middleware.Logger(logger))
	if timeout > 0 {
		r.Use(chimiddleware.Timeout(timeout))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		response.Success(w, map[string]string{"status": "healthy"})
	})

	chat.RegisterRoutes(r, chatHandler)

	return r
}
