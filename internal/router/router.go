package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"healthchat-relay/internal/handlers"
	"healthchat-relay/internal/middleware"
)

func New(chatHandler *handlers.ChatHandler, corsOrigin string) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(corsOrigin))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Get("/", chatHandler.Welcome)

	r.Route("/chat", func(r chi.Router) {
		r.Post("/", chatHandler.Chat)
		r.Get("/{conversationID}/history", chatHandler.History)
		r.Delete("/{conversationID}", chatHandler.Reset)
	})

	return r
}
