package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"insightchat-backend/internal/handlers"
	"insightchat-backend/internal/middleware"
)

type wsHandler interface {
	HandleWebSocket(w http.ResponseWriter, r *http.Request)
}

// Handlers groups everything the router mounts.
type Handlers struct {
	Conversation *handlers.ConversationHandler
	Dataset      *handlers.DatasetHandler
	Extract      *handlers.ExtractHandler
	Health       *handlers.HealthHandler
	WebSocket    wsHandler
}

func New(jwtAuth *middleware.JWTAuth, h Handlers, limiter *middleware.RateLimiter, frontendURL string) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(frontendURL))

	r.Get("/health", h.Health.Check)

	r.Route("/api/v1", func(r chi.Router) {
		// Token travels in the query string for the upgrade
		r.Get("/ws", h.WebSocket.HandleWebSocket)

		r.Group(func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Use(limiter.Middleware)
			r.Use(chimiddleware.Timeout(2 * time.Minute))

			r.Route("/datasets", func(r chi.Router) {
				r.Post("/", h.Dataset.Create)
				r.Get("/{id}/analysis", h.Dataset.GetAnalysis)
			})

			r.Route("/conversations", func(r chi.Router) {
				r.Post("/", h.Conversation.Open)
				r.Get("/{id}", h.Conversation.Get)
				r.Delete("/{id}", h.Conversation.Close)
				r.Post("/{id}/messages", h.Conversation.SendMessage)
				r.Put("/{id}/mode", h.Conversation.SetMode)
			})

			r.Post("/charts/extract", h.Extract.Charts)
			r.Get("/charts/presentation", h.Extract.Presentation)
			r.Post("/tables/extract", h.Extract.Tables)
		})
	})

	return r
}
