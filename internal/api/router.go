package api

import (
	"net/http"

	"github.com/dom/speed-dating/internal/api/handlers"
	"github.com/dom/speed-dating/internal/api/middleware"
	"github.com/dom/speed-dating/internal/config"
	"github.com/dom/speed-dating/internal/service"
	"github.com/dom/speed-dating/internal/websocket"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// NewRouter builds the HTTP surface. metricsHandler may be nil, in which case
// /metrics is not mounted.
func NewRouter(services *service.Services, hub *websocket.Hub, metricsHandler http.Handler, cfg *config.Config) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.AllowedOrigin))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})
	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler)
	}

	authHandler := handlers.NewAuthHandler(services.Auth)
	queueHandler := handlers.NewQueueHandler(services.Queue)
	historyHandler := handlers.NewHistoryHandler(services.History)
	wsHandler := handlers.NewWebSocketHandler(hub, services.Auth, cfg.AllowedOrigin)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/refresh", authHandler.Refresh)

			r.Group(func(r chi.Router) {
				r.Use(middleware.Auth(services.Auth))
				r.Get("/me", authHandler.Me)
				r.Post("/logout", authHandler.Logout)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(services.Auth))
			r.Use(middleware.NotBanned(services.Auth))
			r.Get("/queue", queueHandler.Get)
			r.Get("/history", historyHandler.List)
		})

		r.Get("/ws", wsHandler.Handle)
	})

	return r
}
