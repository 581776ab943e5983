package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/dom/speed-dating/internal/domain"
	"github.com/dom/speed-dating/internal/service"
	"github.com/dom/speed-dating/internal/websocket"
	ws "github.com/gorilla/websocket"
)

type WebSocketHandler struct {
	hub         *websocket.Hub
	authService *service.AuthService
	upgrader    ws.Upgrader
}

// NewWebSocketHandler accepts upgrades from allowedOrigin. An empty origin
// accepts any.
func NewWebSocketHandler(hub *websocket.Hub, authService *service.AuthService, allowedOrigin string) *WebSocketHandler {
	return &WebSocketHandler{
		hub:         hub,
		authService: authService,
		upgrader: ws.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if allowedOrigin == "" || allowedOrigin == "*" {
					return true
				}
				return r.Header.Get("Origin") == allowedOrigin
			},
		},
	}
}

func (h *WebSocketHandler) Handle(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "Token required", http.StatusUnauthorized)
		return
	}

	user, err := h.authService.Authenticate(r.Context(), token)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidToken), errors.Is(err, domain.ErrUserNotFound):
			http.Error(w, "Invalid token", http.StatusUnauthorized)
		case errors.Is(err, service.ErrBanned):
			http.Error(w, "Account is banned", http.StatusForbidden)
		default:
			slog.Error("websocket authentication failed", slog.String("error", err.Error()))
			http.Error(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed",
			slog.String("user_id", user.ID.String()),
			slog.String("error", err.Error()),
		)
		return
	}

	client := websocket.NewClient(h.hub, conn, user.ID)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}
