package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/dom/speed-dating/internal/api/middleware"
	"github.com/dom/speed-dating/internal/service"
)

type QueueHandler struct {
	queueService *service.QueueService
}

func NewQueueHandler(queueService *service.QueueService) *QueueHandler {
	return &QueueHandler{queueService: queueService}
}

// Get returns the available users the caller may invite.
func (h *QueueHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	view, err := h.queueService.Snapshot(r.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrAccessDenied) {
			http.Error(w, "Queue access required", http.StatusPaymentRequired)
			return
		}
		slog.Error("queue snapshot failed",
			slog.String("user_id", userID.String()),
			slog.String("error", err.Error()),
		)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(view)
}
