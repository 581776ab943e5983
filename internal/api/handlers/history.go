package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/dom/speed-dating/internal/api/middleware"
	"github.com/dom/speed-dating/internal/domain"
	"github.com/dom/speed-dating/internal/service"
)

type HistoryHandler struct {
	historyService *service.HistoryService
}

func NewHistoryHandler(historyService *service.HistoryService) *HistoryHandler {
	return &HistoryHandler{historyService: historyService}
}

// HistoryItem is one finished session as seen by its owner.
type HistoryItem struct {
	SessionID       string            `json:"sessionId"`
	RoomID          string            `json:"roomId"`
	PartnerID       string            `json:"partnerId"`
	PartnerName     string            `json:"partnerName"`
	StartedAt       string            `json:"startedAt"`
	DurationSeconds int               `json:"durationSeconds"`
	Messages        []domain.ChatLine `json:"messages"`
}

func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	records, err := h.historyService.List(r.Context(), userID, limit, offset)
	if err != nil {
		slog.Error("failed to list history",
			slog.String("user_id", userID.String()),
			slog.String("error", err.Error()),
		)
		http.Error(w, "Failed to fetch history", http.StatusInternalServerError)
		return
	}

	items := make([]HistoryItem, 0, len(records))
	for _, rec := range records {
		messages := []domain.ChatLine(rec.Messages)
		if messages == nil {
			messages = []domain.ChatLine{}
		}
		items = append(items, HistoryItem{
			SessionID:       rec.SessionID.String(),
			RoomID:          rec.RoomID.String(),
			PartnerID:       rec.PartnerID.String(),
			PartnerName:     rec.PartnerName,
			StartedAt:       rec.StartedAt.Format(time.RFC3339),
			DurationSeconds: rec.DurationSeconds,
			Messages:        messages,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(items)
}
