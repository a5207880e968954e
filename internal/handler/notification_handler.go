package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"forum-backend/internal/middleware"
	"forum-backend/internal/model"
	"forum-backend/internal/service"
)

// Streamer pushes live events to one user's connection.
type Streamer interface {
	Serve(w http.ResponseWriter, r *http.Request, userID string) error
}

type NotificationHandler struct {
	service *service.NotificationService
	stream  Streamer
}

func NewNotificationHandler(service *service.NotificationService, stream Streamer) *NotificationHandler {
	return &NotificationHandler{service: service, stream: stream}
}

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	items, err := h.service.List(r.Context(), middleware.ActorFromRequest(r), model.NotificationQuery{
		UnreadOnly: strings.EqualFold(query.Get("unread"), "true"),
		Limit:      parseIntOrDefault(query.Get("limit"), 20),
		Offset:     parseIntOrDefault(query.Get("offset"), 0),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, items, nil)
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	var payload model.MarkReadRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &payload); err != nil {
			writeError(w, err)
			return
		}
	}

	updated, err := h.service.MarkRead(r.Context(), middleware.ActorFromRequest(r), payload.IDs)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]int64{"updated": updated}, nil)
}

// Stream upgrades to a websocket that receives the caller's notifications
// as they happen. Stored notifications remain the source of truth.
func (h *NotificationHandler) Stream(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromRequest(r)
	if err := h.stream.Serve(w, r, actor.UserID); err != nil {
		slog.Debug("notification stream not opened", "user_id", actor.UserID, "error", err)
	}
}
