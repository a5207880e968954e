package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"forum-backend/internal/middleware"
	"forum-backend/internal/model"
	"forum-backend/internal/service"
)

type LikeHandler struct {
	service *service.LikeService
}

func NewLikeHandler(service *service.LikeService) *LikeHandler {
	return &LikeHandler{service: service}
}

func (h *LikeHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	var payload model.ToggleLikeRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, err)
		return
	}

	outcome, err := h.service.Toggle(r.Context(), middleware.ActorFromRequest(r), payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, outcome, nil)
}

// Counts is public; the viewer's own reaction is included when a token is sent.
func (h *LikeHandler) Counts(w http.ResponseWriter, r *http.Request) {
	viewer := middleware.ActorFromRequest(r)

	counts, err := h.service.Counts(r.Context(), chi.URLParam(r, "targetType"), chi.URLParam(r, "targetID"), viewer.UserID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, counts, nil)
}
