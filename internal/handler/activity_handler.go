package handler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"forum-backend/internal/middleware"
	"forum-backend/internal/model"
	"forum-backend/internal/service"
)

type ActivityHandler struct {
	service *service.ActivityService
}

func NewActivityHandler(service *service.ActivityService) *ActivityHandler {
	return &ActivityHandler{service: service}
}

func (h *ActivityHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	items, meta, err := h.service.Query(r.Context(), model.ActivityQuery{
		UserID: strings.TrimSpace(query.Get("user_id")),
		Action: strings.TrimSpace(query.Get("action")),
		Page:   parseIntOrDefault(query.Get("page"), 1),
		Limit:  parseIntOrDefault(query.Get("limit"), 50),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, items, &meta)
}

func (h *ActivityHandler) Mine(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromRequest(r)
	h.recent(w, r, actor, actor.UserID)
}

func (h *ActivityHandler) ForUser(w http.ResponseWriter, r *http.Request) {
	h.recent(w, r, middleware.ActorFromRequest(r), chi.URLParam(r, "userID"))
}

func (h *ActivityHandler) recent(w http.ResponseWriter, r *http.Request, actor model.Actor, userID string) {
	items, err := h.service.Recent(r.Context(), actor, userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, items, nil)
}
