package handler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"forum-backend/internal/middleware"
	"forum-backend/internal/model"
	"forum-backend/internal/service"
)

type ThreadHandler struct {
	service *service.ThreadService
}

func NewThreadHandler(service *service.ThreadService) *ThreadHandler {
	return &ThreadHandler{service: service}
}

func (h *ThreadHandler) List(w http.ResponseWriter, r *http.Request) {
	threads, err := h.service.List(r.Context(), strings.TrimSpace(r.URL.Query().Get("category_id")))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, threads, nil)
}

func (h *ThreadHandler) Get(w http.ResponseWriter, r *http.Request) {
	thread, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, thread, nil)
}

func (h *ThreadHandler) Create(w http.ResponseWriter, r *http.Request) {
	var payload model.ThreadRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, err)
		return
	}

	thread, err := h.service.Create(r.Context(), middleware.ActorFromRequest(r), payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, thread, nil)
}

func (h *ThreadHandler) Update(w http.ResponseWriter, r *http.Request) {
	var payload model.UpdateThreadRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, err)
		return
	}

	thread, err := h.service.Update(r.Context(), middleware.ActorFromRequest(r), chi.URLParam(r, "id"), payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, thread, nil)
}

func (h *ThreadHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), middleware.ActorFromRequest(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}

	writeMessage(w, http.StatusOK, "Thread deleted")
}
