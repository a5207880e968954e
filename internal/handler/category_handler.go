package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"forum-backend/internal/middleware"
	"forum-backend/internal/model"
	"forum-backend/internal/service"
)

type CategoryHandler struct {
	service *service.CategoryService
}

func NewCategoryHandler(service *service.CategoryService) *CategoryHandler {
	return &CategoryHandler{service: service}
}

func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, categories, nil)
}

func (h *CategoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	category, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, category, nil)
}

func (h *CategoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var payload model.CategoryRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, err)
		return
	}

	category, err := h.service.Create(r.Context(), middleware.ActorFromRequest(r), payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, category, nil)
}

func (h *CategoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	var payload model.CategoryRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, err)
		return
	}

	category, err := h.service.Update(r.Context(), middleware.ActorFromRequest(r), chi.URLParam(r, "id"), payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, category, nil)
}

func (h *CategoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), middleware.ActorFromRequest(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}

	writeMessage(w, http.StatusOK, "Category deleted")
}
