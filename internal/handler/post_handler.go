package handler

import (
	"net/http"
	"path"

	"github.com/go-chi/chi/v5"

	"forum-backend/internal/middleware"
	"forum-backend/internal/model"
	"forum-backend/internal/service"
	"forum-backend/internal/util"
)

type PostHandler struct {
	service *service.PostService
}

func NewPostHandler(service *service.PostService) *PostHandler {
	return &PostHandler{service: service}
}

func (h *PostHandler) ListByThread(w http.ResponseWriter, r *http.Request) {
	posts, err := h.service.ListByThread(r.Context(), chi.URLParam(r, "threadID"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, posts, nil)
}

func (h *PostHandler) Create(w http.ResponseWriter, r *http.Request) {
	var payload model.PostRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, err)
		return
	}

	post, err := h.service.Create(r.Context(), middleware.ActorFromRequest(r), payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, post, nil)
}

func (h *PostHandler) Update(w http.ResponseWriter, r *http.Request) {
	var payload model.UpdatePostRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, err)
		return
	}

	post, err := h.service.Update(r.Context(), middleware.ActorFromRequest(r), chi.URLParam(r, "id"), payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, post, nil)
}

func (h *PostHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), middleware.ActorFromRequest(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}

	writeMessage(w, http.StatusOK, "Post deleted")
}

func (h *PostHandler) Moderate(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Moderate(r.Context(), middleware.ActorFromRequest(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}

	writeMessage(w, http.StatusOK, "Post removed by moderator")
}

func (h *PostHandler) UploadAttachment(w http.ResponseWriter, r *http.Request) {
	limit := util.MaxSize(util.AttachmentRules) + multipartOverhead
	filename, file, err := readMultipartFile(w, r, "file", limit)
	if err != nil {
		writeError(w, err)
		return
	}

	stored, err := h.service.Attach(r.Context(), middleware.ActorFromRequest(r), chi.URLParam(r, "id"), filename, file)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, stored, nil)
}

func (h *PostHandler) Attachment(w http.ResponseWriter, r *http.Request) {
	body, obj, err := h.service.OpenAttachment(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	streamObject(w, body, obj, "attachment", path.Base(obj.Key))
}
