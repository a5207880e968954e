package handler

import (
	"net/http"

	"forum-backend/internal/service"
	"forum-backend/internal/util"
)

// UploadHandler accepts standalone files that are not bound to a post.
type UploadHandler struct {
	service *service.UploadService
}

func NewUploadHandler(service *service.UploadService) *UploadHandler {
	return &UploadHandler{service: service}
}

func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	limit := util.MaxSize(util.AttachmentRules) + multipartOverhead
	filename, file, err := readMultipartFile(w, r, "file", limit)
	if err != nil {
		writeError(w, err)
		return
	}

	stored, err := h.service.StoreAttachment(r.Context(), filename, file)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, stored, nil)
}
