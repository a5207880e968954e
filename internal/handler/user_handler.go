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

// multipartOverhead is the slack allowed on top of the largest accepted file.
const multipartOverhead = 64 << 10

type UserHandler struct {
	service *service.UserService
}

func NewUserHandler(service *service.UserService) *UserHandler {
	return &UserHandler{service: service}
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, users, nil)
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	actor := middleware.ActorFromRequest(r)
	if actor.CanModify(user.ID) {
		writeSuccess(w, http.StatusOK, user, nil)
		return
	}
	writeSuccess(w, http.StatusOK, user.Public(), nil)
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	var payload model.UpdateProfileRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, err)
		return
	}

	user, err := h.service.UpdateProfile(r.Context(), middleware.ActorFromRequest(r), chi.URLParam(r, "id"), payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, user, nil)
}

func (h *UserHandler) Ban(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Ban(r.Context(), middleware.ActorFromRequest(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}

	writeMessage(w, http.StatusOK, "User banned")
}

func (h *UserHandler) Unban(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Unban(r.Context(), middleware.ActorFromRequest(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}

	writeMessage(w, http.StatusOK, "User unbanned")
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), middleware.ActorFromRequest(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}

	writeMessage(w, http.StatusOK, "User deleted")
}

func (h *UserHandler) UploadProfilePicture(w http.ResponseWriter, r *http.Request) {
	limit := util.MaxSize(util.ProfilePictureRules) + multipartOverhead
	filename, file, err := readMultipartFile(w, r, "file", limit)
	if err != nil {
		writeError(w, err)
		return
	}

	user, err := h.service.SetProfilePicture(r.Context(), middleware.ActorFromRequest(r), filename, file)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, user, nil)
}

func (h *UserHandler) ProfilePicture(w http.ResponseWriter, r *http.Request) {
	body, obj, err := h.service.OpenProfilePicture(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	streamObject(w, body, obj, "inline", path.Base(obj.Key))
}
