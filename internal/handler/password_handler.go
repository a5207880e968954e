package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"forum-backend/internal/middleware"
	"forum-backend/internal/model"
	"forum-backend/internal/service"
)

type PasswordHandler struct {
	service *service.PasswordResetService
}

func NewPasswordHandler(service *service.PasswordResetService) *PasswordHandler {
	return &PasswordHandler{service: service}
}

// RequestReset answers identically whether or not the email is known.
func (h *PasswordHandler) RequestReset(w http.ResponseWriter, r *http.Request) {
	var payload model.RequestResetRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, err)
		return
	}

	if err := h.service.Request(r.Context(), payload.Email, middleware.ClientIP(r)); err != nil {
		writeError(w, err)
		return
	}

	writeMessage(w, http.StatusOK, service.ResetRequestedMessage)
}

func (h *PasswordHandler) ValidateToken(w http.ResponseWriter, r *http.Request) {
	preview, err := h.service.Validate(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, preview, nil)
}

func (h *PasswordHandler) Reset(w http.ResponseWriter, r *http.Request) {
	var payload model.CompleteResetRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, err)
		return
	}

	if err := h.service.Complete(r.Context(), payload.Token, payload.OTP, payload.Password, middleware.ClientIP(r)); err != nil {
		writeError(w, err)
		return
	}

	writeMessage(w, http.StatusOK, "Password has been reset")
}

func (h *PasswordHandler) ListRequests(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListActive(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, items, nil)
}

func (h *PasswordHandler) MarkUsed(w http.ResponseWriter, r *http.Request) {
	if err := h.service.MarkUsed(r.Context(), middleware.ActorFromRequest(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}

	writeMessage(w, http.StatusOK, "Reset request marked as used")
}
