package handler

import (
	"net/http"

	"forum-backend/internal/middleware"
	"forum-backend/internal/model"
	"forum-backend/internal/service"
)

type RecoveryEmailHandler struct {
	service *service.RecoveryEmailService
}

func NewRecoveryEmailHandler(service *service.RecoveryEmailService) *RecoveryEmailHandler {
	return &RecoveryEmailHandler{service: service}
}

func (h *RecoveryEmailHandler) Get(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.Get(r.Context(), middleware.ActorFromRequest(r))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, view, nil)
}

func (h *RecoveryEmailHandler) Set(w http.ResponseWriter, r *http.Request) {
	var payload model.SetRecoveryEmailRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, err)
		return
	}

	if err := h.service.Set(r.Context(), middleware.ActorFromRequest(r), payload.Email); err != nil {
		writeError(w, err)
		return
	}

	writeMessage(w, http.StatusOK, "Verification code sent")
}

func (h *RecoveryEmailHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var payload model.VerifyRecoveryEmailRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, err)
		return
	}

	email, err := h.service.Verify(r.Context(), middleware.ActorFromRequest(r), payload.OTP)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]string{"recovery_email": email}, nil)
}
