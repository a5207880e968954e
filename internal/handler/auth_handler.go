package handler

import (
	"net/http"

	"forum-backend/internal/middleware"
	"forum-backend/internal/model"
	"forum-backend/internal/service"
)

type AuthHandler struct {
	service *service.AuthService
}

func NewAuthHandler(service *service.AuthService) *AuthHandler {
	return &AuthHandler{service: service}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var payload model.RegisterRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, err)
		return
	}

	user, err := h.service.Register(r.Context(), payload, middleware.ClientIP(r))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, user, nil)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload model.LoginRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, err)
		return
	}

	token, err := h.service.Login(r.Context(), payload.Email, payload.Password, middleware.ClientIP(r))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, token, nil)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, model.ErrUnauthorized)
		return
	}

	user, err := h.service.Me(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, user, nil)
}
