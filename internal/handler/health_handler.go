package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"forum-backend/pkg/apierror"
)

type Pinger interface {
	Health(ctx context.Context) error
}

type HealthHandler struct {
	db Pinger
}

func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{db: db}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.Health(ctx); err != nil {
		slog.Warn("health check failed", "error", err)
		writeError(w, apierror.New("UNAVAILABLE", "database unavailable", "", http.StatusServiceUnavailable))
		return
	}

	writeSuccess(w, http.StatusOK, map[string]string{"status": "ok", "database": "up"}, nil)
}
