package handler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"forum-backend/internal/middleware"
	"forum-backend/internal/model"
	"forum-backend/internal/service"
)

type ReportHandler struct {
	service *service.ReportService
}

func NewReportHandler(service *service.ReportService) *ReportHandler {
	return &ReportHandler{service: service}
}

func (h *ReportHandler) Create(w http.ResponseWriter, r *http.Request) {
	var payload model.ReportRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, err)
		return
	}

	report, err := h.service.Create(r.Context(), middleware.ActorFromRequest(r), payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, report, nil)
}

func (h *ReportHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	reports, err := h.service.List(r.Context(), model.ReportQuery{
		Status:     strings.TrimSpace(query.Get("status")),
		TargetType: strings.TrimSpace(query.Get("target_type")),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, reports, nil)
}

func (h *ReportHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var payload model.ReportStatusRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, err)
		return
	}

	report, err := h.service.UpdateStatus(r.Context(), middleware.ActorFromRequest(r), chi.URLParam(r, "id"), payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, report, nil)
}

func (h *ReportHandler) Warn(w http.ResponseWriter, r *http.Request) {
	var payload model.WarningRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, err)
		return
	}

	report, err := h.service.Warn(r.Context(), middleware.ActorFromRequest(r), chi.URLParam(r, "id"), payload.Message)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, report, nil)
}
