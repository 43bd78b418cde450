package httpd

import (
	"net/http"

	"github.com/RubachokBoss/relief-fund/portal-service/internal/models"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) GetApplicationStatus(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "studentID")

	status, err := h.statusService.Get(r.Context(), identityOf(r), studentID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, status)
}

func (h *Handler) SetApplicationStatus(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "studentID")

	var req models.UpdateApplicationStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	status, err := h.statusService.Set(r.Context(), identityOf(r), studentID, req.Status)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, status)
}

func (h *Handler) GetProgress(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "studentID")

	report, err := h.progressService.Report(r.Context(), identityOf(r), studentID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, report)
}
