package httpd

import (
	"net/http"

	"github.com/RubachokBoss/relief-fund/portal-service/internal/models"

	"github.com/go-chi/chi/v5"
)

func identityOf(r *http.Request) models.Identity {
	identity, _ := IdentityFromContext(r.Context())
	return identity
}

func (h *Handler) GetCatalog(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, models.Catalog())
}

func (h *Handler) ListStudents(w http.ResponseWriter, r *http.Request) {
	students, err := h.studentService.Directory(r.Context(), identityOf(r))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, students)
}

// RegisterEnrollment upserts the profile pushed by the identity provider.
func (h *Handler) RegisterEnrollment(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "studentID")

	var req models.EnrollmentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	profile, created, err := h.studentService.RegisterEnrollment(r.Context(), identityOf(r), studentID, &req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	if created {
		writeCreated(w, profile)
		return
	}
	writeSuccess(w, profile)
}

func (h *Handler) GetStudent(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "studentID")

	profile, err := h.studentService.Get(r.Context(), identityOf(r), studentID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, profile)
}

func (h *Handler) UpdateBankDetails(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "studentID")

	var req models.BankDetails
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	profile, err := h.studentService.UpdateBankDetails(r.Context(), identityOf(r), studentID, req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, profile)
}
