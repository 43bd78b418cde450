package httpd

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/RubachokBoss/relief-fund/portal-service/internal/models"

	"github.com/go-chi/chi/v5"
)

// multipartMemory is how much of a form is kept in memory before spilling to disk.
const multipartMemory = 32 << 20

func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "studentID")
	kind := r.URL.Query().Get("kind")

	records, err := h.documentService.List(r.Context(), identityOf(r), studentID, kind)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, records)
}

func (h *Handler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "studentID")

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		writeError(w, http.StatusBadRequest, "Failed to parse form data")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "File is required")
		return
	}
	defer file.Close()

	kind := r.FormValue("kind")
	if kind == "" {
		writeError(w, http.StatusBadRequest, "kind is required")
		return
	}

	req := &models.UploadDocumentRequest{
		StudentID: studentID,
		Kind:      kind,
		FileName:  header.Filename,
		MimeType:  header.Header.Get("Content-Type"),
		Size:      header.Size,
	}

	// Oversized files are left unread; the validator rejects them by size.
	if header.Size <= h.maxUploadBytes {
		req.Content, err = io.ReadAll(file)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to read file")
			return
		}
	}

	response, err := h.documentService.Submit(r.Context(), identityOf(r), req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeCreated(w, response)
}

func (h *Handler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.documentService.Delete(r.Context(), identityOf(r), id); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, map[string]string{"id": id})
}

func (h *Handler) DownloadDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	file, err := h.documentService.Download(r.Context(), identityOf(r), id)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	defer file.Content.Close()

	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": file.Record.FileName})
	if disposition == "" {
		disposition = fmt.Sprintf("attachment; filename=%q", file.Record.ID)
	}

	w.Header().Set("Content-Type", file.Record.MimeType)
	w.Header().Set("Content-Length", strconv.FormatInt(file.Size, 10))
	w.Header().Set("Content-Disposition", disposition)
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, file.Content); err != nil {
		reqLog := LoggerFromContext(r.Context(), h.logger)
		reqLog.Warn().
			Err(err).
			Str("record_id", file.Record.ID).
			Msg("Document download interrupted")
	}
}

func (h *Handler) UpdateDocumentStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req models.UpdateReviewStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	record, err := h.documentService.SetStatus(r.Context(), identityOf(r), id, req.Status)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, record)
}
