package httpd

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/RubachokBoss/relief-fund/portal-service/internal/models"
	"github.com/RubachokBoss/relief-fund/portal-service/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// defaultMaxUploadBytes bounds what the handler buffers for a single file.
// Larger parts are passed on without content so the validator can reject
// them by size.
const defaultMaxUploadBytes int64 = 5 * 1024 * 1024

type Handler struct {
	documentService     service.DocumentService
	progressService     service.ProgressService
	statusService       service.StatusService
	notificationService service.NotificationService
	studentService      service.StudentService
	assistantService    service.AssistantService
	maxUploadBytes      int64
	logger              zerolog.Logger
}

type Services struct {
	Documents     service.DocumentService
	Progress      service.ProgressService
	Status        service.StatusService
	Notifications service.NotificationService
	Students      service.StudentService
	Assistant     service.AssistantService
}

func NewHandler(services Services, maxUploadBytes int64, logger zerolog.Logger) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = defaultMaxUploadBytes
	}

	return &Handler{
		documentService:     services.Documents,
		progressService:     services.Progress,
		statusService:       services.Status,
		notificationService: services.Notifications,
		studentService:      services.Students,
		assistantService:    services.Assistant,
		maxUploadBytes:      maxUploadBytes,
		logger:              logger,
	}
}

func (h *Handler) RegisterRoutes(router chi.Router) {
	router.Get("/health", h.HealthCheck)

	router.Route("/api/v1", func(api chi.Router) {
		api.Get("/catalog", h.GetCatalog)

		api.Group(func(r chi.Router) {
			r.Use(Identify(h.logger))

			r.Route("/students", func(r chi.Router) {
				r.Get("/", h.ListStudents)
				r.Route("/{studentID}", func(r chi.Router) {
					r.Put("/", h.RegisterEnrollment)
					r.Get("/", h.GetStudent)
					r.Put("/bank-details", h.UpdateBankDetails)
					r.Get("/status", h.GetApplicationStatus)
					r.Put("/status", h.SetApplicationStatus)
					r.Get("/progress", h.GetProgress)
					r.Get("/documents", h.ListDocuments)
					r.Post("/documents", h.UploadDocument)
					r.Get("/notifications", h.ListNotifications)
					r.Get("/notifications/unread", h.CountUnreadNotifications)
					r.Post("/notifications/{id}/read", h.MarkNotificationRead)
				})
			})

			r.Route("/documents", func(r chi.Router) {
				r.Delete("/{id}", h.DeleteDocument)
				r.Get("/{id}/file", h.DownloadDocument)
				r.Put("/{id}/status", h.UpdateDocumentStatus)
			})

			r.Route("/assistant", func(r chi.Router) {
				r.Post("/messages", h.AskAssistant)
				r.Get("/conversations/{id}", h.GetConversation)
			})
		})
	})
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":    "healthy",
		"service":   "portal-service",
		"timestamp": time.Now().UTC(),
	}

	writeJSON(w, http.StatusOK, response)
}

func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *models.ValidationError

	switch {
	case errors.As(err, &validationErr):
		writeCodedError(w, http.StatusUnprocessableEntity, string(validationErr.Reason), err.Error())
	case errors.Is(err, models.ErrQuotaExceeded):
		writeCodedError(w, http.StatusConflict, "quota_exceeded",
			"the yearly limit for this document type has been reached")
	case errors.Is(err, models.ErrSuperseded):
		writeCodedError(w, http.StatusConflict, "superseded", err.Error())
	case errors.Is(err, models.ErrForbidden):
		writeCodedError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, models.ErrNotFound):
		writeCodedError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, models.ErrUnauthenticated):
		writeCodedError(w, http.StatusUnauthorized, "unauthenticated", err.Error())
	case errors.Is(err, models.ErrInvalidKind):
		writeCodedError(w, http.StatusBadRequest, "invalid_kind", err.Error())
	case errors.Is(err, models.ErrInvalidReviewStatus), errors.Is(err, models.ErrInvalidAppStatus):
		writeCodedError(w, http.StatusBadRequest, "invalid_status", err.Error())
	case errors.Is(err, models.ErrInvalidProfile):
		writeCodedError(w, http.StatusBadRequest, "invalid_profile", err.Error())
	case errors.Is(err, models.ErrInvalidBankDetails):
		writeCodedError(w, http.StatusBadRequest, "invalid_bank_details", err.Error())
	case errors.Is(err, models.ErrEmptyMessage):
		writeCodedError(w, http.StatusBadRequest, "empty_message", err.Error())
	default:
		reqLog := LoggerFromContext(r.Context(), h.logger)
		reqLog.Error().
			Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("Service error")
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func decodeJSON(r *http.Request, dst interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error":   http.StatusText(status),
		"message": message,
	})
}

func writeCodedError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error":   http.StatusText(status),
		"message": message,
		"code":    code,
	})
}

func writeSuccess(w http.ResponseWriter, data interface{}) {
	writeSuccessStatus(w, http.StatusOK, data)
}

func writeCreated(w http.ResponseWriter, data interface{}) {
	writeSuccessStatus(w, http.StatusCreated, data)
}

func writeSuccessStatus(w http.ResponseWriter, status int, data interface{}) {
	response := map[string]interface{}{
		"success": true,
		"data":    data,
	}
	writeJSON(w, status, response)
}
