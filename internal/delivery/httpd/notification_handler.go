package httpd

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "studentID")

	response, err := h.notificationService.List(r.Context(), identityOf(r), studentID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, response)
}

func (h *Handler) CountUnreadNotifications(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "studentID")

	unread, err := h.notificationService.UnreadCount(r.Context(), identityOf(r), studentID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, map[string]int{"unread": unread})
}

func (h *Handler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "studentID")
	id := chi.URLParam(r, "id")

	if err := h.notificationService.MarkRead(r.Context(), identityOf(r), studentID, id); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, map[string]string{"id": id})
}
