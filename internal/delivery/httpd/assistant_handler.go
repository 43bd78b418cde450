package httpd

import (
	"net/http"

	"github.com/RubachokBoss/relief-fund/portal-service/internal/models"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) AskAssistant(w http.ResponseWriter, r *http.Request) {
	var req models.AskRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	response, err := h.assistantService.Ask(r.Context(), identityOf(r), &req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, response)
}

func (h *Handler) GetConversation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	conversation, err := h.assistantService.Conversation(r.Context(), identityOf(r), id)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, conversation)
}
