package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/markdave123-py/zapdesk/internal/models"
	"github.com/markdave123-py/zapdesk/internal/services"
)

type FAQHandler struct {
	faqs    *services.FAQService
	verbose bool
}

func NewFAQHandler(faqs *services.FAQService, verbose bool) *FAQHandler {
	return &FAQHandler{faqs: faqs, verbose: verbose}
}

func (h *FAQHandler) List(w http.ResponseWriter, r *http.Request) {
	faqs, err := h.faqs.ListActive(r.Context())
	if err != nil {
		writeServiceError(w, err, h.verbose)
		return
	}
	writeData(w, http.StatusOK, faqs)
}

func (h *FAQHandler) Get(w http.ResponseWriter, r *http.Request) {
	faq, err := h.faqs.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err, h.verbose)
		return
	}
	writeData(w, http.StatusOK, faq)
}

func (h *FAQHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in services.FAQInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	faq, err := h.faqs.Create(r.Context(), in)
	if err != nil {
		writeServiceError(w, err, h.verbose)
		return
	}
	writeData(w, http.StatusCreated, faq)
}

func (h *FAQHandler) Update(w http.ResponseWriter, r *http.Request) {
	var patch models.FAQPatch
	if err := decodeJSON(w, r, &patch); err != nil && err != errEmptyBody {
		writeError(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	faq, err := h.faqs.Update(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		writeServiceError(w, err, h.verbose)
		return
	}
	writeData(w, http.StatusOK, faq)
}

func (h *FAQHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.faqs.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, err, h.verbose)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "faq deleted"})
}
