package handlers

import (
	"net/http"
	"strconv"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	middleware "github.com/markdave123-py/zapdesk/internal/api/middlewares"
	"github.com/markdave123-py/zapdesk/internal/models"
	"github.com/markdave123-py/zapdesk/internal/services"
)

const MaxCloseReasonLen = 200

type ConversationHandler struct {
	conversations *services.ConversationService
	verbose       bool
}

func NewConversationHandler(conversations *services.ConversationService, verbose bool) *ConversationHandler {
	return &ConversationHandler{conversations: conversations, verbose: verbose}
}

func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, ok := queryInt(w, q.Get("page"), "page", 1)
	if !ok {
		return
	}
	limit, ok := queryInt(w, q.Get("limit"), "limit", services.DefaultPageSize)
	if !ok {
		return
	}

	filter := models.ConversationFilter{
		Status:     models.ConversationStatus(q.Get("status")),
		AssignedTo: q.Get("assigned_to"),
	}
	items, pagination, err := h.conversations.ListConversations(r.Context(), filter, page, limit)
	if err != nil {
		writeServiceError(w, err, h.verbose)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"data":       items,
		"pagination": pagination,
	})
}

func (h *ConversationHandler) Get(w http.ResponseWriter, r *http.Request) {
	history, err := h.conversations.GetHistory(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err, h.verbose)
		return
	}
	writeData(w, http.StatusOK, history)
}

type transferRequest struct {
	AgentID string `json:"agent_id"`
}

func (h *ConversationHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if err := decodeJSON(w, r, &req); err != nil && err != errEmptyBody {
		writeError(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if req.AgentID == "" {
		req.AgentID, _ = middleware.UserIDFromContext(r.Context())
	}

	conv, err := h.conversations.TransferConversation(r.Context(), chi.URLParam(r, "id"), req.AgentID)
	if err != nil {
		writeServiceError(w, err, h.verbose)
		return
	}
	writeData(w, http.StatusOK, conv)
}

type closeRequest struct {
	Reason *string `json:"reason"`
}

func (h *ConversationHandler) Close(w http.ResponseWriter, r *http.Request) {
	var req closeRequest
	if err := decodeJSON(w, r, &req); err != nil && err != errEmptyBody {
		writeError(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if req.Reason != nil && utf8.RuneCountInString(*req.Reason) > MaxCloseReasonLen {
		writeError(w, http.StatusBadRequest, "validation failed", fieldError("reason", "must be at most 200 characters"))
		return
	}

	conv, err := h.conversations.CloseConversation(r.Context(), chi.URLParam(r, "id"), req.Reason)
	if err != nil {
		writeServiceError(w, err, h.verbose)
		return
	}
	writeData(w, http.StatusOK, conv)
}

// queryInt parses an optional integer parameter, writing a 400 on failure.
func queryInt(w http.ResponseWriter, raw, name string, def int) (int, bool) {
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		writeError(w, http.StatusBadRequest, "validation failed", fieldError(name, "must be a positive integer"))
		return 0, false
	}
	return n, true
}
