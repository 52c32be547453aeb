package handlers

import (
	"net/http"

	"github.com/markdave123-py/zapdesk/internal/services"
)

type AuthHandler struct {
	agents  *services.AgentService
	verbose bool
}

func NewAuthHandler(agents *services.AgentService, verbose bool) *AuthHandler {
	return &AuthHandler{agents: agents, verbose: verbose}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type createAgentRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}

	token, agent, err := h.agents.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, err, h.verbose)
		return
	}
	writeData(w, http.StatusOK, map[string]any{"token": token, "agent": agent})
}

func (h *AuthHandler) CreateAgent(w http.ResponseWriter, r *http.Request) {
	var req createAgentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}

	agent, err := h.agents.Create(r.Context(), req.Email, req.Password, req.FirstName)
	if err != nil {
		writeServiceError(w, err, h.verbose)
		return
	}
	writeData(w, http.StatusCreated, agent)
}
